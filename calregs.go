// Package calregs crawls the California Code of Regulations, extracts every
// section into a line-oriented ledger, and reconciles what was discovered
// against what was extracted.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., goquery/, sqlite/, rod/).
package calregs
