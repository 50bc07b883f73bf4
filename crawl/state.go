package crawl

import (
	"sort"

	"github.com/fwojciec/calregs/bloom"
)

// State is the traversal state of one discovery run: the pending frontier,
// the visited navigation pages and the discovered section URLs. The three
// sets are disjoint. A State is owned by a single driver and is not safe for
// concurrent use.
type State struct {
	queue   []string
	head    int
	pending map[string]struct{}

	seen    *bloom.URLFilter
	visited map[string]struct{}

	discovered map[string]struct{}
}

// NewState creates an empty State whose visited prefilter is sized for n
// pages.
func NewState(n uint) *State {
	return &State{
		pending:    make(map[string]struct{}),
		seen:       bloom.NewURLFilter(max(n, 1024), bloom.DefaultFalsePositiveRate),
		visited:    make(map[string]struct{}),
		discovered: make(map[string]struct{}),
	}
}

// Enqueue adds u to the frontier. It returns false if u is already pending,
// visited or discovered.
func (s *State) Enqueue(u string) bool {
	if _, ok := s.pending[u]; ok {
		return false
	}
	if s.IsVisited(u) {
		return false
	}
	if _, ok := s.discovered[u]; ok {
		return false
	}
	s.pending[u] = struct{}{}
	s.queue = append(s.queue, u)
	return true
}

// Next removes and returns the oldest pending URL.
// The bool result is false if the frontier is empty.
func (s *State) Next() (string, bool) {
	if s.head >= len(s.queue) {
		return "", false
	}
	u := s.queue[s.head]
	s.queue[s.head] = ""
	s.head++
	if s.head == len(s.queue) {
		s.queue = s.queue[:0]
		s.head = 0
	}
	delete(s.pending, u)
	return u, true
}

// MarkVisited records u as visited. It returns false if u was already
// visited.
func (s *State) MarkVisited(u string) bool {
	if s.IsVisited(u) {
		return false
	}
	s.seen.Add(u)
	s.visited[u] = struct{}{}
	return true
}

// IsVisited reports whether u was visited.
func (s *State) IsVisited(u string) bool {
	if !s.seen.MayContain(u) {
		return false
	}
	_, ok := s.visited[u]
	return ok
}

// Requeue returns a visited URL whose fetch was interrupted to the front
// of the frontier.
func (s *State) Requeue(u string) {
	delete(s.visited, u)
	if _, ok := s.pending[u]; ok {
		return
	}
	s.pending[u] = struct{}{}
	if s.head > 0 {
		s.head--
		s.queue[s.head] = u
		return
	}
	s.queue = append([]string{u}, s.queue...)
}

// Discover adds a section URL to the discovered set and reports whether it
// was new.
func (s *State) Discover(u string) bool {
	if _, ok := s.discovered[u]; ok {
		return false
	}
	s.discovered[u] = struct{}{}
	return true
}

// Pending returns the number of URLs in the frontier.
func (s *State) Pending() int { return len(s.pending) }

// VisitedCount returns the number of visited pages.
func (s *State) VisitedCount() int { return len(s.visited) }

// DiscoveredCount returns the number of discovered section URLs.
func (s *State) DiscoveredCount() int { return len(s.discovered) }

// DiscoveredURLs returns the discovered set, sorted.
func (s *State) DiscoveredURLs() []string { return sortedKeys(s.discovered) }

// VisitedURLs returns the visited set, sorted.
func (s *State) VisitedURLs() []string { return sortedKeys(s.visited) }

// FrontierURLs returns the pending URLs in queue order.
func (s *State) FrontierURLs() []string {
	return append([]string(nil), s.queue[s.head:]...)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
