package crawl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ContentHash fingerprints section Markdown for change detection between
// runs. Line endings are normalized first so CRLF and LF copies of the same
// text hash alike. The result is 16 lowercase hex digits.
func ContentHash(markdown string) string {
	h := xxhash.Sum64String(strings.ReplaceAll(markdown, "\r\n", "\n"))
	s := strconv.FormatUint(h, 16)
	return strings.Repeat("0", 16-len(s)) + s
}

// DisplayURL drops the scheme of u and, when the rest is longer than
// maxLen, keeps its tail where the document ID lives.
func DisplayURL(u string, maxLen int) string {
	if i := strings.Index(u, "://"); i >= 0 {
		u = u[i+3:]
	}
	switch {
	case maxLen <= 0:
		return ""
	case len(u) <= maxLen:
		return u
	case maxLen <= 3:
		return u[len(u)-maxLen:]
	default:
		return "..." + u[len(u)-(maxLen-3):]
	}
}

var byteUnits = []string{"KB", "MB", "GB"}

// FormatBytes renders n bytes with one decimal in the largest fitting unit.
func FormatBytes(n int) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	v := float64(n) / 1024
	unit := 0
	for v >= 1024 && unit < len(byteUnits)-1 {
		v /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", v, byteUnits[unit])
}
