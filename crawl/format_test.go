package crawl_test

import (
	"testing"

	"github.com/fwojciec/calregs/crawl"
	"github.com/stretchr/testify/assert"
)

func TestContentHash(t *testing.T) {
	t.Parallel()

	t.Run("is stable and sixteen hex digits", func(t *testing.T) {
		t.Parallel()

		h := crawl.ContentHash("# § 1234. Definitions.")
		assert.Regexp(t, `^[0-9a-f]{16}$`, h)
		assert.Equal(t, h, crawl.ContentHash("# § 1234. Definitions."))
	})

	t.Run("ignores line ending style", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, crawl.ContentHash("a\nb\n"), crawl.ContentHash("a\r\nb\r\n"))
	})

	t.Run("differs for different content", func(t *testing.T) {
		t.Parallel()

		assert.NotEqual(t, crawl.ContentHash("(a) text"), crawl.ContentHash("(b) text"))
	})

	t.Run("pads short values", func(t *testing.T) {
		t.Parallel()

		assert.Len(t, crawl.ContentHash(""), 16)
	})
}

func TestDisplayURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		url    string
		maxLen int
		want   string
	}{
		{"drops scheme", "https://govt.westlaw.com/calregs", 80, "govt.westlaw.com/calregs"},
		{"keeps tail", "https://govt.westlaw.com/calregs/Document/I0A1B2C3D", 20, "...ocument/I0A1B2C3D"},
		{"tiny limit", "https://govt.westlaw.com/calregs/Document/I0A1", 3, "0A1"},
		{"non-positive limit", "https://govt.westlaw.com", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := crawl.DisplayURL(tt.url, tt.maxLen)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), max(tt.maxLen, 0))
		})
	}
}

func TestFormatBytes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "512 B", crawl.FormatBytes(512))
	assert.Equal(t, "1.5 KB", crawl.FormatBytes(1536))
	assert.Equal(t, "2.0 MB", crawl.FormatBytes(2<<20))
	assert.Equal(t, "3.0 GB", crawl.FormatBytes(3<<30))
}
