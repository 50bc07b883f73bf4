package htmltomarkdown_test

import (
	"testing"

	"github.com/fwojciec/calregs"
	"github.com/fwojciec/calregs/htmltomarkdown"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConverter_Convert(t *testing.T) {
	t.Parallel()

	t.Run("converts section heading and subdivisions", func(t *testing.T) {
		t.Parallel()

		html := `<h1>§ 3203. Injury and Illness Prevention Program.</h1>
<p>(a) Every employer shall establish a Program.</p>
<p>(b) Records shall be kept.</p>`

		md, err := htmltomarkdown.NewConverter().Convert(html)

		require.NoError(t, err)
		assert.Contains(t, md, "# § 3203. Injury and Illness Prevention Program.")
		assert.Contains(t, md, "(a) Every employer shall establish a Program.")
		assert.Contains(t, md, "(b) Records shall be kept.")
	})

	t.Run("converts fee schedules to tables", func(t *testing.T) {
		t.Parallel()

		html := `<table>
<thead><tr><th>Permit</th><th>Fee</th></tr></thead>
<tbody><tr><td>Annual</td><td>$150</td></tr><tr><td>Temporary</td><td>$40</td></tr></tbody>
</table>`

		md, err := htmltomarkdown.NewConverter().Convert(html)

		require.NoError(t, err)
		assert.Contains(t, md, "Permit")
		assert.Contains(t, md, "Temporary")
		assert.Contains(t, md, "|")
		assert.Contains(t, md, "---")
	})

	t.Run("converts emphasis", func(t *testing.T) {
		t.Parallel()

		md, err := htmltomarkdown.NewConverter().Convert(`<p><strong>Note:</strong> Authority cited: <em>Section 208</em>.</p>`)

		require.NoError(t, err)
		assert.Contains(t, md, "**Note:**")
		assert.Contains(t, md, "*Section 208*")
	})

	t.Run("collapses blank lines and trims", func(t *testing.T) {
		t.Parallel()

		md, err := htmltomarkdown.NewConverter().Convert("<p>one</p><br><br><br><p>two</p>   ")

		require.NoError(t, err)
		assert.NotContains(t, md, "\n\n\n")
		assert.Equal(t, md[0:3], "one")
		assert.Equal(t, "two", md[len(md)-3:])
	})

	t.Run("resolves relative links against domain", func(t *testing.T) {
		t.Parallel()

		conv := htmltomarkdown.NewConverter(htmltomarkdown.WithDomain("https://govt.westlaw.com"))

		md, err := conv.Convert(`<p>See <a href="/calregs/Document/I123">section 1</a>.</p>`)

		require.NoError(t, err)
		assert.Contains(t, md, "(https://govt.westlaw.com/calregs/Document/I123)")
	})

	t.Run("returns error for empty input", func(t *testing.T) {
		t.Parallel()

		_, err := htmltomarkdown.NewConverter().Convert("  \n")

		assert.Equal(t, calregs.EINVALID, calregs.ErrorCode(err))
	})
}
