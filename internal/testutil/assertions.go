// Package testutil provides fakes and assertions shared by the tests.
package testutil

import (
	"bytes"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/require"
)

// RequirePDF asserts that data is a parseable PDF and returns its page count.
func RequirePDF(t testing.TB, data []byte) int {
	t.Helper()
	require.True(t, bytes.HasPrefix(data, []byte("%PDF-")), "missing PDF header")

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err, "parsing PDF")
	return r.NumPage()
}

// RequirePages asserts that data is a PDF with at least one page.
func RequirePages(t testing.TB, data []byte) int {
	t.Helper()
	pages := RequirePDF(t, data)
	require.GreaterOrEqual(t, pages, 1, "PDF has no pages")
	return pages
}
