package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fumiama/go-docx"
	"github.com/stretchr/testify/require"
)

// HelloWorldDocx builds a single-paragraph Word document.
func HelloWorldDocx(t testing.TB) []byte {
	t.Helper()
	doc := docx.New().WithDefaultTheme()
	doc.AddParagraph().AddText("Hello World")

	var buf bytes.Buffer
	_, err := doc.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

// WriteHelloWorld stores HelloWorldDocx as dir/HelloWorld.docx.
func WriteHelloWorld(t testing.TB, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "HelloWorld.docx")
	require.NoError(t, os.WriteFile(path, HelloWorldDocx(t), 0o600))
	return path
}

// AppendParagraph parses a Word document, appends a paragraph with text and
// returns the re-encoded document.
func AppendParagraph(t testing.TB, data []byte, text string) []byte {
	t.Helper()
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	doc.AddParagraph().AddText(text)

	var buf bytes.Buffer
	_, err = doc.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}
