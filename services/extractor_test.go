package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"krishi-mitra-backend/models"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeDoc(t *testing.T, dir, name string, content []byte) models.Document {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return models.Document{Name: name, Path: path}
}

func TestExtractPlainText(t *testing.T) {
	r := NewExtractorRegistry()
	doc := writeDoc(t, t.TempDir(), "notes.TXT", []byte("Mulch keeps soil moist."))

	text, err := r.Extract(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, "Mulch keeps soil moist.", text)
}

func TestExtractHTMLDropsScripts(t *testing.T) {
	r := NewExtractorRegistry()
	html := `<html><head><title>t</title><script>var x = 1;</script></head>
<body><nav>Home | About</nav><h1>Drip irrigation</h1><p>Saves water on sandy soils.</p>
<ul><li>Check emitters weekly.</li></ul></body></html>`
	doc := writeDoc(t, t.TempDir(), "drip.html", []byte(html))

	text, err := r.Extract(context.Background(), doc)
	require.NoError(t, err)
	assert.Contains(t, text, "Drip irrigation")
	assert.Contains(t, text, "Saves water on sandy soils.")
	assert.Contains(t, text, "Check emitters weekly.")
	assert.NotContains(t, text, "var x")
	assert.NotContains(t, text, "About")
}

func TestExtractBrotliWrapped(t *testing.T) {
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	_, err := w.Write([]byte("Compressed guide to paddy transplanting."))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r := NewExtractorRegistry()
	doc := writeDoc(t, t.TempDir(), "paddy.txt.br", buf.Bytes())

	text, err := r.Extract(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, "Compressed guide to paddy transplanting.", text)
}

func TestExtractWorkbook(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Crop"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "Yield"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "Wheat"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 42))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	r := NewExtractorRegistry()
	doc := writeDoc(t, t.TempDir(), "yields.xlsx", buf.Bytes())

	text, err := r.Extract(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, "Crop Yield\nWheat 42\n", text)
}

func TestExtractCorruptPDFIsAnError(t *testing.T) {
	r := NewExtractorRegistry()
	doc := writeDoc(t, t.TempDir(), "broken.pdf", []byte("%PDF-1.4 this is not really a pdf"))

	assert.NotPanics(t, func() {
		_, err := r.Extract(context.Background(), doc)
		assert.Error(t, err)
	})
}

func TestExtractUnsupported(t *testing.T) {
	r := NewExtractorRegistry()
	doc := writeDoc(t, t.TempDir(), "photo.jpg", []byte{0xff, 0xd8})

	_, err := r.Extract(context.Background(), doc)
	assert.ErrorIs(t, err, ErrUnsupportedDocument)
	assert.False(t, r.Supports("photo.jpg"))
	assert.True(t, r.Supports("Guide.PDF"))
	assert.True(t, r.Supports("guide.md.br"))
}

func TestDirectorySourceListsSupportedFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "a.txt", "c.jpg"} {
		writeDoc(t, dir, name, []byte("x"))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.pdf"), 0o755))

	src := NewDirectorySource(dir, NewExtractorRegistry().Supports)
	docs, err := src.Documents(context.Background())
	require.NoError(t, err)

	require.Len(t, docs, 2)
	assert.Equal(t, "a.txt", docs[0].Name)
	assert.Equal(t, "b.pdf", docs[1].Name)
	assert.Equal(t, filepath.Join(dir, "b.pdf"), docs[1].Path)
}

func TestDirectorySourceMissingDir(t *testing.T) {
	src := NewDirectorySource(filepath.Join(t.TempDir(), "nope"), nil)
	_, err := src.Documents(context.Background())
	assert.Error(t, err)
}
