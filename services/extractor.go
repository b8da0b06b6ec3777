package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"krishi-mitra-backend/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
	"golang.org/x/net/html/charset"
)

// maxDocumentSize caps in-memory extraction.
const maxDocumentSize = 200 << 20

var ErrUnsupportedDocument = errors.New("unsupported document type")

// ExtractFunc turns raw document bytes into plain text.
type ExtractFunc func(ctx context.Context, content []byte) (string, error)

// ExtractorRegistry picks an extraction method by file extension. Files ending in
// ".br" are brotli-decompressed and dispatched on the inner extension.
type ExtractorRegistry struct {
	byExt map[string]ExtractFunc
}

// NewExtractorRegistry returns a registry for PDF, plain text, Markdown, HTML and
// Excel workbooks.
func NewExtractorRegistry() *ExtractorRegistry {
	r := &ExtractorRegistry{byExt: make(map[string]ExtractFunc)}
	r.Register(".pdf", extractPDF)
	r.Register(".txt", extractPlainText)
	r.Register(".md", extractPlainText)
	r.Register(".html", extractHTML)
	r.Register(".htm", extractHTML)
	r.Register(".xlsx", extractWorkbook)
	return r
}

// Register adds or replaces the extractor for ext (including the leading dot).
func (r *ExtractorRegistry) Register(ext string, fn ExtractFunc) {
	r.byExt[strings.ToLower(ext)] = fn
}

// Extensions lists the registered extensions in sorted order.
func (r *ExtractorRegistry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Supports reports whether name has an extractable extension.
func (r *ExtractorRegistry) Supports(name string) bool {
	_, _, ok := r.lookup(name)
	return ok
}

// Extract reads the document and returns its plain text.
func (r *ExtractorRegistry) Extract(ctx context.Context, doc models.Document) (string, error) {
	fn, compressed, ok := r.lookup(doc.Name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDocument, doc.Name)
	}

	// Enforce context deadline before heavy operations
	if err := ctx.Err(); err != nil {
		return "", err
	}

	stat, err := os.Stat(doc.Path)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", doc.Name, err)
	}
	if stat.Size() > maxDocumentSize {
		return "", fmt.Errorf("%s too large for in-memory extraction", doc.Name)
	}

	content, err := os.ReadFile(doc.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", doc.Name, err)
	}

	if compressed {
		content, err = io.ReadAll(io.LimitReader(brotli.NewReader(bytes.NewReader(content)), maxDocumentSize))
		if err != nil {
			return "", fmt.Errorf("failed to decompress %s: %w", doc.Name, err)
		}
	}

	return fn(ctx, content)
}

func (r *ExtractorRegistry) lookup(name string) (ExtractFunc, bool, bool) {
	lower := strings.ToLower(name)
	compressed := false
	if strings.HasSuffix(lower, ".br") {
		compressed = true
		lower = strings.TrimSuffix(lower, ".br")
	}
	fn, ok := r.byExt[filepath.Ext(lower)]
	return fn, compressed, ok
}

// extractPDF pulls the text layer of every page. The PDF library panics on some
// malformed files, which is reported as an ordinary error.
func extractPDF(ctx context.Context, content []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var textBuilder strings.Builder
	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			continue
		}
		textBuilder.WriteString(pageText)
		textBuilder.WriteString(" ")
	}

	return textBuilder.String(), nil
}

func extractPlainText(_ context.Context, content []byte) (string, error) {
	return string(bytes.ToValidUTF8(content, []byte(" "))), nil
}

// extractHTML decodes the page to UTF-8 and returns the visible body text.
func extractHTML(_ context.Context, content []byte) (string, error) {
	utf8Reader, err := charset.NewReader(bytes.NewReader(content), "text/html")
	if err != nil {
		return "", fmt.Errorf("failed to detect charset: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(utf8Reader)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	// Remove unwanted elements
	doc.Find("script, style, noscript, nav, footer, header, aside").Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		return strings.TrimSpace(doc.Text()), nil
	}

	var out strings.Builder
	body.Find("h1, h2, h3, h4, h5, h6, p, li, td, th, pre").Each(func(_ int, s *goquery.Selection) {
		if s.Find("p, li, td, th").Length() > 0 {
			return
		}
		text := strings.TrimSpace(s.Text())
		if text != "" {
			out.WriteString(text)
			out.WriteString("\n")
		}
	})
	if out.Len() == 0 {
		return strings.TrimSpace(body.Text()), nil
	}
	return out.String(), nil
}

// extractWorkbook flattens every sheet into one line of text per row.
func extractWorkbook(_ context.Context, content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, " "))
			if line != "" {
				b.WriteString(line)
				b.WriteString("\n")
			}
		}
	}
	return b.String(), nil
}
