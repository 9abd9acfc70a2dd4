// Package document extracts plain resume text from uploaded files.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

var ErrUnsupported = errors.New("unsupported document type")

// Extensions lists the accepted file extensions.
func Extensions() []string {
	return []string{".pdf", ".docx", ".txt", ".md"}
}

// Extract reads the file at path and returns its cleaned text.
func Extract(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var (
		text string
		err  error
	)
	switch ext {
	case ".pdf":
		text, err = pdfFile(path)
	case ".docx":
		text, err = docxFile(path)
	case ".txt", ".md":
		var data []byte
		data, err = os.ReadFile(path)
		text = string(data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	if err != nil {
		return "", fmt.Errorf("extracting text from %s: %w", filepath.Base(path), err)
	}

	text = Clean(text)
	if text == "" {
		return "", fmt.Errorf("no text found in %s", filepath.Base(path))
	}
	return text, nil
}

// Read extracts text from in-memory file content identified by its extension.
func Read(ext string, data []byte) (string, error) {
	var (
		text string
		err  error
	)
	switch strings.ToLower(ext) {
	case ".pdf":
		text, err = pdfText(bytes.NewReader(data), int64(len(data)))
	case ".docx":
		text, err = docxText(bytes.NewReader(data), int64(len(data)))
	case ".txt", ".md":
		text = string(data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	if err != nil {
		return "", err
	}
	return Clean(text), nil
}

func pdfFile(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}
	defer f.Close()
	return pdfPages(r)
}

func pdfText(data *bytes.Reader, size int64) (string, error) {
	r, err := pdf.NewReader(data, size)
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}
	return pdfPages(r)
}

func pdfPages(r *pdf.Reader) (string, error) {
	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func docxFile(path string) (string, error) {
	doc, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()
	return xmlText(doc.Editable().GetContent()), nil
}

func docxText(data *bytes.Reader, size int64) (string, error) {
	doc, err := docx.ReadDocxFromMemory(data, size)
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()
	return xmlText(doc.Editable().GetContent()), nil
}

var (
	paragraphEnd = regexp.MustCompile(`</w:p>|<w:br/>|<w:cr/>`)
	tabMark      = regexp.MustCompile(`<w:tab/>`)
	anyTag       = regexp.MustCompile(`<[^>]*>`)
)

// xmlText flattens WordprocessingML into text, one paragraph per line.
func xmlText(content string) string {
	content = paragraphEnd.ReplaceAllString(content, "\n")
	content = tabMark.ReplaceAllString(content, "\t")
	content = anyTag.ReplaceAllString(content, "")
	return html.UnescapeString(content)
}

var (
	blankRuns  = regexp.MustCompile(`\n\s*\n`)
	spaceRuns  = regexp.MustCompile(`[ \t\f\v]+`)
	lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// Clean collapses repeated spaces and blank lines while keeping line breaks.
func Clean(text string) string {
	text = lineBreaks.Replace(text)
	text = spaceRuns.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")

	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
