// Package document turns uploaded resume files into plain text.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

const (
	MimeText = "text/plain"
	MimePDF  = "application/pdf"
	MimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file type")
	ErrDecode            = errors.New("could not read text from document")
	ErrTooLarge          = errors.New("document exceeds the upload limit")
)

var (
	docxBreakRe = regexp.MustCompile(`</w:p>|<w:br\s*/>|<w:tab\s*/>`)
	xmlTagRe    = regexp.MustCompile(`<[^>]+>`)
)

// Decode returns the text of a document of the given mime type. A document
// that yields no text at all is a decode failure.
func Decode(mime string, data []byte) (string, error) {
	var (
		text string
		err  error
	)
	switch normalizeMime(mime) {
	case MimeText:
		text = string(data)
	case MimePDF:
		text, err = extractPDFText(bytes.NewReader(data))
	case MimeDocx:
		text, err = extractDocxText(bytes.NewReader(data))
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mime)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no text found", ErrDecode)
	}
	return text, nil
}

func normalizeMime(mime string) string {
	mime, _, _ = strings.Cut(mime, ";")
	return strings.ToLower(strings.TrimSpace(mime))
}

// MimeFromFilename maps a file extension to a supported mime type, or "".
func MimeFromFilename(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return MimePDF
	case ".docx":
		return MimeDocx
	case ".txt", ".text":
		return MimeText
	}
	return ""
}

// DetectMime picks the mime type for an upload: the file extension first,
// then a supported declared type, then content sniffing.
func DetectMime(filename, declared string, data []byte) string {
	if m := MimeFromFilename(filename); m != "" {
		return m
	}
	switch m := normalizeMime(declared); m {
	case MimeText, MimePDF, MimeDocx:
		return m
	}
	return normalizeMime(http.DetectContentType(data))
}

func extractPDFText(reader *bytes.Reader) (string, error) {
	pdfReader, err := pdf.NewReader(reader, reader.Size())
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}
	pages := make([]string, 0, pdfReader.NumPage())
	for i := 1; i <= pdfReader.NumPage(); i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read pdf page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, "\n"), nil
}

func extractDocxText(reader *bytes.Reader) (string, error) {
	doc, err := docx.ReadDocxFromMemory(reader, reader.Size())
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	return docxPlainText(doc.Editable().GetContent()), nil
}

// docxPlainText strips WordprocessingML markup, keeping paragraph breaks.
func docxPlainText(xml string) string {
	xml = docxBreakRe.ReplaceAllStringFunc(xml, func(m string) string {
		if strings.HasPrefix(m, "<w:tab") {
			return "\t"
		}
		return "\n"
	})
	return html.UnescapeString(xmlTagRe.ReplaceAllString(xml, ""))
}

// ReadAll reads an upload, failing once it exceeds limit bytes.
func ReadAll(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}
