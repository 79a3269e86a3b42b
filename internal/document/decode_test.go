package document

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8"?>` +
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body + `</w:body></w:document>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?>` +
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
	}
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDecodePlainText(t *testing.T) {
	text, err := Decode("text/plain; charset=utf-8", []byte("John Doe\nSkills"))

	require.NoError(t, err)
	assert.Equal(t, "John Doe\nSkills", text)
}

func TestDecodeDocx(t *testing.T) {
	data := buildDocx(t,
		`<w:p><w:r><w:t>John Doe</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t>R&amp;D Engineer</w:t></w:r></w:p>`)

	text, err := Decode(MimeDocx, data)

	require.NoError(t, err)
	assert.Equal(t, "John Doe\nR&D Engineer\n", text)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode("image/png", []byte{1, 2, 3})
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	_, err = Decode(MimePDF, []byte("not a pdf"))
	assert.True(t, errors.Is(err, ErrDecode))

	_, err = Decode(MimeDocx, []byte("not a zip"))
	assert.True(t, errors.Is(err, ErrDecode))

	_, err = Decode(MimeText, []byte("  \n "))
	assert.True(t, errors.Is(err, ErrDecode), "blank documents carry no text")
}

func TestDetectMime(t *testing.T) {
	assert.Equal(t, MimePDF, DetectMime("cv.PDF", "", nil))
	assert.Equal(t, MimeDocx, DetectMime("cv.docx", "application/octet-stream", nil))
	assert.Equal(t, MimeText, DetectMime("cv", "text/plain", nil))
	assert.Equal(t, MimePDF, DetectMime("upload", "", []byte("%PDF-1.7\n")))
	assert.Equal(t, MimeText, DetectMime("upload", "", []byte("plain words")))
}

func TestReadAllLimit(t *testing.T) {
	data, err := ReadAll(strings.NewReader("12345"), 5)
	require.NoError(t, err)
	assert.Equal(t, "12345", string(data))

	_, err = ReadAll(strings.NewReader("123456"), 5)
	assert.True(t, errors.Is(err, ErrTooLarge))
}
