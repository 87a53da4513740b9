package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
)

const (
	MimePDF      = "application/pdf"
	MimeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeMarkdown = "text/markdown"
	MimeText     = "text/plain"
)

// ErrUnsupported is returned for payloads no extractor understands.
var ErrUnsupported = eris.New("extract: unsupported document type")

// File reads path and extracts its text. The type is taken from the file
// extension.
func File(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "extract: read %s", path)
	}
	text, err := Bytes(ctx, data, MimeFromName(path), filepath.Base(path))
	if err != nil {
		return "", eris.Wrapf(err, "extract: %s", path)
	}
	return text, nil
}

// Bytes extracts text from an in-memory payload.
func Bytes(ctx context.Context, data []byte, mimeType string, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	normalized := normalizeMimeType(mimeType, fileName, data)
	switch normalized {
	case MimePDF:
		return extractPDF(data)
	case MimeDOCX:
		return extractDOCX(data)
	case MimeMarkdown, MimeText:
		if !utf8.Valid(data) {
			return "", eris.Wrapf(ErrUnsupported, "%s is not valid utf-8", fileName)
		}
		return string(data), nil
	default:
		return "", eris.Wrapf(ErrUnsupported, "mime type %s", normalized)
	}
}

// MimeFromName guesses a mime type from the file extension.
func MimeFromName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return MimePDF
	case ".docx":
		return MimeDOCX
	case ".md", ".markdown":
		return MimeMarkdown
	case ".txt":
		return MimeText
	case ".zip":
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", eris.Wrap(err, "extract: open pdf")
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", eris.Wrap(err, "extract: pdf text")
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", eris.Wrap(err, "extract: pdf text")
	}
	return strings.TrimSpace(buf.String()), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", eris.New("extract: empty docx data")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", eris.Wrap(err, "extract: open docx")
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", eris.New("extract: document.xml not found")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", eris.Wrap(err, "extract: open document.xml")
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", eris.Wrap(err, "extract: read document.xml")
	}
	return stripDocxXML(string(raw)), nil
}

func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

func normalizeMimeType(mimeType string, fileName string, data []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	if clean != "application/zip" {
		return clean
	}
	if isDOCX(data) {
		return MimeDOCX
	}
	if strings.EqualFold(filepath.Ext(fileName), ".docx") {
		return MimeDOCX
	}
	return clean
}

func isDOCX(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			return true
		}
	}
	return false
}
