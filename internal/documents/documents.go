// Package documents turns uploaded candidate files and job descriptions into
// plain text for the screening pipeline.
package documents

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

const (
	MimePlain    = "text/plain"
	MimeMarkdown = "text/markdown"
	MimePDF      = "application/pdf"
	MimeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var (
	// ErrUnsupported is returned for file types that cannot be converted to text.
	ErrUnsupported = errors.New("unsupported document type")
	// ErrNoText is returned when a supported document yields no text.
	ErrNoText = errors.New("document contains no text")
)

var extensions = map[string]string{
	".txt":      MimePlain,
	".text":     MimePlain,
	".md":       MimeMarkdown,
	".markdown": MimeMarkdown,
	".pdf":      MimePDF,
	".docx":     MimeDOCX,
}

// Extract converts data to plain text. The type is taken from mime when it is
// specific and falls back to the extension of name otherwise.
func Extract(ctx context.Context, name, mime string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	kind := detect(name, mime)

	var (
		text string
		err  error
	)
	switch kind {
	case MimePlain, MimeMarkdown:
		text, err = extractPlain(data)
	case MimePDF:
		text, err = extractPDF(data)
	case MimeDOCX:
		text, err = extractDOCX(data)
	default:
		return "", fmt.Errorf("%w: %q (%s)", ErrUnsupported, name, mime)
	}
	if err != nil {
		return "", fmt.Errorf("extracting text from %q: %w", name, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: %q", ErrNoText, name)
	}

	return text, nil
}

// ExtractFile reads path and converts it to plain text based on its extension.
func ExtractFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %q: %w", path, err)
	}

	return Extract(ctx, filepath.Base(path), "", data)
}

// Supported reports whether name has an extension Extract understands.
func Supported(name string) bool {
	_, ok := extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

func detect(name, mime string) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mime, ";")[0]))
	switch clean {
	case MimePlain, MimeMarkdown, MimePDF, MimeDOCX:
		return clean
	case "text/x-markdown":
		return MimeMarkdown
	}

	// Browsers and curl send these for anything they do not recognise.
	if clean == "" || clean == "application/octet-stream" || clean == "application/zip" {
		return extensions[strings.ToLower(filepath.Ext(name))]
	}

	return clean
}

func extractPlain(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", errors.New("text is not valid UTF-8")
	}
	return string(data), nil
}

func extractPDF(data []byte) (text string, err error) {
	// The pdf reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("reading pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}

	var b strings.Builder
	if _, err := io.Copy(&b, plain); err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}

	return b.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("reading docx: %w", err)
	}
	defer doc.Close()

	return docxText(doc.Editable().GetContent())
}

// docxText collects the character data of a WordprocessingML body, ending
// every paragraph with a newline.
func docxText(raw string) (string, error) {
	decoder := xml.NewDecoder(strings.NewReader(raw))

	var b strings.Builder
	inText := false
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parsing docx body: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteString("\t")
			case "br", "cr":
				b.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}

	return b.String(), nil
}
