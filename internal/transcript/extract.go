package transcript

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gocarina/gocsv"
	"github.com/ledongthuc/pdf"
)

// DefaultMaxDocumentBytes bounds documents read by the extraction stage.
const DefaultMaxDocumentBytes = 10 << 20

var (
	errEmptyDocument    = errors.New("document contains no text")
	errDocumentTooLarge = errors.New("document exceeds size limit")
	errUnsupportedType  = errors.New("unsupported document type")
)

// Extractor turns document bytes of one media type into plain text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, data []byte) (string, error)

// Extract implements Extractor.
func (f ExtractorFunc) Extract(ctx context.Context, data []byte) (string, error) {
	return f(ctx, data)
}

type registration struct {
	mime      string
	extractor Extractor
}

// Extractors picks an extractor by sniffing the document's media type.
type Extractors struct {
	entries  []registration
	maxBytes int64
}

// NewExtractors returns a registry with the text, CSV and PDF extractors.
// Image OCR is added with Register when configured.
func NewExtractors(maxBytes int64) *Extractors {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxDocumentBytes
	}
	x := &Extractors{maxBytes: maxBytes}
	x.Register("text/csv", ExtractorFunc(ExtractCSV))
	x.Register("text/plain", ExtractorFunc(ExtractText))
	x.Register("application/pdf", ExtractorFunc(ExtractPDF))
	return x
}

// Register adds an extractor for a media type. Earlier registrations win
// when a document matches several.
func (x *Extractors) Register(mime string, e Extractor) {
	x.entries = append(x.entries, registration{mime: mime, extractor: e})
}

// Extract reads r up to the size limit and dispatches on the detected media
// type. A type without an extractor falls back to the nearest registered
// parent type (text/csv is a text/plain).
func (x *Extractors) Extract(ctx context.Context, r io.Reader) (string, string, error) {
	data, err := io.ReadAll(io.LimitReader(r, x.maxBytes+1))
	if err != nil {
		return "", "", fmt.Errorf("failed to read document: %w", err)
	}
	if int64(len(data)) > x.maxBytes {
		return "", "", fmt.Errorf("%w (%d bytes)", errDocumentTooLarge, x.maxBytes)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return "", "", errEmptyDocument
	}

	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		for _, reg := range x.entries {
			if !m.Is(reg.mime) {
				continue
			}
			text, err := reg.extractor.Extract(ctx, data)
			if err != nil {
				return "", detected.String(), err
			}
			if strings.TrimSpace(text) == "" {
				return "", detected.String(), errEmptyDocument
			}
			return text, detected.String(), nil
		}
	}
	return "", detected.String(), fmt.Errorf("%w: %s", errUnsupportedType, detected.String())
}

// ExtractText accepts UTF-8 text.
func ExtractText(_ context.Context, data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", errors.New("text document is not valid UTF-8")
	}
	return string(data), nil
}

type csvRow struct {
	Course  string `csv:"course"`
	Title   string `csv:"title"`
	Grade   string `csv:"grade"`
	Credits string `csv:"credits"`
}

// ExtractCSV reads rows with course, grade and credits columns (title is
// optional) and renders them as one transcript line per row. CSV without
// that header is treated as text.
func ExtractCSV(ctx context.Context, data []byte) (string, error) {
	var rows []*csvRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return "", fmt.Errorf("failed to parse CSV transcript: %w", err)
	}
	var b strings.Builder
	for _, row := range rows {
		if strings.TrimSpace(row.Course) == "" {
			continue
		}
		fmt.Fprintf(&b, "%s %s %s %s\n", row.Course, row.Title, row.Grade, row.Credits)
	}
	if b.Len() == 0 {
		return ExtractText(ctx, bytes.ReplaceAll(data, []byte(","), []byte(" ")))
	}
	return b.String(), nil
}

// ExtractPDF returns the text of every page, one line per text row. The PDF
// reader panics on malformed input; that is reported as an error.
func ExtractPDF(ctx context.Context, data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("failed to read PDF page %d: %w", i, err)
		}
		for _, row := range rows {
			for j, word := range row.Content {
				if j > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(word.S)
			}
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}
