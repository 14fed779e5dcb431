package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"github.com/sony/gobreaker"

	"docchat/src/log"
)

var (
	ErrUnsupportedFileType = errors.New("Unsupported file type")
	ErrNoExtractableText   = errors.New("No extractable text")
	ErrOCRUnavailable      = errors.New("OCR service unavailable")
)

const (
	MediaTypePDF      = "application/pdf"
	MediaTypeText     = "text/plain"
	MediaTypeMarkdown = "text/markdown"
	MediaTypePNG      = "image/png"
	MediaTypeJPEG     = "image/jpeg"
	MediaTypeTIFF     = "image/tiff"
)

// ExtractionMethod records how the text of a document was obtained
type ExtractionMethod string

const (
	MethodNative ExtractionMethod = "native"
	MethodOCR    ExtractionMethod = "ocr"
)

// Page is the text of a single page; plain text files have one page
type Page struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Document is the loader output for one uploaded file
type Document struct {
	Filename  string
	MediaType string
	Pages     []Page
	Method    ExtractionMethod
}

// Text joins all page texts with blank lines
func (d *Document) Text() string {
	parts := make([]string, 0, len(d.Pages))
	for _, p := range d.Pages {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n\n")
}

// OCRProvider turns a scanned PDF or an image into page texts
type OCRProvider interface {
	Name() string
	Recognize(ctx context.Context, filename string, data []byte) ([]Page, error)
}

// Observer is notified about OCR fallbacks; outcome is "ok", "empty" or "error"
type Observer interface {
	ObserveOCRFallback(provider, outcome string)
}

type Loader struct {
	ocr      OCRProvider
	breaker  *gobreaker.CircuitBreaker
	minChars int
	observer Observer
}

type Option func(l *Loader)

// WithOCR enables the OCR fallback
func WithOCR(provider OCRProvider) Option {
	return func(l *Loader) {
		l.ocr = provider
	}
}

// WithMinChars sets how many non-space characters native extraction must yield
// before the OCR fallback is skipped
func WithMinChars(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.minChars = n
		}
	}
}

func WithObserver(o Observer) Option {
	return func(l *Loader) {
		l.observer = o
	}
}

func New(opts ...Option) *Loader {
	l := &Loader{minChars: 1}
	for _, opt := range opts {
		opt(l)
	}
	if l.ocr != nil {
		l.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "ocr-" + l.ocr.Name(),
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Info("ocr circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			},
		})
	}
	return l
}

// Detect returns the supported media type of the file
func Detect(filename string, data []byte) (string, error) {
	mt := mimetype.Detect(data)
	switch {
	case mt.Is(MediaTypePDF):
		return MediaTypePDF, nil
	case mt.Is(MediaTypePNG):
		return MediaTypePNG, nil
	case mt.Is(MediaTypeJPEG):
		return MediaTypeJPEG, nil
	case mt.Is(MediaTypeTIFF):
		return MediaTypeTIFF, nil
	}

	// Everything textual sniffs as text/plain; the extension decides markdown
	for m := mt; m != nil; m = m.Parent() {
		if m.Is(MediaTypeText) {
			switch strings.ToLower(filepath.Ext(filename)) {
			case ".md", ".markdown":
				return MediaTypeMarkdown, nil
			}
			return MediaTypeText, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, mt.String())
}

// Load extracts the text of a file, falling back to OCR when a PDF has no text layer
func (l *Loader) Load(ctx context.Context, filename string, data []byte) (*Document, error) {
	mediaType, err := Detect(filename, data)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Filename:  filename,
		MediaType: mediaType,
		Method:    MethodNative,
	}

	switch mediaType {
	case MediaTypeText, MediaTypeMarkdown:
		text := strings.TrimSpace(toValidUTF8(data))
		if text == "" {
			return nil, ErrNoExtractableText
		}
		doc.Pages = []Page{{Number: 1, Text: text}}
		return doc, nil

	case MediaTypePDF:
		pages, err := extractPDF(data)
		if err != nil {
			log.Info("native pdf extraction failed, trying ocr", "filename", filename, "error", err.Error())
		}
		if err == nil && countChars(pages) >= l.minChars {
			doc.Pages = pages
			return doc, nil
		}
		if l.ocr == nil {
			return nil, ErrNoExtractableText
		}
	}

	pages, err := l.recognize(ctx, filename, data)
	if err != nil {
		return nil, err
	}
	doc.Pages = pages
	doc.Method = MethodOCR
	return doc, nil
}

func (l *Loader) recognize(ctx context.Context, filename string, data []byte) ([]Page, error) {
	if l.ocr == nil {
		return nil, ErrNoExtractableText
	}

	result, err := l.breaker.Execute(func() (interface{}, error) {
		return l.ocr.Recognize(ctx, filename, data)
	})
	if err != nil {
		l.observe("error")
		return nil, fmt.Errorf("%w: %s: %v", ErrOCRUnavailable, l.ocr.Name(), err)
	}

	pages := nonBlank(result.([]Page))
	if len(pages) == 0 {
		l.observe("empty")
		return nil, ErrNoExtractableText
	}
	l.observe("ok")
	return pages, nil
}

func (l *Loader) observe(outcome string) {
	if l.observer != nil {
		l.observer.ObserveOCRFallback(l.ocr.Name(), outcome)
	}
}

func extractPDF(data []byte) (pages []Page, err error) {
	// The pdf package panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("failed to parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to create pdf reader: %w", err)
	}

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			log.Debug("failed to extract text from page", "page", i, "error", err.Error())
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}

	return nonBlank(pages), nil
}

func nonBlank(pages []Page) []Page {
	out := make([]Page, 0, len(pages))
	for _, p := range pages {
		text := strings.TrimSpace(p.Text)
		if text == "" {
			continue
		}
		out = append(out, Page{Number: p.Number, Text: text})
	}
	return out
}

func countChars(pages []Page) int {
	n := 0
	for _, p := range pages {
		for _, r := range p.Text {
			if !unicode.IsSpace(r) {
				n++
			}
		}
	}
	return n
}

func toValidUTF8(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "�")
}
