// Package extract turns uploaded files into plain text.
//
// Dispatch is by file extension: PDFs are read page by page, images go
// through an OCR capability and text files are read tolerantly. Failures
// never panic; they produce an empty string which callers treat as
// "nothing to chunk".
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/poiesic/graphrag/ai"
)

var (
	// ErrUnsupportedFormat is returned by Extract for unknown extensions.
	ErrUnsupportedFormat = errors.New("unsupported file type")

	// ErrFileNotFound is returned by Extract when the path does not exist.
	ErrFileNotFound = errors.New("file not found")
)

// Kind classifies a file by extension.
type Kind int

const (
	KindUnsupported Kind = iota
	KindPDF
	KindImage
	KindText
)

var kinds = map[string]Kind{
	".pdf":  KindPDF,
	".png":  KindImage,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".gif":  KindImage,
	".bmp":  KindImage,
	".txt":  KindText,
}

// KindOf returns the kind of path based on its extension.
func KindOf(path string) Kind {
	return kinds[strings.ToLower(filepath.Ext(path))]
}

// Extractor converts files to text.
type Extractor struct {
	images ai.ImageReader
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithImageReader sets the OCR capability used for images.
// Without one, images yield no text.
func WithImageReader(r ai.ImageReader) Option {
	return func(e *Extractor) {
		e.images = r
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
	}
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		logger: slog.Default().With("component", "extract"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract dispatches on the extension of path. Unsupported and missing files
// return an error so callers can skip them; every other failure yields "".
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	kind := KindOf(path)
	if kind == KindUnsupported {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return "", err
	}

	switch kind {
	case KindPDF:
		return e.PDFToText(ctx, path), nil
	case KindImage:
		return e.ImageToText(ctx, path), nil
	default:
		return e.FileToText(ctx, path), nil
	}
}

// PDFToText concatenates the plain text of every page. A page that cannot be
// read contributes an empty string.
func (e *Extractor) PDFToText(ctx context.Context, path string) (text string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("error reading pdf", "path", path, "panic", r)
			text = ""
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		e.logger.Error("error reading pdf", "path", path, "err", err)
		return ""
	}
	defer f.Close()

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		if ctx.Err() != nil {
			break
		}
		pages = append(pages, e.pageText(r, i, path))
	}
	return strings.TrimSpace(strings.Join(pages, " "))
}

func (e *Extractor) pageText(r *pdf.Reader, i int, path string) (text string) {
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Warn("skipping unreadable pdf page", "path", path, "page", i, "panic", rec)
			text = ""
		}
	}()

	page := r.Page(i)
	if page.V.IsNull() {
		return ""
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		e.logger.Warn("skipping unreadable pdf page", "path", path, "page", i, "err", err)
		return ""
	}
	return text
}

// ImageToText runs OCR on the image and joins the recognized lines.
func (e *Extractor) ImageToText(ctx context.Context, path string) string {
	if e.images == nil {
		e.logger.Warn("no image reader configured", "path", path)
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		e.logger.Error("error reading image", "path", path, "err", err)
		return ""
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	lines, err := e.images.ReadImage(ctx, mimeType, data)
	if err != nil {
		e.logger.Error("error reading image", "path", path, "err", err)
		return ""
	}
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}

// FileToText reads a text file, dropping invalid UTF-8 sequences.
func (e *Extractor) FileToText(_ context.Context, path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		e.logger.Error("error reading text file", "path", path, "err", err)
		return ""
	}
	return strings.TrimSpace(strings.ToValidUTF8(string(data), ""))
}
