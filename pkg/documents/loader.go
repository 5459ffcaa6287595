// Package documents turns building data files (text, markdown, HTML, PDF)
// into token-bounded chunks ready to be answered by a language model.
package documents

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/athapong/bim-synthesis/pkg/answering"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var (
	processingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "documents_processing_duration_seconds",
			Help: "Time spent converting source documents to text",
		},
		[]string{"processor_type"},
	)

	chunksProduced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "documents_chunks_produced_total",
			Help: "Number of chunks produced from source documents",
		},
		[]string{"processor_type"},
	)
)

func init() {
	prometheus.MustRegister(processingDuration, chunksProduced)
}

// Processor converts one document format to plain text.
type Processor interface {
	Process(ctx context.Context, content []byte) (string, error)
	SupportedTypes() []string
}

// Loader reads documents with the processor registered for their extension.
type Loader struct {
	processors map[string]Processor
	chunker    *Chunker
	logger     *logrus.Logger
}

// NewLoader creates a loader for .txt, .md, .html, .htm and .pdf files.
// A nil chunker keeps every document as a single chunk.
func NewLoader(chunker *Chunker) *Loader {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	l := &Loader{
		processors: make(map[string]Processor),
		chunker:    chunker,
		logger:     logger,
	}
	text := NewTextProcessor()
	html := NewHTMLProcessor()
	l.Register(text, ".txt", ".md")
	l.Register(html, ".html", ".htm")
	l.Register(NewPDFProcessor(), ".pdf")
	return l
}

// WithLogger replaces the loader's logger.
func (l *Loader) WithLogger(logger *logrus.Logger) *Loader {
	if logger != nil {
		l.logger = logger
	}
	return l
}

// Register installs p for the given file extensions.
func (l *Loader) Register(p Processor, extensions ...string) {
	for _, ext := range extensions {
		l.processors[strings.ToLower(ext)] = p
	}
}

// Supports reports whether path has a registered extension.
func (l *Loader) Supports(path string) bool {
	_, ok := l.processors[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Text reads path and returns its plain text.
func (l *Loader) Text(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	p, ok := l.processors[ext]
	if !ok {
		return "", errors.Errorf("unsupported document type %q", ext)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "read %s", path)
	}

	kind := strings.TrimPrefix(ext, ".")
	timer := prometheus.NewTimer(processingDuration.WithLabelValues(kind))
	defer timer.ObserveDuration()

	start := time.Now()
	text, err := p.Process(ctx, content)
	if err != nil {
		return "", errors.Wrapf(err, "process %s", path)
	}
	l.logger.WithFields(logrus.Fields{
		"path":     path,
		"type":     kind,
		"chars":    len(text),
		"duration": time.Since(start),
	}).Debug("Document converted")
	return text, nil
}

// Load reads path and splits it into chunks. Chunks are named after the
// file, numbered when the document needs more than one.
func (l *Loader) Load(ctx context.Context, path string) ([]answering.Chunk, error) {
	text, err := l.Text(ctx, path)
	if err != nil {
		return nil, err
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	parts := []string{strings.TrimSpace(text)}
	if l.chunker != nil {
		parts = l.chunker.Split(text)
	}
	chunks := make([]answering.Chunk, 0, len(parts))
	for i, part := range parts {
		id := base
		if len(parts) > 1 {
			id = fmt.Sprintf("%s-%d", base, i+1)
		}
		chunks = append(chunks, answering.Chunk{ID: id, Content: part})
	}
	chunksProduced.WithLabelValues(strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")).Add(float64(len(chunks)))
	return chunks, nil
}

// TextProcessor passes text and markdown through unchanged.
type TextProcessor struct{}

func NewTextProcessor() *TextProcessor {
	return &TextProcessor{}
}

func (p *TextProcessor) Process(ctx context.Context, content []byte) (string, error) {
	return string(content), nil
}

func (p *TextProcessor) SupportedTypes() []string {
	return []string{"text/plain", "text/markdown"}
}
