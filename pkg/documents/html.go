package documents

import (
	"bytes"
	"context"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

// HTMLProcessor converts HTML to markdown so that schedules and tables keep
// their row structure. Documents the converter rejects fall back to the
// body text.
type HTMLProcessor struct{}

// NewHTMLProcessor creates a new instance of HTMLProcessor.
func NewHTMLProcessor() *HTMLProcessor {
	return &HTMLProcessor{}
}

func (p *HTMLProcessor) Process(ctx context.Context, content []byte) (string, error) {
	if md, err := htmltomarkdown.ConvertString(string(content)); err == nil && strings.TrimSpace(md) != "" {
		return md, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", errors.Wrap(err, "failed to create document from HTML content")
	}
	doc.Find("script, style").Remove()
	return strings.TrimSpace(doc.Find("body").Text()), nil
}

// SupportedTypes returns the MIME types supported by the HTMLProcessor.
func (p *HTMLProcessor) SupportedTypes() []string {
	return []string{"text/html"}
}
