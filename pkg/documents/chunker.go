package documents

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Default chunk bounds, in tokens.
const (
	DefaultMaxTokens = 512
	DefaultOverlap   = 1
)

// TokenCounter counts the tokens of a text.
type TokenCounter interface {
	Count(text string) int
}

type tiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

func (c tiktokenCounter) Count(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}

// WordCounter approximates tokens as four per three words.
type WordCounter struct{}

func (WordCounter) Count(text string) int {
	return (len(strings.Fields(text))*4 + 2) / 3
}

var cl100k = sync.OnceValues(func() (*tiktoken.Tiktoken, error) {
	return tiktoken.GetEncoding("cl100k_base")
})

// DefaultCounter returns the cl100k_base tokenizer, or a WordCounter when
// the encoding cannot be loaded.
func DefaultCounter() TokenCounter {
	enc, err := cl100k()
	if err != nil {
		return WordCounter{}
	}
	return tiktokenCounter{encoding: enc}
}

// Chunker packs whole lines into chunks of at most maxTokens. Each chunk
// repeats the last overlap lines of the previous one; a single line longer
// than maxTokens is split on word boundaries.
type Chunker struct {
	counter   TokenCounter
	maxTokens int
	overlap   int
}

// NewChunker creates a chunker. A nil counter uses DefaultCounter.
func NewChunker(counter TokenCounter, maxTokens, overlap int) *Chunker {
	if counter == nil {
		counter = DefaultCounter()
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if overlap < 0 {
		overlap = 0
	}
	return &Chunker{counter: counter, maxTokens: maxTokens, overlap: overlap}
}

// Split returns the chunks of text, skipping blank lines.
func (c *Chunker) Split(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if c.counter.Count(line) > c.maxTokens {
			lines = append(lines, c.splitLine(line)...)
			continue
		}
		lines = append(lines, line)
	}

	var chunks []string
	var current []string
	fresh := 0 // lines in current not carried over from the previous chunk
	for _, line := range lines {
		candidate := strings.Join(append(current, line), "\n")
		if len(current) > 0 && c.counter.Count(candidate) > c.maxTokens {
			if fresh > 0 {
				chunks = append(chunks, strings.Join(current, "\n"))
			}
			current = c.tail(current, line)
			fresh = 0
		}
		current = append(current, line)
		fresh++
	}
	if fresh > 0 {
		chunks = append(chunks, strings.Join(current, "\n"))
	}
	return chunks
}

// tail returns the overlap lines to carry into the next chunk, dropping
// them when they would not leave room for next.
func (c *Chunker) tail(lines []string, next string) []string {
	n := c.overlap
	if n > len(lines) {
		n = len(lines)
	}
	carried := append([]string(nil), lines[len(lines)-n:]...)
	for len(carried) > 0 && c.counter.Count(strings.Join(append(carried, next), "\n")) > c.maxTokens {
		carried = carried[1:]
	}
	return carried
}

func (c *Chunker) splitLine(line string) []string {
	var out []string
	var current []string
	for _, word := range strings.Fields(line) {
		if len(current) > 0 && c.counter.Count(strings.Join(append(current, word), " ")) > c.maxTokens {
			out = append(out, strings.Join(current, " "))
			current = nil
		}
		current = append(current, word)
	}
	if len(current) > 0 {
		out = append(out, strings.Join(current, " "))
	}
	return out
}
