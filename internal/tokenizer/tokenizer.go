// Package tokenizer measures and splits text by BPE token count.
package tokenizer

import (
	"errors"
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// ErrClosed is returned when a released tokenizer is used.
var ErrClosed = errors.New("tokenizer is closed")

// Tokenizer wraps a BPE encoding. It is acquired once per pipeline
// invocation and must be released with Close on every exit path.
type Tokenizer struct {
	encoding *tiktoken.Tiktoken
}

// Acquire loads the cl100k_base encoding.
func Acquire() (*Tokenizer, error) {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("load encoding: %w", err)
	}
	return &Tokenizer{encoding: encoding}, nil
}

// CountTokens returns the BPE token length of text.
func (t *Tokenizer) CountTokens(text string) (int, error) {
	if t == nil || t.encoding == nil {
		return 0, ErrClosed
	}
	return len(t.encoding.Encode(text, nil, nil)), nil
}

// ChunkText splits text into contiguous slices of at most maxTokens tokens
// each, preserving order and dropping nothing. A text that already fits
// comes back as a single slice.
func (t *Tokenizer) ChunkText(text string, maxTokens int) ([]string, error) {
	if t == nil || t.encoding == nil {
		return nil, ErrClosed
	}
	if maxTokens <= 0 {
		return nil, fmt.Errorf("maxTokens must be positive, got %d", maxTokens)
	}

	tokens := t.encoding.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return []string{text}, nil
	}

	chunks := make([]string, 0, len(tokens)/maxTokens+1)
	for start := 0; start < len(tokens); start += maxTokens {
		end := start + maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, t.encoding.Decode(tokens[start:end]))
	}
	return chunks, nil
}

// Close releases the tokenizer. It is idempotent; any use after Close
// returns ErrClosed.
func (t *Tokenizer) Close() error {
	if t == nil {
		return nil
	}
	t.encoding = nil
	return nil
}
