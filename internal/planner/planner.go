// Package planner decides single-shot vs. chunked processing and
// partitions a narrative into token-budgeted chunks.
package planner

import "fmt"

const (
	// DefaultMaxInputTokens is the extraction worker's input ceiling.
	DefaultMaxInputTokens = 4800

	// DefaultPromptOverhead is reserved for the worker's own prompt
	// framing (persona, hero profile, positional metadata).
	DefaultPromptOverhead = 800
)

// Budget returns the usable per-chunk token budget: the worker's input
// ceiling minus the reserved prompt overhead.
func Budget(maxInputTokens, promptOverhead int) int {
	if maxInputTokens <= 0 {
		maxInputTokens = DefaultMaxInputTokens
	}
	if promptOverhead < 0 || promptOverhead >= maxInputTokens {
		promptOverhead = DefaultPromptOverhead
		if promptOverhead >= maxInputTokens {
			// Ceilings below the default overhead reserve the same
			// proportional share the defaults do.
			promptOverhead = maxInputTokens * DefaultPromptOverhead / DefaultMaxInputTokens
		}
	}
	return maxInputTokens - promptOverhead
}

// Counter measures and splits text by token count.
type Counter interface {
	CountTokens(text string) (int, error)
	ChunkText(text string, maxTokens int) ([]string, error)
}

// Chunk is one token-budgeted slice of the narrative. Boundaries are
// fixed once planned; chunks are never re-split or merged.
type Chunk struct {
	Index      int
	Text       string
	TokenCount int
	StartTime  float64
	Duration   float64
}

// Plan is the planner's decision: either the whole narrative fits in one
// call (SingleShot, no chunks) or it is partitioned into Chunks.
type Plan struct {
	SingleShot  bool
	TotalTokens int
	Chunks      []Chunk
}

// Build measures the narrative against budget and, when it does not fit,
// partitions it into the minimum number of contiguous chunks, assigning
// each an equal share of totalDuration and a cumulative start time.
func Build(tok Counter, narrative string, totalDuration float64, budget int) (Plan, error) {
	if budget <= 0 {
		return Plan{}, fmt.Errorf("budget must be positive, got %d", budget)
	}

	total, err := tok.CountTokens(narrative)
	if err != nil {
		return Plan{}, fmt.Errorf("count tokens: %w", err)
	}

	if total <= budget {
		return Plan{SingleShot: true, TotalTokens: total}, nil
	}

	texts, err := tok.ChunkText(narrative, budget)
	if err != nil {
		return Plan{}, fmt.Errorf("chunk text: %w", err)
	}

	// Equal-split policy: every chunk gets the same narration share
	// regardless of its text length.
	duration := totalDuration / float64(len(texts))

	chunks := make([]Chunk, 0, len(texts))
	for i, text := range texts {
		count, err := tok.CountTokens(text)
		if err != nil {
			return Plan{}, fmt.Errorf("count chunk %d: %w", i, err)
		}
		chunks = append(chunks, Chunk{
			Index:      i,
			Text:       text,
			TokenCount: count,
			StartTime:  float64(i) * duration,
			Duration:   duration,
		})
	}

	return Plan{TotalTokens: total, Chunks: chunks}, nil
}
