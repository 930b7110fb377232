// Package processor drives per-chunk extraction calls with bounded
// retries and exponential backoff.
package processor

import (
	"context"
	"log/slog"
	"time"

	"github.com/storyforge/scene-segmenter/internal/domain"
	"github.com/storyforge/scene-segmenter/internal/inference"
	"github.com/storyforge/scene-segmenter/internal/planner"
)

const (
	// MaxRetries is the total number of attempts per chunk.
	MaxRetries = 3

	// InterChunkPause throttles outbound requests between chunks.
	InterChunkPause = 500 * time.Millisecond
)

// BackoffDelay returns the wait before retrying after the given 1-based
// attempt: 1s, 2s, 4s.
func BackoffDelay(attempt int) time.Duration {
	return time.Second << (attempt - 1)
}

// Extractor is the slice of the inference client the processor uses.
type Extractor interface {
	ExtractChunk(ctx context.Context, text string, window float64, pos inference.ChunkPosition, hero domain.HeroProfile, themeContext string) ([]inference.LocalScene, error)
}

// Outcome is the result of processing one chunk: either its local scenes
// or a terminal failure after retries ran out.
type Outcome struct {
	Scenes []inference.LocalScene
	Failed bool
	Err    error
}

// Processor runs chunk extraction attempts sequentially.
type Processor struct {
	extractor Extractor
	log       *slog.Logger

	maxRetries int
	backoff    func(attempt int) time.Duration
	pause      time.Duration
}

// Option adjusts retry behavior; tests use these to avoid real waits.
type Option func(*Processor)

// WithMaxRetries overrides the attempt budget.
func WithMaxRetries(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxRetries = n
		}
	}
}

// WithBackoff overrides the backoff schedule.
func WithBackoff(f func(attempt int) time.Duration) Option {
	return func(p *Processor) { p.backoff = f }
}

// WithPause overrides the inter-chunk pause.
func WithPause(d time.Duration) Option {
	return func(p *Processor) { p.pause = d }
}

// New creates a Processor with the reference retry policy.
func New(extractor Extractor, log *slog.Logger, opts ...Option) *Processor {
	p := &Processor{
		extractor:  extractor,
		log:        log,
		maxRetries: MaxRetries,
		backoff:    BackoffDelay,
		pause:      InterChunkPause,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	return p
}

// Process extracts scenes from one chunk. Any transport failure, worker
// error, or schema violation counts as a failed attempt; after the
// attempt budget is spent the chunk is reported failed, never the
// pipeline. Cancellation aborts immediately, including mid-backoff.
func (p *Processor) Process(ctx context.Context, chunk planner.Chunk, totalChunks int, hero domain.HeroProfile, themeContext string) Outcome {
	pos := inference.ChunkPosition{
		Index: chunk.Index,
		Count: totalChunks,
		First: chunk.Index == 0,
		Last:  chunk.Index == totalChunks-1,
	}

	var lastErr error
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return Outcome{Failed: true, Err: err}
		}

		scenes, err := p.extractor.ExtractChunk(ctx, chunk.Text, chunk.Duration, pos, hero, themeContext)
		if err == nil {
			return Outcome{Scenes: scenes}
		}
		lastErr = err

		p.log.Warn("chunk extraction attempt failed",
			"chunk", chunk.Index,
			"attempt", attempt,
			"maxRetries", p.maxRetries,
			"error", err)

		if attempt < p.maxRetries {
			if err := sleep(ctx, p.backoff(attempt)); err != nil {
				return Outcome{Failed: true, Err: err}
			}
		}
	}

	p.log.Warn("chunk dropped after retries exhausted",
		"chunk", chunk.Index,
		"error", lastErr)
	return Outcome{Failed: true, Err: lastErr}
}

// Pause waits the inter-chunk interval, aborting on cancellation.
func (p *Processor) Pause(ctx context.Context) error {
	return sleep(ctx, p.pause)
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
