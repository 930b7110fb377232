// Package pipeline orchestrates scene extraction: single-shot for short
// narratives, a sequential chunk fold for long ones.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/storyforge/scene-segmenter/internal/domain"
	"github.com/storyforge/scene-segmenter/internal/inference"
	"github.com/storyforge/scene-segmenter/internal/planner"
	"github.com/storyforge/scene-segmenter/internal/processor"
	"github.com/storyforge/scene-segmenter/internal/reconcile"
)

// SingleShot extracts scenes from a whole narrative in one call.
type SingleShot interface {
	Extract(ctx context.Context, req domain.Request) ([]inference.LocalScene, error)
}

// ChunkProcessor extracts scenes from one chunk with retries, and paces
// the gap between chunk calls.
type ChunkProcessor interface {
	Process(ctx context.Context, chunk planner.Chunk, totalChunks int, hero domain.HeroProfile, themeContext string) processor.Outcome
	Pause(ctx context.Context) error
}

// Result is the aggregated pipeline output.
type Result struct {
	Scenes    []domain.Scene
	Reasoning string
}

// Pipeline runs one extraction invocation.
type Pipeline struct {
	single SingleShot
	proc   ChunkProcessor
	log    *slog.Logger
}

// New creates a Pipeline.
func New(single SingleShot, proc ChunkProcessor, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{single: single, proc: proc, log: log}
}

// Run executes the plan. The chunked path never fails as a whole on
// chunk errors: dropped chunks shrink the result instead. A cancellation
// returns the scenes reconciled so far along with the context error.
func (p *Pipeline) Run(ctx context.Context, plan planner.Plan, req domain.Request) (Result, error) {
	if plan.SingleShot {
		return p.runSingleShot(ctx, req)
	}
	return p.runChunked(ctx, plan.Chunks, req)
}

// runSingleShot sends the full narrative once. Ordinals and timestamps
// come back already global, so reconciliation offsets are zero.
func (p *Pipeline) runSingleShot(ctx context.Context, req domain.Request) (Result, error) {
	local, err := p.single.Extract(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("extract scenes: %w", err)
	}

	scenes := reconcile.Globalize(local, 0, 0)
	return Result{
		Scenes:    scenes,
		Reasoning: fmt.Sprintf("Extracted %d scenes in a single pass", len(scenes)),
	}, nil
}

// runChunked folds over the chunks in order, threading the accumulated
// scene list and the running success count. Ordinals advance by count of
// emitted scenes, not by chunk index, so a dropped chunk leaves no gap.
func (p *Pipeline) runChunked(ctx context.Context, chunks []planner.Chunk, req domain.Request) (Result, error) {
	scenes := make([]domain.Scene, 0)
	scenesSoFar := 0
	failed := 0

	for i, chunk := range chunks {
		p.log.Info("processing chunk",
			"chunk", fmt.Sprintf("%d/%d", i+1, len(chunks)),
			"tokens", chunk.TokenCount)

		outcome := p.proc.Process(ctx, chunk, len(chunks), req.Hero, req.ThemeContext)
		if outcome.Failed {
			if ctx.Err() != nil {
				return p.aggregate(scenes, len(chunks), failed), ctx.Err()
			}
			failed++
			continue
		}

		scenes = append(scenes, reconcile.Globalize(outcome.Scenes, scenesSoFar, chunk.StartTime)...)
		scenesSoFar += len(outcome.Scenes)

		if i < len(chunks)-1 {
			if err := p.proc.Pause(ctx); err != nil {
				return p.aggregate(scenes, len(chunks), failed), err
			}
		}
	}

	return p.aggregate(scenes, len(chunks), failed), nil
}

// aggregate sorts the combined scene list by global ordinal and builds
// the rationale. The sort guards against upstream reordering; dropped
// chunks are called out so partial results are distinguishable.
func (p *Pipeline) aggregate(scenes []domain.Scene, chunkCount, failed int) Result {
	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].Ordinal < scenes[j].Ordinal
	})

	reasoning := fmt.Sprintf("Extracted %d scenes from %d chunks", len(scenes), chunkCount)
	if failed > 0 {
		reasoning += fmt.Sprintf(" (%d chunks dropped after retries)", failed)
		p.log.Warn("pipeline degraded", "chunksDropped", failed, "chunks", chunkCount, "scenes", len(scenes))
	}

	return Result{Scenes: scenes, Reasoning: reasoning}
}
