// Package handler provides the Lambda handler for the scene segmenter.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/google/uuid"

	"github.com/storyforge/scene-segmenter/internal/domain"
	"github.com/storyforge/scene-segmenter/internal/inference"
	"github.com/storyforge/scene-segmenter/internal/pipeline"
	"github.com/storyforge/scene-segmenter/internal/planner"
	"github.com/storyforge/scene-segmenter/internal/processor"
	"github.com/storyforge/scene-segmenter/internal/tokenizer"
)

// tokenSource is the tokenizer resource: counting plus guaranteed release.
type tokenSource interface {
	planner.Counter
	Close() error
}

// extractor is the inference client surface the pipeline needs.
type extractor interface {
	pipeline.SingleShot
	processor.Extractor
}

// deps holds the collaborator constructors so tests can substitute them.
type deps struct {
	acquireTokenizer func() (tokenSource, error)
	newExtractor     func(ctx context.Context) (extractor, error)
	procOpts         []processor.Option
}

func defaultDeps() deps {
	return deps{
		acquireTokenizer: func() (tokenSource, error) { return tokenizer.Acquire() },
		newExtractor: func(ctx context.Context) (extractor, error) {
			return inference.New(ctx)
		},
	}
}

// Handle processes a scene-segmentation request. Validation failures and
// an unavailable inference service abort the request; chunk failures do
// not — the response degrades to whatever was extracted.
func Handle(ctx context.Context, req domain.Request) (*domain.Response, error) {
	return handle(ctx, req, defaultDeps())
}

func handle(ctx context.Context, req domain.Request, d deps) (*domain.Response, error) {
	log := slog.Default().With("requestId", uuid.NewString())

	if err := validateRequest(req); err != nil {
		return &domain.Response{Error: err.Error()}, nil
	}

	tok, err := d.acquireTokenizer()
	if err != nil {
		return &domain.Response{Error: fmt.Sprintf("failed to acquire tokenizer: %v", err)}, nil
	}
	defer tok.Close()

	ext, err := d.newExtractor(ctx)
	if err != nil {
		return &domain.Response{Error: fmt.Sprintf("inference service unavailable: %v", err)}, nil
	}

	budget := planner.Budget(envInt("MAX_INPUT_TOKENS"), envIntDefault("PROMPT_OVERHEAD_TOKENS", -1))
	plan, err := planner.Build(tok, req.Narrative, req.DurationSeconds, budget)
	if err != nil {
		return &domain.Response{Error: fmt.Sprintf("failed to plan chunks: %v", err)}, nil
	}

	log.Info("plan ready",
		"tokens", plan.TotalTokens,
		"budget", budget,
		"singleShot", plan.SingleShot,
		"chunks", len(plan.Chunks))

	proc := processor.New(ext, log, d.procOpts...)
	result, err := pipeline.New(ext, proc, log).Run(ctx, plan, req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Completed chunks still form a valid partial result.
			return &domain.Response{
				Scenes:     result.Scenes,
				SceneCount: len(result.Scenes),
				Reasoning:  result.Reasoning,
				Error:      err.Error(),
			}, nil
		}
		return &domain.Response{Error: fmt.Sprintf("extraction failed: %v", err)}, nil
	}

	return &domain.Response{
		Scenes:     result.Scenes,
		SceneCount: len(result.Scenes),
		Reasoning:  result.Reasoning,
	}, nil
}

// validateRequest checks the request is complete.
func validateRequest(req domain.Request) error {
	if req.Narrative == "" {
		return fmt.Errorf("narrative is required")
	}
	if req.DurationSeconds <= 0 {
		return fmt.Errorf("durationSeconds must be positive")
	}
	if req.Hero.Name == "" {
		return fmt.Errorf("hero.name is required")
	}
	if req.Hero.Traits == "" {
		return fmt.Errorf("hero.traits is required")
	}
	if req.Hero.Appearance == "" {
		return fmt.Errorf("hero.appearance is required")
	}
	if req.Hero.SpecialAbility == "" {
		return fmt.Errorf("hero.specialAbility is required")
	}
	if req.ThemeContext == "" {
		return fmt.Errorf("themeContext is required")
	}
	return nil
}

func envInt(name string) int {
	return envIntDefault(name, 0)
}

func envIntDefault(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
