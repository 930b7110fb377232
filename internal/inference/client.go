// Package inference calls the scene-extraction worker Lambda.
package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/storyforge/scene-segmenter/internal/domain"
)

// ErrUnavailable means the worker cannot be reached or is not configured.
// It aborts the whole request before any chunk work begins.
var ErrUnavailable = errors.New("inference service unavailable")

// Invoker is the slice of the Lambda API the client uses.
type Invoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// Client invokes the scene-extraction worker.
type Client struct {
	lambdaClient Invoker
	functionName string
}

// New creates a Client from the ambient AWS config. The worker function
// name comes from SCENE_WORKER_FUNCTION, defaulting to the
// environment-suffixed deployment name.
func New(ctx context.Context) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load AWS config: %v", ErrUnavailable, err)
	}

	functionName := os.Getenv("SCENE_WORKER_FUNCTION")
	if functionName == "" {
		env := os.Getenv("ENVIRONMENT")
		if env == "" {
			env = "dev"
		}
		functionName = "storyforge-scene-worker-" + env
	}

	return &Client{
		lambdaClient: lambda.NewFromConfig(cfg),
		functionName: functionName,
	}, nil
}

// NewWithInvoker creates a Client with an explicit invoker and function
// name. Tests use it to substitute a fake worker.
func NewWithInvoker(invoker Invoker, functionName string) *Client {
	return &Client{lambdaClient: invoker, functionName: functionName}
}

// ChunkPosition tells the worker where a chunk falls in the narrative so
// it can anchor the opening and resolution correctly.
type ChunkPosition struct {
	Index int  `json:"index"`
	Count int  `json:"count"`
	First bool `json:"first"`
	Last  bool `json:"last"`
}

// ExtractRequest is the request payload sent to the worker.
type ExtractRequest struct {
	Text            string             `json:"text"`
	DurationSeconds float64            `json:"durationSeconds"`
	Hero            domain.HeroProfile `json:"hero"`
	ThemeContext    string             `json:"themeContext"`
	Chunk           *ChunkPosition     `json:"chunk,omitempty"`
}

// LocalScene is a scene in chunk-local coordinates: a 1-based ordinal
// within its chunk and a timestamp within the chunk's duration window.
type LocalScene struct {
	Ordinal            int
	TextSegment        string
	Timestamp          float64
	IllustrationPrompt string
	Emotion            domain.Emotion
	Importance         domain.Importance
}

// extractResponse is the worker's wire format.
type extractResponse struct {
	Scenes []sceneJSON `json:"scenes"`
	Error  string      `json:"error,omitempty"`
}

type sceneJSON struct {
	Ordinal            int     `json:"ordinal"`
	TextSegment        string  `json:"textSegment"`
	Timestamp          float64 `json:"timestamp"`
	IllustrationPrompt string  `json:"illustrationPrompt"`
	Emotion            string  `json:"emotion"`
	Importance         string  `json:"importance"`
}

// Extract sends the full narrative in one call. Ordinals and timestamps
// in the result are already global.
func (c *Client) Extract(ctx context.Context, req domain.Request) ([]LocalScene, error) {
	payload := ExtractRequest{
		Text:            req.Narrative,
		DurationSeconds: req.DurationSeconds,
		Hero:            req.Hero,
		ThemeContext:    req.ThemeContext,
	}
	return c.invokeWorker(ctx, payload, req.DurationSeconds)
}

// ExtractChunk sends one chunk with its positional metadata. The window
// duration bounds the local timestamps the worker may return.
func (c *Client) ExtractChunk(ctx context.Context, text string, window float64, pos ChunkPosition, hero domain.HeroProfile, themeContext string) ([]LocalScene, error) {
	payload := ExtractRequest{
		Text:            text,
		DurationSeconds: window,
		Hero:            hero,
		ThemeContext:    themeContext,
		Chunk:           &pos,
	}
	return c.invokeWorker(ctx, payload, window)
}

// invokeWorker marshals the request, invokes the worker Lambda, and
// validates the response before handing it back.
func (c *Client) invokeWorker(ctx context.Context, req ExtractRequest, window float64) ([]LocalScene, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	result, err := c.lambdaClient.Invoke(ctx, &lambda.InvokeInput{
		FunctionName: &c.functionName,
		Payload:      payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke %s: %w", c.functionName, err)
	}

	if result.FunctionError != nil {
		return nil, fmt.Errorf("lambda error: %s", *result.FunctionError)
	}

	var resp extractResponse
	if err := json.Unmarshal(result.Payload, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Error != "" {
		return nil, fmt.Errorf("worker error: %s", resp.Error)
	}

	return validateScenes(resp.Scenes, window)
}

// validateScenes is the schema guard on the worker's dynamic JSON: local
// ordinals must be 1-based and contiguous, timestamps must fall inside
// the duration window, and scenes need a text segment. A violation is a
// parse failure, which the caller treats as a failed attempt.
func validateScenes(raw []sceneJSON, window float64) ([]LocalScene, error) {
	scenes := make([]LocalScene, 0, len(raw))
	for i, s := range raw {
		if s.Ordinal != i+1 {
			return nil, fmt.Errorf("scene %d has ordinal %d, want %d", i, s.Ordinal, i+1)
		}
		if s.TextSegment == "" {
			return nil, fmt.Errorf("scene %d has empty text segment", s.Ordinal)
		}
		if s.Timestamp < 0 || (window > 0 && s.Timestamp > window) {
			return nil, fmt.Errorf("scene %d timestamp %v outside [0, %v]", s.Ordinal, s.Timestamp, window)
		}
		scenes = append(scenes, LocalScene{
			Ordinal:            s.Ordinal,
			TextSegment:        s.TextSegment,
			Timestamp:          s.Timestamp,
			IllustrationPrompt: s.IllustrationPrompt,
			Emotion:            domain.NormalizeEmotion(s.Emotion),
			Importance:         domain.NormalizeImportance(s.Importance),
		})
	}
	return scenes, nil
}
