package inference

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/storyforge/scene-segmenter/internal/domain"
)

// fakeInvoker returns a canned Lambda response or error.
type fakeInvoker struct {
	payload       []byte
	functionError *string
	err           error
	lastInput     *lambda.InvokeInput
}

func (f *fakeInvoker) Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	f.lastInput = params
	if f.err != nil {
		return nil, f.err
	}
	return &lambda.InvokeOutput{Payload: f.payload, FunctionError: f.functionError}, nil
}

func workerPayload(t *testing.T, scenes []sceneJSON) []byte {
	t.Helper()
	payload, err := json.Marshal(extractResponse{Scenes: scenes})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return payload
}

func TestExtractChunk_Success(t *testing.T) {
	invoker := &fakeInvoker{payload: workerPayload(t, []sceneJSON{
		{Ordinal: 1, TextSegment: "The fox woke up.", Timestamp: 10, IllustrationPrompt: "a fox waking", Emotion: "peaceful", Importance: "key"},
		{Ordinal: 2, TextSegment: "The fox ran.", Timestamp: 50, IllustrationPrompt: "a fox running", Emotion: "EXCITING", Importance: "minor"},
	})}
	c := NewWithInvoker(invoker, "worker-test")

	scenes, err := c.ExtractChunk(context.Background(), "chunk text", 100,
		ChunkPosition{Index: 0, Count: 3, First: true}, domain.HeroProfile{Name: "Fox"}, "forest tale")
	if err != nil {
		t.Fatalf("ExtractChunk() error: %v", err)
	}
	if len(scenes) != 2 {
		t.Fatalf("got %d scenes, want 2", len(scenes))
	}
	if scenes[1].Emotion != domain.EmotionExciting {
		t.Errorf("emotion not normalized: got %q", scenes[1].Emotion)
	}

	// Positional metadata must reach the worker.
	var sent ExtractRequest
	if err := json.Unmarshal(invoker.lastInput.Payload, &sent); err != nil {
		t.Fatalf("unmarshal sent payload: %v", err)
	}
	if sent.Chunk == nil {
		t.Fatal("chunked request sent without positional metadata")
	}
	if !sent.Chunk.First || sent.Chunk.Last {
		t.Errorf("chunk position flags wrong: %+v", sent.Chunk)
	}
	if sent.Chunk.Count != 3 {
		t.Errorf("chunk count = %d, want 3", sent.Chunk.Count)
	}
	if sent.DurationSeconds != 100 {
		t.Errorf("window duration = %v, want 100", sent.DurationSeconds)
	}
}

func TestExtract_SingleShotOmitsChunkMetadata(t *testing.T) {
	invoker := &fakeInvoker{payload: workerPayload(t, nil)}
	c := NewWithInvoker(invoker, "worker-test")

	_, err := c.Extract(context.Background(), domain.Request{
		Narrative:       "a short story",
		DurationSeconds: 60,
		Hero:            domain.HeroProfile{Name: "Fox"},
		ThemeContext:    "forest",
	})
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	var sent ExtractRequest
	if err := json.Unmarshal(invoker.lastInput.Payload, &sent); err != nil {
		t.Fatalf("unmarshal sent payload: %v", err)
	}
	if sent.Chunk != nil {
		t.Error("single-shot request should not carry chunk metadata")
	}
}

func TestInvokeWorker_Failures(t *testing.T) {
	tests := []struct {
		name    string
		invoker *fakeInvoker
	}{
		{
			name:    "transport error",
			invoker: &fakeInvoker{err: errors.New("connection refused")},
		},
		{
			name:    "function error",
			invoker: &fakeInvoker{payload: []byte("{}"), functionError: aws.String("Unhandled")},
		},
		{
			name:    "unparseable body",
			invoker: &fakeInvoker{payload: []byte("not json")},
		},
		{
			name:    "embedded worker error",
			invoker: &fakeInvoker{payload: []byte(`{"error":"model overloaded"}`)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewWithInvoker(tt.invoker, "worker-test")
			_, err := c.ExtractChunk(context.Background(), "text", 100, ChunkPosition{}, domain.HeroProfile{}, "ctx")
			if err == nil {
				t.Error("ExtractChunk() should have failed")
			}
		})
	}
}

func TestValidateScenes(t *testing.T) {
	tests := []struct {
		name    string
		scenes  []sceneJSON
		window  float64
		wantErr bool
	}{
		{
			name: "valid",
			scenes: []sceneJSON{
				{Ordinal: 1, TextSegment: "a", Timestamp: 0},
				{Ordinal: 2, TextSegment: "b", Timestamp: 99.9},
			},
			window: 100,
		},
		{
			name:   "empty list is valid",
			scenes: nil,
			window: 100,
		},
		{
			name:    "zero ordinal",
			scenes:  []sceneJSON{{Ordinal: 0, TextSegment: "a", Timestamp: 1}},
			window:  100,
			wantErr: true,
		},
		{
			name: "gap in ordinals",
			scenes: []sceneJSON{
				{Ordinal: 1, TextSegment: "a", Timestamp: 1},
				{Ordinal: 3, TextSegment: "b", Timestamp: 2},
			},
			window:  100,
			wantErr: true,
		},
		{
			name:    "empty text segment",
			scenes:  []sceneJSON{{Ordinal: 1, TextSegment: "", Timestamp: 1}},
			window:  100,
			wantErr: true,
		},
		{
			name:    "negative timestamp",
			scenes:  []sceneJSON{{Ordinal: 1, TextSegment: "a", Timestamp: -1}},
			window:  100,
			wantErr: true,
		},
		{
			name:    "timestamp beyond window",
			scenes:  []sceneJSON{{Ordinal: 1, TextSegment: "a", Timestamp: 101}},
			window:  100,
			wantErr: true,
		},
		{
			name:   "timestamp at window boundary",
			scenes: []sceneJSON{{Ordinal: 1, TextSegment: "a", Timestamp: 100}},
			window: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validateScenes(tt.scenes, tt.window)
			if tt.wantErr && err == nil {
				t.Error("validateScenes() should have failed")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("validateScenes() unexpected error: %v", err)
			}
		})
	}
}

func TestValidateScenes_NormalizesUnknownTags(t *testing.T) {
	scenes, err := validateScenes([]sceneJSON{
		{Ordinal: 1, TextSegment: "a", Timestamp: 1, Emotion: "melancholy", Importance: "CRITICAL"},
	}, 100)
	if err != nil {
		t.Fatalf("validateScenes() error: %v", err)
	}
	if scenes[0].Emotion != "" {
		t.Errorf("unknown emotion should normalize to empty, got %q", scenes[0].Emotion)
	}
	if scenes[0].Importance != "" {
		t.Errorf("unknown importance should normalize to empty, got %q", scenes[0].Importance)
	}
}
