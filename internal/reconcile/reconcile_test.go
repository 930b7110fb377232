package reconcile

import (
	"testing"

	"github.com/storyforge/scene-segmenter/internal/domain"
	"github.com/storyforge/scene-segmenter/internal/inference"
)

func TestGlobalize(t *testing.T) {
	tests := []struct {
		name           string
		local          []inference.LocalScene
		scenesSoFar    int
		timeSoFar      float64
		wantOrdinals   []int
		wantTimestamps []float64
	}{
		{
			name: "first chunk keeps local coordinates",
			local: []inference.LocalScene{
				{Ordinal: 1, Timestamp: 10},
				{Ordinal: 2, Timestamp: 50},
				{Ordinal: 3, Timestamp: 90},
			},
			scenesSoFar:    0,
			timeSoFar:      0,
			wantOrdinals:   []int{1, 2, 3},
			wantTimestamps: []float64{10, 50, 90},
		},
		{
			name: "second chunk offsets by running totals",
			local: []inference.LocalScene{
				{Ordinal: 1, Timestamp: 20},
				{Ordinal: 2, Timestamp: 80},
			},
			scenesSoFar:    3,
			timeSoFar:      100,
			wantOrdinals:   []int{4, 5},
			wantTimestamps: []float64{120, 180},
		},
		{
			name: "offsets unaffected by skipped chunk index",
			local: []inference.LocalScene{
				{Ordinal: 1, Timestamp: 5},
			},
			scenesSoFar:    5,
			timeSoFar:      200,
			wantOrdinals:   []int{6},
			wantTimestamps: []float64{205},
		},
		{
			name:           "empty outcome",
			local:          nil,
			scenesSoFar:    7,
			timeSoFar:      300,
			wantOrdinals:   []int{},
			wantTimestamps: []float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scenes := Globalize(tt.local, tt.scenesSoFar, tt.timeSoFar)
			if len(scenes) != len(tt.wantOrdinals) {
				t.Fatalf("Globalize() returned %d scenes, want %d", len(scenes), len(tt.wantOrdinals))
			}
			for i, s := range scenes {
				if s.Ordinal != tt.wantOrdinals[i] {
					t.Errorf("scene %d ordinal = %d, want %d", i, s.Ordinal, tt.wantOrdinals[i])
				}
				if s.Timestamp != tt.wantTimestamps[i] {
					t.Errorf("scene %d timestamp = %v, want %v", i, s.Timestamp, tt.wantTimestamps[i])
				}
			}
		})
	}
}

func TestGlobalize_PreservesOtherFields(t *testing.T) {
	local := []inference.LocalScene{{
		Ordinal:            1,
		TextSegment:        "The fox leapt over the stream.",
		Timestamp:          12,
		IllustrationPrompt: "a fox mid-leap over a stream",
		Emotion:            domain.EmotionAdventurous,
		Importance:         domain.ImportanceMajor,
	}}

	scenes := Globalize(local, 10, 60)

	got := scenes[0]
	if got.TextSegment != local[0].TextSegment {
		t.Errorf("TextSegment changed: %q", got.TextSegment)
	}
	if got.IllustrationPrompt != local[0].IllustrationPrompt {
		t.Errorf("IllustrationPrompt changed: %q", got.IllustrationPrompt)
	}
	if got.Emotion != local[0].Emotion {
		t.Errorf("Emotion changed: %q", got.Emotion)
	}
	if got.Importance != local[0].Importance {
		t.Errorf("Importance changed: %q", got.Importance)
	}
}
