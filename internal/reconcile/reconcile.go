// Package reconcile rewrites chunk-local scenes into the narrative's
// global coordinate space.
package reconcile

import (
	"github.com/storyforge/scene-segmenter/internal/domain"
	"github.com/storyforge/scene-segmenter/internal/inference"
)

// Globalize offsets each chunk-local scene by the running totals:
// scenesSoFar scenes were emitted by earlier chunks, and timeSoFar is
// this chunk's start within the full narration. No other field changes.
func Globalize(local []inference.LocalScene, scenesSoFar int, timeSoFar float64) []domain.Scene {
	scenes := make([]domain.Scene, 0, len(local))
	for _, s := range local {
		scenes = append(scenes, domain.Scene{
			Ordinal:            s.Ordinal + scenesSoFar,
			TextSegment:        s.TextSegment,
			Timestamp:          s.Timestamp + timeSoFar,
			IllustrationPrompt: s.IllustrationPrompt,
			Emotion:            s.Emotion,
			Importance:         s.Importance,
		})
	}
	return scenes
}
