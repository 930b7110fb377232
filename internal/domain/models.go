// Package domain contains the core domain types for the scene segmenter.
package domain

import "strings"

// Emotion tags a scene with its dominant mood. The worker is prompted to
// pick from this set, but its output is normalized rather than trusted.
type Emotion string

const (
	EmotionJoyful        Emotion = "joyful"
	EmotionPeaceful      Emotion = "peaceful"
	EmotionExciting      Emotion = "exciting"
	EmotionMysterious    Emotion = "mysterious"
	EmotionHeartwarming  Emotion = "heartwarming"
	EmotionAdventurous   Emotion = "adventurous"
	EmotionContemplative Emotion = "contemplative"
)

var allowedEmotions = map[Emotion]bool{
	EmotionJoyful:        true,
	EmotionPeaceful:      true,
	EmotionExciting:      true,
	EmotionMysterious:    true,
	EmotionHeartwarming:  true,
	EmotionAdventurous:   true,
	EmotionContemplative: true,
}

// NormalizeEmotion lowercases and trims a tag, returning "" for tags
// outside the allowed set.
func NormalizeEmotion(tag string) Emotion {
	e := Emotion(strings.ToLower(strings.TrimSpace(tag)))
	if allowedEmotions[e] {
		return e
	}
	return ""
}

// Importance ranks how central a scene is to the story.
type Importance string

const (
	ImportanceKey   Importance = "key"
	ImportanceMajor Importance = "major"
	ImportanceMinor Importance = "minor"
)

var allowedImportance = map[Importance]bool{
	ImportanceKey:   true,
	ImportanceMajor: true,
	ImportanceMinor: true,
}

// NormalizeImportance lowercases and trims a rank, returning "" for ranks
// outside the allowed set.
func NormalizeImportance(rank string) Importance {
	i := Importance(strings.ToLower(strings.TrimSpace(rank)))
	if allowedImportance[i] {
		return i
	}
	return ""
}

// Scene is one illustratable moment extracted from the narrative.
// Ordinals are 1-based and contiguous across the final list; timestamps
// are seconds into the full narration.
type Scene struct {
	Ordinal            int        `json:"ordinal"`
	TextSegment        string     `json:"textSegment"`
	Timestamp          float64    `json:"timestamp"`
	IllustrationPrompt string     `json:"illustrationPrompt"`
	Emotion            Emotion    `json:"emotion"`
	Importance         Importance `json:"importance"`
}

// HeroProfile describes the story's protagonist, passed to the extraction
// worker so scenes stay visually consistent across chunks.
type HeroProfile struct {
	Name           string `json:"name"`
	Traits         string `json:"traits"`
	Appearance     string `json:"appearance"`
	SpecialAbility string `json:"specialAbility"`
}

// Request is the input to the scene segmenter.
type Request struct {
	Narrative       string      `json:"narrative"`
	DurationSeconds float64     `json:"durationSeconds"`
	Hero            HeroProfile `json:"hero"`
	ThemeContext    string      `json:"themeContext"`
}

// Response is the output from the scene segmenter.
type Response struct {
	Scenes     []Scene `json:"scenes"`
	SceneCount int     `json:"sceneCount"`
	Reasoning  string  `json:"reasoning,omitempty"`
	Error      string  `json:"error,omitempty"`
}
