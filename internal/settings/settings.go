// Package settings holds the user-facing filter settings: score threshold,
// filter action, enabled locales and enabled platforms.
//
// Two stores are provided. MemoryStore keeps settings in process; FileStore
// persists them as YAML and watches the file for external edits. Both implement
// the locale source consumed by the scoring engine.
package settings

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/vibecope/vibecope/internal/locale"
)

var (
	// ErrInvalidAction indicates an unknown filter action.
	ErrInvalidAction = errors.New("invalid action")

	// ErrInvalidThreshold indicates a threshold outside 0..100.
	ErrInvalidThreshold = errors.New("threshold must be between 0 and 100")
)

// Action is what a client does with a filtered post.
type Action string

const (
	ActionBlur     Action = "blur"
	ActionCollapse Action = "collapse"
	ActionBadge    Action = "badge"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionBlur, ActionCollapse, ActionBadge:
		return true
	}
	return false
}

// DefaultThreshold is the score from which posts are filtered.
const DefaultThreshold = 50

// Settings is the persisted settings record.
type Settings struct {
	Threshold        int             `yaml:"threshold" json:"threshold"`
	Action           Action          `yaml:"action" json:"action"`
	EnabledLocales   []string        `yaml:"enabled_locales" json:"enabled_locales"`
	EnabledPlatforms map[string]bool `yaml:"enabled_platforms" json:"enabled_platforms"`
}

// Defaults returns the settings used when nothing has been saved.
func Defaults() Settings {
	return Settings{
		Threshold:      DefaultThreshold,
		Action:         ActionCollapse,
		EnabledLocales: slices.Clone(locale.DefaultEnabled),
		EnabledPlatforms: map[string]bool{
			"linkedin": false,
			"x":        true,
		},
	}
}

// Validate checks threshold and action.
func (s Settings) Validate() error {
	if s.Threshold < 0 || s.Threshold > 100 {
		return fmt.Errorf("%w: %d", ErrInvalidThreshold, s.Threshold)
	}
	if !s.Action.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAction, s.Action)
	}
	return nil
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	s.EnabledLocales = slices.Clone(s.EnabledLocales)
	s.EnabledPlatforms = maps.Clone(s.EnabledPlatforms)
	return s
}

// Equal reports whether s and o hold the same values. Nil and empty
// collections are equal.
func (s Settings) Equal(o Settings) bool {
	return s.Threshold == o.Threshold &&
		s.Action == o.Action &&
		slices.Equal(s.EnabledLocales, o.EnabledLocales) &&
		maps.Equal(s.EnabledPlatforms, o.EnabledPlatforms)
}

// PlatformEnabled reports whether filtering is on for platform.
func (s Settings) PlatformEnabled(platform string) bool {
	return s.EnabledPlatforms[platform]
}

// Verdict is the filtering decision for one score.
type Verdict struct {
	Filtered bool   `json:"filtered"`
	Action   Action `json:"action,omitempty"`
}

// Verdict filters posts scoring at or above the threshold.
func (s Settings) Verdict(score int) Verdict {
	if score >= s.Threshold {
		return Verdict{Filtered: true, Action: s.Action}
	}
	return Verdict{}
}
