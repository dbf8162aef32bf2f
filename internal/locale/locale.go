// Package locale holds the per-language phrase tables used by the pattern compiler.
//
// Each supported locale ships as an embedded YAML document with one list of phrase
// patterns per Category. Phrases are RE2 regular-expression fragments; they are
// validated and joined by the patterns package, never here.
package locale

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var embedded embed.FS

var (
	// ErrMissingID is returned when a locale table has no locale id.
	ErrMissingID = errors.New("locale id is required")

	// ErrDuplicateID is returned when two tables share a locale id.
	ErrDuplicateID = errors.New("duplicate locale id")
)

// DefaultEnabled is the locale set used until the settings store says otherwise.
var DefaultEnabled = []string{"en", "pl"}

// Category identifies one phrase list of a locale table.
type Category int

const (
	TimeFrame Category = iota
	TechContext
	Buzzwords
	SelfHypeVerbs
	EffortMinimizers
	BioSignals
	AIReplacementClaims
	EngagementBait
)

var categoryNames = [...]string{
	TimeFrame:           "time_frame_phrases",
	TechContext:         "tech_context",
	Buzzwords:           "buzzwords",
	SelfHypeVerbs:       "self_hype_verbs",
	EffortMinimizers:    "effort_minimizers",
	BioSignals:          "bio_signals",
	AIReplacementClaims: "ai_replacement_claims",
	EngagementBait:      "engagement_bait",
}

// Categories returns every category in declaration order.
func Categories() []Category {
	return []Category{
		TimeFrame, TechContext, Buzzwords, SelfHypeVerbs,
		EffortMinimizers, BioSignals, AIReplacementClaims, EngagementBait,
	}
}

// String returns the YAML key of the category.
func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// Data is the phrase table of one locale.
type Data struct {
	Locale              string   `yaml:"locale" json:"locale"`
	Label               string   `yaml:"label" json:"label"`
	TimeFramePhrases    []string `yaml:"time_frame_phrases" json:"time_frame_phrases"`
	TechContext         []string `yaml:"tech_context" json:"tech_context"`
	Buzzwords           []string `yaml:"buzzwords" json:"buzzwords"`
	SelfHypeVerbs       []string `yaml:"self_hype_verbs" json:"self_hype_verbs"`
	EffortMinimizers    []string `yaml:"effort_minimizers" json:"effort_minimizers"`
	BioSignals          []string `yaml:"bio_signals" json:"bio_signals"`
	AIReplacementClaims []string `yaml:"ai_replacement_claims" json:"ai_replacement_claims"`
	EngagementBait      []string `yaml:"engagement_bait" json:"engagement_bait"`
}

// Phrases returns the phrase list for a category.
func (d *Data) Phrases(c Category) []string {
	switch c {
	case TimeFrame:
		return d.TimeFramePhrases
	case TechContext:
		return d.TechContext
	case Buzzwords:
		return d.Buzzwords
	case SelfHypeVerbs:
		return d.SelfHypeVerbs
	case EffortMinimizers:
		return d.EffortMinimizers
	case BioSignals:
		return d.BioSignals
	case AIReplacementClaims:
		return d.AIReplacementClaims
	case EngagementBait:
		return d.EngagementBait
	default:
		return nil
	}
}

// Info is the display record used for locale pickers.
type Info struct {
	Locale string `json:"locale"`
	Label  string `json:"label"`
}

// Parse decodes one YAML locale table.
func Parse(b []byte) (*Data, error) {
	var d Data
	if err := yaml.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("decoding locale table: %w", err)
	}
	d.Locale = strings.TrimSpace(d.Locale)
	if d.Locale == "" {
		return nil, ErrMissingID
	}
	if d.Label == "" {
		d.Label = d.Locale
	}
	return &d, nil
}

// LoadFS reads every *.yaml file in dir of fsys, sorted by file name.
func LoadFS(fsys fs.FS, dir string) ([]*Data, error) {
	names, err := fs.Glob(fsys, path.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("listing locale files: %w", err)
	}

	tables := make([]*Data, 0, len(names))
	for _, name := range names {
		b, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		d, err := Parse(b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		tables = append(tables, d)
	}
	return tables, nil
}

// Builtin returns the embedded English and Polish tables, English first.
func Builtin() ([]*Data, error) {
	tables, err := LoadFS(embedded, "data")
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*Data, len(tables))
	for _, t := range tables {
		byID[t.Locale] = t
	}
	ordered := make([]*Data, 0, len(tables))
	for _, id := range DefaultEnabled {
		if t, ok := byID[id]; ok {
			ordered = append(ordered, t)
			delete(byID, id)
		}
	}
	for _, t := range tables {
		if _, ok := byID[t.Locale]; ok {
			ordered = append(ordered, t)
		}
	}
	return ordered, nil
}
