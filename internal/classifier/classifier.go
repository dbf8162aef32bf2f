// Package classifier implements the precomputed TF-IDF linear model used as the
// fast scoring path.
//
// The model is loaded once from the trainer's vocabulary.json and weights.json and
// is read-only afterwards, so a *Model is safe for concurrent use.
package classifier

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrShapeMismatch is returned when the parallel model arrays differ in length.
var ErrShapeMismatch = errors.New("classifier: vocabulary and weights have different shapes")

// Vocabulary is the n-gram vocabulary with its inverse document frequencies.
type Vocabulary struct {
	Features []string  `json:"features"`
	IDF      []float64 `json:"idf"`
}

// Weights holds the linear model parameters, parallel to Vocabulary.Features.
type Weights struct {
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

// Model is a loaded classifier. The zero value is an unloaded model.
type Model struct {
	index     map[string]int
	idf       []float64
	coef      []float64
	intercept float64
}

// Empty returns a model with no vocabulary. IsLoaded reports false for it.
func Empty() *Model {
	return &Model{}
}

// New builds a model and its token index. Features, IDF and Coefficients must
// have the same length; duplicate features keep their first index.
func New(v Vocabulary, w Weights) (*Model, error) {
	n := len(v.Features)
	if len(v.IDF) != n || len(w.Coefficients) != n {
		return nil, fmt.Errorf("%w: features=%d idf=%d coefficients=%d",
			ErrShapeMismatch, n, len(v.IDF), len(w.Coefficients))
	}

	index := make(map[string]int, n)
	for i, f := range v.Features {
		if _, ok := index[f]; !ok {
			index[f] = i
		}
	}

	return &Model{
		index:     index,
		idf:       v.IDF,
		coef:      w.Coefficients,
		intercept: w.Intercept,
	}, nil
}

// IsLoaded reports whether the model has a non-empty vocabulary.
func (m *Model) IsLoaded() bool {
	return m != nil && len(m.index) > 0
}

// Size returns the vocabulary size.
func (m *Model) Size() int {
	if m == nil {
		return 0
	}
	return len(m.index)
}

// Classify returns the hype probability of text scaled to 0..100.
func (m *Model) Classify(text string) int {
	return int(math.Round(m.Probability(text) * 100))
}

// Probability returns the sigmoid output for text. Tokens outside the
// vocabulary contribute nothing; text without tokens yields sigmoid(intercept).
func (m *Model) Probability(text string) float64 {
	if m == nil {
		return sigmoid(0)
	}

	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return sigmoid(m.intercept)
	}

	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}

	dot := m.intercept
	total := float64(len(tokens))
	for tok, c := range counts {
		i, ok := m.index[tok]
		if !ok {
			continue
		}
		dot += float64(c) / total * m.idf[i] * m.coef[i]
	}
	return sigmoid(dot)
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Tokenize lowercases text, strips combining accents and splits it on anything
// that is not an ASCII letter or digit. It returns the unigrams followed by the
// bigrams and trigrams of the resulting word sequence.
func Tokenize(text string) []string {
	words := strings.FieldsFunc(foldAccents(strings.ToLower(text)), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	if len(words) == 0 {
		return nil
	}

	tokens := make([]string, 0, 3*len(words))
	tokens = append(tokens, words...)
	for i := 0; i+1 < len(words); i++ {
		tokens = append(tokens, words[i]+" "+words[i+1])
	}
	for i := 0; i+2 < len(words); i++ {
		tokens = append(tokens, words[i]+" "+words[i+1]+" "+words[i+2])
	}
	return tokens
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
