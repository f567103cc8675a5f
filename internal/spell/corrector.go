package spell

import (
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

const defaultMaxLengthDelta = 2

// Correction is the outcome of correcting one word.
type Correction struct {
	// Original is the normalized input.
	Original string `json:"original"`
	// Word is the corrected word, or Original when nothing qualified.
	Word string `json:"word"`
	// Corrected is true when Word differs from Original.
	Corrected bool `json:"corrected"`
	// Distance is the edit distance between Original and Word.
	Distance int `json:"distance"`
	// Similarity is the Jaro-Winkler similarity between Original and Word, for display.
	Similarity float64 `json:"similarity"`
}

// Option configures a Corrector.
type Option func(*Corrector)

// WithMaxLengthDelta sets the length pre-filter: entries whose length differs
// from the input by more than delta are never scanned. Default: 2.
func WithMaxLengthDelta(delta int) Option {
	return func(c *Corrector) {
		c.maxLengthDelta = delta
	}
}

// WithThreshold replaces the length-dependent acceptance threshold.
func WithThreshold(fn func(n int) int) Option {
	return func(c *Corrector) {
		c.threshold = fn
	}
}

// Corrector maps raw words to their closest dictionary entry.
// It holds no mutable state and is safe for concurrent use.
type Corrector struct {
	dict           *Dictionary
	maxLengthDelta int
	threshold      func(n int) int
}

// NewCorrector returns a Corrector over dict.
func NewCorrector(dict *Dictionary, opts ...Option) *Corrector {
	c := &Corrector{
		dict:           dict,
		maxLengthDelta: defaultMaxLengthDelta,
		threshold:      Threshold,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Dictionary returns the dictionary the corrector scans.
func (c *Corrector) Dictionary() *Dictionary {
	return c.dict
}

// Correct returns the closest dictionary word to raw within the acceptance
// threshold. Ties go to the entry that appears first in the dictionary.
func (c *Corrector) Correct(raw string) Correction {
	word := strings.ToUpper(strings.TrimSpace(raw))
	res := Correction{Original: word, Word: word, Similarity: 1}
	if word == "" || c.dict == nil || c.dict.Contains(word) {
		return res
	}

	n := utf8.RuneCountInString(word)
	limit := c.threshold(n)
	best, bestDist := "", -1

	for _, entry := range c.dict.words {
		if abs(utf8.RuneCountInString(entry)-n) > c.maxLengthDelta {
			continue
		}
		d := Levenshtein(word, entry)
		if d > limit {
			continue
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = entry, d
		}
	}

	if bestDist < 0 {
		return res
	}

	res.Word = best
	res.Corrected = true
	res.Distance = bestDist
	res.Similarity = matchr.JaroWinkler(word, best, false)
	return res
}

// Correct corrects raw against dict with the default settings.
func Correct(raw string, dict *Dictionary) Correction {
	return NewCorrector(dict).Correct(raw)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
