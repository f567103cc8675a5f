// Package spell repairs fingerspelled words against a fixed dictionary using
// bounded Levenshtein distance.
package spell

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
)

//go:embed words.txt
var defaultWords string

// Dictionary is an immutable, ordered set of uppercase words.
// It is safe for concurrent use once constructed.
type Dictionary struct {
	words []string
	set   map[string]struct{}
}

// NewDictionary builds a dictionary from words. Entries are trimmed and
// uppercased; blanks are dropped and duplicates keep their first position.
func NewDictionary(words []string) *Dictionary {
	d := &Dictionary{
		words: make([]string, 0, len(words)),
		set:   make(map[string]struct{}, len(words)),
	}
	for _, w := range words {
		w = strings.ToUpper(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, dup := d.set[w]; dup {
			continue
		}
		d.set[w] = struct{}{}
		d.words = append(d.words, w)
	}
	return d
}

// Load reads one word per line. Blank lines and lines starting with '#' are ignored.
func Load(r io.Reader) (*Dictionary, error) {
	var words []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	return NewDictionary(words), nil
}

// LoadFile loads a dictionary from a word-per-line text file.
func LoadFile(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dictionary %q: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Default returns the built-in English word list.
func Default() *Dictionary {
	d, err := Load(strings.NewReader(defaultWords))
	if err != nil {
		// The embedded list is read from memory and cannot fail to scan.
		panic(err)
	}
	return d
}

// Contains reports whether word is an exact (uppercase) entry.
func (d *Dictionary) Contains(word string) bool {
	_, ok := d.set[word]
	return ok
}

// Len returns the number of distinct words.
func (d *Dictionary) Len() int {
	return len(d.words)
}

// Words returns the entries in iteration order.
func (d *Dictionary) Words() []string {
	out := make([]string, len(d.words))
	copy(out, d.words)
	return out
}
