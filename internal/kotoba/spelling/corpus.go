// Package spelling provides the corpus-backed misspelling capability consumed
// by the utterance compiler. Template authors are assumed to spell correctly;
// the corpus broadens matching on the input side by listing the misspellings
// users commonly type for a correctly spelled word.
package spelling

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Corpus holds a dictionary of known words and a table of common
// misspellings keyed by the intended word.
type Corpus struct {
	words        map[string]struct{}
	misspellings map[string][]string
}

// NewCorpus returns an empty corpus.
func NewCorpus() *Corpus {
	return &Corpus{
		words:        make(map[string]struct{}),
		misspellings: make(map[string][]string),
	}
}

// LoadWords reads a whitespace-separated word list into the dictionary.
func (c *Corpus) LoadWords(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		word := strings.ToLower(scanner.Text())
		if word != "" {
			c.words[word] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read word list: %w", err)
	}
	return nil
}

// LoadMisspellings reads a misspelling table. Each non-empty line has the form
//
//	intended: misspelling1, misspelling2
//
// Lines starting with # are comments. Entries whose distance from the
// intended word is implausibly large are rejected so a corrupt table cannot
// silently wreck compiled patterns.
func (c *Corpus) LoadMisspellings(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		intended, rest, found := strings.Cut(text, ":")
		if !found {
			return fmt.Errorf("misspelling table line %d: missing ':'", line)
		}
		intended = strings.ToLower(strings.TrimSpace(intended))
		for _, m := range strings.Split(rest, ",") {
			if err := c.AddMisspelling(intended, strings.TrimSpace(m)); err != nil {
				return fmt.Errorf("misspelling table line %d: %w", line, err)
			}
		}
	}
	return scanner.Err()
}

// LoadWordFile is LoadWords over a file path.
func (c *Corpus) LoadWordFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open word list: %w", err)
	}
	defer f.Close()
	return c.LoadWords(f)
}

// LoadMisspellingFile is LoadMisspellings over a file path.
func (c *Corpus) LoadMisspellingFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open misspelling table: %w", err)
	}
	defer f.Close()
	return c.LoadMisspellings(f)
}

// AddMisspelling records that users commonly type misspelled when they mean
// intended. The pair must plausibly be a misspelling: identical strings and
// pairs beyond the distance limit are rejected.
func (c *Corpus) AddMisspelling(intended, misspelled string) error {
	intended = strings.ToLower(strings.TrimSpace(intended))
	misspelled = strings.ToLower(strings.TrimSpace(misspelled))
	if intended == "" || misspelled == "" {
		return fmt.Errorf("empty word in misspelling pair")
	}
	if intended == misspelled {
		return fmt.Errorf("%q is not a misspelling of itself", intended)
	}
	if dist := levenshtein.ComputeDistance(intended, misspelled); dist > distanceLimit(len(intended))+1 {
		return fmt.Errorf("%q is too far from %q to be a misspelling (distance %d)", misspelled, intended, dist)
	}
	c.misspellings[intended] = append(c.misspellings[intended], misspelled)
	c.words[intended] = struct{}{}
	return nil
}

// Misspellings returns the known misspellings of a correctly spelled word,
// or nil when none are recorded. The compiler calls this once per distinct
// template word at compile time.
func (c *Corpus) Misspellings(word string) []string {
	return c.misspellings[strings.ToLower(word)]
}

// Known reports whether word is in the dictionary.
func (c *Corpus) Known(word string) bool {
	_, ok := c.words[strings.ToLower(word)]
	return ok
}

// CouldBeSpelled reports whether candidate is plausibly a spelling of word:
// equal after lowercasing, or within a Levenshtein distance scaled to the
// word's length.
func (c *Corpus) CouldBeSpelled(candidate, word string) bool {
	candidate = strings.ToLower(strings.TrimSpace(candidate))
	word = strings.ToLower(strings.TrimSpace(word))
	if candidate == "" || word == "" {
		return false
	}
	if candidate == word {
		return true
	}
	return levenshtein.ComputeDistance(candidate, word) <= distanceLimit(len(word))
}

// distanceLimit scales the acceptable edit distance with word length so short
// words do not fuzzy-match half the dictionary.
func distanceLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}
