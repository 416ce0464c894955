// Package aggregate computes summaries over sequences of memory records.
//
// Every function is pure: it reads the records in the order the caller
// gives them and never touches storage. Order matters for tie-breaking,
// which always favours the value seen first.
package aggregate

import (
	"math/rand/v2"
	"sort"

	"github.com/vinayprograms/reverie/memory"
)

// Counter is a frequency map that remembers first-seen order.
// The zero value is ready to use.
type Counter struct {
	order  []string
	counts map[string]int
}

// Add counts one occurrence of v.
func (c *Counter) Add(v string) {
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	if _, ok := c.counts[v]; !ok {
		c.order = append(c.order, v)
	}
	c.counts[v]++
}

// Count returns how often v was added.
func (c *Counter) Count(v string) int {
	return c.counts[v]
}

// Len returns the number of distinct values.
func (c *Counter) Len() int {
	return len(c.order)
}

// Keys returns the distinct values in first-seen order.
func (c *Counter) Keys() []string {
	return append([]string{}, c.order...)
}

// Top returns up to n values by descending count. Equal counts keep
// first-seen order. n <= 0 returns every value.
func (c *Counter) Top(n int) []string {
	keys := c.Keys()
	sort.SliceStable(keys, func(i, j int) bool {
		return c.counts[keys[i]] > c.counts[keys[j]]
	})
	if n > 0 && len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// Dominant returns the most frequent value, or fallback when empty.
func (c *Counter) Dominant(fallback string) string {
	best, bestCount := fallback, 0
	for _, v := range c.order {
		if n := c.counts[v]; n > bestCount {
			best, bestCount = v, n
		}
	}
	return best
}

// EmotionCounts counts the emotion of each record. A record without an
// emotion counts as fallback, or is skipped when fallback is empty.
func EmotionCounts(recs []memory.Record, fallback string) *Counter {
	c := &Counter{}
	for _, r := range recs {
		switch {
		case r.Emotion != "":
			c.Add(r.Emotion)
		case fallback != "":
			c.Add(fallback)
		}
	}
	return c
}

// TagCounts counts every tag across all records.
func TagCounts(recs []memory.Record) *Counter {
	c := &Counter{}
	for _, r := range recs {
		for _, tag := range r.Tags {
			c.Add(tag)
		}
	}
	return c
}

// DistinctTags returns each tag once, in first-seen order.
func DistinctTags(recs []memory.Record) []string {
	return TagCounts(recs).Keys()
}

// Emotions returns the non-empty emotions in record order.
func Emotions(recs []memory.Record) []string {
	var out []string
	for _, r := range recs {
		if r.Emotion != "" {
			out = append(out, r.Emotion)
		}
	}
	return out
}

// Last returns the final record, or nil for an empty slice.
func Last(recs []memory.Record) *memory.Record {
	if len(recs) == 0 {
		return nil
	}
	r := recs[len(recs)-1]
	return &r
}

// Random picks one record uniformly, or nil for an empty slice.
func Random(recs []memory.Record, rng *rand.Rand) *memory.Record {
	if len(recs) == 0 {
		return nil
	}
	r := recs[rng.IntN(len(recs))]
	return &r
}
