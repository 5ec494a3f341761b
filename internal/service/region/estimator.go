// internal/service/region/estimator.go

// Package region reduces a set of geocoded tweets to a single consensus
// location by hierarchical majority voting over city, state/region, and
// country keys, plus a top-3 word extraction over city names.
package region

import (
	"fmt"
	"sort"
	"strings"

	"essg/internal/domain/alert"
	"essg/internal/domain/geocode"
)

// MatchCount is the minimum tally a level's top key must reach before it
// is accepted as the consensus.
const MatchCount = 3

// Consensus is the elected location, or the "undetermined" zero value.
type Consensus struct {
	Key        string // e.g. "Napa, California, United States"
	Count      int
	Total      int
	Determined bool
}

// Ratio renders the "count/total" string the alert assembler displays
// alongside the consensus location.
func (c Consensus) Ratio() string {
	if !c.Determined {
		return ""
	}
	return fmt.Sprintf("%d/%d", c.Count, c.Total)
}

// tally accumulates keys in first-insertion order so that equal-count ties
// resolve deterministically to the earliest-seen key.
type tally struct {
	order []string
	count map[string]int
}

func newTally() *tally {
	return &tally{count: make(map[string]int)}
}

func (t *tally) add(key string) {
	if key == "" {
		return
	}
	if _, ok := t.count[key]; !ok {
		t.order = append(t.order, key)
	}
	t.count[key]++
}

// top returns the key with the highest count, insertion-order-earliest on
// ties. ok is false when the tally is empty.
func (t *tally) top() (key string, count int, ok bool) {
	best := -1
	for _, k := range t.order {
		if t.count[k] > best {
			best = t.count[k]
			key = k
		}
	}
	if best < 0 {
		return "", 0, false
	}
	return key, best, true
}

// Estimate elects a consensus location from geocoded results whose Geos()
// is non-empty (callers supply only results usable per their quality score).
func Estimate(results []geocode.Result) Consensus {
	l3 := newTally()
	l1 := newTally()
	l0 := newTally()

	total := 0
	for _, r := range results {
		if r.Geos() == "" {
			continue
		}
		total++

		if r.L3 != "" {
			if r.L1 != "" {
				l3.add(r.L3 + ", " + r.L1 + ", " + r.L0)
			} else {
				l3.add(r.L3 + ", " + r.L0)
			}
		}
		if r.L1 != "" {
			l1.add(r.L1 + ", " + r.L0)
		}
		if r.L0 != "" {
			l0.add(r.L0)
		}
	}

	for _, level := range []*tally{l3, l1, l0} {
		key, count, ok := level.top()
		if ok && count >= MatchCount {
			return Consensus{Key: key, Count: count, Total: total, Determined: true}
		}
	}

	return Consensus{Determined: false}
}

var wordSplitter = strings.NewReplacer("-", " ", ".", " ", ",", " ", "\n", " ")

// TopWords extracts the three most frequent words across all geocoded
// results' city (L3) fields, tallied by count desc then first-appearance.
// It degrades gracefully when fewer than three distinct words exist,
// returning however many there are.
func TopWords(results []geocode.Result) []alert.TopWord {
	cities := make([]string, 0, len(results))
	for _, r := range results {
		if r.L3 != "" {
			cities = append(cities, r.L3)
		}
	}
	joined := strings.ToLower(strings.Join(cities, " "))
	joined = wordSplitter.Replace(joined)

	words := newTally()
	for _, w := range strings.Fields(joined) {
		words.add(w)
	}

	type scored struct {
		word  string
		count int
		rank  int
	}
	all := make([]scored, 0, len(words.order))
	for i, w := range words.order {
		all = append(all, scored{word: w, count: words.count[w], rank: i})
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].count != all[j].count {
			return all[i].count > all[j].count
		}
		return all[i].rank < all[j].rank
	})

	n := 3
	if len(all) < n {
		n = len(all)
	}
	out := make([]alert.TopWord, n)
	for i := 0; i < n; i++ {
		out[i] = alert.TopWord{Word: all[i].word, Count: all[i].count}
	}
	return out
}
