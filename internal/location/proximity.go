// Package location maps free-text campus locations onto a fixed set of
// standard names and scores how close two locations are.
//
// The proximity table is static and symmetric; values are in [0,1] with
// 1.0 on the diagonal. Unknown locations score 0.0.
package location

import (
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Standard campus locations
const (
	Cafeteria = "cafeteria"
	Library   = "library"
	HostelA   = "hostel a"
	HostelB   = "hostel b"
	HostelC   = "hostel c"
	TanBlock  = "tan block"
	CosBlock  = "cos block"
	GBlock    = "g block"
	BBlock    = "b block"
)

// Boost tuning used by the matching engine
const (
	// MinProximity must be exceeded before any boost applies
	MinProximity = 0.5
	// MinBaseScore is the smallest base score eligible for a boost
	MinBaseScore = 0.5
	// DefaultBoostFactor scales proximity into the added score
	DefaultBoostFactor = 0.05
)

const cacheSize = 256

var standard = []string{Cafeteria, Library, HostelA, HostelB, HostelC, TanBlock, CosBlock, GBlock, BBlock}

// proximity holds the upper triangle; lookups are symmetric.
var proximity = map[string]map[string]float64{
	Cafeteria: {Library: 0.3, HostelA: 0.5, HostelB: 0.6, HostelC: 0.4, TanBlock: 0.7, CosBlock: 0.6, GBlock: 0.8, BBlock: 0.7},
	Library:   {HostelA: 0.2, HostelB: 0.3, HostelC: 0.2, TanBlock: 0.4, CosBlock: 0.5, GBlock: 0.3, BBlock: 0.4},
	HostelA:   {HostelB: 0.9, HostelC: 0.8, TanBlock: 0.3, CosBlock: 0.4, GBlock: 0.2, BBlock: 0.3},
	HostelB:   {HostelC: 0.9, TanBlock: 0.4, CosBlock: 0.5, GBlock: 0.3, BBlock: 0.4},
	HostelC:   {TanBlock: 0.2, CosBlock: 0.3, GBlock: 0.2, BBlock: 0.3},
	TanBlock:  {CosBlock: 0.8, GBlock: 0.5, BBlock: 0.6},
	CosBlock:  {GBlock: 0.6, BBlock: 0.7},
	GBlock:    {BBlock: 0.9},
}

// aliases are matched against the whole normalized input.
var aliases = map[string]string{
	"cafe": Cafeteria,
	"mess": Cafeteria,
	"lib":  Library,
	"tan":  TanBlock,
	"cos":  CosBlock,
	"g":    GBlock,
	"b":    BBlock,
}

// phrases are searched as whole-word runs inside longer inputs, longest first.
// Single-letter aliases are excluded so that "hostel b" never reads as "b block".
var phrases = buildPhrases()

type phrase struct {
	words []string
	name  string
}

func buildPhrases() []phrase {
	var out []phrase
	for _, name := range standard {
		out = append(out, phrase{words: strings.Fields(name), name: name})
	}
	for alias, name := range aliases {
		if len(alias) < 3 {
			continue
		}
		out = append(out, phrase{words: []string{alias}, name: name})
	}
	sort.Slice(out, func(i, j int) bool {
		li, lj := len(strings.Join(out[i].words, " ")), len(strings.Join(out[j].words, " "))
		if li != lj {
			return li > lj
		}
		return out[i].name < out[j].name
	})
	return dedupe(out)
}

func dedupe(in []phrase) []phrase {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, p := range in {
		key := strings.Join(p.words, " ")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

// Names returns the standard location names in sorted order.
func Names() []string {
	names := append([]string(nil), standard...)
	sort.Strings(names)
	return names
}

// Normalize maps a free-text location to a standard name.
// It returns false when the input cannot be mapped unambiguously.
func Normalize(raw string) (string, bool) {
	cleaned := clean(raw)
	if cleaned == "" {
		return "", false
	}
	if isStandard(cleaned) {
		return cleaned, true
	}
	if name, ok := aliases[cleaned]; ok {
		return name, true
	}

	words := strings.Fields(cleaned)
	for _, p := range phrases {
		if containsRun(words, p.words) {
			return p.name, true
		}
	}
	return "", false
}

func isStandard(name string) bool {
	for _, s := range standard {
		if s == name {
			return true
		}
	}
	return false
}

func clean(raw string) string {
	lowered := strings.ToLower(raw)
	lowered = strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ',', '.', '(', ')', '/':
			return ' '
		}
		return r
	}, lowered)
	return strings.Join(strings.Fields(lowered), " ")
}

func containsRun(words, run []string) bool {
	if len(run) == 0 || len(run) > len(words) {
		return false
	}
	for i := 0; i+len(run) <= len(words); i++ {
		match := true
		for j := range run {
			if words[i+j] != run[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// Table scores location pairs with a bounded memo of raw inputs.
type Table struct {
	cache *lru.Cache[[2]string, float64]
}

// NewTable creates a proximity table with an LRU of recent lookups
func NewTable() *Table {
	cache, err := lru.New[[2]string, float64](cacheSize)
	if err != nil {
		panic(err)
	}
	return &Table{cache: cache}
}

// Proximity returns the closeness of two free-text locations in [0,1].
// Either side failing to normalize yields 0.0.
func (t *Table) Proximity(a, b string) float64 {
	key := [2]string{a, b}
	if score, ok := t.cache.Get(key); ok {
		return score
	}

	score := lookup(a, b)
	t.cache.Add(key, score)
	return score
}

func lookup(a, b string) float64 {
	na, ok := Normalize(a)
	if !ok {
		return 0
	}
	nb, ok := Normalize(b)
	if !ok {
		return 0
	}
	if na == nb {
		return 1.0
	}
	if score, ok := proximity[na][nb]; ok {
		return score
	}
	return proximity[nb][na]
}

// Boost adds proximity × factor to base when the locations are close
// (proximity > MinProximity) and base is at least MinBaseScore.
// The result never exceeds 1.0.
func (t *Table) Boost(base float64, a, b string, factor float64) float64 {
	p := t.Proximity(a, b)
	if p > MinProximity && base >= MinBaseScore {
		boosted := base + p*factor
		if boosted > 1.0 {
			return 1.0
		}
		return boosted
	}
	return base
}
