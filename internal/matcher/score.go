package matcher

import (
	"math"
	"sort"

	"github.com/dshills/lostfound/internal/location"
	"github.com/dshills/lostfound/internal/similarity"
	"github.com/dshills/lostfound/pkg/types"
)

// Sub-score weights. Visual agreement ranks above cross-modal, which
// ranks above plain text.
const (
	WeightImageImage = 1.0
	WeightTextImage  = 0.85
	WeightImageText  = 0.75
	WeightTextText   = 0.65

	// ImageImageBoost lifts a blended score to at least image↔image × 1.05
	ImageImageBoost = 1.05

	// LocationGate is the share of the threshold a base score must reach
	// before location proximity is consulted
	LocationGate = 0.9

	// LocationBoostFactor scales proximity into the added boost
	LocationBoostFactor = location.DefaultBoostFactor

	// ThresholdTolerance admits scores a hair under the threshold
	ThresholdTolerance = 0.01
)

// SubScore is one similarity signal. OK is false when either operand
// vector was missing or had no signal.
type SubScore struct {
	Score float64
	OK    bool
}

// Breakdown holds the four sub-scores for a pair, always computed from the
// new item's point of view.
type Breakdown struct {
	TextText   SubScore // new text vs candidate text
	TextImage  SubScore // new cross-modal text vs candidate image
	ImageText  SubScore // new image vs candidate cross-modal text
	ImageImage SubScore // new image vs candidate image
}

// Compare computes every available sub-score between newItem and candidate
func Compare(newItem, candidate *types.Item) Breakdown {
	sub := func(a, b []float32) SubScore {
		score, ok := similarity.Cosine(a, b)
		return SubScore{Score: score, OK: ok}
	}
	return Breakdown{
		TextText:   sub(newItem.TextVector, candidate.TextVector),
		TextImage:  sub(newItem.CrossModalText, candidate.CrossModalImage),
		ImageText:  sub(newItem.CrossModalImage, candidate.CrossModalText),
		ImageImage: sub(newItem.CrossModalImage, candidate.CrossModalImage),
	}
}

// Base blends the available sub-scores. A single signal is returned
// unchanged. Several are averaged by weight, and when image↔image is among
// them the average is raised to at least ImageImageBoost × image↔image and
// clamped to [0,1]. ok is false when no signal is available.
func (b Breakdown) Base() (score float64, ok bool) {
	signals := []struct {
		sub    SubScore
		weight float64
	}{
		{b.ImageImage, WeightImageImage},
		{b.TextImage, WeightTextImage},
		{b.ImageText, WeightImageText},
		{b.TextText, WeightTextText},
	}

	var n int
	var sum, totalWeight, only float64
	for _, s := range signals {
		if !s.sub.OK {
			continue
		}
		n++
		only = s.sub.Score
		sum += s.sub.Score * s.weight
		totalWeight += s.weight
	}

	switch n {
	case 0:
		return 0, false
	case 1:
		return only, true
	}

	score = sum / totalWeight
	if b.ImageImage.OK {
		score = clamp01(math.Max(score, b.ImageImage.Score*ImageImageBoost))
	}
	return score, true
}

// Final applies the location tie-breaker to base. Proximity is only
// consulted once base reaches LocationGate × threshold, so location alone
// can never carry a weak pair over the threshold.
func Final(base, threshold float64, table *location.Table, locA, locB string) float64 {
	if base >= threshold*LocationGate {
		base = table.Boost(base, locA, locB, LocationBoostFactor)
	}
	return clamp01(base)
}

// Passes reports whether final meets threshold within ThresholdTolerance
func Passes(final, threshold float64) bool {
	return final >= threshold || math.Abs(final-threshold) <= ThresholdTolerance
}

// Candidate is a scored counterpart for a new item
type Candidate struct {
	Item      *types.Item
	Score     float64
	Breakdown Breakdown
}

// Rank scores candidates against newItem, keeps those that pass the
// threshold, and returns them best first truncated to limit. Candidates
// with the same status as newItem are never returned.
func Rank(newItem *types.Item, candidates []*types.Item, threshold float64, limit int, table *location.Table) []Candidate {
	var kept []Candidate
	for _, c := range candidates {
		if c.Status == newItem.Status || c.ID == newItem.ID {
			continue
		}
		breakdown := Compare(newItem, c)
		base, ok := breakdown.Base()
		if !ok {
			continue
		}
		final := Final(base, threshold, table, newItem.Location, c.Location)
		if !Passes(final, threshold) {
			continue
		}
		kept = append(kept, Candidate{Item: c, Score: final, Breakdown: breakdown})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})
	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
