package matcher

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/lostfound/internal/location"
	"github.com/dshills/lostfound/pkg/types"
)

// unitAt returns a 2-d unit vector whose cosine with [1,0] is c
func unitAt(c float64) []float32 {
	return []float32{float32(c), float32(math.Sqrt(1 - c*c))}
}

var axis = []float32{1, 0}

func TestBaseSingleSignal(t *testing.T) {
	newItem := &types.Item{Status: types.StatusLost, TextVector: axis}
	candidate := &types.Item{Status: types.StatusFound, TextVector: unitAt(0.8)}

	b := Compare(newItem, candidate)
	assert.True(t, b.TextText.OK)
	assert.False(t, b.TextImage.OK)
	assert.False(t, b.ImageText.OK)
	assert.False(t, b.ImageImage.OK)

	base, ok := b.Base()
	require.True(t, ok)
	assert.InDelta(t, 0.8, base, 1e-6, "a lone signal is not reweighted")
}

func TestBaseNoSignal(t *testing.T) {
	newItem := &types.Item{Status: types.StatusLost, TextVector: axis}
	candidate := &types.Item{Status: types.StatusFound, TextVector: []float32{0, 0}}

	_, ok := Compare(newItem, candidate).Base()
	assert.False(t, ok, "zero vector carries no signal")

	_, ok = Compare(&types.Item{}, &types.Item{}).Base()
	assert.False(t, ok)
}

func TestBaseWeightedAverage(t *testing.T) {
	b := Breakdown{
		TextText:  SubScore{Score: 0.6, OK: true},
		TextImage: SubScore{Score: 0.9, OK: true},
	}
	base, ok := b.Base()
	require.True(t, ok)
	want := (0.6*WeightTextText + 0.9*WeightTextImage) / (WeightTextText + WeightTextImage)
	assert.InDelta(t, want, base, 1e-9)
}

func TestBaseKeepsNegativeSubScores(t *testing.T) {
	tests := []struct {
		name string
		b    Breakdown
		want float64
	}{
		{
			name: "negative text pulls the average down",
			b: Breakdown{
				TextText:  SubScore{Score: -0.2, OK: true},
				TextImage: SubScore{Score: 0.9, OK: true},
			},
			want: (-0.2*WeightTextText + 0.9*WeightTextImage) / (WeightTextText + WeightTextImage),
		},
		{
			name: "lone negative signal",
			b:    Breakdown{ImageText: SubScore{Score: -0.3, OK: true}},
			want: -0.3,
		},
		{
			name: "all negative",
			b: Breakdown{
				TextText:  SubScore{Score: -0.4, OK: true},
				ImageText: SubScore{Score: -0.1, OK: true},
			},
			want: (-0.4*WeightTextText - 0.1*WeightImageText) / (WeightTextText + WeightImageText),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, ok := tt.b.Base()
			require.True(t, ok)
			assert.InDelta(t, tt.want, base, 1e-9)
		})
	}
}

func TestBaseImageImageBoost(t *testing.T) {
	tests := []struct {
		name string
		b    Breakdown
		want float64
	}{
		{
			name: "raised to image score times boost",
			b: Breakdown{
				ImageImage: SubScore{Score: 0.9, OK: true},
				TextText:   SubScore{Score: 0.6, OK: true},
			},
			want: 0.945,
		},
		{
			name: "blend already higher",
			b: Breakdown{
				ImageImage: SubScore{Score: 0.5, OK: true},
				TextImage:  SubScore{Score: 0.95, OK: true},
			},
			want: (0.5*WeightImageImage + 0.95*WeightTextImage) / (WeightImageImage + WeightTextImage),
		},
		{
			name: "clamped to one",
			b: Breakdown{
				ImageImage: SubScore{Score: 0.99, OK: true},
				ImageText:  SubScore{Score: 0.9, OK: true},
			},
			want: 1.0,
		},
		{
			name: "lone image score is not boosted",
			b:    Breakdown{ImageImage: SubScore{Score: 0.9, OK: true}},
			want: 0.9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, ok := tt.b.Base()
			require.True(t, ok)
			assert.InDelta(t, tt.want, base, 1e-9)
			assert.LessOrEqual(t, base, 1.0)
		})
	}
}

func TestFinalLocationGate(t *testing.T) {
	table := location.NewTable()

	tests := []struct {
		name      string
		base      float64
		threshold float64
		a, b      string
		want      float64
	}{
		{name: "below gate untouched", base: 0.40, threshold: 0.70, a: "library", b: "library", want: 0.40},
		{name: "at gate boosted", base: 0.65, threshold: 0.70, a: "library", b: "Library", want: 0.70},
		{name: "unknown location", base: 0.65, threshold: 0.70, a: "gym", b: "gym", want: 0.65},
		{name: "gate passed but base under floor", base: 0.45, threshold: 0.50, a: "library", b: "library", want: 0.45},
		{name: "capped", base: 0.99, threshold: 0.70, a: "library", b: "library", want: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Final(tt.base, tt.threshold, table, tt.a, tt.b), 1e-9)
		})
	}
}

func TestFinalNeverCarriesWeakPairOverThreshold(t *testing.T) {
	table := location.NewTable()
	for base := 0.0; base < 0.63; base += 0.01 {
		final := Final(base, 0.70, table, "library", "library")
		assert.False(t, Passes(final, 0.70), "base %.2f", base)
	}
}

func TestPasses(t *testing.T) {
	assert.True(t, Passes(0.70, 0.70))
	assert.True(t, Passes(0.695, 0.70))
	assert.True(t, Passes(0.691, 0.70))
	assert.False(t, Passes(0.689, 0.70))
	assert.True(t, Passes(0.95, 0.70))
}

func TestRank(t *testing.T) {
	table := location.NewTable()
	newItem := &types.Item{ID: uuid.New(), Status: types.StatusLost, TextVector: axis, Location: "gym"}

	mk := func(status types.ItemStatus, c float64) *types.Item {
		return &types.Item{ID: uuid.New(), Status: status, TextVector: unitAt(c), Location: "parking"}
	}
	weak := mk(types.StatusFound, 0.5)
	good := mk(types.StatusFound, 0.8)
	best := mk(types.StatusFound, 0.95)
	sameStatus := mk(types.StatusLost, 0.99)

	ranked := Rank(newItem, []*types.Item{weak, good, sameStatus, best}, 0.70, 10, table)
	require.Len(t, ranked, 2)
	assert.Equal(t, best.ID, ranked[0].Item.ID)
	assert.Equal(t, good.ID, ranked[1].Item.ID)
	assert.InDelta(t, 0.95, ranked[0].Score, 1e-6)

	limited := Rank(newItem, []*types.Item{weak, good, best}, 0.70, 1, table)
	require.Len(t, limited, 1)
	assert.Equal(t, best.ID, limited[0].Item.ID)
}
