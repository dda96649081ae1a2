package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"Library", Library, true},
		{"  HOSTEL   B ", HostelB, true},
		{"cafe", Cafeteria, true},
		{"Mess", Cafeteria, true},
		{"lib", Library, true},
		{"Hostel-C", HostelC, true},
		{"G-Block", GBlock, true},
		{"Tan-Block", TanBlock, true},
		{"COS-Block", CosBlock, true},
		{"B-Block", BBlock, true},
		{"near G-Block canteen", GBlock, true},
		{"tan", TanBlock, true},
		{"g", GBlock, true},
		{"b", BBlock, true},
		{"near the library entrance", Library, true},
		{"hostel a, room 12", HostelA, true},
		{"second floor of cos block", CosBlock, true},
		{"outside the mess", Cafeteria, true},
		// single-letter aliases never match inside longer text
		{"hostel b common room", HostelB, true},
		{"gate b", "", false},
		{"parking lot", "", false},
		{"", "", false},
		// partial words are not locations
		{"liberty hall", "", false},
		{"cosmos lab", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Normalize(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestTableSymmetric verifies every pair scores the same in both directions
func TestTableSymmetric(t *testing.T) {
	table := NewTable()
	names := Names()
	assert.Len(t, names, 9)

	for _, a := range names {
		assert.Equal(t, 1.0, table.Proximity(a, a), a)
		for _, b := range names {
			pab := table.Proximity(a, b)
			assert.Equal(t, pab, table.Proximity(b, a), "%s/%s", a, b)
			assert.GreaterOrEqual(t, pab, 0.0)
			assert.LessOrEqual(t, pab, 1.0)
			if a != b {
				assert.Greater(t, pab, 0.0, "%s/%s has an entry", a, b)
			}
		}
	}
}

func TestProximityValues(t *testing.T) {
	table := NewTable()

	assert.Equal(t, 0.3, table.Proximity("cafeteria", "library"))
	assert.Equal(t, 0.9, table.Proximity("hostel a", "hostel b"))
	assert.Equal(t, 0.9, table.Proximity("g block", "b block"))
	assert.Equal(t, 0.8, table.Proximity("mess", "g"))
	assert.Equal(t, 0.2, table.Proximity("Library", "Hostel-A"))
	assert.Equal(t, 0.8, table.Proximity("G-Block", "cafeteria"))
	assert.Equal(t, 0.0, table.Proximity("library", "parking lot"))
	assert.Equal(t, 0.0, table.Proximity("", "library"))
}

func TestBoost(t *testing.T) {
	table := NewTable()

	tests := []struct {
		name string
		base float64
		a, b string
		want float64
	}{
		{name: "close locations boost", base: 0.70, a: "hostel a", b: "hostel b", want: 0.70 + 0.9*0.05},
		{name: "proximity at gate does not boost", base: 0.70, a: "cafeteria", b: "hostel a", want: 0.70},
		{name: "low base does not boost", base: 0.40, a: "hostel a", b: "hostel b", want: 0.40},
		{name: "base at floor boosts", base: 0.50, a: "g block", b: "b block", want: 0.50 + 0.9*0.05},
		{name: "capped at one", base: 0.99, a: "library", b: "lib", want: 1.0},
		{name: "unknown location", base: 0.90, a: "library", b: "somewhere", want: 0.90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := table.Boost(tt.base, tt.a, tt.b, DefaultBoostFactor)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestProximityCached(t *testing.T) {
	table := NewTable()
	first := table.Proximity("tan", "cos")
	assert.Equal(t, 1, table.cache.Len())
	assert.Equal(t, first, table.Proximity("tan", "cos"))
	assert.Equal(t, 1, table.cache.Len())
	assert.Equal(t, 0.8, first)
}
