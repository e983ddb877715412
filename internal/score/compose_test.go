package score

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/jobscout/internal/types"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }
func sptr(v string) *string   { return &v }

func TestCompose_HybridFormula(t *testing.T) {
	in := Input{
		MatchPercent:  80,
		LLMFit:        fptr(0.9),
		RecencyScore:  0.85,
		LocationScore: 0.7,
	}

	want := (0.55*0.9 + 0.25*0.8 + 0.10*0.85 + 0.10*0.7) * 100
	assert.InDelta(t, want, Compose(in), 1e-6)
}

func TestCompose_FallbackFormula(t *testing.T) {
	in := Input{
		MatchPercent:  80,
		LLMFit:        nil,
		RecencyScore:  0.85,
		LocationScore: 0.7,
	}

	want := (0.75*0.8 + 0.15*0.85 + 0.10*0.7) * 100
	assert.InDelta(t, want, Compose(in), 1e-6)
}

func TestCompose_Bounds(t *testing.T) {
	extremes := []Input{
		{MatchPercent: -50, LLMFit: fptr(-1), RecencyScore: -1, LocationScore: -1},
		{MatchPercent: 500, LLMFit: fptr(7), RecencyScore: 9, LocationScore: 9},
		{},
		{MatchPercent: 100, LLMFit: fptr(1), RecencyScore: 1, LocationScore: 1},
	}

	for _, in := range extremes {
		got := Compose(in)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 100.0)
	}
}

func TestRecency_MonotoneAndBounded(t *testing.T) {
	ages := []float64{0.5, 2, 5, 12, 48, 200}
	prev := 1.1
	for _, age := range ages {
		got := Recency(&age)
		assert.LessOrEqual(t, got, prev, "age %v", age)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 1.0)
		prev = got
	}
}

func TestRecency_UnknownIsNeutral(t *testing.T) {
	got := Recency(nil)
	assert.Greater(t, got, 0.0)
	assert.Less(t, got, 1.0)
	// Neutral means between the floor and the mid of the curve.
	assert.GreaterOrEqual(t, got, 0.25)
	assert.LessOrEqual(t, got, 0.55)
}

func TestLocation(t *testing.T) {
	santiago := sptr("Santiago, Chile")

	assert.Equal(t, 1.0, Location(santiago, types.ModalityOnsite, sptr("Santiago"), sptr("Chile")))
	assert.Equal(t, 0.8, Location(sptr("Valparaíso, Chile"), types.ModalityOnsite, sptr("Santiago"), sptr("Chile")))
	assert.Equal(t, 0.7, Location(sptr("Lima, Peru"), types.ModalityRemote, sptr("Santiago"), sptr("Chile")))
	assert.Equal(t, 0.7, Location(nil, types.ModalityHybrid, sptr("Santiago"), sptr("Chile")))
	assert.Equal(t, 0.4, Location(nil, types.ModalityUnknown, sptr("Santiago"), sptr("Chile")))
	assert.Equal(t, 0.4, Location(sptr("Lima, Peru"), types.ModalityOnsite, sptr("Santiago"), sptr("Chile")))
}

func TestLocation_CaseInsensitive(t *testing.T) {
	assert.Equal(t, 1.0, Location(sptr("SANTIAGO, CHILE"), types.ModalityOnsite, sptr("santiago"), nil))
}

func TestExcluded_Threshold(t *testing.T) {
	assert.False(t, Excluded(nil))
	assert.False(t, Excluded(iptr(0)))
	assert.False(t, Excluded(iptr(99)))
	assert.True(t, Excluded(iptr(100)))
	assert.True(t, Excluded(iptr(5000)))
}
