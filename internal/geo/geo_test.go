package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name      string
		a, b      Location
		want      float64
		tolerance float64
	}{
		{
			name:      "same point",
			a:         Location{37.394225, 127.110341},
			b:         Location{37.394225, 127.110341},
			want:      0,
			tolerance: 0.001,
		},
		{
			name:      "Pangyo to Gangnam station",
			a:         Location{37.394225, 127.110341},
			b:         Location{37.497942, 127.027621},
			want:      13600,
			tolerance: 300,
		},
		{
			name:      "New York to London",
			a:         Location{40.7128, -74.0060},
			b:         Location{51.5074, -0.1278},
			want:      5570000,
			tolerance: 10000,
		},
		{
			name:      "across the antimeridian",
			a:         Location{0, 179.5},
			b:         Location{0, -179.5},
			want:      111195,
			tolerance: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)
			assert.InDelta(t, tt.want, got, tt.tolerance)
			assert.InDelta(t, got, Distance(tt.b, tt.a), 1e-6, "distance should be symmetric")
		})
	}
}

func TestOffsetAndProject(t *testing.T) {
	origin := Location{37.394225, 127.110341}
	moved := origin.Offset(300, -200)

	north, east := Project(origin, moved)
	assert.InDelta(t, 300, north, 1)
	assert.InDelta(t, -200, east, 1)
	assert.InDelta(t, math.Hypot(300, 200), Distance(origin, moved), 1)
}

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		meters float64
		want   string
	}{
		{0, "0m"},
		{12.4, "12m"},
		{999.4, "999m"},
		{999.6, "1.0km"},
		{1000, "1.0km"},
		{1240, "1.2km"},
		{13600, "13.6km"},
		{-1, ""},
		{math.NaN(), ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDistance(tt.meters), "FormatDistance(%v)", tt.meters)
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Location{37.39, 127.11}.Validate())
	assert.NoError(t, Location{-90, 180}.Validate())
	assert.Error(t, Location{91, 0}.Validate())
	assert.Error(t, Location{0, -180.1}.Validate())
	assert.Error(t, Location{math.NaN(), 0}.Validate())
}

func TestString(t *testing.T) {
	assert.Equal(t, "37.394225,127.110341", Location{37.394225, 127.110341}.String())
}
