package stage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromInt(t *testing.T) {
	assert.Equal(t, NoLoadShedding, FromInt(0))
	assert.Equal(t, Stage4, FromInt(4))
	assert.Equal(t, Stage8, FromInt(8))
	assert.Equal(t, Unknown, FromInt(9))
	assert.Equal(t, Unknown, FromInt(-1))
	assert.Equal(t, Unknown, FromInt(42))
}

func TestStageOrdering(t *testing.T) {
	assert.True(t, Stage1 < Stage2)
	assert.True(t, NoLoadShedding < Stage1)
	assert.True(t, Stage8 > Stage4)
}

func TestString(t *testing.T) {
	assert.Equal(t, "No Load Shedding", NoLoadShedding.String())
	assert.Equal(t, "Stage 6", Stage6.String())
	assert.Equal(t, "Load Reduction", LoadReduction.String())
	assert.Equal(t, "Unknown", Unknown.String())
	assert.Equal(t, "Unknown", Stage(99).String())
}

func TestParseNote(t *testing.T) {
	tests := []struct {
		note string
		want Stage
	}{
		{"Stage 4", Stage4},
		{"Stage 2 (06:00-10:00)", Stage2},
		{"Stage 8", Stage8},
		{"Load Reduction", LoadReduction},
		{"load reduction", LoadReduction},
		// Lenient fallbacks: never an error.
		{"Stage twelve", NoLoadShedding},
		{"Stage 99", NoLoadShedding},
		{"Maintenance", NoLoadShedding},
		{"", NoLoadShedding},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseNote(tt.note), "note %q", tt.note)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(Stage6)
	require.NoError(t, err)
	assert.Equal(t, "6", string(data))

	var s Stage
	require.NoError(t, json.Unmarshal(data, &s))
	assert.Equal(t, Stage6, s)
}
