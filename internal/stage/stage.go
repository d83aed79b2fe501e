package stage

import (
	"fmt"
	"strconv"
	"strings"
)

// Stage is a load-shedding severity level. Higher stages mean more and
// longer outage slots per day. The zero value means no load shedding.
type Stage int

const (
	NoLoadShedding Stage = 0
	Stage1         Stage = 1
	Stage2         Stage = 2
	Stage3         Stage = 3
	Stage4         Stage = 4
	Stage5         Stage = 5
	Stage6         Stage = 6
	Stage7         Stage = 7
	Stage8         Stage = 8

	// LoadReduction marks provider-confirmed load reduction events that
	// are not tied to a numbered stage.
	LoadReduction Stage = 9
	// Unknown marks a stage ordinal we don't recognise.
	Unknown Stage = -1
)

var names = map[Stage]string{
	NoLoadShedding: "No Load Shedding",
	Stage1:         "Stage 1",
	Stage2:         "Stage 2",
	Stage3:         "Stage 3",
	Stage4:         "Stage 4",
	Stage5:         "Stage 5",
	Stage6:         "Stage 6",
	Stage7:         "Stage 7",
	Stage8:         "Stage 8",
	LoadReduction:  "Load Reduction",
}

func (s Stage) String() string {
	if name, ok := names[s]; ok {
		return name
	}
	return "Unknown"
}

// FromInt converts a raw stage ordinal from the API into a Stage.
// Ordinals outside 0-8 map to Unknown.
func FromInt(n int) Stage {
	if n < 0 || n > 8 {
		return Unknown
	}
	return Stage(n)
}

// ParseNote extracts a stage from a free-text event note such as
// "Stage 4 (08:00-12:00)". The stage digit is the second word. Notes
// that don't parse fall back to NoLoadShedding, except a literal
// "Load Reduction" note which maps to LoadReduction. Never errors:
// provider notes are unreliable and a bad note must not fail the batch.
func ParseNote(note string) Stage {
	if strings.EqualFold(strings.TrimSpace(note), LoadReduction.String()) {
		return LoadReduction
	}
	parts := strings.Fields(note)
	if len(parts) < 2 {
		return NoLoadShedding
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil {
		return NoLoadShedding
	}
	if s := FromInt(n); s != Unknown {
		return s
	}
	return NoLoadShedding
}

// MarshalJSON encodes the stage as its ordinal.
func (s Stage) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(s))), nil
}

// UnmarshalJSON decodes an ordinal back into a Stage.
func (s *Stage) UnmarshalJSON(data []byte) error {
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("parse stage: %w", err)
	}
	*s = Stage(n)
	return nil
}
