package agents

import (
	"errors"
	"testing"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		label   string
		shading float64
		style   Style
		err     error
	}{
		{label: "0.5", shading: 0.5, style: StyleShift},
		{label: "0", shading: 0, style: StyleShift},
		{label: "1", shading: 1, style: StyleShift},
		{label: "0.25_Correct", shading: 0.25, style: StyleCorrect},
		{label: "0.1_Exponential", shading: 0.1, style: StyleExponential},
		{label: "0.1_Standard", shading: 0.1, style: StyleStandard},
		{label: "abc", err: ErrBadStrategy},
		{label: "_Shift", err: ErrBadStrategy},
		{label: "0.3_Bogus", err: ErrUnknownStyle},
		{label: "0.3_Shift_Correct", err: ErrUnknownStyle},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := ParseStrategy(tt.label, StyleShift)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("error = %v, want %v", err, tt.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Shading != tt.shading || got.Style != tt.style || got.Label != tt.label {
				t.Errorf("got %+v", got)
			}
		})
	}
}

func TestNewPopulation(t *testing.T) {
	pop, err := NewPopulation(
		Assignment{"0.5": 2, "0.1_Shift": 1},
		Assignment{"0": 3},
		StyleCorrect,
	)
	if err != nil {
		t.Fatalf("NewPopulation: %v", err)
	}
	if len(pop) != 6 {
		t.Fatalf("got %d agents, want 6", len(pop))
	}

	want := []struct {
		role  Role
		label string
		style Style
	}{
		{RoleBuyer, "0.1_Shift", StyleShift},
		{RoleBuyer, "0.5", StyleCorrect},
		{RoleBuyer, "0.5", StyleCorrect},
		{RoleSeller, "0", StyleCorrect},
		{RoleSeller, "0", StyleCorrect},
		{RoleSeller, "0", StyleCorrect},
	}
	for i, w := range want {
		a := pop[i]
		if a.Role != w.role || a.Strategy != w.label || a.Style != w.style {
			t.Errorf("agent %d = %s %s %s, want %s %s %s",
				i, a.Role, a.Strategy, a.Style, w.role, w.label, w.style)
		}
		if a.Traded || a.CETraded || a.Utility != 0 {
			t.Errorf("agent %d has round state before any round", i)
		}
	}
}

func TestNewPopulationRejectsBadLabel(t *testing.T) {
	pop, err := NewPopulation(Assignment{"0.5": 2}, Assignment{"x_Shift": 1}, StyleStandard)
	if !errors.Is(err, ErrBadStrategy) {
		t.Fatalf("error = %v, want ErrBadStrategy", err)
	}
	if pop != nil {
		t.Errorf("population built despite error: %d agents", len(pop))
	}
}

func TestNewPopulationRejectsHugeCounts(t *testing.T) {
	tests := []struct {
		name            string
		buyers, sellers Assignment
	}{
		{"single label over limit", Assignment{"0.5": MaxAgents + 1}, Assignment{"0": 1}},
		{"sum over limit", Assignment{"0.5": MaxAgents / 2}, Assignment{"0": MaxAgents/2 + 1}},
		{"terabyte count", Assignment{"0.5": 1 << 40}, Assignment{"0": 2}},
		{"count that wraps", Assignment{"0.5": 1}, Assignment{"0": 1<<64 - 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pop, err := NewPopulation(tt.buyers, tt.sellers, StyleStandard)
			if !errors.Is(err, ErrTooManyAgents) {
				t.Fatalf("error = %v, want ErrTooManyAgents", err)
			}
			if pop != nil {
				t.Errorf("population built despite error: %d agents", len(pop))
			}
		})
	}
}
