// Package spec decodes simulation spec lines and encodes observation lines.
// Both are JSON, one object per line.
package spec

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/talgya/cdasim/internal/agents"
	"github.com/talgya/cdasim/internal/engine"
	"github.com/talgya/cdasim/internal/market"
)

// ErrMalformed is returned for a spec line that is not a valid spec object.
var ErrMalformed = errors.New("malformed spec")

// Roles is the player assignment of a spec.
type Roles struct {
	Buyers  agents.Assignment `json:"buyers"`
	Sellers agents.Assignment `json:"sellers"`
}

// Configuration holds the optional per-spec settings.
type Configuration struct {
	Style *agents.Style `json:"style,omitempty"` // Default style for unsuffixed labels
	CDA   *bool         `json:"cda,omitempty"`   // Defaults to true
}

// Spec is one decoded input line.
type Spec struct {
	Assignment    Roles         `json:"assignment"`
	Configuration Configuration `json:"configuration"`
}

// Parse decodes one spec line.
func Parse(line []byte) (*Spec, error) {
	var s Spec
	if err := json.Unmarshal(line, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &s, nil
}

// DefaultStyle returns the configured default style, Standard if unset.
func (s *Spec) DefaultStyle() agents.Style {
	if s.Configuration.Style == nil {
		return agents.StyleStandard
	}
	return *s.Configuration.Style
}

// UseCDA reports whether the actual clearing mechanism is the CDA.
func (s *Spec) UseCDA() bool {
	return s.Configuration.CDA == nil || *s.Configuration.CDA
}

// Build constructs the population and mechanism for the spec. Label errors
// are reported before any agent exists.
func (s *Spec) Build() ([]*agents.Agent, market.Mechanism, error) {
	pop, err := agents.NewPopulation(s.Assignment.Buyers, s.Assignment.Sellers, s.DefaultStyle())
	if err != nil {
		return nil, nil, fmt.Errorf("assignment: %w", err)
	}
	return pop, market.ForConfig(s.UseCDA()), nil
}

// Encoder writes observation lines.
type Encoder struct {
	w     *bufio.Writer
	flush bool
}

// NewEncoder wraps w. With flush set, every observation is flushed as soon
// as it is written.
func NewEncoder(w io.Writer, flush bool) *Encoder {
	return &Encoder{w: bufio.NewWriter(w), flush: flush}
}

// Encode writes one observation followed by a newline.
func (e *Encoder) Encode(obs engine.Observation) error {
	data, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("encode observation: %w", err)
	}
	if _, err := e.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write observation: %w", err)
	}
	if e.flush {
		return e.Flush()
	}
	return nil
}

// Flush writes any buffered output.
func (e *Encoder) Flush() error {
	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("flush observations: %w", err)
	}
	return nil
}
