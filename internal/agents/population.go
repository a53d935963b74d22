// Population construction from strategy labels.
package agents

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrBadStrategy is returned for a strategy label whose shading is not a number.
var ErrBadStrategy = errors.New("malformed strategy")

// ErrTooManyAgents is returned when a population's total count exceeds MaxAgents.
var ErrTooManyAgents = errors.New("too many agents")

// MaxAgents bounds the population of a single spec.
const MaxAgents = 1 << 20

// Strategy is a parsed strategy label.
type Strategy struct {
	Label   string
	Shading float64
	Style   Style
}

// ParseStrategy parses "<shading>" or "<shading>_<Style>". A label without a
// style suffix uses def.
func ParseStrategy(label string, def Style) (Strategy, error) {
	strength, suffix, hasSuffix := strings.Cut(label, "_")

	shading, err := strconv.ParseFloat(strength, 64)
	if err != nil {
		return Strategy{}, fmt.Errorf("%w %q: %v", ErrBadStrategy, label, err)
	}

	style := def
	if hasSuffix {
		style, err = ParseStyle(suffix)
		if err != nil {
			return Strategy{}, fmt.Errorf("strategy %q: %w", label, err)
		}
	}

	return Strategy{Label: label, Shading: shading, Style: style}, nil
}

// Assignment maps a strategy label to a player count for one role.
type Assignment map[string]uint64

// NewPopulation builds the agents for a spec. Buyers come first, then sellers;
// labels within a role are taken in sorted order so a seeded run is
// reproducible. Every label and count is validated before any agent is
// created.
func NewPopulation(buyers, sellers Assignment, def Style) ([]*Agent, error) {
	type group struct {
		role  Role
		strat Strategy
		count uint64
	}

	var groups []group
	total := uint64(0)
	for _, side := range []struct {
		role   Role
		assign Assignment
	}{{RoleBuyer, buyers}, {RoleSeller, sellers}} {
		labels := make([]string, 0, len(side.assign))
		for label := range side.assign {
			labels = append(labels, label)
		}
		sort.Strings(labels)

		for _, label := range labels {
			strat, err := ParseStrategy(label, def)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", side.role, err)
			}
			count := side.assign[label]
			if count > MaxAgents-total {
				return nil, fmt.Errorf("%w: %s %q adds %d to %d, limit %d",
					ErrTooManyAgents, side.role, label, count, total, MaxAgents)
			}
			groups = append(groups, group{role: side.role, strat: strat, count: count})
			total += count
		}
	}

	pop := make([]*Agent, 0, total)
	for _, g := range groups {
		for i := uint64(0); i < g.count; i++ {
			pop = append(pop, New(g.role, g.strat.Label, g.strat.Style, g.strat.Shading))
		}
	}
	return pop, nil
}
