package agents

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownStyle is returned when a style name is not one of the four known styles.
var ErrUnknownStyle = errors.New("unknown style")

// Style selects the shading formula an agent bids with.
type Style uint8

const (
	StyleStandard    Style = iota
	StyleExponential
	StyleShift
	StyleCorrect // Analytical best response for sellers; Standard for buyers
)

// Styles lists every style in declaration order.
var Styles = []Style{StyleStandard, StyleExponential, StyleShift, StyleCorrect}

var styleNames = map[Style]string{
	StyleStandard:    "Standard",
	StyleExponential: "Exponential",
	StyleShift:       "Shift",
	StyleCorrect:     "Correct",
}

// String returns the style's label name.
func (s Style) String() string {
	if name, ok := styleNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Style(%d)", uint8(s))
}

// ParseStyle is the inverse of Style.String.
func ParseStyle(name string) (Style, error) {
	for style, n := range styleNames {
		if n == name {
			return style, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStyle, name)
}

// MarshalJSON encodes the style by name.
func (s Style) MarshalJSON() ([]byte, error) {
	name, ok := styleNames[s]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStyle, uint8(s))
	}
	return json.Marshal(name)
}

// UnmarshalJSON decodes a style name.
func (s *Style) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("style: %w", err)
	}
	style, err := ParseStyle(name)
	if err != nil {
		return err
	}
	*s = style
	return nil
}
