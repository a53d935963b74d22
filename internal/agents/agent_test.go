package agents

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"testing"

	"pgregory.net/rapid"
)

func TestShadingNeverExceedsValue(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, role := range []Role{RoleBuyer, RoleSeller} {
		for _, style := range Styles {
			for s := 0; s <= 10; s++ {
				a := New(role, "", style, float64(s)/10)
				for i := 0; i < 100; i++ {
					a.Resample(rng)
					a.Shade()
					if a.Bid > a.Sign()*a.Value {
						t.Fatalf("%s %s shading %.1f: bid %v exceeds sign*value %v",
							role, style, a.Shading, a.Bid, a.Sign()*a.Value)
					}
				}
			}
		}
	}
}

func TestProperty_ShadingMonotone(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		role := rapid.SampledFrom([]Role{RoleBuyer, RoleSeller}).Draw(t, "role")
		style := rapid.SampledFrom(Styles).Draw(t, "style")
		shading := rapid.Float64Range(0, 1).Draw(t, "shading")
		value := rapid.Float64Range(0, 1).Draw(t, "value")

		bid := ShadedBid(role, style, shading, value)
		if bid > role.Sign()*value {
			t.Fatalf("bid %v exceeds sign*value %v", bid, role.Sign()*value)
		}
	})
}

func TestShadedBidFormulas(t *testing.T) {
	tests := []struct {
		name    string
		role    Role
		style   Style
		shading float64
		value   float64
		want    float64
	}{
		{"standard buyer", RoleBuyer, StyleStandard, 0.2, 0.5, 0.4},
		{"standard seller", RoleSeller, StyleStandard, 0.2, 0.5, -0.6},
		{"correct buyer", RoleBuyer, StyleCorrect, 0.2, 0.5, 0.4},
		{"correct seller", RoleSeller, StyleCorrect, 0.2, 0.5, -0.6},
		{"correct seller high value", RoleSeller, StyleCorrect, 0.5, 0.8, -0.9},
		{"exponential buyer", RoleBuyer, StyleExponential, 0.3, 0.5, 0.5 * math.Exp(-0.3)},
		{"exponential seller", RoleSeller, StyleExponential, 0.3, 0.5, -0.5 * math.Exp(0.3)},
		{"shift buyer", RoleBuyer, StyleShift, 0.1, 0.5, 0.4},
		{"shift seller", RoleSeller, StyleShift, 0.1, 0.5, -0.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShadedBid(tt.role, tt.style, tt.shading, tt.value)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("ShadedBid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCorrectZeroShadingIsTruthful(t *testing.T) {
	for _, role := range []Role{RoleBuyer, RoleSeller} {
		a := New(role, "0", StyleCorrect, 0)
		a.Value = 0.37
		a.Shade()
		if a.Bid != a.Sign()*a.Value {
			t.Errorf("%s: bid %v, want %v", role, a.Bid, a.Sign()*a.Value)
		}
	}
}

func TestResampleAndShadeClearOutcome(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	a := New(RoleSeller, "0.1", StyleShift, 0.1)

	a.Resample(rng)
	if a.Bid != -a.Value {
		t.Fatalf("resample bid %v, want truthful %v", a.Bid, -a.Value)
	}
	a.Transact(0.9)
	if !a.Traded || math.Abs(a.Utility-(0.9-a.Value)) > 1e-12 {
		t.Fatalf("transact: traded=%v utility=%v", a.Traded, a.Utility)
	}

	a.Shade()
	if a.Traded || a.Utility != 0 {
		t.Errorf("shade left stale outcome: traded=%v utility=%v", a.Traded, a.Utility)
	}

	a.Transact(0.9)
	a.Resample(rng)
	if a.Traded || a.Utility != 0 {
		t.Errorf("resample left stale outcome: traded=%v utility=%v", a.Traded, a.Utility)
	}
}

func TestStyleRoundTrip(t *testing.T) {
	for _, style := range Styles {
		got, err := ParseStyle(style.String())
		if err != nil {
			t.Fatalf("ParseStyle(%q): %v", style, err)
		}
		if got != style {
			t.Errorf("ParseStyle(%q) = %v", style, got)
		}

		data, err := json.Marshal(style)
		if err != nil {
			t.Fatalf("marshal %v: %v", style, err)
		}
		var decoded Style
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if decoded != style {
			t.Errorf("JSON round trip of %v gave %v", style, decoded)
		}
	}
}

func TestParseStyleUnknown(t *testing.T) {
	for _, name := range []string{"", "standard", "Linear", "Correct "} {
		if _, err := ParseStyle(name); !errors.Is(err, ErrUnknownStyle) {
			t.Errorf("ParseStyle(%q) error = %v, want ErrUnknownStyle", name, err)
		}
	}
}
