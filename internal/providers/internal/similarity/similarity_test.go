package similarity

import (
	"math"
	"slices"
	"testing"
)

func TestTokens(t *testing.T) {
	got := Tokens("FooBar-baz_qux.v2")
	want := []string{"foo", "bar", "baz", "qux", "v2"}
	if !slices.Equal(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestName(t *testing.T) {
	tests := []struct {
		hint, name string
		want       float64
	}{
		{"requests", "requests", 1},
		{"my_lib", "My-Lib", 1},
		{"fancy tool", "fancy-tool-extras", 2.0 / 3.0},
		{"alpha", "beta", 0},
		{"", "beta", 0},
	}
	for _, tt := range tests {
		if got := Name(tt.hint, tt.name); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Name(%q, %q) = %v want %v", tt.hint, tt.name, got, tt.want)
		}
	}
}
