package slug

import "testing"

func TestGenerate(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Concurs Poștal ÎȚ", "concurs-postal-it"},
		{"Cercetător științific gradul II", "cercetator-stiintific-gradul-ii"},
		{"  spaced   out  ", "spaced-out"},
		{"Deja-cu-cratime", "deja-cu-cratime"},
		{"UPPER lower 123", "upper-lower-123"},
		{"!!!", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Generate(tc.in); got != tc.want {
			t.Errorf("Generate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestGenerateIdempotent(t *testing.T) {
	inputs := []string{"Concurs Poștal ÎȚ", "Chimist debutant", "a-b-c"}
	for _, in := range inputs {
		once := Generate(in)
		if twice := Generate(once); twice != once {
			t.Errorf("Generate not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}
