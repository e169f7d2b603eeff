package cli

import "testing"

func TestIsValidOutputFormat(t *testing.T) {
	cases := map[string]bool{
		OutputText: true,
		OutputJSON: true,
		"xml":      false,
		"":         false,
	}
	for format, want := range cases {
		if got := IsValidOutputFormat(format); got != want {
			t.Errorf("IsValidOutputFormat(%q) = %v, want %v", format, got, want)
		}
	}
}
