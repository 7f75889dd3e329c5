package util

import (
	"reflect"
	"testing"
)

func TestSplitCSV(t *testing.T) {
	cases := map[string][]string{
		"":             nil,
		"  ":           nil,
		"H1":           {"H1"},
		"h1, H4 ,,d1,": {"h1", "H4", "d1"},
	}
	for in, want := range cases {
		if got := SplitCSV(in); !reflect.DeepEqual(got, want) {
			t.Fatalf("SplitCSV(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestClampInt(t *testing.T) {
	if ClampInt(-1, 0, 10) != 0 || ClampInt(11, 0, 10) != 10 || ClampInt(5, 0, 10) != 5 {
		t.Fatalf("ClampInt out of bounds")
	}
}
