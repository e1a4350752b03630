package parser

import (
	"reflect"
	"testing"
)

func TestHeaderNames(t *testing.T) {
	t.Parallel()

	got := HeaderNames([]string{"a", "a", "a.1", "", "a"})
	want := []string{"a", "a.1", "a.1.1", "Unnamed: 3", "a.2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("HeaderNames = %q, want %q", got, want)
	}
}

func TestUnnamed(t *testing.T) {
	t.Parallel()

	if got := Unnamed(2, []string{"a", "b"}); got != "Unnamed: 2" {
		t.Fatalf("Unnamed = %q", got)
	}
	if got := Unnamed(2, []string{"Unnamed: 2", "Unnamed: 2.1"}); got != "Unnamed: 2.2" {
		t.Fatalf("Unnamed = %q", got)
	}
}

func TestTrimRightAndBlank(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      []string
		trimmed []string
		blank   bool
	}{
		{nil, nil, true},
		{[]string{"", ""}, []string{}, true},
		{[]string{"a", "", ""}, []string{"a"}, false},
		{[]string{"", "b"}, []string{"", "b"}, false},
	}
	for _, tc := range tests {
		got := TrimRight(tc.in)
		if len(got) != len(tc.trimmed) || (len(got) > 0 && !reflect.DeepEqual(got, tc.trimmed)) {
			t.Errorf("TrimRight(%q) = %q, want %q", tc.in, got, tc.trimmed)
		}
		if b := Blank(tc.in); b != tc.blank {
			t.Errorf("Blank(%q) = %v, want %v", tc.in, b, tc.blank)
		}
	}
}
