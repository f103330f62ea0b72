package sshserver

import (
	"strings"
	"testing"
)

func collectKeys(input string) []key {
	ch := make(chan key, 32)
	readKeys(strings.NewReader(input), ch)
	var out []key
	for k := range ch {
		out = append(out, k)
	}
	return out
}

func TestReadKeys(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []keyKind
	}{
		{name: "arrows", input: "\x1b[C\x1b[D\x1b[A\x1b[B", want: []keyKind{keyRight, keyLeft, keyUp, keyDown}},
		{name: "ss3 arrows", input: "\x1bOC\x1bOD", want: []keyKind{keyRight, keyLeft}},
		{name: "shift tab", input: "\x1b[Z\x1b[1;2Z", want: []keyKind{keyShiftTab, keyShiftTab}},
		{name: "controls", input: "\t\x03\x04\x0c\r", want: []keyKind{keyTab, keyCtrlC, keyCtrlD, keyCtrlL, keyEnter}},
		{name: "digits", input: "12", want: []keyKind{keyRune, keyRune}},
		{name: "other control bytes dropped", input: "\x01\x02", want: nil},
	}
	for _, tc := range tests {
		got := collectKeys(tc.input)
		if len(got) != len(tc.want) {
			t.Fatalf("%s: expected %d keys, got %d (%v)", tc.name, len(tc.want), len(got), got)
		}
		for i := range got {
			if got[i].kind != tc.want[i] {
				t.Fatalf("%s: key %d: expected %v, got %v", tc.name, i, tc.want[i], got[i].kind)
			}
		}
	}
}

func TestReadKeysRunes(t *testing.T) {
	got := collectKeys("qé")
	if len(got) != 2 || got[0].r != 'q' || got[1].r != 'é' {
		t.Fatalf("unexpected runes %v", got)
	}
}
