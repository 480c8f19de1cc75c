package main

import (
	"strings"
	"testing"

	"webcast/internal/audio"
)

func TestRenderEntryTable(t *testing.T) {
	entries := []audio.Entry{
		{Index: "0", Name: "alsa_output.pci", State: "RUNNING"},
		{Index: "12", Name: "webcast_sink", State: "IDLE"},
	}

	out := renderEntryTable("Sinks", entries)
	for _, want := range []string{"Sinks", "#", "Name", "State", "webcast_sink", "RUNNING"} {
		if !strings.Contains(out, want) {
			t.Fatalf("listing missing %q:\n%s", want, out)
		}
	}
	// Index values pad on the left so single and double digits line up.
	if !strings.Contains(out, "  0 ") {
		t.Fatalf("index column should right-align:\n%s", out)
	}
}

func TestRenderEntryTableEmpty(t *testing.T) {
	if got := renderEntryTable("Sources", nil); got != "Sources: none found" {
		t.Fatalf("empty listing = %q", got)
	}
}
