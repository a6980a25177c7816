package app

import "testing"

func TestGenerations(t *testing.T) {
	g := newGenerations()

	first := g.next("s-1")
	second := g.next("s-1")
	other := g.next("s-2")

	if g.finish("s-1", first) {
		t.Error("superseded ticket reported as latest")
	}
	if !g.finish("s-1", second) {
		t.Error("latest ticket reported as stale")
	}
	if !g.finish("s-2", other) {
		t.Error("sessions must not share generations")
	}

	// A released key must not accept an old ticket.
	if g.finish("s-1", first) {
		t.Error("old ticket accepted after release")
	}
	if len(g.last) != 0 {
		t.Errorf("entries leaked: %v", g.last)
	}
}
