package link

import "testing"

func TestOther(t *testing.T) {
	l := New("H1", "H2")
	if other, ok := l.Other("H1"); !ok || other != "H2" {
		t.Fatalf("expected H2, got %s ok=%v", other, ok)
	}
	if other, ok := l.Other("H2"); !ok || other != "H1" {
		t.Fatalf("expected H1, got %s ok=%v", other, ok)
	}
	if _, ok := l.Other("H3"); ok {
		t.Fatal("H3 is not an endpoint of this link")
	}
}

func TestReleaseClearsOccupied(t *testing.T) {
	l := New("H1", "H2")
	l.Occupied = true
	l.Release()
	if l.Occupied {
		t.Fatal("expected Release to clear Occupied")
	}
}
