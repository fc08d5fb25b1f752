package register

import (
	"testing"

	"github.com/exa-vm/exacore/internal/exaerr"
	"github.com/exa-vm/exacore/internal/value"
)

func TestBasicWriteRejectsOutOfRangeWithoutMutating(t *testing.T) {
	b := NewBasicWithValue(value.NewNumber(7))
	err := b.Write(value.NewNumber(value.MaxNumber + 1))
	if reason, ok := exaerr.ReasonOf(err); !ok || reason != exaerr.BadValue {
		t.Fatalf("expected BadValue, got %v", err)
	}
	got, _ := b.Read()
	if n, _ := got.Number(); n != 7 {
		t.Fatalf("register must be unchanged after a rejected write, got %v", got)
	}
}

func TestBasicReadDestructiveResets(t *testing.T) {
	b := NewBasicWithValue(value.NewNumber(42))
	v, _ := b.ReadDestructive()
	if n, _ := v.Number(); n != 42 {
		t.Fatalf("expected 42, got %v", v)
	}
	after, _ := b.Read()
	if n, _ := after.Number(); n != 0 {
		t.Fatalf("expected reset to 0, got %v", after)
	}
}

func TestHardwareWriteOnlyEnqueues(t *testing.T) {
	h := NewHardware(WriteOnly, nil)
	if err := h.Write(value.NewNumber(666)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Len() != 1 {
		t.Fatalf("expected 1 queued value, got %d", h.Len())
	}
	if _, err := h.Read(); err == nil {
		t.Fatal("reading a WriteOnly register must fail")
	}
}

func TestHardwareReadOnlyPopsAndDiscardsWrites(t *testing.T) {
	h := NewHardware(ReadOnly, []value.Value{value.NewNumber(1), value.NewNumber(2), value.NewNumber(3)})
	if err := h.Write(value.NewNumber(999)); err != nil {
		t.Fatalf("a write to ReadOnly must not error: %v", err)
	}
	if h.Len() != 3 {
		t.Fatalf("ReadOnly write must be a documented no-op, got len %d", h.Len())
	}
	v, err := h.ReadDestructive()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, _ := v.Number(); n != 1 {
		t.Fatalf("expected to pop 1, got %v", v)
	}
	if h.Len() != 2 {
		t.Fatalf("expected 2 remaining, got %d", h.Len())
	}
}

func TestHardwareReadEmptyQueueFails(t *testing.T) {
	h := NewHardware(ReadOnly, nil)
	if _, err := h.Read(); err == nil {
		t.Fatal("reading an empty ReadOnly queue must fail")
	}
}
