package host

import (
	"testing"

	"github.com/exa-vm/exacore/internal/link"
	"github.com/exa-vm/exacore/internal/register"
	"github.com/exa-vm/exacore/internal/vfile"
)

func TestOccupancyCountsEveryKind(t *testing.T) {
	h := New("H1", 10)
	h.PlaceFile(vfile.New("400"))
	h.AddHardwareRegister("#NERV", register.NewHardware(register.WriteOnly, nil))
	h.AddSystemExa("sys")
	h.AddOccupant("A")
	if got := h.Occupancy(); got != 4 {
		t.Fatalf("expected occupancy 4 (file+hw+system+occupant), got %d", got)
	}
}

func TestHasFreeCapacity(t *testing.T) {
	h := New("H1", 1)
	if !h.HasFreeCapacity() {
		t.Fatal("expected free capacity at 0/1")
	}
	h.AddOccupant("A")
	if h.HasFreeCapacity() {
		t.Fatal("expected no free capacity at 1/1")
	}
}

func TestDropFileRespectsCapacity(t *testing.T) {
	h := New("H1", 1)
	h.AddOccupant("A")
	if h.DropFile(vfile.New("400")) {
		t.Fatal("expected DropFile to fail when the host is already full")
	}
	h.RemoveOccupant("A")
	if !h.DropFile(vfile.New("400")) {
		t.Fatal("expected DropFile to succeed once there is room")
	}
}

func TestGrabFilePendingVsTakenVsNotFound(t *testing.T) {
	h := New("H1", 10)
	h.PlaceFile(vfile.New("400"))
	if _, res := h.GrabFile("400"); res != GrabTaken {
		t.Fatalf("expected GrabTaken, got %v", res)
	}
	h.DropFile(vfile.New("401"))
	if _, res := h.GrabFile("401"); res != GrabPending {
		t.Fatalf("expected GrabPending for a file dropped this cycle, got %v", res)
	}
	if _, res := h.GrabFile("999"); res != GrabNotFound {
		t.Fatalf("expected GrabNotFound, got %v", res)
	}
}

func TestUptakeEndOfCycleMovesPendingToFiles(t *testing.T) {
	h := New("H1", 10)
	h.DropFile(vfile.New("401"))
	if _, res := h.GrabFile("401"); res != GrabPending {
		t.Fatalf("expected GrabPending before uptake, got %v", res)
	}
	h.UptakeEndOfCycle()
	if _, res := h.GrabFile("401"); res != GrabTaken {
		t.Fatalf("expected GrabTaken after uptake, got %v", res)
	}
}

func TestRearmSystemExaOnlyTrueForSystemAgents(t *testing.T) {
	h := New("H1", 10)
	h.AddSystemExa("sys")
	h.AddOccupant("reg")
	if !h.RearmSystemExa("sys") {
		t.Fatal("expected sys to be a rearm-in-place agent")
	}
	if h.RearmSystemExa("reg") {
		t.Fatal("a regular occupant must not be treated as a system agent")
	}
}

func TestLinkLookupByLocalGate(t *testing.T) {
	h := New("H1", 10)
	l := link.New("H1", "H2")
	h.AddLink("800", l)
	got, ok := h.Link("800")
	if !ok || got != l {
		t.Fatalf("expected to find the link under its local gate id")
	}
	if _, ok := h.Link("801"); ok {
		t.Fatal("no link registered under 801")
	}
}
