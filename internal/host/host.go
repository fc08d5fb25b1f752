// Package host implements the capacity-gated compute node: a
// container of files, hardware registers, occupying agent ids, link
// endpoints, and a Local-mode M channel. Host never imports package exa: the
// arena design keeps the Host↔Exa relationship acyclic — Host
// tracks occupant *ids*, and package world owns the actual Exa values.
package host

import (
	"github.com/exa-vm/exacore/internal/link"
	"github.com/exa-vm/exacore/internal/mbus"
	"github.com/exa-vm/exacore/internal/register"
	"github.com/exa-vm/exacore/internal/vfile"
)

// GrabResult reports the outcome of attempting to GRAB a file by id.
type GrabResult int

const (
	// GrabTaken means the file existed and was removed from the host.
	GrabTaken GrabResult = iota
	// GrabPending means the id belongs to a file dropped this cycle: it
	// will be grabbable starting next cycle, after end-of-cycle uptake.
	GrabPending
	// GrabNotFound means no file with that id exists on the host at all.
	GrabNotFound
)

// Host is a capacity-bounded compute node.
type Host struct {
	ID             string
	OccupancyLimit int

	files        map[string]*vfile.File
	pendingFiles map[string]*vfile.File
	hardware     map[string]*register.Hardware
	occupying    map[string]bool
	systemExas   map[string]bool
	links        map[string]*link.Link

	// LocalM is the host's Local-mode M rendezvous channel.
	LocalM *mbus.Channel
}

// New returns an empty Host with the given occupancy limit.
func New(id string, occupancyLimit int) *Host {
	return &Host{
		ID:             id,
		OccupancyLimit: occupancyLimit,
		files:          make(map[string]*vfile.File),
		pendingFiles:   make(map[string]*vfile.File),
		hardware:       make(map[string]*register.Hardware),
		occupying:      make(map[string]bool),
		systemExas:     make(map[string]bool),
		links:          make(map[string]*link.Link),
		LocalM:         mbus.NewChannel(),
	}
}

// Occupancy computes the current total against OccupancyLimit:
// files + pending_files + hw_regs + system_exas + occupying_ids.
func (h *Host) Occupancy() int {
	return len(h.files) + len(h.pendingFiles) + len(h.hardware) + len(h.systemExas) + len(h.occupying)
}

// HasFreeCapacity reports whether one more unit of occupancy would still
// satisfy the occupancy limit.
func (h *Host) HasFreeCapacity() bool {
	return h.Occupancy() < h.OccupancyLimit
}

// ---- Occupants -------------------------------------------------------------

// AddOccupant registers agentID as resident on the host. Callers must check
// HasFreeCapacity first; AddOccupant does not itself block.
func (h *Host) AddOccupant(agentID string) { h.occupying[agentID] = true }

// RemoveOccupant removes agentID from the host's occupying set.
func (h *Host) RemoveOccupant(agentID string) { delete(h.occupying, agentID) }

// IsOccupant reports whether agentID currently resides on the host.
func (h *Host) IsOccupant(agentID string) bool { return h.occupying[agentID] }

// OccupantIDs returns a snapshot of the ids currently occupying the host
// (used by KILL's victim selection).
func (h *Host) OccupantIDs() []string {
	ids := make([]string, 0, len(h.occupying))
	for id := range h.occupying {
		ids = append(ids, id)
	}
	return ids
}

// AddSystemExa marks id as a pre-placed system agent. System agents count
// against occupancy but are never removed by the normal death machinery
// (original_source host/mod.rs): they are rearmed in place.
func (h *Host) AddSystemExa(id string) { h.systemExas[id] = true }

// IsSystemExa reports whether id is a pre-placed system agent.
func (h *Host) IsSystemExa(id string) bool { return h.systemExas[id] }

// RearmSystemExa reports whether id is a system agent that should be reset in
// place rather than removed when it dies (original_source host/mod.rs:
// system agents are never removed by the normal death machinery). The host
// never removed id from occupying in the first place; this is the signal
// package world uses to reset the Exa's program cursor and registers instead
// of retiring its occupant slot.
func (h *Host) RearmSystemExa(id string) bool { return h.systemExas[id] }

// ---- Files ------------------------------------------------------------------

// PlaceFile adds f directly to the host's current (immediately grabbable)
// file set, bypassing the pending stage. Used for initial level layout.
func (h *Host) PlaceFile(f *vfile.File) { h.files[f.ID()] = f }

// GrabFile attempts to remove the file with the given id from the host and
// hand it to the caller.
func (h *Host) GrabFile(id string) (*vfile.File, GrabResult) {
	if f, ok := h.files[id]; ok {
		delete(h.files, id)
		return f, GrabTaken
	}
	if _, ok := h.pendingFiles[id]; ok {
		return nil, GrabPending
	}
	return nil, GrabNotFound
}

// DropFile attempts to release f into the host's pending set. It reports
// false (and does not mutate the host) if the host has no free capacity
// right now; the caller should block in WaitingForHostAvailabilityToDropFile
// and retry.
func (h *Host) DropFile(f *vfile.File) bool {
	if !h.HasFreeCapacity() {
		return false
	}
	h.pendingFiles[f.ID()] = f
	return true
}

// UptakeEndOfCycle moves every pending file into the current file set,
// making it grabbable starting the next cycle.
func (h *Host) UptakeEndOfCycle() {
	for id, f := range h.pendingFiles {
		h.files[id] = f
		delete(h.pendingFiles, id)
	}
}

// HasFile reports whether id names a file currently present (grabbable or
// pending) on the host.
func (h *Host) HasFile(id string) bool {
	if _, ok := h.files[id]; ok {
		return true
	}
	_, ok := h.pendingFiles[id]
	return ok
}

// ---- Hardware registers -----------------------------------------------------

// AddHardwareRegister installs reg under name (e.g. "#NERV").
func (h *Host) AddHardwareRegister(name string, reg *register.Hardware) {
	h.hardware[name] = reg
}

// HardwareRegister looks up a hardware register by name.
func (h *Host) HardwareRegister(name string) (*register.Hardware, bool) {
	r, ok := h.hardware[name]
	return r, ok
}

// ---- Links ------------------------------------------------------------------

// AddLink installs l under the host-local gate id.
func (h *Host) AddLink(gate string, l *link.Link) { h.links[gate] = l }

// Link looks up a link by its host-local gate id.
func (h *Host) Link(gate string) (*link.Link, bool) {
	l, ok := h.links[gate]
	return l, ok
}
