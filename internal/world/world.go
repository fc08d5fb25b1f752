// Package world implements the arena that owns every Host, Link, and live
// Exa, and drives the per-cycle sweep: step every live
// agent once in a deterministic order, apply replication/death/file
// transactions, then release links and uptake dropped files before the next
// cycle. It is kept minimal
// enough that cmd/exasim's own loop is just "call RunCycle until nothing is
// left to do" — World holds every entity
// by a stable string handle instead of a native reference, so Host and Exa
// never need to see each other directly.
package world

import (
	"math/rand"
	"sort"

	"github.com/exa-vm/exacore/internal/exa"
	"github.com/exa-vm/exacore/internal/exaerr"
	"github.com/exa-vm/exacore/internal/host"
	"github.com/exa-vm/exacore/internal/idgen"
	"github.com/exa-vm/exacore/internal/link"
	"github.com/exa-vm/exacore/internal/mbus"
	"github.com/inconshreveable/log15"
)

// World is the arena: every Host and Link in the topology, the process-wide
// Global M channel, the file id generator, a seeded PRNG, and the set of
// currently live Exas.
type World struct {
	Hosts map[string]*host.Host
	Links []*link.Link

	globalM *mbus.Channel
	idgen   *idgen.Generator
	rnd     *rand.Rand
	log     log15.Logger

	exas  map[string]*exa.Exa
	order []string

	// pendingDeaths holds OutOfInstructions/Kill deaths to apply at the
	// start of the next cycle, before any agent steps.
	pendingDeaths map[string]exaerr.Reason

	Cycle int
}

// New returns an empty World seeded for deterministic KILL/RAND outcomes.
// avoidFileIDs should list every file id already present in the initial
// host layout, so internal/idgen never reissues one (original_source
// file/id_generator.rs).
func New(seed int64, avoidFileIDs []string, logger log15.Logger) *World {
	if logger == nil {
		logger = log15.Root()
	}
	return &World{
		Hosts:         make(map[string]*host.Host),
		globalM:       mbus.NewChannel(),
		idgen:         idgen.New(avoidFileIDs, logger),
		rnd:           rand.New(rand.NewSource(seed)),
		log:           logger,
		exas:          make(map[string]*exa.Exa),
		pendingDeaths: make(map[string]exaerr.Reason),
	}
}

// ---- topology setup ---------------------------------------------------------

// AddHost registers h under h.ID.
func (w *World) AddHost(h *host.Host) { w.Hosts[h.ID] = h }

// AddLink registers l in the world's release registry. Callers must also
// call host.AddLink on both endpoint hosts under their own local gate ids.
func (w *World) AddLink(l *link.Link) { w.Links = append(w.Links, l) }

// AddExa admits e as a regular (non-system) live agent resident on its
// current host, and marks it an occupant there.
func (w *World) AddExa(e *exa.Exa) {
	if h, ok := w.Hosts[e.HostID]; ok {
		h.AddOccupant(e.ID)
	}
	w.exas[e.ID] = e
	w.order = append(w.order, e.ID)
}

// AddSystemExa admits e as a pre-placed system agent (original_source
// host/mod.rs): counted against its host's occupancy_limit via
// system_exas, never occupying_exa_ids, and re-armed rather than removed
// when it dies.
func (w *World) AddSystemExa(e *exa.Exa) {
	if h, ok := w.Hosts[e.HostID]; ok {
		h.AddSystemExa(e.ID)
	}
	w.exas[e.ID] = e
	w.order = append(w.order, e.ID)
}

// ---- exa.World interface -----------------------------------------------------

// Host looks up a host by id, satisfying exa.World.
func (w *World) Host(id string) (*host.Host, bool) {
	h, ok := w.Hosts[id]
	return h, ok
}

// GlobalM returns the process-wide Global M channel, satisfying exa.World.
func (w *World) GlobalM() *mbus.Channel { return w.globalM }

// NextFileID mints the next file id, satisfying exa.World.
func (w *World) NextFileID() string { return w.idgen.Next() }

// RandRange returns a uniform integer in [lo, hi], satisfying exa.World.
func (w *World) RandRange(lo, hi int) int {
	if lo >= hi {
		return lo
	}
	return lo + w.rnd.Intn(hi-lo+1)
}

// RandOtherOccupant picks a uniform-random occupant of hostID other than
// excludeID, satisfying exa.World. Candidates are sorted before the draw so
// the result is a pure function of the seeded PRNG stream, not of map
// iteration order.
func (w *World) RandOtherOccupant(hostID, excludeID string) (string, bool) {
	h, ok := w.Hosts[hostID]
	if !ok {
		return "", false
	}
	var candidates []string
	for _, id := range h.OccupantIDs() {
		if id != excludeID {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Strings(candidates)
	return candidates[w.rnd.Intn(len(candidates))], true
}

// ---- cycle driver -------------------------------------------------------------

// Exa looks up a live agent by id, for inspection by callers (cmd/exasim
// dumps, tests).
func (w *World) Exa(id string) (*exa.Exa, bool) {
	e, ok := w.exas[id]
	return e, ok
}

// LiveCount reports how many agents are currently live.
func (w *World) LiveCount() int { return len(w.exas) }

// LiveIDs returns every currently live agent id, sorted for deterministic
// dumps and traces.
func (w *World) LiveIDs() []string {
	ids := make([]string, 0, len(w.exas))
	for id := range w.exas {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HostIDs returns every host id in the topology, sorted for deterministic
// dumps.
func (w *World) HostIDs() []string {
	ids := make([]string, 0, len(w.Hosts))
	for id := range w.Hosts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RunCycle sweeps every agent live at the start of the cycle exactly once,
// in deterministic order, then applies end-of-cycle bookkeeping: link
// release and file-drop uptake. Agents replicated mid-sweep
// join the live set for the *next* cycle, not this one; deaths deferred
// from the previous cycle (OutOfInstructions, Kill) are applied first,
// before anyone steps.
func (w *World) RunCycle() {
	w.applyDeferredDeaths()

	order := w.compactOrder()
	for _, id := range order {
		e, ok := w.exas[id]
		if !ok {
			continue // guard: skip any id no longer live since the order was taken
		}
		outcome := e.Step(w)
		w.applyOutcome(e, outcome)
	}

	for _, h := range w.Hosts {
		h.UptakeEndOfCycle()
	}
	for _, l := range w.Links {
		l.Release()
	}
	w.Cycle++
}

func (w *World) applyDeferredDeaths() {
	for id, reason := range w.pendingDeaths {
		w.removeAgent(id, reason)
	}
	w.pendingDeaths = make(map[string]exaerr.Reason)
}

// compactOrder drops ids no longer live and returns the resulting order,
// which also becomes the new w.order (bounding its growth).
func (w *World) compactOrder() []string {
	live := w.order[:0]
	for _, id := range w.order {
		if _, ok := w.exas[id]; ok {
			live = append(live, id)
		}
	}
	w.order = live
	out := make([]string, len(live))
	copy(out, live)
	return out
}

func (w *World) applyOutcome(e *exa.Exa, outcome exa.Outcome) {
	switch outcome.Kind {
	case exa.Advanced:
		e.State = exa.Running
		if outcome.KillTarget != "" {
			if _, alive := w.exas[outcome.KillTarget]; alive {
				w.pendingDeaths[outcome.KillTarget] = exaerr.Kill
				w.log.Debug("exa.kill.scheduled", "by", e.ID, "target", outcome.KillTarget)
			}
		}
	case exa.Blocked:
		e.State = outcome.Wait
	case exa.Replicated:
		// The child's occupant slot on e's host was already reserved by
		// Exa.Step (stepRepl); the arena only needs to start tracking it.
		child := outcome.Child
		w.exas[child.ID] = child
		w.order = append(w.order, child.ID)
		w.log.Info("exa.replicated", "parent", e.ID, "child", child.ID)
	case exa.Died:
		if outcome.Reason.Immediate() {
			w.removeAgent(e.ID, outcome.Reason)
		} else {
			w.pendingDeaths[e.ID] = outcome.Reason
		}
	}
}

// removeAgent applies the death policy: a system agent is reset
// in place (original_source host/mod.rs); any other agent is removed from
// its host's occupying set, its held file is dropped into the host's
// pending set if there is room or destroyed otherwise (an open question
// decided in DESIGN.md), and any M rendezvous it was parked in is
// withdrawn so it cannot be delivered to or consumed from a dead agent.
func (w *World) removeAgent(id string, reason exaerr.Reason) {
	e, ok := w.exas[id]
	if !ok {
		return
	}
	h, hok := w.Hosts[e.HostID]

	if hok && h.RearmSystemExa(id) {
		w.releaseHeldFile(h, e)
		e.Reset()
		w.log.Debug("exa.rearmed", "id", id, "reason", reason.String())
		return
	}

	delete(w.exas, id)
	if hok {
		h.RemoveOccupant(id)
		w.releaseHeldFile(h, e)
		h.LocalM.CancelRead(id)
		h.LocalM.CancelWrite(id)
	}
	w.globalM.CancelRead(id)
	w.globalM.CancelWrite(id)
	w.log.Info("exa.died", "id", id, "reason", reason.String())
}

func (w *World) releaseHeldFile(h *host.Host, e *exa.Exa) {
	if e.F == nil {
		return
	}
	if !h.DropFile(e.F) {
		w.log.Debug("exa.file.destroyed", "host", h.ID, "file", e.F.ID())
	}
	e.F = nil
}
