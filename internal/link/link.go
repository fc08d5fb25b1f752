// Package link implements the exclusive-use bidirectional gate between two
// hosts. A Link does not know the local gate-ids either
// host uses to refer to it; Host keeps the gate-id → *Link mapping.
package link

// Link is an exclusive gate between two hosts, identified by their ids.
type Link struct {
	HostA, HostB string
	Occupied     bool
}

// New returns an unoccupied Link between hostA and hostB.
func New(hostA, hostB string) *Link {
	return &Link{HostA: hostA, HostB: hostB}
}

// Other returns the host id on the far side of the link from hostID, and
// false if hostID is not one of the link's two endpoints.
func (l *Link) Other(hostID string) (string, bool) {
	switch hostID {
	case l.HostA:
		return l.HostB, true
	case l.HostB:
		return l.HostA, true
	default:
		return "", false
	}
}

// Release clears the occupied flag. Called by the driver at end of cycle:
// traversal occupies a link for the remainder of the cycle it happened in,
// never longer.
func (l *Link) Release() { l.Occupied = false }
