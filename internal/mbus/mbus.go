// Package mbus implements the depth-one rendezvous channel that backs the
// EXA "M" register. A World holds one Channel for Global
// mode; each Host holds one Channel for Local mode. Compatibility between a
// reader and a writer is entirely a matter of which Channel they are
// pointed at: exa.Exa picks the World's channel in Global mode and the
// current Host's channel in Local mode, so this package never has to know
// about modes or hosts itself.
package mbus

import "github.com/exa-vm/exacore/internal/value"

// pendingReader records that agentID found no value to read and is waiting
// for a writer to arrive.
type pendingReader struct {
	agentID string
}

// pendingWriter records that agentID has a value ready but found no reader
// waiting, so it is parked for the next compatible Read.
type pendingWriter struct {
	agentID string
	value   value.Value
}

// Channel is a single depth-one rendezvous point.
type Channel struct {
	write     *pendingWriter
	read      *pendingReader
	delivered map[string]value.Value
}

// NewChannel returns an empty rendezvous channel.
func NewChannel() *Channel {
	return &Channel{delivered: make(map[string]value.Value)}
}

// Read attempts a read on behalf of agentID. If a value is available (a
// parked writer's value, or a value a prior writer already delivered to this
// agent because it was the parked reader) it is returned with ok=true and
// consumed. Otherwise agentID is parked as the pending reader and ok=false;
// the caller should block in WaitingForMRead and retry next cycle.
func (c *Channel) Read(agentID string) (v value.Value, ok bool) {
	if dv, found := c.delivered[agentID]; found {
		delete(c.delivered, agentID)
		return dv, true
	}
	if c.write != nil {
		v = c.write.value
		c.write = nil
		if c.read != nil && c.read.agentID == agentID {
			c.read = nil
		}
		return v, true
	}
	c.read = &pendingReader{agentID: agentID}
	return value.Value{}, false
}

// Write attempts to deliver v on behalf of agentID. If a reader is already
// parked, v is handed to it immediately (available the next time that
// reader's agent retries its read) and Write reports ok=true: the writer
// advances now. Otherwise agentID's value is parked as the pending writer
// and ok=false; the caller should block in WaitingForMWrite and retry next
// cycle.
func (c *Channel) Write(agentID string, v value.Value) (ok bool) {
	if c.read != nil {
		c.delivered[c.read.agentID] = v
		c.read = nil
		return true
	}
	c.write = &pendingWriter{agentID: agentID, value: v}
	return false
}

// Readable reports whether agentID would succeed if it attempted a Read
// right now: either a writer is already parked, or a previous writer already
// delivered a value earmarked for agentID specifically. This backs the
// non-blocking TEST MRD instruction.
func (c *Channel) Readable(agentID string) bool {
	if _, found := c.delivered[agentID]; found {
		return true
	}
	return c.write != nil
}

// CancelWrite withdraws agentID's parked write, if it is still the one
// parked. Used when an Exa holding a parked write dies before a reader
// consumes it.
func (c *Channel) CancelWrite(agentID string) {
	if c.write != nil && c.write.agentID == agentID {
		c.write = nil
	}
}

// CancelRead withdraws agentID's parked read, if it is still the one
// parked. Used when an Exa holding a parked read dies before a writer
// delivers to it.
func (c *Channel) CancelRead(agentID string) {
	if c.read != nil && c.read.agentID == agentID {
		c.read = nil
	}
	delete(c.delivered, agentID)
}
