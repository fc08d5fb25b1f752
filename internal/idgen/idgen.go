// Package idgen implements the file-id generator: a
// monotonic decimal id source starting at 400 that skips a configured
// avoid-set, panicking (a programmer error, not a runtime fault) past 9999.
package idgen

import (
	"strconv"

	"github.com/google/uuid"
)

// StartID and MaxID bound the generated id sequence.
const (
	StartID = 400
	MaxID   = 9999
)

// Logger is the minimal structured-logging sink idgen needs. world.World
// satisfies it with its log15.Logger.
type Logger interface {
	Debug(msg string, ctx ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}

// Generator mints unique decimal file ids.
type Generator struct {
	next   int
	avoid  map[string]bool
	logger Logger
}

// New returns a Generator seeded with an avoid-set: ids already in use by a
// hand-placed level layout at load time, so they are never reissued
// (original_source's file/id_generator.rs seeds the avoid-set this way; it
// is not mutated later). A nil logger disables tracing.
func New(avoid []string, logger Logger) *Generator {
	m := make(map[string]bool, len(avoid))
	for _, id := range avoid {
		m[id] = true
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &Generator{next: StartID, avoid: m, logger: logger}
}

// Next mints the next unused id. Every mint is traced at debug level with a
// uuid correlation id distinct from the (deterministic) minted id itself, so
// a MAKE can be followed across logs without perturbing id determinism.
func (g *Generator) Next() string {
	for {
		if g.next > MaxID {
			panic("idgen: file id generator exhausted beyond " + strconv.Itoa(MaxID))
		}
		id := strconv.Itoa(g.next)
		g.next++
		if g.avoid[id] {
			continue
		}
		g.logger.Debug("idgen.mint", "id", id, "trace", uuid.New().String())
		return id
	}
}
