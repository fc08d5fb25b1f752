// Package config loads the host/link/program topology that seeds a
// world.World, keeping file I/O and TOML parsing out of the simulation core.
// It mirrors cmd/gprobe/config.go's TOML loading
// pattern exactly: a toml.Config with identity NormFieldName/FieldToKey (so
// TOML keys match Go field names one-for-one) decoding into a struct tree,
// with *toml.LineError wrapped to name the offending file.
package config

import (
	"bufio"
	"fmt"
	"os"
	"reflect"

	"github.com/naoina/toml"
)

var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// Topology is the full description of a runnable world: its hosts, the
// links between them, and a PRNG seed for deterministic KILL/RAND.
type Topology struct {
	Seed  int64
	Hosts []HostConfig
	Links []LinkConfig
}

// HostConfig describes one Host at load time.
type HostConfig struct {
	ID                string
	OccupancyLimit    int
	Files             []FileConfig             `toml:",omitempty"`
	HardwareRegisters []HardwareRegisterConfig `toml:",omitempty"`
	Exas              []ExaConfig              `toml:",omitempty"`
}

// FileConfig is a file hand-placed on a host at load time. Contents is one
// value per line, in the same text form internal/vfile.ParseValues expects.
type FileConfig struct {
	ID       string
	Contents []string `toml:",omitempty"`
}

// HardwareRegisterConfig describes one of a host's hardware registers
// (original_source register/hardware.rs: fixed initial queue contents
// supplied at host-construction time).
type HardwareRegisterConfig struct {
	Name    string
	Mode    string // "ReadOnly" or "WriteOnly"
	Initial []string `toml:",omitempty"`
}

// ExaConfig places one agent on its host at load time, either as a regular
// occupant or a system agent (original_source host/mod.rs).
type ExaConfig struct {
	ID          string
	ProgramFile string
	System      bool `toml:",omitempty"`
}

// LinkConfig describes one exclusive gate between two hosts, naming the
// local gate-id each side uses to refer to it.
type LinkConfig struct {
	HostA, GateA string
	HostB, GateB string
}

// Load reads and parses a topology file at path.
func Load(path string) (*Topology, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var topo Topology
	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(&topo)
	if _, ok := err.(*toml.LineError); ok {
		err = fmt.Errorf("%s, %w", path, err)
	}
	if err != nil {
		return nil, err
	}
	return &topo, nil
}
