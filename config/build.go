package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/exa-vm/exacore/internal/exa"
	"github.com/exa-vm/exacore/internal/host"
	"github.com/exa-vm/exacore/internal/link"
	"github.com/exa-vm/exacore/internal/program"
	"github.com/exa-vm/exacore/internal/register"
	"github.com/exa-vm/exacore/internal/vfile"
	"github.com/exa-vm/exacore/internal/world"
	"github.com/inconshreveable/log15"
)

// Assemble builds a ready-to-run world.World from topo: every host, its
// hand-placed files and hardware registers, every link, and every agent's
// compiled program (read from baseDir, the directory the topology file
// itself lives in, and cached across agents that share a ProgramFile).
func Assemble(topo *Topology, baseDir string, logger log15.Logger) (*world.World, error) {
	avoid := collectFileIDs(topo)
	w := world.New(topo.Seed, avoid, logger)

	defCache := make(map[string]*program.Def)

	for _, hc := range topo.Hosts {
		h := host.New(hc.ID, hc.OccupancyLimit)

		for _, fc := range hc.Files {
			h.PlaceFile(vfile.NewWithContents(fc.ID, vfile.ParseValues(fc.Contents)))
		}
		for _, hr := range hc.HardwareRegisters {
			mode, err := parseAccessMode(hr.Mode)
			if err != nil {
				return nil, fmt.Errorf("host %s register %s: %w", hc.ID, hr.Name, err)
			}
			initial := vfile.ParseValues(hr.Initial)
			h.AddHardwareRegister(hr.Name, register.NewHardware(mode, initial))
		}

		w.AddHost(h)

		for _, ec := range hc.Exas {
			def, err := loadDef(defCache, baseDir, ec.ProgramFile)
			if err != nil {
				return nil, fmt.Errorf("exa %s: %w", ec.ID, err)
			}
			agent := exa.New(ec.ID, hc.ID, program.New(def))
			if ec.System {
				w.AddSystemExa(agent)
			} else {
				w.AddExa(agent)
			}
		}
	}

	for _, lc := range topo.Links {
		l := link.New(lc.HostA, lc.HostB)
		w.AddLink(l)
		ha, ok := w.Host(lc.HostA)
		if !ok {
			return nil, fmt.Errorf("link references unknown host %s", lc.HostA)
		}
		hb, ok := w.Host(lc.HostB)
		if !ok {
			return nil, fmt.Errorf("link references unknown host %s", lc.HostB)
		}
		ha.AddLink(lc.GateA, l)
		hb.AddLink(lc.GateB, l)
	}

	return w, nil
}

func loadDef(cache map[string]*program.Def, baseDir, programFile string) (*program.Def, error) {
	if def, ok := cache[programFile]; ok {
		return def, nil
	}
	path := filepath.Join(baseDir, programFile)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(raw), "\n")
	def, errs := program.Compile(lines)
	if errs != nil {
		return nil, fmt.Errorf("%s: %w", path, errs)
	}
	cache[programFile] = def
	return def, nil
}

func parseAccessMode(s string) (register.AccessMode, error) {
	switch s {
	case "ReadOnly":
		return register.ReadOnly, nil
	case "WriteOnly":
		return register.WriteOnly, nil
	default:
		return 0, fmt.Errorf("unknown hardware register mode %q", s)
	}
}

func collectFileIDs(topo *Topology) []string {
	var ids []string
	for _, hc := range topo.Hosts {
		for _, fc := range hc.Files {
			ids = append(ids, fc.ID)
		}
	}
	return ids
}
