// Command exasim is the external cycle driver: it loads a
// TOML topology, assembles a world.World, and sweeps RunCycle until the
// world is empty or a cycle bound is hit. It is deliberately thin — the
// core's per-step contract lives in internal/exa, not here — mirroring how
// go-probe's cmd/ tree is a thin cli.v1 shell around the protocol packages
// that do the real work.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/exa-vm/exacore/config"
	"github.com/exa-vm/exacore/internal/world"

	"github.com/fatih/color"
	"github.com/inconshreveable/log15"
	colorable "github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"
)

var (
	traceFlag  = cli.BoolFlag{Name: "trace", Usage: "print a per-cycle trace of every agent's (id, state, instruction)"}
	cyclesFlag = cli.IntFlag{Name: "cycles", Value: 100000, Usage: "maximum cycles to run before stopping"}
	seedFlag   = cli.Int64Flag{Name: "seed", Usage: "override the topology's PRNG seed"}
)

func main() {
	app := cli.NewApp()
	app.Name = "exasim"
	app.Usage = "drive an EXA world from a TOML topology file"
	app.Version = "0.1.0"
	app.Commands = []cli.Command{runCommand, dumpCommand, validateCommand}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

func stderrHandler() log15.Handler {
	out := colorable.NewColorableStderr()
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return log15.StreamHandler(out, log15.LogfmtFormat())
	}
	return log15.StreamHandler(out, log15.TerminalFormat())
}

func loadWorld(ctx *cli.Context, logger log15.Logger) (*world.World, error) {
	path := ctx.Args().First()
	if path == "" {
		return nil, cli.NewExitError("usage: exasim <command> <topology.toml>", 1)
	}
	topo, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if seed := ctx.Int64("seed"); seed != 0 {
		topo.Seed = seed
	}
	return config.Assemble(topo, filepath.Dir(path), logger)
}

var runCommand = cli.Command{
	Name:      "run",
	Usage:     "run a topology to completion or a cycle bound",
	ArgsUsage: "<topology.toml>",
	Flags:     []cli.Flag{traceFlag, cyclesFlag, seedFlag},
	Action:    runAction,
}

func runAction(ctx *cli.Context) error {
	logger := log15.New()
	logger.SetHandler(stderrHandler())

	w, err := loadWorld(ctx, logger)
	if err != nil {
		return err
	}

	trace := ctx.Bool("trace")
	max := ctx.Int("cycles")
	for c := 0; c < max && w.LiveCount() > 0; c++ {
		if trace {
			printTrace(w, c)
		}
		w.RunCycle()
	}

	fmt.Printf("%s %d agents remain after %d cycles\n", color.YellowString("done:"), w.LiveCount(), w.Cycle)
	return nil
}

// printTrace reproduces original_source main.rs's verbose per-cycle dump of
// every agent's (id, state, instruction), printed to stdout with fmt.Printf
// and a colored prefix.
func printTrace(w *world.World, cycle int) {
	for _, id := range w.LiveIDs() {
		e, ok := w.Exa(id)
		if !ok {
			continue
		}
		line := "<halted>"
		if in, ok := e.Prog.Current(); ok {
			line = in.Op.String()
		}
		fmt.Printf("%s cycle=%d id=%s host=%s state=%s instr=%s\n",
			color.CyanString("trace:"), cycle, e.ID, e.HostID, e.State, line)
	}
}

var dumpCommand = cli.Command{
	Name:      "dump",
	Usage:     "print host occupancy and agent state as tables",
	ArgsUsage: "<topology.toml>",
	Flags:     []cli.Flag{seedFlag},
	Action:    dumpAction,
}

func dumpAction(ctx *cli.Context) error {
	logger := log15.New()
	logger.SetHandler(stderrHandler())

	w, err := loadWorld(ctx, logger)
	if err != nil {
		return err
	}

	hostTable := tablewriter.NewWriter(os.Stdout)
	hostTable.SetHeader([]string{"Host", "Occupancy"})
	for _, id := range w.HostIDs() {
		h, _ := w.Host(id)
		hostTable.Append([]string{h.ID, fmt.Sprintf("%d/%d", h.Occupancy(), h.OccupancyLimit)})
	}
	hostTable.Render()

	exaTable := tablewriter.NewWriter(os.Stdout)
	exaTable.SetHeader([]string{"Exa", "Host", "State", "Mode"})
	for _, id := range w.LiveIDs() {
		e, _ := w.Exa(id)
		exaTable.Append([]string{e.ID, e.HostID, e.State.String(), e.Mode.String()})
	}
	exaTable.Render()

	return nil
}

var validateCommand = cli.Command{
	Name:      "validate",
	Usage:     "compile every referenced program and report construction errors",
	ArgsUsage: "<topology.toml>",
	Action:    validateAction,
}

func validateAction(ctx *cli.Context) error {
	logger := log15.New()
	logger.SetHandler(stderrHandler())

	_, err := loadWorld(ctx, logger)
	if err != nil {
		return err
	}
	fmt.Println(color.GreenString("ok:"), "topology assembled without construction errors")
	return nil
}
