package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-controlroom/pkg/engine"
	"github.com/dd0wney/cluso-controlroom/pkg/gesture"
	"github.com/dd0wney/cluso-controlroom/pkg/model"
	"github.com/dd0wney/cluso-controlroom/pkg/txn"
)

// REPL is a line-oriented prompt over one engine.
type REPL struct {
	engine  *engine.Engine
	scanner *bufio.Scanner
	out     io.Writer
}

func (r *REPL) run(ctx context.Context) {
	fmt.Fprintf(r.out, "session %s, seed %d\n", r.engine.Session(), r.engine.Seed())
	fmt.Fprintln(r.out, "Type 'help' for available commands, 'exit' to quit")

	for {
		fmt.Fprint(r.out, "controlroom> ")
		if !r.scanner.Scan() {
			break
		}

		input := strings.TrimSpace(r.scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}
		r.execute(ctx, input)
	}
}

func (r *REPL) execute(ctx context.Context, input string) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return
	}

	switch cmd := strings.ToLower(parts[0]); cmd {
	case "help":
		r.showHelp()

	case "nodes", "ls":
		r.listNodes()

	case "get", "g":
		if len(parts) < 2 {
			fmt.Fprintln(r.out, "Usage: get <node-id>")
			return
		}
		r.getNode(parts[1])

	case "flow", "f":
		cs, err := r.engine.FlowTick(ctx)
		r.printChange(cs, err)

	case "telemetry", "t":
		sets, err := r.engine.TelemetryTick(ctx)
		for _, cs := range sets {
			r.printChange(cs, nil)
		}
		if err != nil || len(sets) == 0 {
			r.printChange(nil, err)
		}

	case "drag", "d":
		if len(parts) < 3 {
			fmt.Fprintln(r.out, "Usage: drag <node-id> <value> [<value>...]")
			return
		}
		r.drag(ctx, parts[1], parts[2:])

	case "undo", "u":
		cs, err := r.engine.Undo(ctx)
		r.printChange(cs, err)

	case "redo", "r":
		cs, err := r.engine.Redo(ctx)
		r.printChange(cs, err)

	case "history", "h":
		r.showHistory()

	default:
		fmt.Fprintf(r.out, "Unknown command: %s (type 'help' for available commands)\n", cmd)
	}
}

func (r *REPL) showHelp() {
	fmt.Fprint(r.out, `
Commands:
  nodes, ls                  List nodes with their values and bounds
  get, g <id>                Show one node
  flow, f                    Run one flow tick
  telemetry, t               Run one telemetry tick
  drag, d <id> <v>...        Drag a node through the values; the last one is committed
  undo, u                    Undo the last drag
  redo, r                    Redo the last undone drag
  history, h                 Show the undo and redo stacks
  exit, quit                 Leave
`)
}

func (r *REPL) listNodes() {
	for _, n := range r.engine.Snapshot().Nodes {
		if !n.Value.IsNumber() {
			continue
		}
		edit := ""
		if n.Editable {
			edit = " editable"
		}
		fmt.Fprintf(r.out, "  %-10s %8.1f  [%g, %g]%s\n", n.ID, n.Value.Float(), n.Min, n.Max, edit)
	}
}

func (r *REPL) getNode(id string) {
	n, err := r.engine.Get(id)
	if err != nil {
		fmt.Fprintf(r.out, "error: %v\n", err)
		return
	}
	fmt.Fprintf(r.out, "  %s (%s)\n", n.ID, n.Category)
	if n.Value.IsNumber() {
		fmt.Fprintf(r.out, "  value %g %s in [%g, %g]\n", n.Value.Float(), n.Unit, n.Min, n.Max)
	}
	for i, sv := range n.SubValues {
		fmt.Fprintf(r.out, "  %s %s %g %s\n", model.SubValueField(i), sv.Label, sv.Value, sv.Unit)
	}
	for i, st := range n.Statuses {
		fmt.Fprintf(r.out, "  %s %s\n", model.StatusField(i), st)
	}
}

// drag previews every value but the last and releases on the last.
func (r *REPL) drag(ctx context.Context, id string, args []string) {
	values := make([]float64, 0, len(args))
	for _, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			fmt.Fprintf(r.out, "error: bad value %q\n", a)
			return
		}
		values = append(values, v)
	}

	if err := r.engine.PointerDown(ctx, id, ""); err != nil {
		fmt.Fprintf(r.out, "error: %v\n", err)
		return
	}
	for _, v := range values[:len(values)-1] {
		if err := r.engine.PointerMove(ctx, id, gesture.Point{X: v}); err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
			_ = r.engine.PointerCancel(ctx, id)
			return
		}
	}
	cs, err := r.engine.PointerUp(ctx, id, gesture.Point{X: values[len(values)-1]})
	if err == nil && cs == nil {
		fmt.Fprintln(r.out, "  release ignored, value unchanged")
		return
	}
	r.printChange(cs, err)
}

func (r *REPL) showHistory() {
	undo, redo := r.engine.History()
	fmt.Fprintf(r.out, "  undo (%d):\n", len(undo))
	for _, e := range undo {
		fmt.Fprintf(r.out, "    %s %s (%d changes)\n", e.At.Format("15:04:05.000"), e.Label, len(e.Deltas))
	}
	fmt.Fprintf(r.out, "  redo (%d):\n", len(redo))
	for _, e := range redo {
		fmt.Fprintf(r.out, "    %s %s (%d changes)\n", e.At.Format("15:04:05.000"), e.Label, len(e.Deltas))
	}
}

func (r *REPL) printChange(cs *txn.ChangeSet, err error) {
	if err != nil {
		fmt.Fprintf(r.out, "error: %v\n", err)
		return
	}
	if cs == nil {
		fmt.Fprintln(r.out, "  no change")
		return
	}
	fmt.Fprintf(r.out, "  tx %d %s", cs.TxID, cs.Kind)
	if cs.Label != "" {
		fmt.Fprintf(r.out, " %q", cs.Label)
	}
	fmt.Fprintln(r.out)
	for _, d := range cs.Deltas {
		fmt.Fprintf(r.out, "    %s.%s: %s -> %s\n", d.NodeID, d.Field, d.Old, d.New)
	}
}
