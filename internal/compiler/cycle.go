package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/simtree/internal/ir"
)

// CycleWarning reports record types that can never be instantiated.
//
// A record whose required fields lead back to itself through plain record
// types (not through a list, map or optional) has no finite value. Cycles
// through containers are fine and are not reported.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["Joint", "Body", "Joint"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzeCycles walks the graph of required record-typed fields depth
// first and reports one warning for every edge that closes a cycle, i.e.
// points back at a record still on the walk. Records are visited in the
// order given and fields in declared order, so output is deterministic.
//
// An acyclic declaration set returns an empty warning list.
func AnalyzeCycles(records []*ir.RecordType) []CycleWarning {
	w := &cycleWalk{
		state:    make(map[*ir.RecordType]visitState),
		warnings: []CycleWarning{},
	}
	for _, rt := range records {
		if w.state[rt] == unvisited {
			w.visit(rt)
		}
	}
	return w.warnings
}

type visitState uint8

const (
	unvisited visitState = iota
	onPath
	done
)

type cycleWalk struct {
	state    map[*ir.RecordType]visitState
	path     []*ir.RecordType
	warnings []CycleWarning
}

func (w *cycleWalk) visit(rt *ir.RecordType) {
	w.state[rt] = onPath
	w.path = append(w.path, rt)

	for _, f := range rt.Fields {
		// Only a plain record field is required; list, map and optional
		// (a union with null) all admit a finite value.
		dep, ok := f.Type.(*ir.RecordType)
		if !ok {
			continue
		}
		switch w.state[dep] {
		case unvisited:
			w.visit(dep)
		case onPath:
			w.warnings = append(w.warnings, cycleWarning(w.cycleFrom(dep)))
		}
	}

	w.path = w.path[:len(w.path)-1]
	w.state[rt] = done
}

// cycleFrom returns the names on the current walk from start, closed by
// start again.
func (w *cycleWalk) cycleFrom(start *ir.RecordType) []string {
	i := len(w.path) - 1
	for w.path[i] != start {
		i--
	}
	names := make([]string, 0, len(w.path)-i+1)
	for _, rt := range w.path[i:] {
		names = append(names, rt.Name)
	}
	return append(names, start.Name)
}

func cycleWarning(path []string) CycleWarning {
	if len(path) == 2 {
		return CycleWarning{
			Path:    path,
			Message: fmt.Sprintf("record %s requires itself and can never be instantiated", path[0]),
			Level:   "warning",
		}
	}
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("records form a required cycle and can never be instantiated: %s", strings.Join(path, " → ")),
		Level:   "warning",
	}
}
