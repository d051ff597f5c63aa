// Package source defines where per-node properties come from.
package source

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNoProperty is returned by Table for nodes that were never populated.
var ErrNoProperty = errors.New("no property recorded for node")

// PropertySource produces a fixed-width property vector per node and,
// on request, the derivatives of that vector with respect to upstream inputs.
// Implementations must be safe for concurrent reads.
type PropertySource interface {
	// Width is the number of property components; constant across calls.
	Width() int
	// Inputs is the number of upstream inputs, i.e. the column count of a
	// derivative block.
	Inputs() int
	// PropertyOf returns the Width() components for node.
	PropertyOf(node int) ([]float64, error)
	// DerivativesOf returns a Width() x Inputs() matrix for node.
	DerivativesOf(node int) ([][]float64, error)
}

type row struct {
	values []float64
	derivs [][]float64
}

// Table is an in-memory PropertySource. Writes and reads may interleave.
type Table struct {
	width  int
	inputs int
	nodes  int

	mu   sync.RWMutex
	rows map[int]row
}

// NewTable creates an empty table for nodes entities.
func NewTable(nodes, width, inputs int) *Table {
	return &Table{
		width:  width,
		inputs: inputs,
		nodes:  nodes,
		rows:   make(map[int]row),
	}
}

// Set stores the property row for node. derivs may be nil, in which case
// derivative requests for the node fail.
func (t *Table) Set(node int, values []float64, derivs [][]float64) error {
	if node < 0 || node >= t.nodes {
		return fmt.Errorf("node %d outside [0, %d)", node, t.nodes)
	}
	if len(values) != t.width {
		return fmt.Errorf("node %d: %d values, want %d", node, len(values), t.width)
	}
	if derivs != nil {
		if len(derivs) != t.width {
			return fmt.Errorf("node %d: derivative block has %d rows, want %d", node, len(derivs), t.width)
		}
		for k, r := range derivs {
			if len(r) != t.inputs {
				return fmt.Errorf("node %d: derivative row %d has %d columns, want %d", node, k, len(r), t.inputs)
			}
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows[node] = row{values: cloneVector(values), derivs: cloneMatrix(derivs)}
	return nil
}

// Width implements PropertySource.
func (t *Table) Width() int { return t.width }

// Inputs implements PropertySource.
func (t *Table) Inputs() int { return t.inputs }

// PropertyOf implements PropertySource.
func (t *Table) PropertyOf(node int) ([]float64, error) {
	r, err := t.lookup(node)
	if err != nil {
		return nil, err
	}
	return cloneVector(r.values), nil
}

// DerivativesOf implements PropertySource.
func (t *Table) DerivativesOf(node int) ([][]float64, error) {
	r, err := t.lookup(node)
	if err != nil {
		return nil, err
	}
	if r.derivs == nil {
		return nil, fmt.Errorf("node %d: no derivatives recorded", node)
	}
	return cloneMatrix(r.derivs), nil
}

func (t *Table) lookup(node int) (row, error) {
	t.mu.RLock()
	r, ok := t.rows[node]
	t.mu.RUnlock()
	if !ok {
		return row{}, fmt.Errorf("%w: %d", ErrNoProperty, node)
	}
	return r, nil
}

func cloneVector(v []float64) []float64 {
	if v == nil {
		return nil
	}
	return append([]float64(nil), v...)
}

func cloneMatrix(m [][]float64) [][]float64 {
	if m == nil {
		return nil
	}
	out := make([][]float64, len(m))
	for i, r := range m {
		out[i] = cloneVector(r)
	}
	return out
}
