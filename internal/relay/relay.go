// Package relay provides the per-task callbacks that copy node properties
// from a PropertySource into engine buffers.
//
// A relay owns no numeric definition of a property: it fetches, checks shape,
// and writes. All fetches happen before the first write so a failing node
// leaves its slot untouched.
package relay

import (
	"context"
	"fmt"

	"github.com/specialistvlad/clusterprops/internal/engine"
	"github.com/specialistvlad/clusterprops/internal/faults"
	"github.com/specialistvlad/clusterprops/internal/source"
)

// Kind names a relay variant in configuration.
type Kind string

const (
	// KindProperty relays every declared property component.
	KindProperty Kind = "property"
	// KindColumns relays a chosen subset of components.
	KindColumns Kind = "columns"
)

// New builds the relay variant named by kind. columns is only used by
// KindColumns.
func New(kind Kind, src source.PropertySource, columns []int) (engine.Task, error) {
	switch kind {
	case KindProperty, "":
		return NewProperty(src), nil
	case KindColumns:
		return NewColumns(src, columns)
	default:
		return nil, faults.InvalidConfiguration("relay", "unknown relay kind %q", kind)
	}
}

// Property relays the full property vector of a node.
type Property struct {
	src source.PropertySource
}

// NewProperty wraps src.
func NewProperty(src source.PropertySource) *Property {
	return &Property{src: src}
}

// Width implements engine.Task.
func (p *Property) Width() int { return p.src.Width() }

// Evaluate implements engine.Task.
func (p *Property) Evaluate(_ context.Context, _, node int, buf *engine.Buffer) error {
	vals, block, err := fetch(p.src, node, buf.Derivatives())
	if err != nil {
		return err
	}
	return write(buf, node, vals, block)
}

// Columns relays the components listed in cols, in that order.
type Columns struct {
	src  source.PropertySource
	cols []int
}

// NewColumns validates cols against the source width.
func NewColumns(src source.PropertySource, cols []int) (*Columns, error) {
	if len(cols) == 0 {
		return nil, faults.InvalidConfiguration("relay", "columns relay needs at least one column")
	}
	for _, c := range cols {
		if c < 0 || c >= src.Width() {
			return nil, faults.InvalidConfiguration("relay", "column %d outside [0, %d)", c, src.Width())
		}
	}
	return &Columns{src: src, cols: append([]int(nil), cols...)}, nil
}

// Width implements engine.Task.
func (c *Columns) Width() int { return len(c.cols) }

// Evaluate implements engine.Task.
func (c *Columns) Evaluate(_ context.Context, _, node int, buf *engine.Buffer) error {
	vals, block, err := fetch(c.src, node, buf.Derivatives())
	if err != nil {
		return err
	}

	picked := make([]float64, len(c.cols))
	for i, col := range c.cols {
		picked[i] = vals[col]
	}
	var rows [][]float64
	if block != nil {
		rows = make([][]float64, len(c.cols))
		for i, col := range c.cols {
			rows[i] = block[col]
		}
	}
	return write(buf, node, picked, rows)
}

// fetch reads and shape-checks a node's data. The derivative block is only
// requested when derivatives is true.
func fetch(src source.PropertySource, node int, derivatives bool) ([]float64, [][]float64, error) {
	vals, err := src.PropertyOf(node)
	if err != nil {
		return nil, nil, faults.PropertySource("relay", node, err)
	}
	if len(vals) != src.Width() {
		return nil, nil, faults.PropertySource("relay", node, fmt.Errorf("source returned %d values, declared width %d", len(vals), src.Width()))
	}
	if !derivatives {
		return vals, nil, nil
	}

	block, err := src.DerivativesOf(node)
	if err != nil {
		return nil, nil, faults.PropertySource("relay", node, err)
	}
	if len(block) != src.Width() {
		return nil, nil, faults.PropertySource("relay", node, fmt.Errorf("derivative block has %d rows, declared width %d", len(block), src.Width()))
	}
	return vals, block, nil
}

func write(buf *engine.Buffer, node int, vals []float64, block [][]float64) error {
	if err := buf.SetValues(vals); err != nil {
		return faults.PropertySource("relay", node, err)
	}
	if block == nil {
		return nil
	}
	if err := buf.SetDerivatives(block); err != nil {
		return faults.PropertySource("relay", node, err)
	}
	return nil
}
