package engine

import "fmt"

// Buffer is the output slot of one task for the current cycle. It is owned by
// the invocation it is passed to and must not be retained.
type Buffer struct {
	task   int
	node   int
	inputs int

	values []float64
	derivs []float64 // width*inputs, row-major; nil unless derivatives are on

	valuesSet bool
	derivsSet bool
}

func (b *Buffer) reset(task, node int, values, derivs []float64, inputs int) {
	b.task = task
	b.node = node
	b.inputs = inputs
	b.values = values
	b.derivs = derivs
	b.valuesSet = false
	b.derivsSet = false
}

// Task returns the task index this buffer belongs to.
func (b *Buffer) Task() int { return b.task }

// Node returns the node the engine associated with the task.
func (b *Buffer) Node() int { return b.node }

// Width returns the number of property components the slot holds.
func (b *Buffer) Width() int { return len(b.values) }

// Inputs returns the column count of the derivative block.
func (b *Buffer) Inputs() int { return b.inputs }

// Derivatives reports whether the current cycle tracks derivatives.
func (b *Buffer) Derivatives() bool { return b.derivs != nil }

// SetValues writes the whole property vector. vals must have exactly Width()
// entries; on mismatch nothing is written.
func (b *Buffer) SetValues(vals []float64) error {
	if len(vals) != len(b.values) {
		return fmt.Errorf("task %d: got %d values, slot width is %d", b.task, len(vals), len(b.values))
	}
	copy(b.values, vals)
	b.valuesSet = true
	return nil
}

// SetDerivatives writes the whole Width() x Inputs() derivative block. It
// fails without writing anything if the shape is wrong or derivatives are
// off for this cycle.
func (b *Buffer) SetDerivatives(block [][]float64) error {
	if b.derivs == nil {
		return fmt.Errorf("task %d: derivatives are disabled for this cycle", b.task)
	}
	if len(block) != len(b.values) {
		return fmt.Errorf("task %d: derivative block has %d rows, want %d", b.task, len(block), len(b.values))
	}
	for k, row := range block {
		if len(row) != b.inputs {
			return fmt.Errorf("task %d: derivative row %d has %d columns, want %d", b.task, k, len(row), b.inputs)
		}
	}
	for k, row := range block {
		copy(b.derivs[k*b.inputs:(k+1)*b.inputs], row)
	}
	b.derivsSet = true
	return nil
}

func (b *Buffer) complete() error {
	if !b.valuesSet {
		return fmt.Errorf("task %d: callback returned without writing values", b.task)
	}
	if b.derivs != nil && !b.derivsSet {
		return fmt.Errorf("task %d: callback returned without writing derivatives", b.task)
	}
	return nil
}
