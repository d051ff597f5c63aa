// Package faults defines the error taxonomy shared by the selection, masking,
// and relay stages of a cluster-properties cycle.
//
// Every failure is one of three kinds. Callers test for a kind with
// errors.Is against the exported sentinels; the concrete *Error carries the
// operation and, where relevant, the node that triggered it.
package faults

import (
	"errors"
	"fmt"
)

// Sentinel errors for each failure kind.
var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrPartitionUnavailable = errors.New("partition unavailable")
	ErrPropertySource       = errors.New("property source error")
)

// NoNode marks an Error that is not tied to a particular node.
const NoNode = -1

// Error is a classified failure.
type Error struct {
	Kind error  // one of the sentinels above
	Op   string // operation that failed, e.g. "select" or "relay"
	Node int    // offending node index, or NoNode
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Node != NoNode {
		msg = fmt.Sprintf("%s (node %d)", msg, e.Node)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the cause so wrapped upstream errors stay inspectable.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is this error's kind.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

// InvalidConfiguration builds an ErrInvalidConfiguration error with a formatted detail.
func InvalidConfiguration(op, format string, args ...any) error {
	return &Error{Kind: ErrInvalidConfiguration, Op: op, Node: NoNode, Err: fmt.Errorf(format, args...)}
}

// PartitionUnavailable classifies a partition provider failure.
func PartitionUnavailable(op string, cause error) error {
	return &Error{Kind: ErrPartitionUnavailable, Op: op, Node: NoNode, Err: cause}
}

// PropertySource classifies an upstream property failure for node.
func PropertySource(op string, node int, cause error) error {
	return &Error{Kind: ErrPropertySource, Op: op, Node: node, Err: cause}
}

// NodeOf returns the node recorded in err, if any.
func NodeOf(err error) (int, bool) {
	var fe *Error
	if errors.As(err, &fe) && fe.Node != NoNode {
		return fe.Node, true
	}
	return NoNode, false
}
