// Package partition defines the contract of a connected-component partition
// over a fixed node domain and ships a reference provider for precomputed
// labelings.
//
// Computing the partition (adjacency, traversal, labeling) is somebody
// else's job. A Partition only answers two questions: how large is the node
// domain, and which nodes belong to the component of a given size rank.
package partition

import (
	"errors"
	"fmt"
	"sort"
)

// ErrRankOutOfRange is returned when a rank exceeds the number of components
// the provider discovered.
var ErrRankOutOfRange = errors.New("rank exceeds number of components")

// Partition is the view of a component partition needed to select a cluster.
type Partition interface {
	// NumberOfNodes returns the size N of the node domain.
	NumberOfNodes() int
	// MembersOfRank returns the node indices of the rank-th largest component,
	// rank 1 being the largest. The returned slice belongs to the caller.
	MembersOfRank(rank int) ([]int, error)
}

// Component is one connected component of a Labeled partition.
type Component struct {
	Label   int
	Members []int
}

// Size returns the number of nodes in the component.
func (c Component) Size() int { return len(c.Members) }

// Labeled is an immutable partition built from a per-node component label.
// Components are ranked by descending size; equal sizes rank by their
// smallest member index.
type Labeled struct {
	nodes      int
	components []Component // in rank order
}

// FromLabels builds a partition where labels[i] is the component of node i.
// Label values are opaque; only equality matters.
func FromLabels(labels []int) *Labeled {
	byLabel := make(map[int]int) // label -> index into comps
	var comps []Component
	for node, label := range labels {
		idx, ok := byLabel[label]
		if !ok {
			idx = len(comps)
			byLabel[label] = idx
			comps = append(comps, Component{Label: label})
		}
		comps[idx].Members = append(comps[idx].Members, node)
	}
	return newLabeled(len(labels), comps)
}

// FromComponents builds a partition over n nodes from explicit member lists.
// Nodes not listed anywhere become singleton components. A node listed in
// two groups, or outside [0, n), is an error.
func FromComponents(n int, groups [][]int) (*Labeled, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative node count %d", n)
	}
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	for g, members := range groups {
		for _, node := range members {
			if node < 0 || node >= n {
				return nil, fmt.Errorf("component %d: node %d outside [0, %d)", g, node, n)
			}
			if labels[node] != -1 && labels[node] != g {
				return nil, fmt.Errorf("node %d belongs to components %d and %d", node, labels[node], g)
			}
			labels[node] = g
		}
	}
	next := len(groups)
	for i, l := range labels {
		if l == -1 {
			labels[i] = next
			next++
		}
	}
	return FromLabels(labels), nil
}

func newLabeled(n int, comps []Component) *Labeled {
	sort.SliceStable(comps, func(i, j int) bool {
		if len(comps[i].Members) != len(comps[j].Members) {
			return len(comps[i].Members) > len(comps[j].Members)
		}
		return comps[i].Members[0] < comps[j].Members[0]
	})
	return &Labeled{nodes: n, components: comps}
}

// NumberOfNodes implements Partition.
func (p *Labeled) NumberOfNodes() int { return p.nodes }

// NumberOfComponents returns how many components were discovered.
func (p *Labeled) NumberOfComponents() int { return len(p.components) }

// MembersOfRank implements Partition.
func (p *Labeled) MembersOfRank(rank int) ([]int, error) {
	c, err := p.component(rank)
	if err != nil {
		return nil, err
	}
	return append([]int(nil), c.Members...), nil
}

// SizeOfRank returns the size of the rank-th largest component.
func (p *Labeled) SizeOfRank(rank int) (int, error) {
	c, err := p.component(rank)
	if err != nil {
		return 0, err
	}
	return c.Size(), nil
}

// Components returns a copy of all components in rank order.
func (p *Labeled) Components() []Component {
	out := make([]Component, len(p.components))
	for i, c := range p.components {
		out[i] = Component{Label: c.Label, Members: append([]int(nil), c.Members...)}
	}
	return out
}

func (p *Labeled) component(rank int) (Component, error) {
	if rank < 1 || rank > len(p.components) {
		return Component{}, fmt.Errorf("%w: rank %d, %d components", ErrRankOutOfRange, rank, len(p.components))
	}
	return p.components[rank-1], nil
}
