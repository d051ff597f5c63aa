// Package cluster selects the k-th largest connected component of a
// partition and materialises its membership for one evaluation cycle.
package cluster

import (
	"context"
	"fmt"
	"sort"

	"github.com/specialistvlad/clusterprops/internal/ctxlog"
	"github.com/specialistvlad/clusterprops/internal/faults"
	"github.com/specialistvlad/clusterprops/internal/partition"
)

// DefaultRank selects the largest component.
const DefaultRank = 1

// Selector holds a validated rank for a node domain of fixed size.
type Selector struct {
	rank  int
	nodes int
}

// NewSelector validates rank against a domain of nodes entities. Ranks up to
// nodes are accepted even when fewer components exist: each node could be
// its own singleton, and the real component count is the partition's call.
func NewSelector(rank, nodes int) (*Selector, error) {
	if rank < 1 {
		return nil, faults.InvalidConfiguration("cluster", "cannot look for a cluster larger than the largest cluster: rank %d", rank)
	}
	if rank > nodes {
		return nil, faults.InvalidConfiguration("cluster", "cluster selected is invalid, too few nodes in system: rank %d > %d nodes", rank, nodes)
	}
	return &Selector{rank: rank, nodes: nodes}, nil
}

// Rank returns the configured 1-based rank.
func (s *Selector) Rank() int { return s.rank }

// Select asks p for the members of the configured rank. The result is a
// sorted set: duplicates reported by the provider collapse, and every index
// is checked against the domain. p is never mutated.
func (s *Selector) Select(ctx context.Context, p partition.Partition) ([]int, error) {
	logger := ctxlog.FromContext(ctx)

	if n := p.NumberOfNodes(); n != s.nodes {
		return nil, faults.PartitionUnavailable("select", fmt.Errorf("partition covers %d nodes, analysis expects %d", n, s.nodes))
	}

	raw, err := p.MembersOfRank(s.rank)
	if err != nil {
		return nil, faults.PartitionUnavailable("select", err)
	}

	members := make([]int, 0, len(raw))
	seen := make(map[int]struct{}, len(raw))
	for _, node := range raw {
		if node < 0 || node >= s.nodes {
			return nil, faults.PartitionUnavailable("select", fmt.Errorf("member %d outside [0, %d)", node, s.nodes))
		}
		if _, dup := seen[node]; dup {
			continue
		}
		seen[node] = struct{}{}
		members = append(members, node)
	}
	sort.Ints(members)

	if dropped := len(raw) - len(members); dropped > 0 {
		logger.Debug("Dropped duplicate cluster members.", "rank", s.rank, "duplicates", dropped)
	}
	logger.Debug("Cluster selected.", "rank", s.rank, "members", len(members))
	return members, nil
}
