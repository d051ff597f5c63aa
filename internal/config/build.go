package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/clusterprops/internal/analysis"
	"github.com/specialistvlad/clusterprops/internal/partition"
	"github.com/specialistvlad/clusterprops/internal/source"
)

// Partition builds the precomputed partition described by the component
// blocks. Unlisted nodes are singletons.
func (m *Model) Partition() (*partition.Labeled, error) {
	groups := make([][]int, len(m.Components))
	for i, c := range m.Components {
		groups[i] = c.Members
	}
	p, err := partition.FromComponents(m.Nodes.Count, groups)
	if err != nil {
		return nil, fmt.Errorf("invalid components: %w", err)
	}
	return p, nil
}

// Source builds the property table. Every row must match the declared width
// and input count; a node may appear in at most one property block.
func (m *Model) Source() (*source.Table, error) {
	tbl := source.NewTable(m.Nodes.Count, len(m.Nodes.Properties), m.Nodes.Inputs)
	seen := make(map[int]hcl.Range, len(m.Properties))
	var diags hcl.Diagnostics
	for _, p := range m.Properties {
		if prev, dup := seen[p.Node]; dup {
			diags = append(diags, errorAt(p.Range.Ptr(), "Duplicate property", fmt.Sprintf("Node %d already has a property block at %s.", p.Node, prev)))
			continue
		}
		seen[p.Node] = p.Range
		if err := tbl.Set(p.Node, p.Values, p.Derivatives); err != nil {
			diags = append(diags, errorAt(p.Range.Ptr(), "Invalid property", err.Error()+"."))
		}
	}
	if diags.HasErrors() {
		return nil, diags
	}
	return tbl, nil
}

// AnalysisConfig returns the analysis settings.
func (m *Model) AnalysisConfig() analysis.Config {
	return analysis.Config{
		Rank:        m.Analysis.Rank,
		Relay:       m.Analysis.Relay,
		Columns:     append([]int(nil), m.Analysis.Columns...),
		Derivatives: m.Analysis.Derivatives,
		Workers:     m.Analysis.Workers,
	}
}
