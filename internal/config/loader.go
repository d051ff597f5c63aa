package config

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/clusterprops/internal/cluster"
	"github.com/specialistvlad/clusterprops/internal/ctxlog"
	"github.com/specialistvlad/clusterprops/internal/fsutil"
	"github.com/specialistvlad/clusterprops/internal/relay"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// matrixType is what a derivative block must convert to.
var matrixType = cty.List(cty.List(cty.Number))

// Load parses every .hcl file under paths and merges them into one Model.
func Load(ctx context.Context, paths ...string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)

	var files []string
	for _, p := range paths {
		found, err := fsutil.FindFilesByExtension(p, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("failed to find analysis files in %s: %w", p, err)
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl analysis files found in %v", paths)
	}
	logger.Debug("Loading analysis files.", "count", len(files))

	parser := hclparse.NewParser()
	var merged hclFile
	for _, file := range files {
		f, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		var parsed hclFile
		if diags := gohcl.DecodeBody(f.Body, nil, &parsed); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		merged.Analyses = append(merged.Analyses, parsed.Analyses...)
		merged.Nodes = append(merged.Nodes, parsed.Nodes...)
		merged.Components = append(merged.Components, parsed.Components...)
		merged.Properties = append(merged.Properties, parsed.Properties...)
	}

	model, diags := translate(&merged)
	if diags.HasErrors() {
		return nil, diags
	}
	logger.Debug("Analysis model loaded.",
		"nodes", model.Nodes.Count,
		"components", len(model.Components),
		"properties", len(model.Properties),
	)
	return model, nil
}

// LoadFile parses a single HCL document held in memory. filename is only
// used in diagnostics.
func LoadFile(src []byte, filename string) (*Model, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}
	var parsed hclFile
	if diags := gohcl.DecodeBody(f.Body, nil, &parsed); diags.HasErrors() {
		return nil, diags
	}
	model, diags := translate(&parsed)
	if diags.HasErrors() {
		return nil, diags
	}
	return model, nil
}

func translate(f *hclFile) (*Model, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	m := &Model{}

	a, d := uniqueAnalysis(f.Analyses)
	diags = append(diags, d...)
	n, d := uniqueNodes(f.Nodes)
	diags = append(diags, d...)
	if diags.HasErrors() {
		return nil, diags
	}

	m.Analysis = Analysis{Rank: cluster.DefaultRank, Relay: relay.KindProperty, Columns: a.Columns}
	if a.Cluster != nil {
		m.Analysis.Rank = *a.Cluster
	}
	if a.Relay != nil {
		m.Analysis.Relay = relay.Kind(*a.Relay)
	}
	if a.Derivatives != nil {
		m.Analysis.Derivatives = *a.Derivatives
	}
	if a.Workers != nil {
		m.Analysis.Workers = *a.Workers
	}

	m.Nodes = Nodes{Count: n.Count, Properties: n.Properties}
	if n.Inputs != nil {
		m.Nodes.Inputs = *n.Inputs
	}
	if n.Count < 0 {
		diags = append(diags, errorAt(&n.DeclRange, "Invalid node count", fmt.Sprintf("count must not be negative, got %d.", n.Count)))
	}
	if len(n.Properties) == 0 {
		diags = append(diags, errorAt(&n.DeclRange, "No properties declared", "The nodes block must declare at least one property component."))
	}
	if m.Nodes.Inputs < 0 {
		diags = append(diags, errorAt(&n.DeclRange, "Invalid input count", fmt.Sprintf("inputs must not be negative, got %d.", m.Nodes.Inputs)))
	}

	for _, c := range f.Components {
		m.Components = append(m.Components, Component{Name: c.Name, Members: c.Members, Range: c.DeclRange})
	}

	for _, p := range f.Properties {
		prop := Property{Node: p.Node, Values: p.Values, Range: p.DeclRange}
		derivs, d := decodeMatrix(p.Derivatives)
		diags = append(diags, d...)
		prop.Derivatives = derivs
		m.Properties = append(m.Properties, prop)
	}
	return m, diags
}

func uniqueAnalysis(blocks []*hclAnalysis) (*hclAnalysis, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	if len(blocks) == 0 {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Missing \"analysis\" block",
			Detail:   "Exactly one analysis block is required.",
		}}
	}
	for _, b := range blocks[1:] {
		diags = append(diags, errorAt(&b.DeclRange, "Duplicate \"analysis\" block", "Only one analysis block is allowed."))
	}
	if blocks[0].Kind != AnalysisKind {
		diags = append(diags, errorAt(&blocks[0].DeclRange, "Unsupported analysis", fmt.Sprintf("Analysis kind %q is not supported; use %q.", blocks[0].Kind, AnalysisKind)))
	}
	return blocks[0], diags
}

func uniqueNodes(blocks []*hclNodes) (*hclNodes, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	if len(blocks) == 0 {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Missing \"nodes\" block",
			Detail:   "Exactly one nodes block is required.",
		}}
	}
	for _, b := range blocks[1:] {
		diags = append(diags, errorAt(&b.DeclRange, "Duplicate \"nodes\" block", "Only one nodes block is allowed."))
	}
	return blocks[0], diags
}

// decodeMatrix evaluates an optional derivative block expression.
func decodeMatrix(expr hcl.Expression) ([][]float64, hcl.Diagnostics) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() || val.IsNull() {
		return nil, diags
	}
	converted, err := convert.Convert(val, matrixType)
	if err != nil {
		return nil, hcl.Diagnostics{errorAt(expr.Range().Ptr(), "Invalid derivative block", fmt.Sprintf("derivatives must be a list of numeric rows: %s.", err))}
	}
	var out [][]float64
	if err := gocty.FromCtyValue(converted, &out); err != nil {
		return nil, hcl.Diagnostics{errorAt(expr.Range().Ptr(), "Invalid derivative block", err.Error())}
	}
	if out == nil {
		out = [][]float64{}
	}
	return out, nil
}

func errorAt(rng *hcl.Range, summary, detail string) *hcl.Diagnostic {
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   detail,
		Subject:  rng,
	}
}
