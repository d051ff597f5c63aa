package config

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/clusterprops/internal/relay"
)

// AnalysisKind is the only analysis block label understood here.
const AnalysisKind = "cluster_properties"

// Model is the merged content of all analysis files.
type Model struct {
	Analysis   Analysis
	Nodes      Nodes
	Components []Component
	Properties []Property
}

// Analysis holds the `analysis` block.
type Analysis struct {
	Rank        int
	Relay       relay.Kind
	Columns     []int
	Derivatives bool
	Workers     int
}

// Nodes holds the `nodes` block.
type Nodes struct {
	Count      int
	Inputs     int
	Properties []string
}

// Component is one `component` block.
type Component struct {
	Name    string
	Members []int
	Range   hcl.Range
}

// Property is one `property` block. Derivatives is nil when omitted.
type Property struct {
	Node        int
	Values      []float64
	Derivatives [][]float64
	Range       hcl.Range
}

// --- HCL decoding targets ---

type hclFile struct {
	Analyses   []*hclAnalysis  `hcl:"analysis,block"`
	Nodes      []*hclNodes     `hcl:"nodes,block"`
	Components []*hclComponent `hcl:"component,block"`
	Properties []*hclProperty  `hcl:"property,block"`
}

type hclAnalysis struct {
	Kind        string    `hcl:"kind,label"`
	Cluster     *int      `hcl:"cluster,optional"`
	Relay       *string   `hcl:"relay,optional"`
	Columns     []int     `hcl:"columns,optional"`
	Derivatives *bool     `hcl:"derivatives,optional"`
	Workers     *int      `hcl:"workers,optional"`
	DeclRange   hcl.Range `hcl:",def_range"`
}

type hclNodes struct {
	Count      int       `hcl:"count"`
	Inputs     *int      `hcl:"inputs,optional"`
	Properties []string  `hcl:"properties"`
	DeclRange  hcl.Range `hcl:",def_range"`
}

type hclComponent struct {
	Name      string    `hcl:"name,label"`
	Members   []int     `hcl:"members"`
	DeclRange hcl.Range `hcl:",def_range"`
}

type hclProperty struct {
	Node        int            `hcl:"node"`
	Values      []float64      `hcl:"values"`
	Derivatives hcl.Expression `hcl:"derivatives,optional"`
	DeclRange   hcl.Range      `hcl:",def_range"`
}
