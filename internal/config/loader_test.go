package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/clusterprops/internal/relay"
	"github.com/specialistvlad/clusterprops/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sixNodes = `
analysis "cluster_properties" {
  cluster     = 2
  relay       = "columns"
  columns     = [1]
  derivatives = true
  workers     = 3
}

nodes {
  count      = 6
  inputs     = 2
  properties = ["coordination", "q6"]
}

component "a" { members = [0, 2, 4] }
component "b" { members = [1, 3] }

property {
  node        = 1
  values      = [1.0, 10.0]
  derivatives = [[0.5, 0], [0, 0.25]]
}

property {
  node   = 3
  values = [3, 30]
}
`

func TestLoadFile(t *testing.T) {
	m, err := LoadFile([]byte(sixNodes), "six.hcl")
	require.NoError(t, err)

	assert.Equal(t, Analysis{Rank: 2, Relay: relay.KindColumns, Columns: []int{1}, Derivatives: true, Workers: 3}, m.Analysis)
	assert.Equal(t, Nodes{Count: 6, Inputs: 2, Properties: []string{"coordination", "q6"}}, m.Nodes)
	require.Len(t, m.Components, 2)
	assert.Equal(t, "a", m.Components[0].Name)
	assert.Equal(t, []int{0, 2, 4}, m.Components[0].Members)

	require.Len(t, m.Properties, 2)
	assert.Equal(t, [][]float64{{0.5, 0}, {0, 0.25}}, m.Properties[0].Derivatives)
	assert.Nil(t, m.Properties[1].Derivatives)

	cfg := m.AnalysisConfig()
	assert.Equal(t, 2, cfg.Rank)
	assert.Equal(t, relay.KindColumns, cfg.Relay)
}

func TestDefaults(t *testing.T) {
	m, err := LoadFile([]byte(`
analysis "cluster_properties" {}
nodes {
  count      = 2
  properties = ["x"]
}
`), "defaults.hcl")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Analysis.Rank)
	assert.Equal(t, relay.KindProperty, m.Analysis.Relay)
	assert.False(t, m.Analysis.Derivatives)
	assert.Zero(t, m.Nodes.Inputs)
}

func TestBuildCollaborators(t *testing.T) {
	m, err := LoadFile([]byte(sixNodes), "six.hcl")
	require.NoError(t, err)

	p, err := m.Partition()
	require.NoError(t, err)
	assert.Equal(t, 3, p.NumberOfComponents(), "node 5 is a singleton")
	members, err := p.MembersOfRank(2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, members)

	src, err := m.Source()
	require.NoError(t, err)
	vals, err := src.PropertyOf(3)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 30}, vals)

	_, err = src.PropertyOf(0)
	assert.ErrorIs(t, err, source.ErrNoProperty, "missing rows fail at evaluation, not at load")
}

func TestLoadErrors(t *testing.T) {
	testCases := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "missing analysis",
			src: `nodes {
  count      = 1
  properties = ["x"]
}`,
			want: `Missing "analysis" block`,
		},
		{
			name: "missing nodes",
			src:  `analysis "cluster_properties" {}`,
			want: `Missing "nodes" block`,
		},
		{
			name: "unknown analysis kind",
			src: `analysis "cluster_histogram" {}
nodes {
  count      = 1
  properties = ["x"]
}`,
			want: "Unsupported analysis",
		},
		{
			name: "duplicate nodes",
			src: `analysis "cluster_properties" {}
nodes {
  count      = 1
  properties = ["x"]
}
nodes {
  count      = 2
  properties = ["x"]
}`,
			want: `Duplicate "nodes" block`,
		},
		{
			name: "no properties",
			src: `analysis "cluster_properties" {}
nodes {
  count      = 1
  properties = []
}`,
			want: "No properties declared",
		},
		{
			name: "bad derivative block",
			src: `analysis "cluster_properties" {}
nodes {
  count      = 1
  properties = ["x"]
}
property {
  node        = 0
  values      = [1]
  derivatives = "dense"
}`,
			want: "Invalid derivative block",
		},
		{
			name: "syntax error",
			src:  `analysis "cluster_properties" {`,
			want: "six.hcl",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadFile([]byte(tc.src), "six.hcl")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestSourceErrors(t *testing.T) {
	m, err := LoadFile([]byte(`
analysis "cluster_properties" {}
nodes {
  count      = 2
  inputs     = 1
  properties = ["x", "y"]
}
property {
  node   = 0
  values = [1]
}
property {
  node   = 1
  values = [1, 2]
}
property {
  node   = 1
  values = [3, 4]
}
`), "bad.hcl")
	require.NoError(t, err)

	_, err = m.Source()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 values, want 2")
	assert.Contains(t, err.Error(), "Duplicate property")
}

func TestPartitionErrors(t *testing.T) {
	m, err := LoadFile([]byte(`
analysis "cluster_properties" {}
nodes {
  count      = 3
  properties = ["x"]
}
component "a" { members = [0, 1] }
component "b" { members = [1, 2] }
`), "overlap.hcl")
	require.NoError(t, err)

	_, err = m.Partition()
	assert.ErrorContains(t, err, "node 1 belongs to components 0 and 1")
}

func TestLoadMergesDirectory(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"analysis.hcl": `analysis "cluster_properties" { cluster = 1 }
nodes {
  count      = 3
  properties = ["x"]
}`,
		"data/components.hcl": `component "a" { members = [0, 2] }`,
		"data/properties.hcl": `property {
  node   = 0
  values = [4]
}`,
		"README.md": "not hcl",
	}
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}

	m, err := Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, m.Components, 1)
	assert.Len(t, m.Properties, 1)
	assert.Equal(t, 3, m.Nodes.Count)
}

func TestLoadEmptyDirectory(t *testing.T) {
	_, err := Load(context.Background(), t.TempDir())
	assert.ErrorContains(t, err, "no .hcl analysis files")
}

func TestLoadShippedExample(t *testing.T) {
	m, err := Load(context.Background(), filepath.Join("..", "..", "examples", "six_nodes"))
	require.NoError(t, err)

	p, err := m.Partition()
	require.NoError(t, err)
	assert.Equal(t, 3, p.NumberOfComponents())

	members, err := p.MembersOfRank(1)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 4}, members)

	src, err := m.Source()
	require.NoError(t, err)
	assert.Equal(t, 2, src.Width())
	assert.Equal(t, 3, src.Inputs())

	cfg := m.AnalysisConfig()
	assert.Equal(t, 1, cfg.Rank)
	assert.True(t, cfg.Derivatives)
	assert.Equal(t, 2, cfg.Workers)
}
