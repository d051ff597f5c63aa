// Package config loads cluster-properties analyses from HCL files.
//
// One analysis may be split over several files in a directory. Across all of
// them there must be exactly one `analysis` block and one `nodes` block; any
// number of `component` and `property` blocks may follow:
//
//	analysis "cluster_properties" {
//	  cluster     = 1
//	  relay       = "property"
//	  derivatives = false
//	}
//
//	nodes {
//	  count      = 6
//	  inputs     = 3
//	  properties = ["coordination", "q6"]
//	}
//
//	component "a" { members = [0, 2, 4] }
//
//	property {
//	  node        = 0
//	  values      = [1.0, 2.0]
//	  derivatives = [[0.1, 0, 0], [0, 0.2, 0]]
//	}
//
// The Model produced here is plain data; Partition, Source and AnalysisConfig turn
// it into the runtime collaborators.
package config
