// Package testutil holds fakes and helpers shared by package tests.
package testutil

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/clusterprops/internal/source"
)

// ScriptedPartition returns Members[rank-1] verbatim, duplicates and all.
type ScriptedPartition struct {
	Nodes   int
	Members [][]int
	Err     error

	calls atomic.Int64
}

// NumberOfNodes implements partition.Partition.
func (p *ScriptedPartition) NumberOfNodes() int { return p.Nodes }

// MembersOfRank implements partition.Partition.
func (p *ScriptedPartition) MembersOfRank(rank int) ([]int, error) {
	p.calls.Add(1)
	if p.Err != nil {
		return nil, p.Err
	}
	if rank < 1 || rank > len(p.Members) {
		return nil, fmt.Errorf("scripted partition has no rank %d", rank)
	}
	return append([]int(nil), p.Members[rank-1]...), nil
}

// Calls returns how many times MembersOfRank was invoked.
func (p *ScriptedPartition) Calls() int { return int(p.calls.Load()) }

// CountingSource wraps a PropertySource and records per-node call counts.
// Nodes listed in Fail make PropertyOf return an error.
type CountingSource struct {
	source.PropertySource
	Fail map[int]error

	mu          sync.Mutex
	properties  map[int]int
	derivatives map[int]int
}

// NewCountingSource wraps src.
func NewCountingSource(src source.PropertySource) *CountingSource {
	return &CountingSource{
		PropertySource: src,
		properties:     make(map[int]int),
		derivatives:    make(map[int]int),
	}
}

// PropertyOf implements source.PropertySource.
func (s *CountingSource) PropertyOf(node int) ([]float64, error) {
	s.mu.Lock()
	s.properties[node]++
	s.mu.Unlock()
	if err, ok := s.Fail[node]; ok {
		return nil, err
	}
	return s.PropertySource.PropertyOf(node)
}

// DerivativesOf implements source.PropertySource.
func (s *CountingSource) DerivativesOf(node int) ([][]float64, error) {
	s.mu.Lock()
	s.derivatives[node]++
	s.mu.Unlock()
	return s.PropertySource.DerivativesOf(node)
}

// PropertyCalls returns the number of PropertyOf calls for node.
func (s *CountingSource) PropertyCalls(node int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.properties[node]
}

// DerivativeCalls returns the total number of DerivativesOf calls.
func (s *CountingSource) DerivativeCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, c := range s.derivatives {
		total += c
	}
	return total
}

// SixNodeTable is the property table used across tests: node i has values
// {i, 10*i} and a 2x3 derivative block whose entries encode the node.
func SixNodeTable() *source.Table {
	tbl := source.NewTable(6, 2, 3)
	for i := 0; i < 6; i++ {
		f := float64(i)
		err := tbl.Set(i, []float64{f, 10 * f}, [][]float64{
			{f, f + 0.5, f + 0.25},
			{-f, -f - 0.5, -f - 0.25},
		})
		if err != nil {
			panic(err)
		}
	}
	return tbl
}
