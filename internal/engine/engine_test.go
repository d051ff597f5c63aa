package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/specialistvlad/clusterprops/internal/mask"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoTask writes {task, node} and, if asked, a block filled with node.
type echoTask struct {
	mu    sync.Mutex
	order []int
	fail  map[int]error
	skip  bool // return without writing
}

func (e *echoTask) Width() int { return 2 }

func (e *echoTask) Evaluate(_ context.Context, task, node int, buf *Buffer) error {
	e.mu.Lock()
	e.order = append(e.order, task)
	e.mu.Unlock()

	if err, ok := e.fail[task]; ok {
		return err
	}
	if e.skip {
		return nil
	}
	if err := buf.SetValues([]float64{float64(task), float64(node)}); err != nil {
		return err
	}
	if buf.Derivatives() {
		block := make([][]float64, buf.Width())
		for k := range block {
			block[k] = make([]float64, buf.Inputs())
			for j := range block[k] {
				block[k][j] = float64(node*100 + k*10 + j)
			}
		}
		return buf.SetDerivatives(block)
	}
	return nil
}

type recordingSink struct {
	results []*Result
	err     error
}

func (s *recordingSink) Publish(_ context.Context, r *Result) error {
	s.results = append(s.results, r)
	return s.err
}

func newMask(t *testing.T, size int, members ...int) *mask.Mask {
	t.Helper()
	m := mask.New(size)
	require.NoError(t, m.Rebuild(members))
	return m
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{Size: -1, Width: 1})
	assert.Error(t, err)
	_, err = New(Config{Size: 3, Width: 0})
	assert.Error(t, err)
	_, err = New(Config{Size: 3, Width: 1, Inputs: -2})
	assert.Error(t, err)

	e, err := New(Config{Size: 3, Width: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, e.Size())
	assert.Equal(t, 2, e.Width())
}

func TestRunVisitsOnlyActiveInAscendingOrder(t *testing.T) {
	e, err := New(Config{Size: 6, Width: 2, Workers: 1})
	require.NoError(t, err)
	task := &echoTask{}

	res, err := e.Run(context.Background(), newMask(t, 6, 4, 0, 2), task, false)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 2, 4}, task.order)
	assert.Equal(t, []int{0, 2, 4}, res.Active())
	assert.False(t, res.Derivatives)
	for _, out := range res.Tasks {
		assert.Equal(t, []float64{float64(out.Task), float64(out.Task)}, out.Values)
		assert.Nil(t, out.Derivatives)
	}
}

func TestRunWithDerivatives(t *testing.T) {
	e, err := New(Config{Size: 4, Width: 2, Inputs: 3, Workers: 2})
	require.NoError(t, err)

	res, err := e.Run(context.Background(), newMask(t, 4, 1, 3), &echoTask{}, true)
	require.NoError(t, err)
	require.Len(t, res.Tasks, 2)

	assert.True(t, res.Derivatives)
	assert.Equal(t, [][]float64{{300, 301, 302}, {310, 311, 312}}, res.Tasks[1].Derivatives)
}

func TestRunDerivativesWithoutInputs(t *testing.T) {
	e, err := New(Config{Size: 2, Width: 2})
	require.NoError(t, err)
	_, err = e.Run(context.Background(), newMask(t, 2, 0), &echoTask{}, true)
	assert.ErrorContains(t, err, "no derivative inputs")
}

func TestRunCustomNodeMapping(t *testing.T) {
	e, err := New(Config{Size: 3, Width: 2, NodeOf: func(t int) int { return 2 - t }})
	require.NoError(t, err)

	res, err := e.Run(context.Background(), newMask(t, 3, 0), &echoTask{}, false)
	require.NoError(t, err)
	require.Len(t, res.Tasks, 1)
	assert.Equal(t, 0, res.Tasks[0].Task)
	assert.Equal(t, 2, res.Tasks[0].Node)
	assert.Equal(t, []float64{0, 2}, res.Tasks[0].Values)
}

func TestRunFailureAbortsBeforePublishing(t *testing.T) {
	sink := &recordingSink{}
	e, err := New(Config{Size: 6, Width: 2, Workers: 3, Sinks: []Sink{sink}})
	require.NoError(t, err)

	boom := errors.New("no property for node 2")
	res, err := e.Run(context.Background(), newMask(t, 6, 0, 2, 4), &echoTask{fail: map[int]error{2: boom}}, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.Nil(t, res)
	assert.Empty(t, sink.results)
}

func TestRunRejectsIncompleteWrites(t *testing.T) {
	e, err := New(Config{Size: 2, Width: 2})
	require.NoError(t, err)
	_, err = e.Run(context.Background(), newMask(t, 2, 1), &echoTask{skip: true}, false)
	assert.ErrorContains(t, err, "without writing values")
}

func TestRunShapeMismatches(t *testing.T) {
	e, err := New(Config{Size: 4, Width: 2})
	require.NoError(t, err)

	_, err = e.Run(context.Background(), newMask(t, 5, 0), &echoTask{}, false)
	assert.ErrorContains(t, err, "mask covers 5 tasks")

	narrow, err := New(Config{Size: 4, Width: 3})
	require.NoError(t, err)
	_, err = narrow.Run(context.Background(), newMask(t, 4, 0), &echoTask{}, false)
	assert.ErrorContains(t, err, "task writes 2 values")
}

func TestRunPublishesToSinksInOrder(t *testing.T) {
	first, second := &recordingSink{}, &recordingSink{}
	e, err := New(Config{Size: 3, Width: 2, Sinks: []Sink{first, second}})
	require.NoError(t, err)

	res, err := e.Run(context.Background(), newMask(t, 3, 2), &echoTask{}, false)
	require.NoError(t, err)
	require.Len(t, first.results, 1)
	require.Len(t, second.results, 1)
	assert.Same(t, res, first.results[0])
	assert.Same(t, res, second.results[0])
}

func TestRunSinkFailure(t *testing.T) {
	sink := &recordingSink{err: errors.New("socket closed")}
	e, err := New(Config{Size: 1, Width: 2, Sinks: []Sink{sink}})
	require.NoError(t, err)

	_, err = e.Run(context.Background(), newMask(t, 1, 0), &echoTask{}, false)
	assert.ErrorContains(t, err, "socket closed")
}

func TestRunEmptyMask(t *testing.T) {
	e, err := New(Config{Size: 3, Width: 2, Workers: 4})
	require.NoError(t, err)
	task := &echoTask{}

	res, err := e.Run(context.Background(), newMask(t, 3), task, false)
	require.NoError(t, err)
	assert.Empty(t, res.Tasks)
	assert.Empty(t, task.order)
}

func TestRunCancelledContext(t *testing.T) {
	e, err := New(Config{Size: 3, Width: 2})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = e.Run(ctx, newMask(t, 3, 0, 1), &echoTask{}, false)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRunIsDeterministicAcrossWorkers(t *testing.T) {
	members := make([]int, 0, 500)
	for i := 0; i < 1000; i += 2 {
		members = append(members, i)
	}

	var previous *Result
	for _, workers := range []int{1, 4, 16} {
		e, err := New(Config{Size: 1000, Width: 2, Inputs: 2, Workers: workers})
		require.NoError(t, err)
		res, err := e.Run(context.Background(), newMask(t, 1000, members...), &echoTask{}, true)
		require.NoError(t, err)
		if previous != nil {
			assert.Equal(t, previous.Tasks, res.Tasks, "workers=%d", workers)
		}
		previous = res
	}
}

func TestResultsDoNotAliasArena(t *testing.T) {
	e, err := New(Config{Size: 2, Width: 2})
	require.NoError(t, err)

	first, err := e.Run(context.Background(), newMask(t, 2, 0), &echoTask{}, false)
	require.NoError(t, err)
	first.Tasks[0].Values[0] = 99

	second, err := e.Run(context.Background(), newMask(t, 2, 0), &echoTask{}, false)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, second.Tasks[0].Values)
	assert.NotEqual(t, first.CycleID, second.CycleID)
}
