package models

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func testEnv(name ResourceName, depends ...ResourceName) *Environment {
	return &Environment{
		Name:     name,
		Commands: Commands{"true"},
		Depends:  depends,
	}
}

func toGraphNodes(envs ...*Environment) []GraphNode {
	nodes := make([]GraphNode, len(envs))
	for i, env := range envs {
		nodes[i] = env
	}
	return nodes
}

func TestDAGSerialWalkOrder(t *testing.T) {
	dag, err := NewDAG(toGraphNodes(
		testEnv("docs", "test"),
		testEnv("test"),
		testEnv("lint", "test"),
	))
	require.NoError(t, err)

	var visited []ResourceName
	err = dag.Walk(false, func(node GraphNode) error {
		visited = append(visited, node.GetFQN())
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []ResourceName{"test", "docs", "lint"}, visited)
}

func TestDAGSerialWalkStopsOnError(t *testing.T) {
	dag, err := NewDAG(toGraphNodes(
		testEnv("test"),
		testEnv("lint", "test"),
		testEnv("docs", "lint"),
	))
	require.NoError(t, err)

	var visited []ResourceName
	err = dag.Walk(false, func(node GraphNode) error {
		visited = append(visited, node.GetFQN())
		if node.GetFQN() == "lint" {
			return errors.New("lint failed")
		}
		return nil
	})
	require.Error(t, err)
	require.Equal(t, []ResourceName{"test", "lint"}, visited)
}

func TestDAGParallelWalkVisitsDependenciesFirst(t *testing.T) {
	dag, err := NewDAG(toGraphNodes(
		testEnv("a"),
		testEnv("b", "a"),
		testEnv("c", "a"),
		testEnv("d", "b", "c"),
	))
	require.NoError(t, err)

	var (
		mu      sync.Mutex
		visited = make(map[ResourceName]int)
		order   int
	)
	err = dag.Walk(true, func(node GraphNode) error {
		mu.Lock()
		defer mu.Unlock()
		order++
		visited[node.GetFQN()] = order
		return nil
	})
	require.NoError(t, err)
	require.Len(t, visited, 4)
	require.Less(t, visited["a"], visited["b"])
	require.Less(t, visited["a"], visited["c"])
	require.Less(t, visited["b"], visited["d"])
	require.Less(t, visited["c"], visited["d"])
}

func TestDAGParallelWalkAccumulatesErrors(t *testing.T) {
	dag, err := NewDAG(toGraphNodes(
		testEnv("a"),
		testEnv("b"),
		testEnv("c", "a", "b"),
	))
	require.NoError(t, err)

	err = dag.Walk(true, func(node GraphNode) error {
		if node.GetFQN() != "c" {
			return errors.Errorf("%s failed", node.GetFQN())
		}
		return nil
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "a failed")
	require.Contains(t, err.Error(), "b failed")
}

func TestDAGRejectsCycles(t *testing.T) {
	_, err := NewDAG(toGraphNodes(
		testEnv("a", "b"),
		testEnv("b", "a"),
	))
	require.Error(t, err)
	require.Contains(t, err.Error(), "cycle")
}

func TestDAGRejectsUnknownDependency(t *testing.T) {
	_, err := NewDAG(toGraphNodes(testEnv("a", "missing")))
	require.Error(t, err)
}

func TestDAGAncestors(t *testing.T) {
	dag, err := NewDAG(toGraphNodes(
		testEnv("a"),
		testEnv("b", "a"),
		testEnv("c", "b"),
	))
	require.NoError(t, err)
	ancestors, err := dag.Ancestors("c")
	require.NoError(t, err)
	require.Equal(t, []ResourceName{"a", "b"}, ancestors)
}
