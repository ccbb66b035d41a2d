package models

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// GraphNode represents a node in the DAG.
type GraphNode interface {
	// GetFQN returns the unique name/identifier for this node.
	GetFQN() ResourceName
	// GetFQNDependencies returns a list of nodes by name that this node depends on.
	GetFQNDependencies() []ResourceName
}

// DAG represents a directed acyclic graph useful for expressing dependencies
// between environments.
type DAG struct {
	// nodes in declaration order; the serial walk visits them in a topological
	// order that preserves this order between independent nodes.
	nodes      []GraphNode
	byName     map[ResourceName]GraphNode
	dependents map[ResourceName][]ResourceName
	indegree   map[ResourceName]int
}

// NewDAG creates a new DAG containing the specified nodes.
// The DAG is validated after construction and any validation errors are returned.
func NewDAG(vertices []GraphNode) (*DAG, error) {
	m := &DAG{
		byName:     make(map[ResourceName]GraphNode, len(vertices)),
		dependents: make(map[ResourceName][]ResourceName),
		indegree:   make(map[ResourceName]int, len(vertices)),
	}

	// First pass - add all vertices
	for _, vertex := range vertices {
		name := vertex.GetFQN()
		if _, ok := m.byName[name]; ok {
			return nil, fmt.Errorf("error duplicate vertex: %s", name)
		}
		m.byName[name] = vertex
		m.indegree[name] = 0
	}

	// Second pass - add all edges
	for _, vertex := range vertices {
		name := vertex.GetFQN()
		for _, dependency := range vertex.GetFQNDependencies() {
			if _, ok := m.byName[dependency]; !ok {
				return nil, fmt.Errorf("error unknown vertex: %s", dependency)
			}
			m.dependents[dependency] = append(m.dependents[dependency], name)
			m.indegree[name]++
		}
	}

	// Order the nodes topologically, keeping declaration order between
	// independent nodes. If not every node can be ordered there is a cycle.
	var (
		ordered  []GraphNode
		indegree = make(map[ResourceName]int, len(m.indegree))
		pending  = append([]GraphNode(nil), vertices...)
	)
	for name, n := range m.indegree {
		indegree[name] = n
	}
	for len(ordered) < len(vertices) {
		progressed := false
		for i := 0; i < len(pending); i++ {
			vertex := pending[i]
			if indegree[vertex.GetFQN()] != 0 {
				continue
			}
			ordered = append(ordered, vertex)
			pending = append(pending[:i], pending[i+1:]...)
			i--
			for _, dependent := range m.dependents[vertex.GetFQN()] {
				indegree[dependent]--
			}
			progressed = true
		}
		if !progressed {
			return nil, fmt.Errorf("error validating dependencies: dependency cycle involving: %s", pending[0].GetFQN())
		}
	}
	m.nodes = ordered

	return m, nil
}

// Nodes returns the graph's nodes in topological order.
func (m *DAG) Nodes() []GraphNode {
	return m.nodes
}

// Ancestors returns the names of all (transitive) dependencies of the specified vertex.
func (m *DAG) Ancestors(of ResourceName) ([]ResourceName, error) {
	node, ok := m.byName[of]
	if !ok {
		return nil, fmt.Errorf("error unknown vertex: %s", of)
	}
	seen := make(map[ResourceName]bool)
	var visit func(n GraphNode)
	visit = func(n GraphNode) {
		for _, dep := range n.GetFQNDependencies() {
			if !seen[dep] {
				seen[dep] = true
				visit(m.byName[dep])
			}
		}
	}
	visit(node)
	var names []ResourceName
	for _, n := range m.nodes {
		if seen[n.GetFQN()] {
			names = append(names, n.GetFQN())
		}
	}
	return names, nil
}

// Walk the DAG visiting each node once, after that node's dependencies have been visited.
// If parallel is true, the walk will be performed in parallel, and errors (if any) will be
// accumulated and returned at the end. If parallel is false, the walk will be performed in
// series, and the first error (if any) will immediately cause the walk to fail and that error
// will be returned.
//
// NOTE: The parallel walk continues on error; it is the caller's job to decide
// what a failed dependency means for its dependents (e.g. skip them).
func (m *DAG) Walk(parallel bool, callback func(GraphNode) error) error {
	if !parallel {
		for _, node := range m.nodes {
			err := callback(node)
			if err != nil {
				return err
			}
		}
		return nil
	}

	var (
		wg         sync.WaitGroup
		resultLock sync.Mutex
		result     *multierror.Error
		doneByName = make(map[ResourceName]chan struct{}, len(m.nodes))
	)
	for _, node := range m.nodes {
		doneByName[node.GetFQN()] = make(chan struct{})
	}
	for _, node := range m.nodes {
		wg.Add(1)
		go func(node GraphNode) {
			defer wg.Done()
			defer close(doneByName[node.GetFQN()])
			for _, dep := range node.GetFQNDependencies() {
				<-doneByName[dep]
			}
			err := callback(node)
			if err != nil {
				resultLock.Lock()
				result = multierror.Append(result, err)
				resultLock.Unlock()
			}
		}(node)
	}
	wg.Wait()

	return result.ErrorOrNil()
}
