package depgraph

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Sort returns every ref of g (roots and referenced refs) ordered so that a
// ref comes after all refs it directly depends on. Members of a dependency
// cycle cannot satisfy that; each cycle is emitted as one block, sorted by
// ref, at the position its component takes in the order.
func Sort(g *Graph) ([]string, error) {
	dg := simple.NewDirectedGraph()

	refToID := make(map[string]int64)
	idToRef := make(map[int64]string)
	addNode := func(ref string) int64 {
		if id, ok := refToID[ref]; ok {
			return id
		}
		id := int64(len(refToID) + 1)
		refToID[ref] = id
		idToRef[id] = ref
		dg.AddNode(simple.Node(id))
		return id
	}

	for _, ref := range g.Roots {
		addNode(ref)
	}
	for _, ref := range sortedKeys(g.Direct) {
		from := addNode(ref)
		for _, dep := range g.Direct[ref].Sorted() {
			to := addNode(dep)
			if from == to {
				// Self references are handled by lazy wrapping, not ordering.
				continue
			}
			// Edges point from dependency to dependent.
			dg.SetEdge(simple.Edge{F: simple.Node(to), T: simple.Node(from)})
		}
	}

	byRef := func(nodes []graph.Node) {
		slices.SortFunc(nodes, func(a, b graph.Node) int {
			return strings.Compare(idToRef[a.ID()], idToRef[b.ID()])
		})
	}

	sorted, err := topo.SortStabilized(dg, byRef)
	var cycles topo.Unorderable
	if err != nil && !errors.As(err, &cycles) {
		return nil, fmt.Errorf("failed to sort schema dependencies: %w", err)
	}

	result := make([]string, 0, len(refToID))
	next := 0
	for _, node := range sorted {
		if node != nil {
			result = append(result, idToRef[node.ID()])
			continue
		}
		// A nil slot marks where the next cyclic component belongs.
		if next >= len(cycles) {
			return nil, fmt.Errorf("failed to sort schema dependencies: missing cyclic component")
		}
		component := slices.Clone(cycles[next])
		next++
		byRef(component)
		for _, n := range component {
			result = append(result, idToRef[n.ID()])
		}
	}

	return result, nil
}
