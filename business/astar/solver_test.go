package astar

import (
	"testing"

	"github.com/matryer/is"
	"github.com/paulmach/orb"
)

// line graph: a -- b -- c -- d, straight east along the equator. Each edge
// stores 1000 m, somewhat less than the ~1113 m great-circle spacing, so the
// expected distance is the sum of the stored lengths.
func lineGraph() *Graph {
	g := NewGraph("all")
	g.AddNode(Node{ID: "a", Point: orb.Point{0.00, 0}})
	g.AddNode(Node{ID: "b", Point: orb.Point{0.01, 0}})
	g.AddNode(Node{ID: "c", Point: orb.Point{0.02, 0}})
	g.AddNode(Node{ID: "d", Point: orb.Point{0.03, 0}})
	g.AddEdge("a", "b", 1000)
	g.AddEdge("b", "a", 1000)
	g.AddEdge("b", "c", 1000)
	g.AddEdge("c", "b", 1000)
	g.AddEdge("c", "d", 1000)
	g.AddEdge("d", "c", 1000)
	return g
}

func TestRoute_findsShortestPath(t *testing.T) {
	is := is.New(t)
	g := lineGraph()

	result := Route(g, orb.Point{0, 0}, orb.Point{0.03, 0})
	is.True(result.Found)
	is.Equal(result.StartSnapped, NodeID("a"))
	is.Equal(result.GoalSnapped, NodeID("d"))
	is.Equal(len(result.Path), 4)
	is.Equal(result.DistanceM, 3000.0)
}

func TestRoute_startEqualsGoal(t *testing.T) {
	is := is.New(t)
	g := lineGraph()

	result := Route(g, orb.Point{0, 0}, orb.Point{0, 0})
	is.True(result.Found)
	is.Equal(result.DistanceM, 0.0)
	is.Equal(len(result.Path), 1)
}

func TestRoute_disconnectedGraphReturnsNotFound(t *testing.T) {
	is := is.New(t)
	g := NewGraph("all")
	g.AddNode(Node{ID: "a", Point: orb.Point{0, 0}})
	g.AddNode(Node{ID: "island", Point: orb.Point{1, 1}})

	result := Route(g, orb.Point{0, 0}, orb.Point{1, 1})
	is.True(!result.Found)
}

func TestRoute_fallsBackToGreatCircleWhenEdgeLengthMissing(t *testing.T) {
	is := is.New(t)
	g := NewGraph("all")
	g.AddNode(Node{ID: "a", Point: orb.Point{0, 0}})
	g.AddNode(Node{ID: "b", Point: orb.Point{0.01, 0}})
	g.AddEdge("a", "b", 0)
	g.AddEdge("b", "a", 0)

	result := Route(g, orb.Point{0, 0}, orb.Point{0.01, 0})
	is.True(result.Found)
	is.True(result.DistanceM > 0)
}

func TestNewBBox_padsEnvelope(t *testing.T) {
	is := is.New(t)
	bbox := NewBBox(orb.Point{10, 20}, orb.Point{11, 19}, 0.01)
	is.Equal(bbox.MinLon, 9.99)
	is.Equal(bbox.MaxLon, 11.01)
	is.Equal(bbox.MinLat, 18.99)
	is.Equal(bbox.MaxLat, 20.01)
}
