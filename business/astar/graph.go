// Package astar builds a drivable/walkable road graph over a bounding box
// and finds the shortest path on it (C1). The graph itself is supplied by a
// GraphSource collaborator — typically an OSM-derived cache refreshed over
// foundation/httpclient — so this package never fetches map data itself.
package astar

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// NodeID identifies a graph vertex. Its concrete representation is owned by
// the GraphSource (e.g. an OSM node id); astar treats it as an opaque key.
type NodeID string

// Node is a single graph vertex.
type Node struct {
	ID    NodeID
	Point orb.Point // [lon, lat]
}

// Edge is a directed connection from one node to another. LengthMeters is the
// stored edge weight; when zero it falls back to great-circle distance
// between the endpoints (spec bbox/network_type semantics).
type Edge struct {
	To           NodeID
	LengthMeters float64
}

// BBox is a padded bounding box in degrees, built from two endpoints.
type BBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// BBoxPaddingDegrees is the default pad applied to the {start, goal} envelope
// before loading a graph, matching the 0.01° padding carried from the
// original pathfinder.
const BBoxPaddingDegrees = 0.01

// NewBBox builds a padded bounding box around two points.
func NewBBox(a, b orb.Point, pad float64) BBox {
	minLon, maxLon := a[0], b[0]
	if minLon > maxLon {
		minLon, maxLon = maxLon, minLon
	}
	minLat, maxLat := a[1], b[1]
	if minLat > maxLat {
		minLat, maxLat = maxLat, minLat
	}
	return BBox{
		MinLon: minLon - pad,
		MinLat: minLat - pad,
		MaxLon: maxLon + pad,
		MaxLat: maxLat + pad,
	}
}

// Graph is an adjacency-list road graph for a single bbox query. NetworkType
// records which edge set the source loaded (default "all": walking +
// driving, per the carried-over pathfinder semantics).
type Graph struct {
	NetworkType string
	Nodes       map[NodeID]Node
	Adjacency   map[NodeID][]Edge
}

// NewGraph returns an empty graph ready for AddNode/AddEdge.
func NewGraph(networkType string) *Graph {
	if networkType == "" {
		networkType = "all"
	}
	return &Graph{
		NetworkType: networkType,
		Nodes:       make(map[NodeID]Node),
		Adjacency:   make(map[NodeID][]Edge),
	}
}

// AddNode registers a vertex.
func (g *Graph) AddNode(n Node) {
	g.Nodes[n.ID] = n
}

// AddEdge registers a directed edge. Pass lengthMeters <= 0 to have the edge
// cost computed from great-circle distance at solve time.
func (g *Graph) AddEdge(from NodeID, to NodeID, lengthMeters float64) {
	g.Adjacency[from] = append(g.Adjacency[from], Edge{To: to, LengthMeters: lengthMeters})
}

// edgeCost returns the stored edge length, falling back to great-circle
// distance between the endpoints when the source didn't supply one.
func (g *Graph) edgeCost(from NodeID, e Edge) float64 {
	if e.LengthMeters > 0 {
		return e.LengthMeters
	}
	a, aok := g.Nodes[from]
	b, bok := g.Nodes[e.To]
	if !aok || !bok {
		return math.Inf(1)
	}
	return geo.Distance(a.Point, b.Point)
}

// NearestNode snaps a coordinate to the closest graph node by Euclidean XY,
// matching the spec's "snap start/goal to nearest graph nodes by Euclidean
// XY" rule (graph extents are small enough that XY vs great-circle doesn't
// change the winner).
func (g *Graph) NearestNode(p orb.Point) (NodeID, bool) {
	var best NodeID
	bestDist := math.Inf(1)
	found := false
	for id, n := range g.Nodes {
		dx := n.Point[0] - p[0]
		dy := n.Point[1] - p[1]
		d := dx*dx + dy*dy
		if d < bestDist {
			bestDist = d
			best = id
			found = true
		}
	}
	return best, found
}

// GraphSource loads a road graph covering bbox. Implementations are expected
// to cache by bbox, since per-invocation construction is allowed but
// expensive.
type GraphSource interface {
	LoadGraph(bbox BBox) (*Graph, error)
}

// ErrEmptyGraph is returned by FindAndSave when the source produced a graph with
// no nodes for the requested bbox.
var ErrEmptyGraph = fmt.Errorf("astar: graph source returned no nodes for bbox")
