package astar

import (
	"container/heap"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Result is the outcome of a single Route call.
type Result struct {
	Path         orb.LineString
	DistanceM    float64
	Found        bool
	StartSnapped NodeID
	GoalSnapped  NodeID
}

// Route runs classical A* from start to goal over graph, snapping both
// endpoints to their nearest node first. Heuristic is great-circle distance
// to the goal; edge cost is the stored edge length, falling back to
// great-circle between endpoints. Ties in f are broken by heap insertion
// order (§4.1).
//
// start == goal returns a zero-length single-point path and Found=true, per
// the spec's "A* with start == goal returns a zero-length path" edge case.
func Route(g *Graph, start, goal orb.Point) Result {
	startID, ok := g.NearestNode(start)
	if !ok {
		return Result{}
	}
	goalID, ok := g.NearestNode(goal)
	if !ok {
		return Result{}
	}

	if startID == goalID {
		n := g.Nodes[startID]
		return Result{
			Path:         orb.LineString{n.Point},
			DistanceM:    0,
			Found:        true,
			StartSnapped: startID,
			GoalSnapped:  goalID,
		}
	}

	goalPoint := g.Nodes[goalID].Point
	heuristic := func(id NodeID) float64 {
		return geo.Distance(g.Nodes[id].Point, goalPoint)
	}

	gScore := map[NodeID]float64{startID: 0}
	cameFrom := map[NodeID]NodeID{}

	open := &nodeHeap{}
	heap.Init(open)
	inOpen := map[NodeID]*heapItem{}
	var seqCounter int
	nextSeq := func() int {
		seqCounter++
		return seqCounter
	}

	startItem := &heapItem{id: startID, f: heuristic(startID), seq: nextSeq()}
	heap.Push(open, startItem)
	inOpen[startID] = startItem

	closed := map[NodeID]bool{}

	for open.Len() > 0 {
		current := heap.Pop(open).(*heapItem)
		delete(inOpen, current.id)
		if closed[current.id] {
			continue
		}
		closed[current.id] = true

		if current.id == goalID {
			return Result{
				Path:         reconstructPath(g, cameFrom, goalID, startID),
				DistanceM:    gScore[goalID],
				Found:        true,
				StartSnapped: startID,
				GoalSnapped:  goalID,
			}
		}

		for _, edge := range g.Adjacency[current.id] {
			if closed[edge.To] {
				continue
			}
			tentativeG := gScore[current.id] + g.edgeCost(current.id, edge)
			if existing, ok := gScore[edge.To]; ok && tentativeG >= existing {
				continue
			}
			gScore[edge.To] = tentativeG
			cameFrom[edge.To] = current.id
			f := tentativeG + heuristic(edge.To)
			if item, ok := inOpen[edge.To]; ok {
				item.f = f
				heap.Fix(open, item.index)
				continue
			}
			item := &heapItem{id: edge.To, f: f, seq: nextSeq()}
			heap.Push(open, item)
			inOpen[edge.To] = item
		}
	}

	// No path found; graph disconnected between snapped endpoints (§4.1's
	// "non-fatal no_path condition").
	return Result{StartSnapped: startID, GoalSnapped: goalID}
}

func reconstructPath(g *Graph, cameFrom map[NodeID]NodeID, goalID, startID NodeID) orb.LineString {
	var ids []NodeID
	cur := goalID
	for {
		ids = append(ids, cur)
		if cur == startID {
			break
		}
		prev, ok := cameFrom[cur]
		if !ok {
			break
		}
		cur = prev
	}
	line := make(orb.LineString, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		line = append(line, g.Nodes[ids[i]].Point)
	}
	return line
}

// heapItem is a node waiting in the open set. index is the item's current
// position in the heap array, maintained by container/heap for Fix/Pop;
// seq is its original insertion order and never changes, used to break f
// ties. Open-set membership is tracked separately by Route's inOpen map
// rather than by scanning the heap.
type heapItem struct {
	id    NodeID
	f     float64
	index int
	seq   int
}

type nodeHeap []*heapItem

func (h nodeHeap) Len() int { return len(h) }

// Less ties f-score breaks by insertion order: earlier-pushed items compare
// lower when f is equal.
func (h nodeHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	return h[i].seq < h[j].seq
}

func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *nodeHeap) Push(x interface{}) {
	item := x.(*heapItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
