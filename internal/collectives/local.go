package collectives

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// hub is a reusable rendezvous barrier for a fixed number of peers: every
// member contributes one Payload per round and, once the last member
// arrives, every member's contribution is snapshotted and handed back to
// all of them. It plays the role the teacher's WorkerService inbox
// (guarded by msgMu) plays for message batches, generalised into a
// synchronous barrier since every peer here runs the identical call
// sequence in lockstep rather than exchanging asynchronous messages.
type hub struct {
	mu           sync.Mutex
	cond         *sync.Cond
	size         int
	round        int
	arrived      int
	slots        []Payload
	lastSnapshot []Payload
}

func newHub(size int) *hub {
	h := &hub{size: size, slots: make([]Payload, size)}
	h.cond = sync.NewCond(&h.mu)
	return h
}

func (h *hub) allgather(rank int, p Payload) []Payload {
	h.mu.Lock()
	defer h.mu.Unlock()
	myRound := h.round
	h.slots[rank] = p
	h.arrived++
	if h.arrived == h.size {
		h.lastSnapshot = append([]Payload(nil), h.slots...)
		h.arrived = 0
		h.round++
		h.cond.Broadcast()
		return h.lastSnapshot
	}
	for h.round == myRound {
		h.cond.Wait()
	}
	return h.lastSnapshot
}

// world holds every hub created by one process's local peer group,
// keyed by group id. It is the local transport's collectives-layer
// handle: created once by NewLocalGroups and shared by every Group
// derived from it. Closing a local Group releases nothing; the world
// lives as long as any Group still refers to it.
type world struct {
	mu   sync.Mutex
	hubs map[string]*hub
}

func newWorld() *world { return &world{hubs: make(map[string]*hub)} }

func (w *world) getOrCreate(id string, size int) *hub {
	w.mu.Lock()
	defer w.mu.Unlock()
	if h, ok := w.hubs[id]; ok {
		return h
	}
	h := newHub(size)
	w.hubs[id] = h
	return h
}

type localTransport struct {
	world   *world
	groupID string
	hub     *hub
	myRank  int
	sz      int
	subSeq  int
}

func (t *localTransport) rank() int { return t.myRank }
func (t *localTransport) size() int { return t.sz }

func (t *localTransport) allgather(p Payload) ([]Payload, error) {
	return t.hub.allgather(t.myRank, p), nil
}

func (t *localTransport) subset(members []int) (transport, int) {
	childID := fmt.Sprintf("%s:%d", t.groupID, t.subSeq)
	t.subSeq++

	myChildRank := -1
	for i, r := range members {
		if r == t.myRank {
			myChildRank = i
			break
		}
	}
	if myChildRank < 0 {
		return nil, -1
	}
	childHub := t.world.getOrCreate(childID, len(members))
	return &localTransport{world: t.world, groupID: childID, hub: childHub, myRank: myChildRank, sz: len(members)}, myChildRank
}

func (t *localTransport) close() error { return nil }

// NewLocalGroups builds size in-process peer groups sharing one world,
// one per rank, ready to hand to size goroutines.
func NewLocalGroups(size int) []*Group {
	w := newWorld()
	root := w.getOrCreate("root", size)
	groups := make([]*Group, size)
	for r := 0; r < size; r++ {
		groups[r] = &Group{t: &localTransport{world: w, groupID: "root", hub: root, myRank: r, sz: size}}
	}
	return groups
}

// RunLocal spawns one goroutine per peer group and runs fn on each,
// under an errgroup so the first peer error cancels the run and is
// returned to the caller. fn is expected to loop until its own
// TestAll-driven termination condition, ignoring ctx except to notice
// cancellation from a sibling's failure via ctx.Err() if it wishes.
func RunLocal(groups []*Group, fn func(g *Group) error) error {
	var eg errgroup.Group
	for _, gr := range groups {
		gr := gr
		eg.Go(func() error { return fn(gr) })
	}
	return eg.Wait()
}
