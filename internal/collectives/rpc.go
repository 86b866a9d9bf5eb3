package collectives

import (
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"sync"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
)

// Topology names every peer's rank and network address for the RPC
// transport, decoded from a TOML file:
//
//	[[peer]]
//	rank = 0
//	addr = "10.0.0.1:7001"
type Topology struct {
	Peer []TopologyPeer `toml:"peer"`
}

// TopologyPeer is one entry of a Topology.
type TopologyPeer struct {
	Rank int    `toml:"rank"`
	Addr string `toml:"addr"`
}

// LoadTopology decodes a peer-group topology file and returns addresses
// indexed by rank, validating that every rank in [0, len) is present
// exactly once.
func LoadTopology(path string) ([]string, error) {
	var top Topology
	if _, err := toml.DecodeFile(path, &top); err != nil {
		return nil, fmt.Errorf("decode topology %s: %w", path, err)
	}
	addrs := make([]string, len(top.Peer))
	seen := make([]bool, len(top.Peer))
	for _, p := range top.Peer {
		if p.Rank < 0 || p.Rank >= len(addrs) {
			return nil, fmt.Errorf("topology %s: rank %d out of range [0,%d)", path, p.Rank, len(addrs))
		}
		if seen[p.Rank] {
			return nil, fmt.Errorf("topology %s: rank %d listed twice", path, p.Rank)
		}
		seen[p.Rank] = true
		addrs[p.Rank] = p.Addr
	}
	for r, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("topology %s: rank %d missing", path, r)
		}
	}
	return addrs, nil
}

// ContributeArgs is the wire message one peer sends another to deliver
// its contribution to a pending allgather round, generalising the
// teacher's MessageBatch envelope from "batch of graph messages" to
// "one collective's worth of payload".
type ContributeArgs struct {
	Key       string
	ChildRank int
	Size      int
	Payload   Payload
}

// Ack mirrors the teacher's common.Ack.
type Ack struct {
	OK bool
}

// Peer is the RPC service every process in an RPC-transport run
// registers and serves. It is the single process-wide collectives
// handle for the RPC transport: one Peer per process, created once at
// startup and closed once the run completes.
type Peer struct {
	rank  int
	addrs []string
	log   *zap.SugaredLogger

	mu      sync.Mutex
	cond    *sync.Cond
	clients map[int]*rpc.Client
	inbox   map[string]map[int]Payload

	listener net.Listener
}

// NewPeer dials nothing yet; it only opens this rank's listener and
// starts serving. Outbound connections are dialled lazily, by the
// first allgather that needs to reach each peer.
func NewPeer(rank int, addrs []string, log *zap.SugaredLogger) (*Peer, error) {
	p := &Peer{
		rank:    rank,
		addrs:   addrs,
		log:     log,
		clients: make(map[int]*rpc.Client),
		inbox:   make(map[string]map[int]Payload),
	}
	p.cond = sync.NewCond(&p.mu)

	server := rpc.NewServer()
	if err := server.RegisterName("Peer", (*peerRPCFacade)(p)); err != nil {
		return nil, fmt.Errorf("register rpc service: %w", err)
	}
	l, err := net.Listen("tcp", addrs[rank])
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addrs[rank], err)
	}
	p.listener = l

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go server.ServeCodec(jsonrpc.NewServerCodec(conn))
		}
	}()
	return p, nil
}

// peerRPCFacade exists only so Contribute's receiver satisfies
// net/rpc's exported-method convention without exposing internal
// helper methods of Peer as RPC-callable.
type peerRPCFacade Peer

// Contribute is the RPC endpoint peers call to deliver one round's
// payload.
func (f *peerRPCFacade) Contribute(args *ContributeArgs, reply *Ack) error {
	p := (*Peer)(f)
	p.deliver(args.Key, args.ChildRank, args.Size, args.Payload)
	reply.OK = true
	return nil
}

func (p *Peer) deliver(key string, childRank, size int, payload Payload) {
	p.mu.Lock()
	if p.inbox[key] == nil {
		p.inbox[key] = make(map[int]Payload, size)
	}
	p.inbox[key][childRank] = payload
	p.cond.Broadcast()
	p.mu.Unlock()
}

func (p *Peer) waitFor(key string, size int) []Payload {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.inbox[key]) < size {
		p.cond.Wait()
	}
	out := make([]Payload, size)
	for r, v := range p.inbox[key] {
		out[r] = v
	}
	delete(p.inbox, key)
	return out
}

func (p *Peer) dial(rootRank int) (*rpc.Client, error) {
	p.mu.Lock()
	if c, ok := p.clients[rootRank]; ok {
		p.mu.Unlock()
		return c, nil
	}
	p.mu.Unlock()

	conn, err := net.Dial("tcp", p.addrs[rootRank])
	if err != nil {
		return nil, fmt.Errorf("dial peer %d at %s: %w", rootRank, p.addrs[rootRank], err)
	}
	client := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))

	p.mu.Lock()
	p.clients[rootRank] = client
	p.mu.Unlock()
	return client, nil
}

// Close shuts down the listener and every outbound client connection.
func (p *Peer) Close() error {
	p.mu.Lock()
	clients := make([]*rpc.Client, 0, len(p.clients))
	for _, c := range p.clients {
		clients = append(clients, c)
	}
	p.mu.Unlock()
	for _, c := range clients {
		c.Close()
	}
	return p.listener.Close()
}

// rpcTransport is one Group's view of a Peer, scoped to a (possibly
// nested) subgroup of the root peer set.
type rpcTransport struct {
	svc         *Peer
	groupID     string
	members     []int // root ranks, in local-rank order
	myLocalRank int
	sz          int
	round       int
	subSeq      int
}

// NewRootRPCGroup builds the top-level Group for this process's Peer.
func NewRootRPCGroup(svc *Peer, size int) *Group {
	members := make([]int, size)
	for i := range members {
		members[i] = i
	}
	return &Group{t: &rpcTransport{svc: svc, groupID: "root", members: members, myLocalRank: svc.rank, sz: size}}
}

func (t *rpcTransport) rank() int { return t.myLocalRank }
func (t *rpcTransport) size() int { return t.sz }

func (t *rpcTransport) allgather(p Payload) ([]Payload, error) {
	key := fmt.Sprintf("%s#%d", t.groupID, t.round)
	t.round++

	t.svc.deliver(key, t.myLocalRank, t.sz, p)

	var wg sync.WaitGroup
	errs := make(chan error, len(t.members))
	for i, rootRank := range t.members {
		if i == t.myLocalRank {
			continue
		}
		i, rootRank := i, rootRank
		wg.Add(1)
		go func() {
			defer wg.Done()
			client, err := t.svc.dial(rootRank)
			if err != nil {
				errs <- err
				return
			}
			args := &ContributeArgs{Key: key, ChildRank: t.myLocalRank, Size: t.sz, Payload: p}
			var reply Ack
			if err := client.Call("Peer.Contribute", args, &reply); err != nil {
				errs <- fmt.Errorf("contribute to rank %d: %w", i, err)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return t.svc.waitFor(key, t.sz), nil
}

func (t *rpcTransport) subset(localMembers []int) (transport, int) {
	childID := fmt.Sprintf("%s:%d", t.groupID, t.subSeq)
	t.subSeq++

	myChildRank := -1
	rootMembers := make([]int, len(localMembers))
	for i, lr := range localMembers {
		rootMembers[i] = t.members[lr]
		if lr == t.myLocalRank {
			myChildRank = i
		}
	}
	if myChildRank < 0 {
		return nil, -1
	}
	return &rpcTransport{
		svc:         t.svc,
		groupID:     childID,
		members:     rootMembers,
		myLocalRank: myChildRank,
		sz:          len(rootMembers),
	}, myChildRank
}

func (t *rpcTransport) close() error { return nil }
