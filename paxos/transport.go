package paxos

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// ErrUnreachable is returned by a transport when the target node cannot be
// delivered to. The proposer treats it like any non-response: the node
// simply does not count toward quorum.
var ErrUnreachable = errors.New("paxos: node unreachable")

// Network is the delivery seam between proposers and the rest of the
// roster. The core ships an in-process implementation; a hosting system can
// substitute RPC or message queues behind the same three calls.
type Network interface {
	Prepare(ctx context.Context, to int, n ProposalNumber) (PrepareReply, error)
	Accept(ctx context.Context, to int, n ProposalNumber, v Value) (AcceptReply, error)
	Learn(ctx context.Context, to int, n ProposalNumber, v Value) error
}

// LocalNetwork delivers calls to acceptors and learners in the same
// process. Individual nodes can be taken down or given artificial delivery
// delay, which is how tests exercise partial participation and interleaved
// rounds.
type LocalNetwork struct {
	mu        sync.Mutex
	acceptors map[int]*Acceptor
	learners  map[int]*Learner
	down      map[int]bool
	delay     map[int]time.Duration
}

func NewLocalNetwork() *LocalNetwork {
	return &LocalNetwork{
		acceptors: make(map[int]*Acceptor),
		learners:  make(map[int]*Learner),
		down:      make(map[int]bool),
		delay:     make(map[int]time.Duration),
	}
}

func (ln *LocalNetwork) AddAcceptor(a *Acceptor) {
	ln.mu.Lock()
	defer ln.mu.Unlock()
	ln.acceptors[a.ID()] = a
}

func (ln *LocalNetwork) AddLearner(l *Learner) {
	ln.mu.Lock()
	defer ln.mu.Unlock()
	ln.learners[l.ID()] = l
}

// TakeDown makes a node stop answering until Restore.
func (ln *LocalNetwork) TakeDown(id int) {
	ln.mu.Lock()
	defer ln.mu.Unlock()
	ln.down[id] = true
	log.Infof("network: node %d down", id)
}

func (ln *LocalNetwork) Restore(id int) {
	ln.mu.Lock()
	defer ln.mu.Unlock()
	delete(ln.down, id)
	log.Infof("network: node %d restored", id)
}

// SetDelay delays every delivery to id by d.
func (ln *LocalNetwork) SetDelay(id int, d time.Duration) {
	ln.mu.Lock()
	defer ln.mu.Unlock()
	ln.delay[id] = d
}

// deliver applies the drop/delay policy for id before any handler runs.
func (ln *LocalNetwork) deliver(ctx context.Context, id int) error {
	ln.mu.Lock()
	dropped := ln.down[id]
	d := ln.delay[id]
	ln.mu.Unlock()

	if dropped {
		return ErrUnreachable
	}
	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return ctx.Err()
}

func (ln *LocalNetwork) Prepare(ctx context.Context, to int, n ProposalNumber) (PrepareReply, error) {
	if err := ln.deliver(ctx, to); err != nil {
		return PrepareReply{}, err
	}
	ln.mu.Lock()
	a, ok := ln.acceptors[to]
	ln.mu.Unlock()
	if !ok {
		return PrepareReply{}, ErrUnreachable
	}
	return a.Prepare(n), nil
}

func (ln *LocalNetwork) Accept(ctx context.Context, to int, n ProposalNumber, v Value) (AcceptReply, error) {
	if err := ln.deliver(ctx, to); err != nil {
		return AcceptReply{}, err
	}
	ln.mu.Lock()
	a, ok := ln.acceptors[to]
	ln.mu.Unlock()
	if !ok {
		return AcceptReply{}, ErrUnreachable
	}
	return a.Accept(n, v), nil
}

func (ln *LocalNetwork) Learn(ctx context.Context, to int, n ProposalNumber, v Value) error {
	if err := ln.deliver(ctx, to); err != nil {
		return err
	}
	ln.mu.Lock()
	l, ok := ln.learners[to]
	ln.mu.Unlock()
	if !ok {
		return ErrUnreachable
	}
	l.Learn(n, v)
	return nil
}
