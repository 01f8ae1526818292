package paxos

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Config bounds a round's patience. Retrying is a liveness knob, never a
// safety one: exhausting MaxAttempts reports a failed round, it does not
// loosen any guard.
type Config struct {
	// MaxAttempts is how many prepare/accept cycles a round may burn
	// before reporting QuorumFailed.
	MaxAttempts int
	// PhaseTimeout caps how long one prepare or accept fan-out waits for
	// respondents.
	PhaseTimeout time.Duration
	// RetryBackoff is the upper bound of the randomized sleep between
	// attempts.
	RetryBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 8
	}
	if c.PhaseTimeout <= 0 {
		c.PhaseTimeout = time.Second
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 50 * time.Millisecond
	}
	return c
}

// QuorumSize is the majority threshold for a roster of totalNodes
// acceptor-capable nodes.
func QuorumSize(totalNodes int) int {
	return totalNodes/2 + 1
}

// ErrNotAcceptor is returned when a round names a node outside the
// acceptor-capable roster as proposer. Learner-only nodes cannot propose.
var ErrNotAcceptor = errors.New("paxos: node is not acceptor-capable")

// ProposerPicker chooses the proposing node for a round from the
// acceptor-capable roster. Selection policy (random, rotating, external)
// belongs to the caller, not to the core.
type ProposerPicker func(acceptorIDs []int) int

// Cluster owns the fixed roster and sequences rounds over it. Acceptors
// double as potential proposers; learners are a disjoint set that never
// proposes or accepts. The roster never changes for the cluster's lifetime,
// and the cluster never touches an acceptor's state directly; everything
// goes through Prepare/Accept/Learn.
type Cluster struct {
	cfg Config
	net *LocalNetwork

	acceptors   map[int]*Acceptor
	acceptorIDs []int
	learners    map[int]*Learner
	learnerIDs  []int
	seqs        map[int]*Sequence

	mu       sync.Mutex
	decision *Decision
}

// NewCluster builds a roster of numAcceptors acceptor-capable nodes
// (node ids 1..numAcceptors) and numLearners learner-only nodes (ids
// following the acceptors), wired over an in-process network.
func NewCluster(numAcceptors, numLearners int) *Cluster {
	return NewClusterWithConfig(numAcceptors, numLearners, Config{})
}

func NewClusterWithConfig(numAcceptors, numLearners int, cfg Config) *Cluster {
	c := &Cluster{
		cfg:       cfg.withDefaults(),
		net:       NewLocalNetwork(),
		acceptors: make(map[int]*Acceptor),
		learners:  make(map[int]*Learner),
		seqs:      make(map[int]*Sequence),
	}
	for id := 1; id <= numAcceptors; id++ {
		a := NewAcceptor(id)
		c.acceptors[id] = a
		c.acceptorIDs = append(c.acceptorIDs, id)
		c.seqs[id] = NewSequence(id)
		c.net.AddAcceptor(a)
	}
	for id := numAcceptors + 1; id <= numAcceptors+numLearners; id++ {
		l := NewLearner(id)
		c.learners[id] = l
		c.learnerIDs = append(c.learnerIDs, id)
		c.net.AddLearner(l)
	}
	return c
}

// Quorum is the majority threshold for this roster.
func (c *Cluster) Quorum() int {
	return QuorumSize(len(c.acceptorIDs))
}

// RunRound makes proposerID drive one round for candidate. Once any round
// has committed, every later committed round reproduces the same value
// under a new, higher proposal number, whatever candidate it started with.
func (c *Cluster) RunRound(ctx context.Context, proposerID int, candidate Value) (Outcome, error) {
	seq, ok := c.seqs[proposerID]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: node %d", ErrNotAcceptor, proposerID)
	}
	p := NewProposer(proposerID, seq, c.net, c.acceptorIDs, c.learnerIDs, c.cfg)
	out := p.RunRound(ctx, candidate)
	if out.Committed {
		c.recordDecision(out.Decision)
	}
	return out, nil
}

// RunRoundPicked is RunRound with the proposer chosen by the caller's
// policy.
func (c *Cluster) RunRoundPicked(ctx context.Context, pick ProposerPicker, candidate Value) (Outcome, error) {
	return c.RunRound(ctx, pick(c.AcceptorIDs()), candidate)
}

func (c *Cluster) recordDecision(d Decision) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// first commit wins; later commits re-prove the same value under a
	// higher number
	if c.decision == nil {
		c.decision = &d
		return
	}
	if d.N.GreaterThan(c.decision.N) {
		c.decision = &d
	}
}

// Decision returns the committed decision observed so far; ok is false
// before the first committed round.
func (c *Cluster) Decision() (d Decision, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.decision == nil {
		return Decision{}, false
	}
	return *c.decision, true
}

// AcceptorIDs returns the acceptor-capable roster.
func (c *Cluster) AcceptorIDs() []int {
	return append([]int(nil), c.acceptorIDs...)
}

// LearnerIDs returns the learner-only roster.
func (c *Cluster) LearnerIDs() []int {
	return append([]int(nil), c.learnerIDs...)
}

// Acceptor returns the acceptor for a node id, nil for learner-only or
// unknown ids.
func (c *Cluster) Acceptor(id int) *Acceptor {
	return c.acceptors[id]
}

// Learner returns the learner for a node id, nil otherwise.
func (c *Cluster) Learner(id int) *Learner {
	return c.learners[id]
}

// Network exposes the in-process transport for fault injection.
func (c *Cluster) Network() *LocalNetwork {
	return c.net
}
