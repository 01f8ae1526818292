package paxos

import (
	"fmt"
	"sync"
)

// ProposalNumber is a cluster-wide unique, totally ordered token attached to
// a round's messages. Numbers are compared lexicographically by
// (Counter, NodeID), so two nodes can never generate equal numbers and the
// ordering is consistent everywhere.
type ProposalNumber struct {
	Counter int `json:"counter"`
	NodeID  int `json:"nodeId"`
}

// None sorts below every valid proposal number. It marks "nothing promised"
// and "nothing accepted" acceptor state.
var None = ProposalNumber{Counter: -1, NodeID: -1}

func (n ProposalNumber) IsNone() bool {
	return n == None
}

func (n ProposalNumber) GreaterThan(other ProposalNumber) bool {
	if n.Counter == other.Counter {
		return n.NodeID > other.NodeID
	}
	return n.Counter > other.Counter
}

func (n ProposalNumber) GreaterThanOrEqualTo(other ProposalNumber) bool {
	return n == other || n.GreaterThan(other)
}

func (n ProposalNumber) LessThan(other ProposalNumber) bool {
	return other.GreaterThan(n)
}

func (n ProposalNumber) String() string {
	if n.IsNone() {
		return "none"
	}
	return fmt.Sprintf("(%d,%d)", n.Counter, n.NodeID)
}

// Sequence hands out proposal numbers for one node. Every Next is strictly
// greater than anything this node has generated before, and Observe ratchets
// the counter past numbers seen from other nodes so the next attempt beats
// them too.
type Sequence struct {
	mu      sync.Mutex
	nodeID  int
	counter int
}

func NewSequence(nodeID int) *Sequence {
	return &Sequence{nodeID: nodeID}
}

// Next returns a fresh proposal number above everything generated or
// observed so far.
func (s *Sequence) Next() ProposalNumber {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	return ProposalNumber{Counter: s.counter, NodeID: s.nodeID}
}

// Observe records a proposal number seen in a rejection so that the next
// generated number is strictly greater than it.
func (s *Sequence) Observe(n ProposalNumber) {
	if n.IsNone() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.Counter > s.counter {
		s.counter = n.Counter
	}
}
