package paxos

import "testing"

func TestProposalNumberOrdering(t *testing.T) {
	cases := []struct {
		a, b    ProposalNumber
		greater bool
	}{
		{ProposalNumber{2, 1}, ProposalNumber{1, 3}, true},
		{ProposalNumber{1, 3}, ProposalNumber{2, 1}, false},
		{ProposalNumber{1, 2}, ProposalNumber{1, 1}, true},
		{ProposalNumber{1, 1}, ProposalNumber{1, 1}, false},
		{ProposalNumber{0, 1}, None, true},
		{None, ProposalNumber{0, 1}, false},
	}
	for _, c := range cases {
		if got := c.a.GreaterThan(c.b); got != c.greater {
			t.Errorf("%v > %v: got %v, want %v", c.a, c.b, got, c.greater)
		}
	}
	if !None.IsNone() {
		t.Error("None.IsNone() is false")
	}
	if (ProposalNumber{1, 1}).IsNone() {
		t.Error("valid number reported as none")
	}
}

func TestSequenceUniqueAcrossNodes(t *testing.T) {
	s1 := NewSequence(1)
	s2 := NewSequence(2)
	seen := make(map[ProposalNumber]bool)
	for i := 0; i < 100; i++ {
		for _, n := range []ProposalNumber{s1.Next(), s2.Next()} {
			if seen[n] {
				t.Fatalf("duplicate proposal number generated: %v", n)
			}
			seen[n] = true
		}
	}
}

func TestSequenceMonotonic(t *testing.T) {
	s := NewSequence(1)
	prev := None
	for i := 0; i < 50; i++ {
		n := s.Next()
		if !n.GreaterThan(prev) {
			t.Fatalf("Next() not increasing: %v after %v", n, prev)
		}
		prev = n
	}
}

func TestSequenceObserveRatchets(t *testing.T) {
	s := NewSequence(1)
	s.Observe(ProposalNumber{Counter: 5, NodeID: 2})
	n := s.Next()
	if !n.GreaterThan(ProposalNumber{Counter: 5, NodeID: 2}) {
		t.Errorf("Next() = %v, want greater than (5,2)", n)
	}
	// observing None or something already passed must not move backwards
	s.Observe(None)
	s.Observe(ProposalNumber{Counter: 1, NodeID: 9})
	n2 := s.Next()
	if !n2.GreaterThan(n) {
		t.Errorf("Next() = %v after %v, sequence went backwards", n2, n)
	}
}
