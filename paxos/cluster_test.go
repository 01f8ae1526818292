package paxos

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestQuorumSize(t *testing.T) {
	cases := []struct{ total, quorum int }{
		{1, 1}, {2, 2}, {3, 2}, {4, 3}, {5, 3}, {7, 4}, {100, 51},
	}
	for _, c := range cases {
		if got := QuorumSize(c.total); got != c.quorum {
			t.Errorf("QuorumSize(%d) = %d, want %d", c.total, got, c.quorum)
		}
	}
}

func TestSingleProposerCommits(t *testing.T) {
	// 5 acceptors, one proposer, value 42: everyone ends up with 42
	c := NewCluster(5, 2)
	out, err := c.RunRound(context.Background(), 1, "42")
	if err != nil {
		t.Fatal("Error Running Round:", err)
	}
	if !out.Committed {
		t.Fatal("uncontended round failed to commit")
	}
	want := ProposalNumber{Counter: 1, NodeID: 1}
	if out.Decision.N != want || out.Decision.Value != "42" {
		t.Errorf("decision = (%v, %q), want (%v, %q)", out.Decision.N, out.Decision.Value, want, "42")
	}
	for _, id := range c.AcceptorIDs() {
		_, acceptedN, v := c.Acceptor(id).State()
		if acceptedN.IsNone() || v != "42" {
			t.Errorf("acceptor %d ended with (%v, %q), want accepted 42", id, acceptedN, v)
		}
	}
	for _, id := range c.LearnerIDs() {
		d, ok := c.Learner(id).Decision()
		if !ok || d.Value != "42" {
			t.Errorf("learner %d did not learn 42", id)
		}
	}
}

func TestSecondProposerAdoptsDecision(t *testing.T) {
	// P1 commits 10 fully, then P2 proposes 20: P2's value selection must
	// discover the accepted proposal and commit 10 under a higher number
	c := NewCluster(5, 1)
	ctx := context.Background()
	first, err := c.RunRound(ctx, 1, "10")
	if err != nil {
		t.Fatal("Error Running Round:", err)
	}
	if !first.Committed || first.Decision.Value != "10" {
		t.Fatalf("first round: %+v", first)
	}
	second, err := c.RunRound(ctx, 2, "20")
	if err != nil {
		t.Fatal("Error Running Round:", err)
	}
	if !second.Committed {
		t.Fatal("second round failed to commit")
	}
	if second.Decision.Value != "10" {
		t.Errorf("second round committed %q, want the original 10", second.Decision.Value)
	}
	if !second.Decision.N.GreaterThan(first.Decision.N) {
		t.Errorf("second commit number %v not above first %v", second.Decision.N, first.Decision.N)
	}
}

func TestValuePersistsAcrossManyRounds(t *testing.T) {
	c := NewCluster(5, 1)
	ctx := context.Background()
	first, err := c.RunRound(ctx, 3, "origin")
	if err != nil || !first.Committed {
		t.Fatalf("seed round: out=%+v err=%v", first, err)
	}
	candidates := []Value{"a", "b", "c", "d"}
	prev := first.Decision.N
	for i, v := range candidates {
		proposer := 1 + (i % 5)
		out, err := c.RunRound(ctx, proposer, v)
		if err != nil {
			t.Fatal("Error Running Round:", err)
		}
		if !out.Committed {
			t.Fatalf("round %d failed to commit", i+2)
		}
		if out.Decision.Value != "origin" {
			t.Fatalf("round %d committed %q, decision changed", i+2, out.Decision.Value)
		}
		if !out.Decision.N.GreaterThan(prev) {
			t.Fatalf("round %d number %v not above %v", i+2, out.Decision.N, prev)
		}
		prev = out.Decision.N
	}
	if d, ok := c.Decision(); !ok || d.Value != "origin" {
		t.Errorf("cluster decision = %+v, want origin", d)
	}
}

func TestCommitsWithMinorityDown(t *testing.T) {
	c := NewCluster(5, 1)
	c.Network().TakeDown(4)
	c.Network().TakeDown(5)
	out, err := c.RunRound(context.Background(), 1, "v")
	if err != nil {
		t.Fatal("Error Running Round:", err)
	}
	if !out.Committed {
		t.Error("round failed with a quorum of acceptors still up")
	}
	if d, ok := c.Learner(6).Decision(); !ok || d.Value != "v" {
		t.Error("learner missed the decision")
	}
}

func TestQuorumFailedWithMajorityDown(t *testing.T) {
	cfg := Config{MaxAttempts: 2, PhaseTimeout: 200 * time.Millisecond, RetryBackoff: 5 * time.Millisecond}
	c := NewClusterWithConfig(5, 0, cfg)
	for _, id := range []int{3, 4, 5} {
		c.Network().TakeDown(id)
	}
	out, err := c.RunRound(context.Background(), 1, "v")
	if err != nil {
		t.Fatal("Error Running Round:", err)
	}
	if out.Committed {
		t.Error("round committed without a reachable quorum")
	}
	// bring the majority back: the same cluster can still decide
	for _, id := range []int{3, 4, 5} {
		c.Network().Restore(id)
	}
	out, err = c.RunRound(context.Background(), 1, "v")
	if err != nil {
		t.Fatal("Error Running Round:", err)
	}
	if !out.Committed {
		t.Error("round failed after the roster was restored")
	}
}

func TestLearnerCannotPropose(t *testing.T) {
	c := NewCluster(3, 2)
	learnerID := c.LearnerIDs()[0]
	_, err := c.RunRound(context.Background(), learnerID, "v")
	if !errors.Is(err, ErrNotAcceptor) {
		t.Errorf("learner-only proposer: err = %v, want ErrNotAcceptor", err)
	}
	if c.Acceptor(learnerID) != nil {
		t.Error("learner-only node exposed as acceptor")
	}
}

func TestRacingProposersAgree(t *testing.T) {
	// two proposers race the same roster with different candidates; slow
	// one acceptor down so prepares and accepts interleave across rounds
	c := NewCluster(5, 1)
	c.Network().SetDelay(3, 2*time.Millisecond)
	ctx := context.Background()

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 2)
	for i, v := range []Value{"left", "right"} {
		wg.Add(1)
		go func(i int, v Value) {
			defer wg.Done()
			out, err := c.RunRound(ctx, i+1, v)
			if err != nil {
				t.Error("Error Running Round:", err)
				return
			}
			outcomes[i] = out
		}(i, v)
	}
	wg.Wait()

	var committed []Outcome
	for _, out := range outcomes {
		if out.Committed {
			committed = append(committed, out)
		}
	}
	if len(committed) == 2 && committed[0].Decision.Value != committed[1].Decision.Value {
		t.Fatalf("agreement violated: %q vs %q",
			committed[0].Decision.Value, committed[1].Decision.Value)
	}
	// a quiet follow-up round settles what was decided; it must match
	// every value committed during the race
	final, err := c.RunRound(ctx, 4, "latecomer")
	if err != nil || !final.Committed {
		t.Fatalf("settling round: out=%+v err=%v", final, err)
	}
	for _, out := range committed {
		if out.Decision.Value != final.Decision.Value {
			t.Errorf("raced commit %q disagrees with settled %q",
				out.Decision.Value, final.Decision.Value)
		}
	}
	if final.Decision.Value == "latecomer" && len(committed) > 0 {
		t.Error("latecomer displaced a committed value")
	}
}

func TestRunRoundPicked(t *testing.T) {
	c := NewCluster(3, 0)
	pick := func(ids []int) int { return ids[len(ids)-1] }
	out, err := c.RunRoundPicked(context.Background(), pick, "v")
	if err != nil {
		t.Fatal("Error Running Round:", err)
	}
	if !out.Committed || out.Decision.N.NodeID != 3 {
		t.Errorf("picked proposer outcome = %+v, want commit by node 3", out)
	}
}

func TestRoundRespectsContext(t *testing.T) {
	c := NewCluster(3, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := c.RunRound(ctx, 1, "v")
	if err != nil {
		t.Fatal("Error Running Round:", err)
	}
	if out.Committed {
		t.Error("round committed under a cancelled context")
	}
}
