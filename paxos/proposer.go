package paxos

import (
	"context"
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Proposer drives rounds on behalf of one acceptor-capable node. A round
// generates a fresh proposal number, gathers a quorum of promises, picks the
// round's value, gathers a quorum of acceptances, and finally tells the
// learners. Any quorum miss burns the attempt; the proposer backs off and
// retries with a strictly greater number until its attempt budget runs out.
type Proposer struct {
	id        int
	seq       *Sequence
	net       Network
	acceptors []int
	learners  []int
	cfg       Config
}

func NewProposer(id int, seq *Sequence, net Network, acceptors, learners []int, cfg Config) *Proposer {
	return &Proposer{
		id:        id,
		seq:       seq,
		net:       net,
		acceptors: append([]int(nil), acceptors...),
		learners:  append([]int(nil), learners...),
		cfg:       cfg.withDefaults(),
	}
}

func (p *Proposer) quorum() int {
	return QuorumSize(len(p.acceptors))
}

// RunRound attempts to commit a value. The committed value is candidate only
// when no promise carried a previously accepted proposal; otherwise the
// value of the highest such proposal is adopted and driven to commit
// instead. A non-committed outcome means the attempt budget was exhausted
// without reaching quorum in both phases; retrying later is always safe.
func (p *Proposer) RunRound(ctx context.Context, candidate Value) Outcome {
	for attempt := 0; attempt < p.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			p.backoff(ctx)
		}
		if ctx.Err() != nil {
			log.Warnf("proposer %d: round cancelled: %v", p.id, ctx.Err())
			return Outcome{}
		}

		n := p.seq.Next()
		promises, ok := p.preparePhase(ctx, n)
		if !ok {
			continue
		}

		value := selectValue(promises, candidate)
		if !p.acceptPhase(ctx, n, value) {
			continue
		}

		log.Infof("proposer %d: committed %v = %q", p.id, n, value)
		p.broadcastLearn(ctx, n, value)
		return Outcome{Committed: true, Decision: Decision{N: n, Value: value}}
	}
	log.Warnf("proposer %d: giving up after %d attempts", p.id, p.cfg.MaxAttempts)
	return Outcome{}
}

// preparePhase fans Prepare(n) out to every acceptor and collects whatever
// replies arrive inside the phase timeout. Unreachable or silent acceptors
// simply never count; the phase needs a quorum of promises from the
// respondents, not a full roster. Rejections feed the sequence so the next
// attempt jumps past the number that blocked this one.
func (p *Proposer) preparePhase(ctx context.Context, n ProposalNumber) ([]PrepareReply, bool) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.PhaseTimeout)
	defer cancel()

	replies := make(chan PrepareReply, len(p.acceptors))
	var wg sync.WaitGroup
	for _, id := range p.acceptors {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			r, err := p.net.Prepare(ctx, id, n)
			if err != nil {
				log.Warnf("proposer %d: prepare %v to %d: %v", p.id, n, id, err)
				return
			}
			replies <- r
		}(id)
	}
	go func() {
		wg.Wait()
		close(replies)
	}()

	promises := make([]PrepareReply, 0, len(p.acceptors))
	for r := range replies {
		if !r.OK {
			p.seq.Observe(r.Promised)
			continue
		}
		promises = append(promises, r)
	}
	if len(promises) >= p.quorum() {
		return promises, true
	}
	log.Infof("proposer %d: prepare %v short of quorum (%d/%d)", p.id, n, len(promises), p.quorum())
	return promises, false
}

// selectValue is the core safety rule: among the gathered promises, the
// value of the highest previously accepted proposal overrides the
// candidate. Accepted proposal numbers are themselves cluster-unique, so at
// most one value can sit at the maximum; no further tie-break exists.
func selectValue(promises []PrepareReply, candidate Value) Value {
	highest := None
	value := candidate
	for _, r := range promises {
		if !r.AcceptedN.IsNone() && r.AcceptedN.GreaterThan(highest) {
			highest = r.AcceptedN
			value = r.AcceptedValue
		}
	}
	return value
}

// acceptPhase fans Accept(n, v) out to every acceptor and reports whether a
// quorum acknowledged within the phase timeout.
func (p *Proposer) acceptPhase(ctx context.Context, n ProposalNumber, v Value) bool {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.PhaseTimeout)
	defer cancel()

	replies := make(chan AcceptReply, len(p.acceptors))
	var wg sync.WaitGroup
	for _, id := range p.acceptors {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			r, err := p.net.Accept(ctx, id, n, v)
			if err != nil {
				log.Warnf("proposer %d: accept %v to %d: %v", p.id, n, id, err)
				return
			}
			replies <- r
		}(id)
	}
	go func() {
		wg.Wait()
		close(replies)
	}()

	acks := 0
	for r := range replies {
		if !r.OK {
			p.seq.Observe(r.Promised)
			continue
		}
		acks++
	}
	if acks >= p.quorum() {
		return true
	}
	log.Infof("proposer %d: accept %v short of quorum (%d/%d)", p.id, n, acks, p.quorum())
	return false
}

// broadcastLearn notifies every learner of the committed decision. Learners
// are passive; a delivery failure is logged and left to a later round's
// broadcast, it cannot affect the decision itself.
func (p *Proposer) broadcastLearn(ctx context.Context, n ProposalNumber, v Value) {
	var wg sync.WaitGroup
	for _, id := range p.learners {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := p.net.Learn(ctx, id, n, v); err != nil {
				log.Warnf("proposer %d: learn %v to %d: %v", p.id, n, id, err)
			}
		}(id)
	}
	wg.Wait()
}

// backoff sleeps a random slice of the configured window so dueling
// proposers fall out of lockstep between attempts.
func (p *Proposer) backoff(ctx context.Context) {
	d := time.Duration(rand.Int63n(int64(p.cfg.RetryBackoff))) + time.Millisecond
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
