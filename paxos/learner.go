package paxos

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Learner is a passive sink for the finished decision. It keeps the learned
// pair with the highest proposal number and ignores anything older, so a
// reordered or duplicated Learn delivery can never roll the decision back.
type Learner struct {
	mu       sync.Mutex
	id       int
	learnedN ProposalNumber
	learned  Value
}

func NewLearner(id int) *Learner {
	return &Learner{id: id, learnedN: None}
}

// Learn records (n, v) unless something with a higher number is already
// recorded.
func (l *Learner) Learn(n ProposalNumber, v Value) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !n.GreaterThan(l.learnedN) {
		log.Debugf("learner %d: ignoring stale learn %v, have %v", l.id, n, l.learnedN)
		return
	}
	l.learnedN = n
	l.learned = v
	log.Infof("learner %d: learned %v = %q", l.id, n, v)
}

func (l *Learner) ID() int {
	return l.id
}

// Decision returns the recorded decision; ok is false until something has
// been learned.
func (l *Learner) Decision() (d Decision, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.learnedN.IsNone() {
		return Decision{}, false
	}
	return Decision{N: l.learnedN, Value: l.learned}, true
}
