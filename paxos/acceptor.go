package paxos

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Acceptor holds one node's vote state: the highest proposal number it has
// promised to honor and the last proposal it accepted. The two guard checks
// in Prepare and Accept are the only serialization point the protocol
// needs, so both run atomically under the acceptor's own lock. Nothing else
// ever writes these fields.
type Acceptor struct {
	mu sync.Mutex

	id            int
	promisedN     ProposalNumber
	acceptedN     ProposalNumber
	acceptedValue Value

	wal *WAL
}

// NewAcceptor returns an acceptor with no promises and nothing accepted.
// State is held in memory only; AttachWAL adds durability.
func NewAcceptor(id int) *Acceptor {
	return &Acceptor{
		id:        id,
		promisedN: None,
		acceptedN: None,
	}
}

// AttachWAL replays any state already in the log into the acceptor and
// appends every later promise/accept to it before the reply is sent.
func (a *Acceptor) AttachWAL(w *WAL) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	err := w.Replay(func(rec Record) error {
		switch rec.Type {
		case RecordPromise:
			if rec.Promised.GreaterThan(a.promisedN) {
				a.promisedN = rec.Promised
			}
		case RecordAccept:
			if rec.Promised.GreaterThan(a.promisedN) {
				a.promisedN = rec.Promised
			}
			if rec.N.GreaterThan(a.acceptedN) {
				a.acceptedN = rec.N
				a.acceptedValue = rec.Value
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	a.wal = w
	return nil
}

// Prepare grants a promise if n is above every number promised so far. The
// promise reply carries the acceptor's last accepted proposal, which the
// proposer must adopt over its own candidate. A stale n gets a rejection
// carrying the standing promise; rejection is a normal result, not an
// error, and changes no state. A repeat of an already-promised n also
// rejects: the original promise stands untouched.
func (a *Acceptor) Prepare(n ProposalNumber) PrepareReply {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !n.GreaterThan(a.promisedN) {
		log.Debugf("acceptor %d: reject prepare %v, promised %v", a.id, n, a.promisedN)
		return PrepareReply{From: a.id, OK: false, Promised: a.promisedN}
	}
	if !a.persist(Record{Type: RecordPromise, Promised: n}) {
		return PrepareReply{From: a.id, OK: false, Promised: a.promisedN}
	}
	a.promisedN = n
	log.Debugf("acceptor %d: promise %v (accepted %v)", a.id, n, a.acceptedN)
	return PrepareReply{
		From:          a.id,
		OK:            true,
		Promised:      a.promisedN,
		AcceptedN:     a.acceptedN,
		AcceptedValue: a.acceptedValue,
	}
}

// Accept stores (n, v) if n is at or above the standing promise. Accepting
// at the promised number is the whole point of the promise, hence >= where
// Prepare uses >. Accepting also re-promises n.
func (a *Acceptor) Accept(n ProposalNumber, v Value) AcceptReply {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !n.GreaterThanOrEqualTo(a.promisedN) {
		log.Debugf("acceptor %d: reject accept %v, promised %v", a.id, n, a.promisedN)
		return AcceptReply{From: a.id, OK: false, Promised: a.promisedN}
	}
	if !a.persist(Record{Type: RecordAccept, Promised: n, N: n, Value: v}) {
		return AcceptReply{From: a.id, OK: false, Promised: a.promisedN}
	}
	a.promisedN = n
	a.acceptedN = n
	a.acceptedValue = v
	log.Debugf("acceptor %d: accepted %v = %q", a.id, n, v)
	return AcceptReply{
		From:          a.id,
		OK:            true,
		Promised:      a.promisedN,
		N:             a.acceptedN,
		AcceptedValue: a.acceptedValue,
	}
}

// persist appends rec before the state change becomes visible. A write
// failure refuses the request: answering without durable state is the one
// way an acceptor can break agreement after a crash.
func (a *Acceptor) persist(rec Record) bool {
	if a.wal == nil {
		return true
	}
	if err := a.wal.Append(rec); err != nil {
		log.Errorf("acceptor %d: wal append failed, refusing request: %v", a.id, err)
		return false
	}
	return true
}

func (a *Acceptor) ID() int {
	return a.id
}

// State returns the acceptor's triple for inspection and tests.
func (a *Acceptor) State() (promised, acceptedN ProposalNumber, acceptedValue Value) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.promisedN, a.acceptedN, a.acceptedValue
}
