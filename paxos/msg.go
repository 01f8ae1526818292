package paxos

// Value is the payload a round tries to get the cluster to agree on. The
// protocol never inspects it; it only moves it around. Whether an acceptor
// or learner actually holds a value is signalled by the proposal number next
// to it, never by the value itself.
type Value string

// PrepareReply is an acceptor's answer to a Prepare. OK means a promise was
// granted; AcceptedN/AcceptedValue then carry the acceptor's last accepted
// proposal (None/"" when it has accepted nothing). On a rejection Promised
// reports the number standing in the way, which the proposer uses to ratchet
// its sequence forward.
type PrepareReply struct {
	From          int            `json:"from"`
	OK            bool           `json:"ok"`
	Promised      ProposalNumber `json:"promised"`
	AcceptedN     ProposalNumber `json:"acceptedN"`
	AcceptedValue Value          `json:"acceptedValue"`
}

// AcceptReply is an acceptor's answer to an Accept. OK means the proposal
// was accepted and N/AcceptedValue echo what is now stored. Rejections carry
// the blocking promise, same as PrepareReply.
type AcceptReply struct {
	From          int            `json:"from"`
	OK            bool           `json:"ok"`
	Promised      ProposalNumber `json:"promised"`
	N             ProposalNumber `json:"n"`
	AcceptedValue Value          `json:"acceptedValue"`
}

// Decision is the single emergent fact of a run: the proposal number and
// value that reached an accept quorum.
type Decision struct {
	N     ProposalNumber `json:"n"`
	Value Value          `json:"value"`
}

// Outcome reports how a round ended. Committed is false when the proposer
// exhausted its attempts without reaching quorum in both phases.
type Outcome struct {
	Committed bool
	Decision  Decision
}
