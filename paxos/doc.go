// paxos is an implementation of single-decree Paxos: a fixed set of nodes
// agrees on exactly one value despite concurrent competing proposers.
//
// Roles are capabilities, not identities. Every acceptor-capable node can
// take the proposer role for a round; learners form a disjoint set that only
// records the final decision. A round runs the classic three phases: the
// proposer solicits promises (Prepare), drives a quorum of acceptances
// (Accept), and broadcasts the result to the learners (Learn).
//
// Safety rests on two guards evaluated atomically per acceptor: a Prepare is
// promised only for a number above everything already promised, and an
// Accept is acknowledged only for a number at or above the current promise.
// A proposer that gathers promises must adopt the value of the highest
// already-accepted proposal among them, so a value accepted by a quorum can
// never be displaced in a later round.
//
// Liveness carries the usual caveat: dueling proposers can starve each
// other, so retries are bounded and a stalled round is reported as a failed
// outcome rather than resolved by weakening the guards.
//
// Noticibly Absent: Multi-Paxos slot pipelining, leader leases, log
// compaction, membership changes. One roster, one decision.
//
// References:
//
// - Paxos Made Simple - Lamport
//
// - The Part-Time Parliament - Lamport
//
// - http://en.wikipedia.org/wiki/Paxos_%28computer_science%29
package paxos
