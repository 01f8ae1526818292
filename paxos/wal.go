package paxos

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"sync"
)

// An acceptor that forgets what it promised or accepted after a crash can
// hand out conflicting promises and break agreement, so state changes are
// appended here before the reply leaves the node.

type RecordType int

const (
	RecordPromise RecordType = iota
	RecordAccept
)

// Record is one durable acceptor state change: either a promise or an
// accepted proposal.
type Record struct {
	Type     RecordType     `json:"type"`
	Promised ProposalNumber `json:"promised"`
	N        ProposalNumber `json:"n"`
	Value    Value          `json:"value"`
}

// WAL is an append-only log of acceptor state changes, one length-prefixed
// JSON record per entry, synced on every append.
type WAL struct {
	mu   sync.Mutex
	file *os.File
}

func OpenWAL(path string) (*WAL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &WAL{file: f}, nil
}

func (w *WAL) Append(rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))

	if _, err := w.file.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := w.file.Write(data); err != nil {
		return err
	}
	return w.file.Sync()
}

// Replay feeds every stored record to apply in append order. A truncated
// tail record (torn write on crash) ends the replay without error.
func (w *WAL) Replay(apply func(Record) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	for {
		var lenBuf [4]byte
		_, err := io.ReadFull(w.file, lenBuf[:])
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}
		if err != nil {
			return err
		}

		data := make([]byte, binary.BigEndian.Uint32(lenBuf[:]))
		_, err = io.ReadFull(w.file, data)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}
		if err != nil {
			return err
		}

		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		if err := apply(rec); err != nil {
			return err
		}
	}
}

func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
