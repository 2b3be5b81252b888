/*
Package ledger models global ledger state as an explicit value:
accounts by ID, note records by note ID, and the set of recorded
nullifiers. Nothing in this package is ambient or global; every
operation takes the state it works on, and commit-time mutation
happens on a Copy so a failed transaction can never leave partial
state behind.
*/
package ledger

import (
	"fmt"

	"github.com/chain/txvm/errors"

	"notechain/account"
	"notechain/note"
)

var (
	// ErrAlreadyConsumed is returned when marking a note consumed
	// whose nullifier the state already records.
	ErrAlreadyConsumed = errors.New("note already consumed")

	// ErrUnknownNote is returned for operations on a note the state
	// has no record of.
	ErrUnknownNote = errors.New("unknown note")

	// ErrUnknownAccount is returned for operations on an account the
	// state has no record of.
	ErrUnknownAccount = errors.New("unknown account")

	// ErrDuplicateAccount is returned when adding an account whose ID
	// is already present.
	ErrDuplicateAccount = errors.New("account already exists")
)

// NoteState is a note's position in its lifecycle.
type NoteState int

// Note lifecycle. A note is Created when built, Committed once a
// settled transaction outputs it, and Consumed once a later
// transaction spends it and records its nullifier.
const (
	Created NoteState = iota
	Committed
	Consumed
)

func (s NoteState) String() string {
	switch s {
	case Created:
		return "created"
	case Committed:
		return "committed-unconsumed"
	case Consumed:
		return "consumed"
	}
	return fmt.Sprintf("notestate(%d)", int(s))
}

// NoteRecord is the ledger's view of one note.
type NoteRecord struct {
	Note          *note.Note `json:"note"`
	State         NoteState  `json:"state"`
	ConsumedBySeq uint64     `json:"consumed_by_seq,omitempty"`
}

// State is one version of the ledger. It is never mutated in place by
// the transaction layer: commit copies, mutates the copy, and returns
// it, so concurrent readers of the old version stay consistent.
type State struct {
	Accounts   map[account.ID]*account.Account `json:"accounts"`
	Notes      map[note.ID]*NoteRecord         `json:"notes"`
	Nullifiers map[note.Nullifier]uint64       `json:"nullifiers"`
	SeqNum     uint64                          `json:"seqnum"`
}

// Empty returns a state with no accounts, notes, or nullifiers.
func Empty() *State {
	return &State{
		Accounts:   make(map[account.ID]*account.Account),
		Notes:      make(map[note.ID]*NoteRecord),
		Nullifiers: make(map[note.Nullifier]uint64),
	}
}

// Copy returns a deep copy of the state.
func (s *State) Copy() *State {
	c := Empty()
	c.SeqNum = s.SeqNum
	for id, a := range s.Accounts {
		c.Accounts[id] = a.Copy()
	}
	for id, r := range s.Notes {
		rc := *r
		rc.Note = r.Note.Copy()
		c.Notes[id] = &rc
	}
	for nf, seq := range s.Nullifiers {
		c.Nullifiers[nf] = seq
	}
	return c
}

// AddAccount registers a new account. Accounts enter the ledger at
// genesis or through issuance flows; they are never deleted.
func (s *State) AddAccount(a *account.Account) error {
	if _, ok := s.Accounts[a.ID]; ok {
		return errors.Wrapf(ErrDuplicateAccount, "account %s", a.ID)
	}
	s.Accounts[a.ID] = a.Copy()
	return nil
}

// Account looks up an account by ID.
func (s *State) Account(id account.ID) (*account.Account, error) {
	a, ok := s.Accounts[id]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownAccount, "account %s", id)
	}
	return a, nil
}

// RegisterNote records a note as committed-unconsumed, making it
// available as a future transaction input. Registering the same note
// twice is an error unless the existing record is identical and still
// unconsumed, in which case it is a no-op (idempotent replay).
func (s *State) RegisterNote(n *note.Note) error {
	if err := n.Check(); err != nil {
		return errors.Wrap(err, "registering note")
	}
	if r, ok := s.Notes[n.ID]; ok {
		if r.State == Committed {
			return nil
		}
		return errors.Wrapf(ErrAlreadyConsumed, "note %s", n.ID)
	}
	s.Notes[n.ID] = &NoteRecord{Note: n.Copy(), State: Committed}
	return nil
}

// NoteRecord looks up the record for a note ID.
func (s *State) NoteRecord(id note.ID) (*NoteRecord, error) {
	r, ok := s.Notes[id]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownNote, "note %s", id)
	}
	return r, nil
}

// Consumable reports whether the note is committed-unconsumed in this
// state with its nullifier unrecorded.
func (s *State) Consumable(n *note.Note) error {
	r, ok := s.Notes[n.ID]
	if !ok {
		return errors.Wrapf(ErrUnknownNote, "note %s", n.ID)
	}
	if r.State != Committed {
		return errors.Wrapf(ErrAlreadyConsumed, "note %s is %s", n.ID, r.State)
	}
	if seq, ok := s.Nullifiers[n.Nullifier()]; ok {
		return errors.Wrapf(ErrAlreadyConsumed, "nullifier of %s recorded at seq %d", n.ID, seq)
	}
	return nil
}

// MarkConsumed records the note's nullifier and flips its record to
// consumed. It fails if the nullifier is already recorded; a recorded
// nullifier can never be recorded again.
func (s *State) MarkConsumed(n *note.Note, seq uint64) error {
	if err := s.Consumable(n); err != nil {
		return err
	}
	nf := n.Nullifier()
	s.Nullifiers[nf] = seq
	r := s.Notes[n.ID]
	r.State = Consumed
	r.ConsumedBySeq = seq
	return nil
}
