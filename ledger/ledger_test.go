package ledger

import (
	"testing"

	"github.com/chain/txvm/errors"

	"notechain/account"
	"notechain/asset"
	"notechain/note"
	"notechain/vm"
)

func testState(t *testing.T) (*State, *account.Account, *note.Note) {
	t.Helper()
	s := Empty()

	acct, err := account.New(account.Code{Kind: account.Wallet}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err = s.AddAccount(acct); err != nil {
		t.Fatal(err)
	}

	var kind asset.Kind
	kind[0] = 1
	n, err := note.P2ID(acct.ID, []asset.Asset{asset.NewFungible(kind, 10)}, note.Serial{1}, note.Metadata{})
	if err != nil {
		t.Fatal(err)
	}
	if err = s.RegisterNote(n); err != nil {
		t.Fatal(err)
	}
	return s, acct, n
}

func TestAddAccountTwice(t *testing.T) {
	s, acct, _ := testState(t)
	if err := s.AddAccount(acct); errors.Root(err) != ErrDuplicateAccount {
		t.Fatalf("got %v, want %s", err, ErrDuplicateAccount)
	}
}

func TestRegisterNoteIdempotent(t *testing.T) {
	s, _, n := testState(t)
	if err := s.RegisterNote(n); err != nil {
		t.Fatalf("re-registering committed note: %s", err)
	}
	r, err := s.NoteRecord(n.ID)
	if err != nil {
		t.Fatal(err)
	}
	if r.State != Committed {
		t.Errorf("note state is %s, want %s", r.State, Committed)
	}
}

func TestMarkConsumed(t *testing.T) {
	s, _, n := testState(t)

	if err := s.MarkConsumed(n, 1); err != nil {
		t.Fatal(err)
	}
	r, _ := s.NoteRecord(n.ID)
	if r.State != Consumed || r.ConsumedBySeq != 1 {
		t.Errorf("record is %s at seq %d, want %s at 1", r.State, r.ConsumedBySeq, Consumed)
	}
	if _, ok := s.Nullifiers[n.Nullifier()]; !ok {
		t.Error("nullifier not recorded")
	}

	// a recorded nullifier can never be recorded again
	if err := s.MarkConsumed(n, 2); errors.Root(err) != ErrAlreadyConsumed {
		t.Fatalf("got %v, want %s", err, ErrAlreadyConsumed)
	}
	// and the consumed note cannot be re-registered
	if err := s.RegisterNote(n); errors.Root(err) != ErrAlreadyConsumed {
		t.Fatalf("got %v, want %s", err, ErrAlreadyConsumed)
	}
}

func TestConsumableUnknownNote(t *testing.T) {
	s, _, _ := testState(t)
	stray, err := note.Increment(note.Serial{9}, note.Metadata{})
	if err != nil {
		t.Fatal(err)
	}
	if err = s.Consumable(stray); errors.Root(err) != ErrUnknownNote {
		t.Fatalf("got %v, want %s", err, ErrUnknownNote)
	}
}

func TestCopyIndependence(t *testing.T) {
	s, acct, n := testState(t)
	c := s.Copy()

	if err := c.MarkConsumed(n, 1); err != nil {
		t.Fatal(err)
	}
	c.Accounts[acct.ID].Nonce = 9
	c.SeqNum = 1

	if err := s.Consumable(n); err != nil {
		t.Errorf("consumption on copy leaked into original: %s", err)
	}
	if s.Accounts[acct.ID].Nonce != 0 {
		t.Errorf("account mutation on copy leaked into original")
	}
	if s.SeqNum != 0 {
		t.Errorf("seqnum mutation on copy leaked into original")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	s, acct, n := testState(t)

	// give the state some texture: a consumed note, a storage slot,
	// vault contents
	counter, err := account.New(account.Code{Kind: account.Counter}, []account.Slot{{Val: vm.Int(5)}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err = s.AddAccount(counter); err != nil {
		t.Fatal(err)
	}
	var kind asset.Kind
	kind[0] = 2
	if err = s.Accounts[acct.ID].Vault.Add(asset.NewFungible(kind, 77)); err != nil {
		t.Fatal(err)
	}
	if err = s.MarkConsumed(n, 1); err != nil {
		t.Fatal(err)
	}
	s.SeqNum = 1

	bits, err := s.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	got := Empty()
	if err = got.FromBytes(bits); err != nil {
		t.Fatal(err)
	}

	if got.SeqNum != s.SeqNum {
		t.Errorf("seqnum %d, want %d", got.SeqNum, s.SeqNum)
	}
	if len(got.Accounts) != 2 || len(got.Notes) != 1 || len(got.Nullifiers) != 1 {
		t.Fatalf("got %d accounts, %d notes, %d nullifiers", len(got.Accounts), len(got.Notes), len(got.Nullifiers))
	}
	ga, err := got.Account(counter.ID)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := ga.ReadStorage(0); v != vm.Int(5) {
		t.Errorf("counter slot is %v, want 5", v)
	}
	if got.Accounts[acct.ID].Vault.Balance(kind) != 77 {
		t.Errorf("vault balance does not round-trip")
	}
	r, err := got.NoteRecord(n.ID)
	if err != nil {
		t.Fatal(err)
	}
	if r.State != Consumed {
		t.Errorf("note state %s, want %s", r.State, Consumed)
	}
	if err = r.Note.Check(); err != nil {
		t.Errorf("round-tripped note fails check: %s", err)
	}
	if _, ok := got.Nullifiers[n.Nullifier()]; !ok {
		t.Errorf("nullifier set does not round-trip")
	}

	// the encoding itself is deterministic
	again, err := s.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if string(bits) != string(again) {
		t.Errorf("serialization is not deterministic")
	}
}
