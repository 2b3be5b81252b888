/*
Package store persists ledger snapshots and committed transactions in
sqlite and fans committed transactions out to named cursors.
*/
package store

import (
	"context"
	"database/sql"

	"github.com/bobg/multichan"
	"github.com/chain/txvm/errors"

	"notechain/ledger"
	"notechain/tx"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
  seqnum INTEGER NOT NULL PRIMARY KEY,
  bits BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS txs (
  seqnum INTEGER NOT NULL PRIMARY KEY,
  txid BLOB NOT NULL UNIQUE,
  bits BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS cursors (
  name TEXT NOT NULL PRIMARY KEY,
  seqnum INTEGER NOT NULL
);
`

// Store wraps a sqlite db holding snapshots of ledger state and the
// committed-transaction sequence. W broadcasts each newly committed
// transaction to cursor readers.
type Store struct {
	db *sql.DB

	// W carries *tx.Transaction values.
	W *multichan.W
}

// New creates the schema if needed and returns a Store.
func New(db *sql.DB) (*Store, error) {
	_, err := db.Exec(schema)
	if err != nil {
		return nil, errors.Wrap(err, "creating db schema")
	}
	return &Store{
		db: db,
		W:  multichan.New((*tx.Transaction)(nil)),
	}, nil
}

// SeqNum reports the highest committed sequence number.
func (s *Store) SeqNum(ctx context.Context) (uint64, error) {
	var seq uint64
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(seqnum), 0) FROM txs").Scan(&seq)
	return seq, errors.Wrap(err, "getting tx height")
}

// LatestSnapshot returns the most recent saved ledger state, or an
// empty state if none has been saved yet.
func (s *Store) LatestSnapshot(ctx context.Context) (*ledger.State, error) {
	var bits []byte
	err := s.db.QueryRowContext(ctx, "SELECT bits FROM snapshots ORDER BY seqnum DESC LIMIT 1").Scan(&bits)
	if err == sql.ErrNoRows {
		return ledger.Empty(), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "getting latest snapshot from db")
	}
	st := ledger.Empty()
	err = st.FromBytes(bits)
	return st, errors.Wrap(err, "parsing latest snapshot")
}

// SaveSnapshot writes the state keyed by its sequence number.
// Rewriting the same seqnum replaces the stored bytes, so account
// registrations that land between commits survive a restart.
func (s *Store) SaveSnapshot(ctx context.Context, state *ledger.State) error {
	bits, err := state.Bytes()
	if err != nil {
		return errors.Wrapf(err, "marshaling snapshot at seq %d for writing to db", state.SeqNum)
	}
	_, err = s.db.ExecContext(ctx, "INSERT OR REPLACE INTO snapshots (seqnum, bits) VALUES ($1, $2)", state.SeqNum, bits)
	return errors.Wrapf(err, "writing snapshot at seq %d to db", state.SeqNum)
}

// SaveTx records a committed transaction at its sequence number and
// broadcasts it to cursor readers.
func (s *Store) SaveTx(ctx context.Context, t *tx.Transaction) error {
	bits, err := t.Marshal()
	if err != nil {
		return errors.Wrapf(err, "marshaling tx %s for writing to db", t.ID)
	}
	_, err = s.db.ExecContext(ctx, "INSERT OR IGNORE INTO txs (seqnum, txid, bits) VALUES ($1, $2, $3)", t.SeqNum, t.ID[:], bits)
	if err != nil {
		return errors.Wrapf(err, "writing tx %s to db", t.ID)
	}
	s.W.Write(t)
	return nil
}

// GetTx returns the committed transaction at the given sequence
// number.
func (s *Store) GetTx(ctx context.Context, seqnum uint64) (*tx.Transaction, error) {
	var bits []byte
	err := s.db.QueryRowContext(ctx, "SELECT bits FROM txs WHERE seqnum = $1", seqnum).Scan(&bits)
	if err != nil {
		return nil, errors.Wrapf(err, "reading tx %d from db", seqnum)
	}
	t, err := tx.Unmarshal(bits)
	return t, errors.Wrapf(err, "parsing tx %d", seqnum)
}
