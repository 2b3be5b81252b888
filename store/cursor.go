package store

import (
	"context"
	"fmt"
	"log"

	"github.com/bobg/sqlutil"
	"github.com/chain/txvm/errors"

	"notechain/tx"
)

// RunCursor runs as a goroutine. It feeds every committed transaction
// after the named cursor's position to f, in sequence order, updating
// the cursor as it goes. On startup it replays the backlog from the
// db, then follows live commits from the store's broadcast channel. A
// process restart resumes from the last transaction f handled.
func (s *Store) RunCursor(ctx context.Context, name string, f func(context.Context, *tx.Transaction) error) {
	defer log.Printf("RunCursor(%s) exiting", name)

	r := s.W.Reader()

	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO cursors (name, seqnum) VALUES ($1, 0)`, name)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		log.Fatalf("creating cursor %s: %s", name, err)
	}

	var lastSeq uint64
	err = s.db.QueryRowContext(ctx, `SELECT seqnum FROM cursors WHERE name = $1`, name).Scan(&lastSeq)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		log.Fatalf("getting position of cursor %s: %s", name, err)
	}

	// Process the backlog after lastSeq.

	var backlog []*tx.Transaction
	err = sqlutil.ForQueryRows(ctx, s.db, `SELECT bits, seqnum FROM txs WHERE seqnum > $1 ORDER BY seqnum`, lastSeq, func(bits []byte, seqnum uint64) error {
		t, err := tx.Unmarshal(bits)
		if err != nil {
			return errors.Wrapf(err, "unmarshaling tx %d", seqnum)
		}
		backlog = append(backlog, t)
		return nil
	})
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		log.Fatalf("reading backlog for cursor %s: %s", name, err)
	}

	process := func(t *tx.Transaction) error {
		if t.SeqNum != lastSeq+1 {
			return fmt.Errorf("missing tx %d", lastSeq+1)
		}
		err := f(ctx, t)
		if err != nil {
			return errors.Wrapf(err, "running cursor %s on tx %d", name, t.SeqNum)
		}
		_, err = s.db.Exec(`UPDATE cursors SET seqnum = $1 WHERE name = $2`, t.SeqNum, name) // n.b. not ExecContext
		if err != nil {
			return errors.Wrapf(err, "updating cursor %s after tx %d", name, t.SeqNum)
		}
		lastSeq = t.SeqNum
		return nil
	}

	for _, t := range backlog {
		err = process(t)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Fatalf("processing backlog tx %d: %s", t.SeqNum, err)
		}
	}

	for {
		x, ok := r.Read(ctx)
		if !ok {
			if ctx.Err() != nil {
				return
			}
			log.Fatalf("error waiting for tx %d", lastSeq+1)
		}
		t := x.(*tx.Transaction)
		if t.SeqNum <= lastSeq {
			continue
		}
		err = process(t)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Fatalf("processing live tx %d: %s", t.SeqNum, err)
		}
	}
}
