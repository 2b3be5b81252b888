package main

import (
	"context"
	"io/ioutil"
	"log"
	"net/http"
	"sync"
	"time"

	"notechain/ledger"
	"notechain/store"
	"notechain/tx"
)

// submitter accumulates submitted transactions and commits them as a
// batch on an interval. The first submission after a commit arms the
// timer; commits apply each pending transaction in arrival order
// against the current state, dropping losers of nonce or nullifier
// races.
type submitter struct {
	mu       sync.Mutex
	st       *store.Store
	state    *ledger.State
	pending  []*tx.Transaction
	armed    bool
	interval time.Duration
	waiters  map[uint64][]chan struct{}
}

func newSubmitter(st *store.Store, state *ledger.State, interval time.Duration) *submitter {
	return &submitter{
		st:       st,
		state:    state,
		interval: interval,
		waiters:  make(map[uint64][]chan struct{}),
	}
}

func (s *submitter) submit(w http.ResponseWriter, req *http.Request) {
	bits, err := ioutil.ReadAll(req.Body)
	if err != nil {
		httpErrf(w, http.StatusInternalServerError, "reading request body: %s", err)
		return
	}

	t, err := tx.Unmarshal(bits)
	if err != nil {
		httpErrf(w, http.StatusBadRequest, "parsing request body: %s", err)
		return
	}
	if err = t.Check(); err != nil {
		httpErrf(w, http.StatusBadRequest, "checking tx: %s", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = append(s.pending, t)
	if !s.armed {
		s.armed = true
		commitTime := time.Now().Add(s.interval)
		log.Printf("starting new batch, will commit at %s", commitTime)
		time.AfterFunc(s.interval, func() { s.commitBatch(context.Background()) })
	}
	log.Printf("added tx %s to the pending batch", t.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *submitter) commitBatch(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.pending
	s.pending = nil
	s.armed = false

	var committed int
	for _, t := range pending {
		next, err := tx.Commit(s.state, t)
		if err != nil {
			log.Printf("dropping tx %s: %s", t.ID, err)
			continue
		}
		s.state = next
		if err = s.st.SaveTx(ctx, t); err != nil {
			log.Fatalf("writing tx %s: %s", t.ID, err)
		}
		committed++
		s.notify(t.SeqNum)
	}
	if err := s.st.SaveSnapshot(ctx, s.state); err != nil {
		log.Fatalf("writing snapshot at seq %d: %s", s.state.SeqNum, err)
	}
	log.Printf("committed batch of %d transaction(s) (%d dropped), now at seq %d", committed, len(pending)-committed, s.state.SeqNum)
}

func (s *submitter) notify(seq uint64) {
	for n, chans := range s.waiters {
		if n <= seq {
			for _, ch := range chans {
				close(ch)
			}
			delete(s.waiters, n)
		}
	}
}

// waitSeq returns a channel that closes once the given sequence
// number has been committed. Call without s.mu held.
func (s *submitter) waitSeq(seq uint64) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan struct{})
	if s.state.SeqNum >= seq {
		close(ch)
		return ch
	}
	s.waiters[seq] = append(s.waiters[seq], ch)
	return ch
}
