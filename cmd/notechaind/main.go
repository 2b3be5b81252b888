// Command notechaind runs a single-node note ledger: it accepts
// transactions over HTTP, commits them in interval batches against a
// sqlite-backed ledger state, and serves the committed sequence back
// to clients.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"notechain/store"
	"notechain/tx"
)

var blockInterval = 5 * time.Second

func main() {
	ctx := context.Background()

	var (
		addr   = flag.String("addr", "localhost:2423", "server listen address")
		dbfile = flag.String("db", "", "path to db")
	)

	flag.Parse()

	db, err := sql.Open("sqlite3", *dbfile)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	st, err := store.New(db)
	if err != nil {
		log.Fatal(err)
	}

	state, err := st.LatestSnapshot(ctx)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("resuming at seq %d with %d account(s)", state.SeqNum, len(state.Accounts))

	s := newSubmitter(st, state, blockInterval)

	go st.RunCursor(ctx, "txlog", func(_ context.Context, t *tx.Transaction) error {
		log.Printf("seq %d: tx %s by %s consumed %d note(s), produced %d", t.SeqNum, t.ID, t.Initiator, len(t.InputNotes), len(t.OutputNotes))
		return nil
	})

	listener, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("listening on %s", listener.Addr())

	http.HandleFunc("/submit", s.submit)
	http.HandleFunc("/get", s.get)
	http.HandleFunc("/record", s.record)
	http.Serve(listener, nil)
}

func httpErrf(w http.ResponseWriter, code int, msgfmt string, args ...interface{}) {
	http.Error(w, fmt.Sprintf(msgfmt, args...), code)
	log.Printf(msgfmt, args...)
}
