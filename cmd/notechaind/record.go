package main

import (
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"

	"github.com/chain/txvm/crypto/ed25519"

	"notechain/account"
)

// NewAccount is the request body for the /record endpoint: the code
// kind, initial storage, and optional auth key of an account to
// register in the ledger.
type NewAccount struct {
	Code    account.Code      `json:"code"`
	Storage []account.Slot    `json:"storage"`
	AuthKey ed25519.PublicKey `json:"auth_key,omitempty"`
}

// record registers a new account in ledger state and responds with
// its derived ID.
func (s *submitter) record(w http.ResponseWriter, req *http.Request) {
	data, err := ioutil.ReadAll(req.Body)
	if err != nil {
		httpErrf(w, http.StatusInternalServerError, "reading request body: %s", err)
		return
	}
	var na NewAccount
	err = json.Unmarshal(data, &na)
	if err != nil {
		httpErrf(w, http.StatusBadRequest, "parsing request body: %s", err)
		return
	}
	acct, err := account.New(na.Code, na.Storage, na.AuthKey)
	if err != nil {
		httpErrf(w, http.StatusBadRequest, "creating account: %s", err)
		return
	}

	s.mu.Lock()
	next := s.state.Copy()
	addErr := next.AddAccount(acct)
	var saveErr error
	if addErr == nil {
		// persist before exposing: a registration that only lives in
		// memory would vanish on restart
		saveErr = s.st.SaveSnapshot(req.Context(), next)
		if saveErr == nil {
			s.state = next
		}
	}
	s.mu.Unlock()

	if addErr != nil {
		httpErrf(w, http.StatusConflict, "registering account: %s", addErr)
		return
	}
	if saveErr != nil {
		httpErrf(w, http.StatusInternalServerError, "writing snapshot: %s", saveErr)
		return
	}
	log.Printf("recorded %s account %s in ledger state", acct.Code.Kind, acct.ID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"id": acct.ID.String()})
}
