package main

import (
	"net/http"
	"strconv"
)

func (s *submitter) get(w http.ResponseWriter, req *http.Request) {
	wantStr := req.FormValue("seqnum")
	var (
		want uint64 = 1
		err  error
	)
	if wantStr != "" {
		want, err = strconv.ParseUint(wantStr, 10, 64)
		if err != nil {
			httpErrf(w, http.StatusBadRequest, "parsing seqnum: %s", err)
			return
		}
	}

	s.mu.Lock()
	height := s.state.SeqNum
	s.mu.Unlock()

	if want == 0 {
		want = height
	}
	if want > height {
		ctx := req.Context()
		select {
		case <-s.waitSeq(want):
			// ok
		case <-ctx.Done():
			httpErrf(w, http.StatusRequestTimeout, "timed out")
			return
		}
	}

	t, err := s.st.GetTx(req.Context(), want)
	if err != nil {
		httpErrf(w, http.StatusInternalServerError, "getting tx %d: %s", want, err)
		return
	}

	bits, err := t.Marshal()
	if err != nil {
		httpErrf(w, http.StatusInternalServerError, "serializing tx %d: %s", want, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bits)
	if err != nil {
		httpErrf(w, http.StatusInternalServerError, "sending response: %s", err)
	}
}
