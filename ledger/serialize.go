package ledger

import (
	"encoding/json"

	"github.com/chain/txvm/errors"
)

// Bytes serializes the state for persistence. Map keys marshal as hex
// text, so the encoding is deterministic (encoding/json sorts map
// keys).
func (s *State) Bytes() ([]byte, error) {
	b, err := json.Marshal(s)
	return b, errors.Wrap(err, "marshaling ledger state")
}

// FromBytes replaces s with the state serialized in b.
func (s *State) FromBytes(b []byte) error {
	c := Empty()
	if err := json.Unmarshal(b, c); err != nil {
		return errors.Wrap(err, "parsing ledger state")
	}
	if c.Accounts == nil {
		c.Accounts = Empty().Accounts
	}
	if c.Notes == nil {
		c.Notes = Empty().Notes
	}
	if c.Nullifiers == nil {
		c.Nullifiers = Empty().Nullifiers
	}
	*s = *c
	return nil
}
