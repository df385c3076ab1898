package types

import "github.com/sbv-go/sbv/rlp"

// Withdrawal is a validator withdrawal pushed into the execution layer by
// the beacon chain. Amount is denominated in Gwei.
type Withdrawal struct {
	Index     uint64  `json:"index"`
	Validator uint64  `json:"validator_index"`
	Address   Address `json:"address"`
	Amount    uint64  `json:"amount"`
}

// EncodeRLP returns the withdrawal encoding used by the withdrawals trie.
func (w *Withdrawal) EncodeRLP() ([]byte, error) {
	var payload []byte
	for _, f := range []interface{}{w.Index, w.Validator, w.Address, w.Amount} {
		enc, err := rlp.EncodeToBytes(f)
		if err != nil {
			return nil, err
		}
		payload = append(payload, enc...)
	}
	return rlp.WrapList(payload), nil
}
