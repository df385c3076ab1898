package types

import (
	"fmt"
	"math/big"
	"sync/atomic"

	"golang.org/x/crypto/sha3"

	"github.com/sbv-go/sbv/rlp"
)

// Transaction type constants.
const (
	LegacyTxType     = 0x00
	AccessListTxType = 0x01
	DynamicFeeTxType = 0x02
)

// AccessTuple is a single address and its accessed storage slots.
type AccessTuple struct {
	Address     Address `json:"address"`
	StorageKeys []Hash  `json:"storage_keys"`
}

// AccessList is a list of address-slot pairs accessed by a transaction.
type AccessList []AccessTuple

// Transaction is a block witness transaction. The flat shape carries the
// union of legacy, access-list and dynamic-fee fields; Type selects which
// are meaningful. Fee fields the type does not use stay nil.
type Transaction struct {
	Type       byte       `json:"type"`
	ChainID    *big.Int   `json:"chain_id,omitempty"`
	Nonce      uint64     `json:"nonce"`
	GasPrice   *big.Int   `json:"gas_price,omitempty"`
	GasTipCap  *big.Int   `json:"max_priority_fee_per_gas,omitempty"`
	GasFeeCap  *big.Int   `json:"max_fee_per_gas,omitempty"`
	Gas        uint64     `json:"gas"`
	To         *Address   `json:"to,omitempty"`
	Value      *big.Int   `json:"value"`
	Data       Bytes      `json:"data,omitempty"`
	AccessList AccessList `json:"access_list,omitempty"`
	V          *big.Int   `json:"v"`
	R          *big.Int   `json:"r"`
	S          *big.Int   `json:"s"`

	hash atomic.Pointer[Hash]
}

// Hash returns the canonical transaction hash: keccak of the RLP encoding
// for legacy transactions, keccak of type byte plus RLP payload for typed
// transactions. Used to attribute execution errors to a transaction.
func (tx *Transaction) Hash() Hash {
	if h := tx.hash.Load(); h != nil {
		return *h
	}
	enc, err := tx.EncodeRLP()
	if err != nil {
		// An unencodable transaction has no canonical hash; identity
		// falls back to the zero hash rather than panicking mid-run.
		return Hash{}
	}
	d := sha3.NewLegacyKeccak256()
	d.Write(enc)
	var h Hash
	copy(h[:], d.Sum(nil))
	tx.hash.Store(&h)
	return h
}

// EncodeRLP returns the network encoding of the transaction (the typed
// envelope for non-legacy types).
func (tx *Transaction) EncodeRLP() ([]byte, error) {
	payload, err := tx.encodePayload()
	if err != nil {
		return nil, err
	}
	if tx.Type == LegacyTxType {
		return payload, nil
	}
	return append([]byte{tx.Type}, payload...), nil
}

func (tx *Transaction) encodePayload() ([]byte, error) {
	var fields []interface{}
	switch tx.Type {
	case LegacyTxType:
		fields = []interface{}{
			tx.Nonce, bigIntOrZero(tx.GasPrice), tx.Gas, tx.toBytes(),
			bigIntOrZero(tx.Value), []byte(tx.Data),
			bigIntOrZero(tx.V), bigIntOrZero(tx.R), bigIntOrZero(tx.S),
		}
	case AccessListTxType:
		fields = []interface{}{
			bigIntOrZero(tx.ChainID), tx.Nonce, bigIntOrZero(tx.GasPrice),
			tx.Gas, tx.toBytes(), bigIntOrZero(tx.Value), []byte(tx.Data),
			tx.AccessList,
			bigIntOrZero(tx.V), bigIntOrZero(tx.R), bigIntOrZero(tx.S),
		}
	case DynamicFeeTxType:
		fields = []interface{}{
			bigIntOrZero(tx.ChainID), tx.Nonce,
			bigIntOrZero(tx.GasTipCap), bigIntOrZero(tx.GasFeeCap),
			tx.Gas, tx.toBytes(), bigIntOrZero(tx.Value), []byte(tx.Data),
			tx.AccessList,
			bigIntOrZero(tx.V), bigIntOrZero(tx.R), bigIntOrZero(tx.S),
		}
	default:
		return nil, fmt.Errorf("types: unsupported transaction type %#x", tx.Type)
	}
	var payload []byte
	for _, f := range fields {
		enc, err := rlp.EncodeToBytes(f)
		if err != nil {
			return nil, err
		}
		payload = append(payload, enc...)
	}
	return rlp.WrapList(payload), nil
}

// toBytes returns the recipient for RLP purposes: nil (contract creation)
// encodes as the empty string.
func (tx *Transaction) toBytes() []byte {
	if tx.To == nil {
		return nil
	}
	return tx.To[:]
}

// IsCreate reports whether the transaction creates a contract.
func (tx *Transaction) IsCreate() bool {
	return tx.To == nil
}

// EffectiveGasTipCap returns the priority fee field applicable to the
// transaction type.
func (tx *Transaction) EffectiveGasTipCap() *big.Int {
	if tx.Type == DynamicFeeTxType {
		return bigIntOrZero(tx.GasTipCap)
	}
	return bigIntOrZero(tx.GasPrice)
}

// EffectiveGasFeeCap returns the fee cap field applicable to the
// transaction type.
func (tx *Transaction) EffectiveGasFeeCap() *big.Int {
	if tx.Type == DynamicFeeTxType {
		return bigIntOrZero(tx.GasFeeCap)
	}
	return bigIntOrZero(tx.GasPrice)
}

// Copy returns a deep copy of the transaction without the cached hash.
func (tx *Transaction) Copy() *Transaction {
	cpy := &Transaction{
		Type:  tx.Type,
		Nonce: tx.Nonce,
		Gas:   tx.Gas,
		Data:  append(Bytes(nil), tx.Data...),
	}
	if tx.ChainID != nil {
		cpy.ChainID = new(big.Int).Set(tx.ChainID)
	}
	if tx.GasPrice != nil {
		cpy.GasPrice = new(big.Int).Set(tx.GasPrice)
	}
	if tx.GasTipCap != nil {
		cpy.GasTipCap = new(big.Int).Set(tx.GasTipCap)
	}
	if tx.GasFeeCap != nil {
		cpy.GasFeeCap = new(big.Int).Set(tx.GasFeeCap)
	}
	if tx.To != nil {
		to := *tx.To
		cpy.To = &to
	}
	if tx.Value != nil {
		cpy.Value = new(big.Int).Set(tx.Value)
	}
	if tx.V != nil {
		cpy.V = new(big.Int).Set(tx.V)
	}
	if tx.R != nil {
		cpy.R = new(big.Int).Set(tx.R)
	}
	if tx.S != nil {
		cpy.S = new(big.Int).Set(tx.S)
	}
	if tx.AccessList != nil {
		cpy.AccessList = make(AccessList, len(tx.AccessList))
		for i, tuple := range tx.AccessList {
			cpy.AccessList[i] = AccessTuple{
				Address:     tuple.Address,
				StorageKeys: append([]Hash(nil), tuple.StorageKeys...),
			}
		}
	}
	return cpy
}
