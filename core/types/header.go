package types

import (
	"math/big"
	"sync/atomic"

	"golang.org/x/crypto/sha3"

	"github.com/sbv-go/sbv/rlp"
)

const BloomLength = 256

// Bloom represents a 2048-bit log bloom filter.
type Bloom [BloomLength]byte

// NonceLength is the size of the legacy PoW block nonce.
const NonceLength = 8

// BlockNonce is the 8-byte block nonce (always zero post-merge).
type BlockNonce [NonceLength]byte

// Header carries the block header fields needed for execution context and
// for asserting the expected post-state root. The StateRoot field is the
// header-claimed state root after executing the block.
type Header struct {
	ParentHash  Hash       `json:"parent_hash"`
	UncleHash   Hash       `json:"uncle_hash"`
	Coinbase    Address    `json:"coinbase"`
	StateRoot   Hash       `json:"state_root"`
	TxHash      Hash       `json:"transactions_root"`
	ReceiptHash Hash       `json:"receipts_root"`
	Bloom       Bloom      `json:"-"`
	Difficulty  *big.Int   `json:"difficulty"`
	Number      uint64     `json:"number"`
	GasLimit    uint64     `json:"gas_limit"`
	GasUsed     uint64     `json:"gas_used"`
	Timestamp   uint64     `json:"timestamp"`
	Extra       Bytes      `json:"extra_data"`
	MixDigest   Hash       `json:"mix_hash"`
	Nonce       BlockNonce `json:"-"`

	// EIP-1559
	BaseFee *big.Int `json:"base_fee_per_gas,omitempty"`

	// EIP-4895: beacon chain push withdrawals
	WithdrawalsHash *Hash `json:"withdrawals_root,omitempty"`

	// EIP-4844: blob transactions
	BlobGasUsed   *uint64 `json:"blob_gas_used,omitempty"`
	ExcessBlobGas *uint64 `json:"excess_blob_gas,omitempty"`

	// EIP-4788: beacon block root in the EVM
	ParentBeaconRoot *Hash `json:"parent_beacon_block_root,omitempty"`

	// EIP-7685: execution layer requests
	RequestsHash *Hash `json:"requests_hash,omitempty"`

	// Cache field, not serialized.
	hash atomic.Pointer[Hash]
}

// Hash returns the keccak256 hash of the RLP-encoded header.
func (h *Header) Hash() Hash {
	if cached := h.hash.Load(); cached != nil {
		return *cached
	}
	enc, err := h.EncodeRLP()
	if err != nil {
		return Hash{}
	}
	d := sha3.NewLegacyKeccak256()
	d.Write(enc)
	var hash Hash
	copy(hash[:], d.Sum(nil))
	h.hash.Store(&hash)
	return hash
}

// EncodeRLP returns the RLP encoding of the header in Yellow Paper field
// order. Optional fork fields are appended only when non-nil; a later
// optional must not be set unless all earlier ones are.
func (h *Header) EncodeRLP() ([]byte, error) {
	items := []interface{}{
		h.ParentHash,
		h.UncleHash,
		h.Coinbase,
		h.StateRoot,
		h.TxHash,
		h.ReceiptHash,
		h.Bloom,
		bigIntOrZero(h.Difficulty),
		new(big.Int).SetUint64(h.Number),
		h.GasLimit,
		h.GasUsed,
		h.Timestamp,
		[]byte(h.Extra),
		h.MixDigest,
		h.Nonce,
	}
	if h.BaseFee != nil {
		items = append(items, h.BaseFee)
	}
	if h.WithdrawalsHash != nil {
		items = append(items, *h.WithdrawalsHash)
	}
	if h.BlobGasUsed != nil {
		items = append(items, *h.BlobGasUsed)
	}
	if h.ExcessBlobGas != nil {
		items = append(items, *h.ExcessBlobGas)
	}
	if h.ParentBeaconRoot != nil {
		items = append(items, *h.ParentBeaconRoot)
	}
	if h.RequestsHash != nil {
		items = append(items, *h.RequestsHash)
	}

	var payload []byte
	for _, item := range items {
		enc, err := rlp.EncodeToBytes(item)
		if err != nil {
			return nil, err
		}
		payload = append(payload, enc...)
	}
	return rlp.WrapList(payload), nil
}

// Copy returns a deep copy of the header.
func (h *Header) Copy() *Header {
	cpy := Header{
		ParentHash:       h.ParentHash,
		UncleHash:        h.UncleHash,
		Coinbase:         h.Coinbase,
		StateRoot:        h.StateRoot,
		TxHash:           h.TxHash,
		ReceiptHash:      h.ReceiptHash,
		Bloom:            h.Bloom,
		Difficulty:       h.Difficulty,
		Number:           h.Number,
		GasLimit:         h.GasLimit,
		GasUsed:          h.GasUsed,
		Timestamp:        h.Timestamp,
		Extra:            h.Extra,
		MixDigest:        h.MixDigest,
		Nonce:            h.Nonce,
		BaseFee:          h.BaseFee,
		WithdrawalsHash:  h.WithdrawalsHash,
		BlobGasUsed:      h.BlobGasUsed,
		ExcessBlobGas:    h.ExcessBlobGas,
		ParentBeaconRoot: h.ParentBeaconRoot,
		RequestsHash:     h.RequestsHash,
	}
	if h.Difficulty != nil {
		cpy.Difficulty = new(big.Int).Set(h.Difficulty)
	}
	if h.BaseFee != nil {
		cpy.BaseFee = new(big.Int).Set(h.BaseFee)
	}
	cpy.Extra = append(Bytes(nil), h.Extra...)
	if h.WithdrawalsHash != nil {
		wh := *h.WithdrawalsHash
		cpy.WithdrawalsHash = &wh
	}
	if h.BlobGasUsed != nil {
		v := *h.BlobGasUsed
		cpy.BlobGasUsed = &v
	}
	if h.ExcessBlobGas != nil {
		v := *h.ExcessBlobGas
		cpy.ExcessBlobGas = &v
	}
	if h.ParentBeaconRoot != nil {
		r := *h.ParentBeaconRoot
		cpy.ParentBeaconRoot = &r
	}
	if h.RequestsHash != nil {
		r := *h.RequestsHash
		cpy.RequestsHash = &r
	}
	return &cpy
}

// bigIntOrZero returns v if non-nil, otherwise a zero big.Int.
func bigIntOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
