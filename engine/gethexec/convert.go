package gethexec

import (
	"errors"
	"fmt"
	"math/big"

	gethcommon "github.com/ethereum/go-ethereum/common"
	gethcore "github.com/ethereum/go-ethereum/core"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"

	"github.com/sbv-go/sbv/chainspec"
	"github.com/sbv-go/sbv/core/types"
)

// --- Address and Hash conversion (zero-copy, layout-compatible) ---

func toGethAddress(a types.Address) gethcommon.Address {
	return gethcommon.Address(a)
}

func fromGethAddress(a gethcommon.Address) types.Address {
	return types.Address(a)
}

func toGethHash(h types.Hash) gethcommon.Hash {
	return gethcommon.Hash(h)
}

func fromGethHash(h gethcommon.Hash) types.Hash {
	return types.Hash(h)
}

// toGethConfig converts a fork schedule to a go-ethereum ChainConfig.
// Block activations widen to *big.Int; the merge block maps to
// MergeNetsplitBlock plus a terminal total difficulty, which go-ethereum
// requires to consider a chain merged.
func toGethConfig(c *chainspec.Config) *params.ChainConfig {
	gc := &params.ChainConfig{
		ChainID: new(big.Int).SetUint64(c.ChainID),

		HomesteadBlock:      bigFromU64(c.HomesteadBlock),
		EIP150Block:         bigFromU64(c.EIP150Block),
		EIP155Block:         bigFromU64(c.EIP155Block),
		EIP158Block:         bigFromU64(c.EIP158Block),
		ByzantiumBlock:      bigFromU64(c.ByzantiumBlock),
		ConstantinopleBlock: bigFromU64(c.ConstantinopleBlock),
		PetersburgBlock:     bigFromU64(c.PetersburgBlock),
		IstanbulBlock:       bigFromU64(c.IstanbulBlock),
		BerlinBlock:         bigFromU64(c.BerlinBlock),
		LondonBlock:         bigFromU64(c.LondonBlock),

		ShanghaiTime: c.ShanghaiTime,
		CancunTime:   c.CancunTime,
	}
	if c.ParisBlock != nil {
		gc.MergeNetsplitBlock = bigFromU64(c.ParisBlock)
		gc.TerminalTotalDifficulty = big.NewInt(0)
	}
	if c.TerminalTotalDifficulty != nil {
		gc.TerminalTotalDifficulty = new(big.Int).Set(c.TerminalTotalDifficulty)
	}
	return gc
}

func bigFromU64(v *uint64) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).SetUint64(*v)
}

func toGethAccessList(al types.AccessList) gethtypes.AccessList {
	if al == nil {
		return nil
	}
	result := make(gethtypes.AccessList, len(al))
	for i, tuple := range al {
		keys := make([]gethcommon.Hash, len(tuple.StorageKeys))
		for j, k := range tuple.StorageKeys {
			keys[j] = toGethHash(k)
		}
		result[i] = gethtypes.AccessTuple{
			Address:     toGethAddress(tuple.Address),
			StorageKeys: keys,
		}
	}
	return result
}

// toGethTx rebuilds a go-ethereum transaction so the sender can be
// recovered from the signature.
func toGethTx(tx *types.Transaction) (*gethtypes.Transaction, error) {
	if tx.V == nil || tx.R == nil || tx.S == nil {
		return nil, errors.New("gethexec: transaction carries no signature")
	}
	var to *gethcommon.Address
	if tx.To != nil {
		addr := toGethAddress(*tx.To)
		to = &addr
	}
	switch tx.Type {
	case types.LegacyTxType:
		return gethtypes.NewTx(&gethtypes.LegacyTx{
			Nonce:    tx.Nonce,
			GasPrice: bigOrZero(tx.GasPrice),
			Gas:      tx.Gas,
			To:       to,
			Value:    bigOrZero(tx.Value),
			Data:     tx.Data,
			V:        tx.V,
			R:        tx.R,
			S:        tx.S,
		}), nil
	case types.AccessListTxType:
		return gethtypes.NewTx(&gethtypes.AccessListTx{
			ChainID:    bigOrZero(tx.ChainID),
			Nonce:      tx.Nonce,
			GasPrice:   bigOrZero(tx.GasPrice),
			Gas:        tx.Gas,
			To:         to,
			Value:      bigOrZero(tx.Value),
			Data:       tx.Data,
			AccessList: toGethAccessList(tx.AccessList),
			V:          tx.V,
			R:          tx.R,
			S:          tx.S,
		}), nil
	case types.DynamicFeeTxType:
		return gethtypes.NewTx(&gethtypes.DynamicFeeTx{
			ChainID:    bigOrZero(tx.ChainID),
			Nonce:      tx.Nonce,
			GasTipCap:  bigOrZero(tx.GasTipCap),
			GasFeeCap:  bigOrZero(tx.GasFeeCap),
			Gas:        tx.Gas,
			To:         to,
			Value:      bigOrZero(tx.Value),
			Data:       tx.Data,
			AccessList: toGethAccessList(tx.AccessList),
			V:          tx.V,
			R:          tx.R,
			S:          tx.S,
		}), nil
	default:
		return nil, fmt.Errorf("gethexec: unsupported transaction type %#x", tx.Type)
	}
}

// recoverSender derives the transaction sender from its signature.
func recoverSender(chainID uint64, tx *types.Transaction) (gethcommon.Address, error) {
	gtx, err := toGethTx(tx)
	if err != nil {
		return gethcommon.Address{}, err
	}
	signer := gethtypes.LatestSignerForChainID(new(big.Int).SetUint64(chainID))
	from, err := gethtypes.Sender(signer, gtx)
	if err != nil {
		return gethcommon.Address{}, fmt.Errorf("gethexec: recover sender: %w", err)
	}
	return from, nil
}

// messageFromTx converts a transaction into a go-ethereum message. The
// effective gas price of dynamic-fee transactions is resolved against the
// block base fee here, once, instead of inside the state transition.
func messageFromTx(chainID uint64, tx *types.Transaction, baseFee *big.Int) (*gethcore.Message, error) {
	from, err := recoverSender(chainID, tx)
	if err != nil {
		return nil, err
	}
	var to *gethcommon.Address
	if tx.To != nil {
		addr := toGethAddress(*tx.To)
		to = &addr
	}
	msg := &gethcore.Message{
		From:       from,
		To:         to,
		Nonce:      tx.Nonce,
		Value:      bigOrZero(tx.Value),
		GasLimit:   tx.Gas,
		Data:       tx.Data,
		AccessList: toGethAccessList(tx.AccessList),
	}
	msg.GasFeeCap = tx.EffectiveGasFeeCap()
	msg.GasTipCap = tx.EffectiveGasTipCap()
	switch tx.Type {
	case types.LegacyTxType, types.AccessListTxType:
		msg.GasPrice = bigOrZero(tx.GasPrice)
	default:
		if baseFee != nil {
			msg.GasPrice = effectiveGasPrice(msg, baseFee)
		} else {
			msg.GasPrice = new(big.Int).Set(msg.GasFeeCap)
		}
	}
	return msg, nil
}

// effectiveGasPrice computes the EIP-1559 effective gas price.
func effectiveGasPrice(msg *gethcore.Message, baseFee *big.Int) *big.Int {
	if baseFee == nil || msg.GasFeeCap == nil {
		if msg.GasPrice != nil {
			return new(big.Int).Set(msg.GasPrice)
		}
		return new(big.Int)
	}
	tip := new(big.Int)
	if msg.GasTipCap != nil {
		tip.Set(msg.GasTipCap)
	}
	price := new(big.Int).Add(baseFee, tip)
	if price.Cmp(msg.GasFeeCap) > 0 {
		return new(big.Int).Set(msg.GasFeeCap)
	}
	return price
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
