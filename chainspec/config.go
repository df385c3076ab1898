// Package chainspec provides the execution-environment configuration for a
// block: which ruleset is active on a given chain at a given number and
// timestamp. Configurations are immutable after construction and safe to
// share across concurrent verification runs.
package chainspec

import "math/big"

// Config is the fork schedule of one chain. A nil activation pointer means
// the fork never activates. Pre-merge forks activate by block number,
// post-merge forks by timestamp.
type Config struct {
	ChainID uint64

	HomesteadBlock      *uint64
	EIP150Block         *uint64
	EIP155Block         *uint64
	EIP158Block         *uint64
	ByzantiumBlock      *uint64
	ConstantinopleBlock *uint64
	PetersburgBlock     *uint64
	IstanbulBlock       *uint64
	BerlinBlock         *uint64
	LondonBlock         *uint64
	ParisBlock          *uint64

	ShanghaiTime *uint64
	CancunTime   *uint64

	// TerminalTotalDifficulty is carried for engines that insist on a
	// merge boundary; ParisBlock is authoritative for rule selection.
	TerminalTotalDifficulty *big.Int
}

// Rules is the flattened ruleset active at one block.
type Rules struct {
	ChainID          uint64
	IsHomestead      bool
	IsEIP150         bool
	IsEIP155         bool
	IsEIP158         bool
	IsByzantium      bool
	IsConstantinople bool
	IsPetersburg     bool
	IsIstanbul       bool
	IsBerlin         bool
	IsLondon         bool
	IsParis          bool
	IsShanghai       bool
	IsCancun         bool
}

func activeAt(activation *uint64, at uint64) bool {
	return activation != nil && *activation <= at
}

// Rules returns the ruleset active at the given block number and timestamp.
func (c *Config) Rules(number, time uint64) Rules {
	return Rules{
		ChainID:          c.ChainID,
		IsHomestead:      activeAt(c.HomesteadBlock, number),
		IsEIP150:         activeAt(c.EIP150Block, number),
		IsEIP155:         activeAt(c.EIP155Block, number),
		IsEIP158:         activeAt(c.EIP158Block, number),
		IsByzantium:      activeAt(c.ByzantiumBlock, number),
		IsConstantinople: activeAt(c.ConstantinopleBlock, number),
		IsPetersburg:     activeAt(c.PetersburgBlock, number),
		IsIstanbul:       activeAt(c.IstanbulBlock, number),
		IsBerlin:         activeAt(c.BerlinBlock, number),
		IsLondon:         activeAt(c.LondonBlock, number),
		IsParis:          activeAt(c.ParisBlock, number),
		IsShanghai:       activeAt(c.ShanghaiTime, time),
		IsCancun:         activeAt(c.CancunTime, time),
	}
}

// Copy returns a deep copy of the config.
func (c *Config) Copy() *Config {
	cpy := *c
	copyU64 := func(p *uint64) *uint64 {
		if p == nil {
			return nil
		}
		v := *p
		return &v
	}
	cpy.HomesteadBlock = copyU64(c.HomesteadBlock)
	cpy.EIP150Block = copyU64(c.EIP150Block)
	cpy.EIP155Block = copyU64(c.EIP155Block)
	cpy.EIP158Block = copyU64(c.EIP158Block)
	cpy.ByzantiumBlock = copyU64(c.ByzantiumBlock)
	cpy.ConstantinopleBlock = copyU64(c.ConstantinopleBlock)
	cpy.PetersburgBlock = copyU64(c.PetersburgBlock)
	cpy.IstanbulBlock = copyU64(c.IstanbulBlock)
	cpy.BerlinBlock = copyU64(c.BerlinBlock)
	cpy.LondonBlock = copyU64(c.LondonBlock)
	cpy.ParisBlock = copyU64(c.ParisBlock)
	cpy.ShanghaiTime = copyU64(c.ShanghaiTime)
	cpy.CancunTime = copyU64(c.CancunTime)
	if c.TerminalTotalDifficulty != nil {
		cpy.TerminalTotalDifficulty = new(big.Int).Set(c.TerminalTotalDifficulty)
	}
	return &cpy
}
