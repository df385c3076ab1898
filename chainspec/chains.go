package chainspec

import "math/big"

// Well-known chain ids.
const (
	MainnetChainID = 1
	SepoliaChainID = 11155111
	DevChainID     = 1337
)

func u64(n uint64) *uint64 { return &n }

func mustBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("chainspec: bad big integer literal " + s)
	}
	return v
}

// MainnetConfig is the Ethereum mainnet fork schedule.
func MainnetConfig() *Config {
	return &Config{
		ChainID:                 MainnetChainID,
		HomesteadBlock:          u64(1_150_000),
		EIP150Block:             u64(2_463_000),
		EIP155Block:             u64(2_675_000),
		EIP158Block:             u64(2_675_000),
		ByzantiumBlock:          u64(4_370_000),
		ConstantinopleBlock:     u64(7_280_000),
		PetersburgBlock:         u64(7_280_000),
		IstanbulBlock:           u64(9_069_000),
		BerlinBlock:             u64(12_244_000),
		LondonBlock:             u64(12_965_000),
		ParisBlock:              u64(15_537_394),
		ShanghaiTime:            u64(1_681_338_455),
		CancunTime:              u64(1_710_338_135),
		TerminalTotalDifficulty: mustBig("58750000000000000000000"),
	}
}

// SepoliaConfig is the Sepolia testnet fork schedule.
func SepoliaConfig() *Config {
	return &Config{
		ChainID:                 SepoliaChainID,
		HomesteadBlock:          u64(0),
		EIP150Block:             u64(0),
		EIP155Block:             u64(0),
		EIP158Block:             u64(0),
		ByzantiumBlock:          u64(0),
		ConstantinopleBlock:     u64(0),
		PetersburgBlock:         u64(0),
		IstanbulBlock:           u64(0),
		BerlinBlock:             u64(0),
		LondonBlock:             u64(0),
		ParisBlock:              u64(1_735_371),
		ShanghaiTime:            u64(1_677_557_088),
		CancunTime:              u64(1_706_655_072),
		TerminalTotalDifficulty: mustBig("17000000000000000"),
	}
}

// DevConfig activates every supported fork from genesis, for local test
// networks.
func DevConfig() *Config {
	return &Config{
		ChainID:                 DevChainID,
		HomesteadBlock:          u64(0),
		EIP150Block:             u64(0),
		EIP155Block:             u64(0),
		EIP158Block:             u64(0),
		ByzantiumBlock:          u64(0),
		ConstantinopleBlock:     u64(0),
		PetersburgBlock:         u64(0),
		IstanbulBlock:           u64(0),
		BerlinBlock:             u64(0),
		LondonBlock:             u64(0),
		ParisBlock:              u64(0),
		ShanghaiTime:            u64(0),
		CancunTime:              u64(0),
		TerminalTotalDifficulty: new(big.Int),
	}
}
