package chainspec

import "fmt"

// Fork names one protocol upgrade. Forks are totally ordered.
type Fork int

const (
	Frontier Fork = iota
	Homestead
	Tangerine // EIP-150
	Spurious  // EIP-155/158
	Byzantium
	Constantinople
	Petersburg
	Istanbul
	Berlin
	London
	Paris
	Shanghai
	Cancun
)

var forkNames = map[Fork]string{
	Frontier:       "frontier",
	Homestead:      "homestead",
	Tangerine:      "tangerine",
	Spurious:       "spurious",
	Byzantium:      "byzantium",
	Constantinople: "constantinople",
	Petersburg:     "petersburg",
	Istanbul:       "istanbul",
	Berlin:         "berlin",
	London:         "london",
	Paris:          "paris",
	Shanghai:       "shanghai",
	Cancun:         "cancun",
}

func (f Fork) String() string {
	if name, ok := forkNames[f]; ok {
		return name
	}
	return fmt.Sprintf("fork(%d)", int(f))
}

// ParseFork resolves a fork name.
func ParseFork(name string) (Fork, error) {
	for f, n := range forkNames {
		if n == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("chainspec: unknown fork %q", name)
}

// applyOverride rewrites a fork schedule so that every fork up to and
// including f is active from genesis and every later fork never activates.
func applyOverride(c *Config, f Fork) *Config {
	c = c.Copy()
	set := func(target Fork, field **uint64) {
		if target <= f {
			*field = u64(0)
		} else {
			*field = nil
		}
	}
	set(Homestead, &c.HomesteadBlock)
	set(Tangerine, &c.EIP150Block)
	set(Spurious, &c.EIP155Block)
	set(Spurious, &c.EIP158Block)
	set(Byzantium, &c.ByzantiumBlock)
	set(Constantinople, &c.ConstantinopleBlock)
	set(Petersburg, &c.PetersburgBlock)
	set(Istanbul, &c.IstanbulBlock)
	set(Berlin, &c.BerlinBlock)
	set(London, &c.LondonBlock)
	set(Paris, &c.ParisBlock)
	set(Shanghai, &c.ShanghaiTime)
	set(Cancun, &c.CancunTime)
	return c
}
