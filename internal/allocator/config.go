package allocator

import (
	"fmt"
	"math"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/garethgeorge/memsim/internal/placement"
)

const DefaultPoolSize = 500

// Config fixes the strategy and pool geometry of a session. It can be loaded
// from a TOML file:
//
//	strategy = "best"
//	pool_size = 4096
//	base_address = 65536
type Config struct {
	Strategy placement.Strategy `toml:"strategy"`
	PoolSize uint64             `toml:"pool_size"`
	// BaseAddress is added to every pool offset handed out by Allocate.
	BaseAddress uint64 `toml:"base_address"`
}

func DefaultConfig() Config {
	return Config{
		Strategy: placement.Best,
		PoolSize: DefaultPoolSize,
	}
}

func (c Config) Validate() error {
	if !c.Strategy.Valid() {
		return fmt.Errorf("%w: strategy %q: %w", ErrInvalidConfig, c.Strategy, placement.ErrUnknownStrategy)
	}
	if c.PoolSize == 0 {
		return fmt.Errorf("%w: pool size must be at least 1 byte", ErrInvalidConfig)
	}
	// Every address in the pool must stay below NilAddr.
	if c.BaseAddress > math.MaxUint64-c.PoolSize {
		return fmt.Errorf("%w: pool of %d bytes at base %d overflows the address space", ErrInvalidConfig, c.PoolSize, c.BaseAddress)
	}
	return nil
}

// LoadConfig reads a TOML config file. Keys missing from the file keep their
// DefaultConfig values; unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%w: unknown keys in %s: %s", ErrInvalidConfig, path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}
