// Package cache models a set-associative cache with LRU replacement and
// counts the hits, misses, and evictions produced by a stream of accesses.
package cache

import (
	"encoding/json"
	"fmt"
	"math/bits"
	"os"
	"unsafe"
)

// AddressBits is the width of the addresses the cache decomposes.
const AddressBits = 64

// Config holds the cache geometry.
type Config struct {
	// SetBits is s, the number of set index bits. The cache has 2^s sets.
	SetBits int `json:"set_bits"`

	// LinesPerSet is E, the associativity. Must be at least 1.
	LinesPerSet int `json:"lines_per_set"`

	// BlockBits is b, the number of block offset bits. Blocks are 2^b bytes.
	BlockBits int `json:"block_bits"`
}

// DefaultConfig returns a 1KB direct-mapped cache with 32B blocks
// (s=5, E=1, b=5).
func DefaultConfig() *Config {
	return &Config{
		SetBits:     5,
		LinesPerSet: 1,
		BlockBits:   5,
	}
}

// LoadConfig loads a Config from a JSON file. Fields missing from the file
// keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse cache config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize cache config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache config file: %w", err)
	}

	return nil
}

// Validate checks that the geometry describes a cache that can be built.
func (c *Config) Validate() error {
	if c.SetBits < 0 {
		return &ConfigError{Field: "set_bits", Value: c.SetBits,
			Reason: "must be >= 0"}
	}
	if c.LinesPerSet < 1 {
		return &ConfigError{Field: "lines_per_set", Value: c.LinesPerSet,
			Reason: "must be >= 1"}
	}
	if c.BlockBits < 0 {
		return &ConfigError{Field: "block_bits", Value: c.BlockBits,
			Reason: "must be >= 0"}
	}
	if c.SetBits+c.BlockBits > AddressBits {
		return &ConfigError{Field: "set_bits+block_bits",
			Value:  c.SetBits + c.BlockBits,
			Reason: fmt.Sprintf("must be <= %d", AddressBits)}
	}

	// The set array and its lines are allocated up front, so both counts
	// must be representable as an int.
	if c.SetBits >= bits.UintSize-1 {
		return &ConfigError{Field: "set_bits", Value: c.SetBits,
			Reason: "set count overflows int"}
	}
	hi, lo := bits.Mul(uint(1)<<c.SetBits, uint(c.LinesPerSet))
	if hi != 0 || lo > uint(maxInt) {
		return &ConfigError{Field: "lines_per_set", Value: c.LinesPerSet,
			Reason: "total line count overflows int"}
	}

	return c.validateFootprint()
}

const maxInt = int(^uint(0) >> 1)

// MaxFootprint is the largest number of bytes New may allocate for the sets
// and their lines.
const MaxFootprint = 1 << 34

func (c *Config) validateFootprint() error {
	limit := uint64(MaxFootprint)
	if uint64(maxInt) < limit {
		limit = uint64(maxInt)
	}

	numSets := uint64(1) << c.SetBits
	hi, setBytes := bits.Mul64(numSets, uint64(unsafe.Sizeof(set{})))
	if hi != 0 || setBytes > limit {
		return &ConfigError{Field: "set_bits", Value: c.SetBits,
			Reason: fmt.Sprintf("sets need more than %d bytes", limit)}
	}

	hi, numLines := bits.Mul64(numSets, uint64(c.LinesPerSet))
	lineHi, lineBytes := bits.Mul64(numLines, uint64(unsafe.Sizeof(line{})))
	total, carry := bits.Add64(setBytes, lineBytes, 0)
	if hi != 0 || lineHi != 0 || carry != 0 || total > limit {
		return &ConfigError{Field: "lines_per_set", Value: c.LinesPerSet,
			Reason: fmt.Sprintf("sets and lines need more than %d bytes",
				limit)}
	}

	return nil
}

// NumSets returns S = 2^s.
func (c *Config) NumSets() int {
	return 1 << c.SetBits
}

// BlockSize returns B = 2^b in bytes.
func (c *Config) BlockSize() uint64 {
	return uint64(1) << c.BlockBits
}

// Size returns the capacity of the cache in bytes, S * E * B.
func (c *Config) Size() uint64 {
	return uint64(c.NumSets()) * uint64(c.LinesPerSet) * c.BlockSize()
}

func (c *Config) String() string {
	return fmt.Sprintf("s=%d E=%d b=%d", c.SetBits, c.LinesPerSet, c.BlockBits)
}
