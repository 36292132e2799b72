package cache

// Fields is an address split into its tag, set index, and block offset.
type Fields struct {
	Tag         uint64
	SetIndex    uint64
	BlockOffset uint64
}

// Decompose splits addr according to the cache geometry.
//
// Shifts of 64 or more yield zero in Go, so s+b == 64 gives a zero tag.
func (c *Config) Decompose(addr uint64) Fields {
	setMask := uint64(c.NumSets()) - 1
	offsetMask := c.BlockSize() - 1

	return Fields{
		Tag:         addr >> uint(c.SetBits+c.BlockBits),
		SetIndex:    (addr >> uint(c.BlockBits)) & setMask,
		BlockOffset: addr & offsetMask,
	}
}

// Compose rebuilds the address that Decompose split into f.
func (c *Config) Compose(f Fields) uint64 {
	return f.Tag<<uint(c.SetBits+c.BlockBits) |
		f.SetIndex<<uint(c.BlockBits) |
		f.BlockOffset
}

// BlockAddr returns addr with its block offset cleared.
func (c *Config) BlockAddr(addr uint64) uint64 {
	return addr &^ (c.BlockSize() - 1)
}
