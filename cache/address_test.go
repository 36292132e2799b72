package cache_test

import (
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/csim/cache"
)

var _ = Describe("Address decomposition", func() {
	It("should split an address into tag, set index, and offset", func() {
		config := cache.Config{SetBits: 4, LinesPerSet: 1, BlockBits: 4}

		f := config.Decompose(0x12345)
		Expect(f).To(Equal(cache.Fields{
			Tag:         0x123,
			SetIndex:    0x4,
			BlockOffset: 0x5,
		}))
		Expect(config.BlockAddr(0x12345)).To(Equal(uint64(0x12340)))
	})

	It("should use the whole address as tag when s=0 and b=0", func() {
		config := cache.Config{LinesPerSet: 1}

		f := config.Decompose(math.MaxUint64)
		Expect(f.Tag).To(Equal(uint64(math.MaxUint64)))
		Expect(f.SetIndex).To(BeZero())
		Expect(f.BlockOffset).To(BeZero())
	})

	It("should give a zero tag when s+b is 64", func() {
		config := cache.Config{SetBits: 8, LinesPerSet: 1, BlockBits: 56}

		f := config.Decompose(0xAB00000000000001)
		Expect(f.Tag).To(BeZero())
		Expect(f.SetIndex).To(Equal(uint64(0xAB)))
		Expect(f.BlockOffset).To(Equal(uint64(1)))
	})

	It("should round-trip every address for every valid geometry", func() {
		rng := rand.New(rand.NewSource(3))

		for s := 0; s <= 20; s++ {
			for b := 0; s+b <= cache.AddressBits; b += 4 {
				config := cache.Config{SetBits: s, LinesPerSet: 1, BlockBits: b}
				for i := 0; i < 50; i++ {
					addr := rng.Uint64()
					f := config.Decompose(addr)

					Expect(f.SetIndex).To(BeNumerically("<",
						uint64(config.NumSets())))
					Expect(config.Compose(f)).To(Equal(addr))
				}
			}
		}
	})
})
