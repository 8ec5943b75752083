// Package bloom provides the probabilistic prefilter the hosts gateway uses
// to skip foreign hosts lines that cannot name a blocked domain.
package bloom

import (
	bitsbloom "github.com/bits-and-blooms/bloom/v3"
)

// Filter answers "definitely not present" or "maybe present" for a key.
type Filter struct {
	bf *bitsbloom.BloomFilter
}

// New returns a Filter sized for capacity keys at false-positive rate fpRate.
func New(capacity uint64, fpRate float64) *Filter {
	m, k := Size(capacity, fpRate)
	return &Filter{bf: bitsbloom.New(uint(m), uint(k))}
}

// FromStrings builds a filter holding every string of keys.
func FromStrings(keys []string, fpRate float64) *Filter {
	f := New(uint64(len(keys)), fpRate)
	for _, k := range keys {
		f.bf.AddString(k)
	}
	return f
}

func (f *Filter) Add(key string) { f.bf.AddString(key) }

func (f *Filter) MightContain(key string) bool { return f.bf.TestString(key) }
