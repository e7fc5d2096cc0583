package engine

import (
	"gonum.org/v1/gonum/stat/combin"

	"qcalab/domain/qca"
)

// Combinations lazily enumerates {0,1}^n in condition order. Each position
// yields 1 before 0, so the first combination is all-present and the last
// all-absent. The size check happens in NewCombinations, before any row exists.
type Combinations struct {
	gen  *combin.CartesianGenerator
	n    int
	idx  []int
	seen int
}

// NewCombinations guards against 2^n explosion before enumeration starts
func NewCombinations(n, maxConditions int) (*Combinations, error) {
	if maxConditions > qca.HardMaxConditions {
		maxConditions = qca.HardMaxConditions
	}
	if n > maxConditions {
		return nil, qca.NewCombinationExplosionError(n, maxConditions)
	}
	if n < 1 {
		return nil, qca.NewInsufficientDataError(n, 0, 0)
	}

	lens := make([]int, n)
	for i := range lens {
		lens[i] = 2
	}
	return &Combinations{
		gen: combin.NewCartesianGenerator(lens),
		n:   n,
		idx: make([]int, n),
	}, nil
}

// Count is the number of combinations the iterator will produce
func (c *Combinations) Count() int {
	return 1 << c.n
}

// Next advances to the next combination
func (c *Combinations) Next() bool {
	if !c.gen.Next() {
		return false
	}
	c.seen++
	return true
}

// Combination returns a fresh copy of the current combination
func (c *Combinations) Combination() []int {
	c.idx = c.gen.Product(c.idx)
	combination := make([]int, c.n)
	for i, v := range c.idx {
		combination[i] = 1 - v
	}
	return combination
}

// Seen is the number of combinations produced so far
func (c *Combinations) Seen() int {
	return c.seen
}
