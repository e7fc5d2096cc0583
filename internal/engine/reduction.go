package engine

import (
	"math/bits"
	"sort"

	"qcalab/domain/qca"
)

// cube is a product term: bits set in mask are eliminated (don't care)
type cube struct {
	value uint32
	mask  uint32
}

func (c cube) covers(minterm uint32) bool {
	return minterm&^c.mask == c.value
}

func (c cube) literals(n int) int {
	return n - bits.OnesCount32(c.mask)
}

// Reduce returns a Quine-McCluskey cover of the given minterms. Combinations
// not listed are treated as false; no logical remainder is used as a
// don't-care. Terms come out ordered by literal count, then position.
func Reduce(conditions []string, minterms [][]int) []qca.Term {
	n := len(conditions)
	if len(minterms) == 0 {
		return nil
	}

	ons := make([]uint32, 0, len(minterms))
	seen := make(map[uint32]bool, len(minterms))
	for _, m := range minterms {
		v := encode(m)
		if !seen[v] {
			seen[v] = true
			ons = append(ons, v)
		}
	}
	sort.Slice(ons, func(i, j int) bool { return ons[i] > ons[j] })

	primes := primeImplicants(ons)
	cover := selectCover(primes, ons, n)

	terms := make([]qca.Term, len(cover))
	for i, c := range cover {
		terms[i] = decode(c, conditions)
	}
	return terms
}

func primeImplicants(ons []uint32) []cube {
	current := make([]cube, len(ons))
	for i, v := range ons {
		current[i] = cube{value: v}
	}

	var primes []cube
	for len(current) > 0 {
		used := make([]bool, len(current))
		nextSeen := make(map[cube]bool)
		var next []cube

		for i := 0; i < len(current); i++ {
			for j := i + 1; j < len(current); j++ {
				a, b := current[i], current[j]
				if a.mask != b.mask {
					continue
				}
				diff := a.value ^ b.value
				if bits.OnesCount32(diff) != 1 {
					continue
				}
				used[i], used[j] = true, true
				merged := cube{value: a.value &^ diff, mask: a.mask | diff}
				if !nextSeen[merged] {
					nextSeen[merged] = true
					next = append(next, merged)
				}
			}
		}
		for i, c := range current {
			if !used[i] {
				primes = append(primes, c)
			}
		}
		current = next
	}
	return primes
}

// selectCover takes essential primes first, then greedily the prime that
// covers the most uncovered minterms, preferring fewer literals.
func selectCover(primes []cube, ons []uint32, n int) []cube {
	sort.SliceStable(primes, func(i, j int) bool {
		li, lj := primes[i].literals(n), primes[j].literals(n)
		if li != lj {
			return li < lj
		}
		if primes[i].value != primes[j].value {
			return primes[i].value > primes[j].value
		}
		return primes[i].mask < primes[j].mask
	})

	uncovered := make(map[uint32]bool, len(ons))
	for _, m := range ons {
		uncovered[m] = true
	}
	chosen := make([]bool, len(primes))

	for _, m := range ons {
		only := -1
		for i, p := range primes {
			if p.covers(m) {
				if only >= 0 {
					only = -2
					break
				}
				only = i
			}
		}
		if only >= 0 && !chosen[only] {
			chosen[only] = true
			for _, o := range ons {
				if primes[only].covers(o) {
					delete(uncovered, o)
				}
			}
		}
	}

	for len(uncovered) > 0 {
		best, bestCount := -1, 0
		for i, p := range primes {
			if chosen[i] {
				continue
			}
			count := 0
			for m := range uncovered {
				if p.covers(m) {
					count++
				}
			}
			if count > bestCount {
				best, bestCount = i, count
			}
		}
		if best < 0 {
			break
		}
		chosen[best] = true
		for m := range uncovered {
			if primes[best].covers(m) {
				delete(uncovered, m)
			}
		}
	}

	var cover []cube
	for i, p := range primes {
		if chosen[i] {
			cover = append(cover, p)
		}
	}
	return cover
}

// encode maps condition i to bit n-1-i so the first condition is most significant
func encode(combination []int) uint32 {
	var v uint32
	for _, b := range combination {
		v <<= 1
		if b == 1 {
			v |= 1
		}
	}
	return v
}

func decode(c cube, conditions []string) qca.Term {
	n := len(conditions)
	term := make(qca.Term, 0, c.literals(n))
	for i, name := range conditions {
		bit := uint32(1) << uint(n-1-i)
		if c.mask&bit != 0 {
			continue
		}
		term = append(term, qca.Literal{Condition: name, Negated: c.value&bit == 0})
	}
	return term
}
