package engine

import (
	"fmt"

	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"

	"qcalab/domain/qca"
)

// Equivalent reports whether two sums of products over the same conditions
// agree on every assignment: their XOR must be unsatisfiable.
func Equivalent(conditions []string, a, b []qca.Term) (bool, error) {
	c := logic.NewC()
	vars := make(map[string]z.Lit, len(conditions))
	for _, name := range conditions {
		vars[name] = c.Lit()
	}

	fa, err := sumOfProducts(c, vars, a)
	if err != nil {
		return false, err
	}
	fb, err := sumOfProducts(c, vars, b)
	if err != nil {
		return false, err
	}
	differ := c.Xor(fa, fb)

	g := gini.New()
	c.ToCnf(g)
	g.Assume(differ)

	switch g.Solve() {
	case 1:
		return false, nil
	case -1:
		return true, nil
	default:
		return false, fmt.Errorf("equivalence check did not complete")
	}
}

func sumOfProducts(c *logic.C, vars map[string]z.Lit, terms []qca.Term) (z.Lit, error) {
	products := make([]z.Lit, 0, len(terms))
	for _, term := range terms {
		lits := make([]z.Lit, 0, len(term))
		for _, l := range term {
			v, ok := vars[l.Condition]
			if !ok {
				return z.LitNull, fmt.Errorf("%w: unknown condition %q", qca.ErrInvalidFormula, l.Condition)
			}
			if l.Negated {
				v = v.Not()
			}
			lits = append(lits, v)
		}
		products = append(products, c.Ands(lits...))
	}
	return c.Ors(products...), nil
}
