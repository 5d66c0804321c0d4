package diag

// Term is one conjunction in a disjunctive-normal-form Criterion: the bits
// in Positive must all be set, and the bits in Negative must all be clear,
// for a category to satisfy this term. A well-formed Term never has a bit
// in both masks (spec.md §8's "criterion invariant").
type Term struct {
	Positive Category
	Negative Category
}

// valid reports the criterion invariant: positive & negative == 0.
func (t Term) valid() bool { return t.Positive&t.Negative == 0 }

// accepts reports whether c satisfies this single term.
func (t Term) accepts(c Category) bool {
	return c&t.Positive == t.Positive && c&t.Negative == 0
}

// not expands the negation of a single conjunctive term into the
// disjunction of its negated literals (De Morgan): ¬(a∧b∧¬c) = ¬a∨¬b∨c.
func (t Term) not() Criterion {
	var terms []Term
	for bit := Category(1); bit != 0; bit <<= 1 {
		if t.Positive&bit != 0 {
			terms = append(terms, Term{Negative: bit})
		}
		if t.Negative&bit != 0 {
			terms = append(terms, Term{Positive: bit})
		}
	}
	return Criterion(terms)
}

// Criterion is a disjunctive normal form over Category: a list of terms,
// any one of which accepting a category accepts the whole criterion.
type Criterion []Term

// Accept reports whether message category c is accepted by this criterion.
func (cr Criterion) Accept(c Category) bool {
	for _, t := range cr {
		if t.accepts(c) {
			return true
		}
	}
	return false
}

// AcceptAll is the criterion that accepts every category: a single
// contentless term.
func AcceptAll() Criterion { return Criterion{{}} }

// AcceptNone is the criterion that accepts nothing: no terms at all.
func AcceptNone() Criterion { return Criterion{} }

// Or appends a term as an additional disjunct, rejecting malformed terms.
func (cr Criterion) Or(t Term) Criterion {
	if !t.valid() {
		return cr
	}
	return append(append(Criterion{}, cr...), t)
}

// And conjoins (positive, negative) onto every term of cr, pointwise
// OR-ing the masks and dropping any term that becomes contradictory
// (a bit demanded both present and absent).
func (cr Criterion) And(positive, negative Category) Criterion {
	var out Criterion
	for _, t := range cr {
		p := t.Positive | positive
		n := t.Negative | negative
		if p&n != 0 {
			continue
		}
		out = append(out, Term{Positive: p, Negative: n})
	}
	return out
}

// Mul computes the Cartesian product of cr and other, pointwise OR-ing
// each pair of terms and dropping contradictions. This is conjunction
// (AND) between two whole DNF expressions, not just one term.
func (cr Criterion) Mul(other Criterion) Criterion {
	var out Criterion
	for _, a := range cr {
		for _, b := range other {
			p := a.Positive | b.Positive
			n := a.Negative | b.Negative
			if p&n != 0 {
				continue
			}
			out = append(out, Term{Positive: p, Negative: n})
		}
	}
	return out
}

// Not computes the logical negation of the whole DNF expression: the
// conjunction (via Mul) of each term's own negation.
func (cr Criterion) Not() Criterion {
	result := AcceptAll()
	for _, t := range cr {
		result = result.Mul(t.not())
	}
	return result
}

// AndNot computes cr ∧ ¬other, the composition spec.md §3 calls for to
// mask a set of categories off of an existing criterion — e.g. --gnu
// masking off the bloat axis.
func (cr Criterion) AndNot(other Criterion) Criterion {
	return cr.Mul(other.Not())
}

// Single builds a one-term criterion matching exactly the given positive
// mask with no exclusions — convenience for building flag-driven masks.
func Single(positive Category) Criterion {
	return Criterion{{Positive: positive}}
}
