package logicstream

// Extract relates out to rec's field value. rec must walk to a Record
// carrying that field.
func Extract(rec Term, field string, out Term) Goal {
	return NewGoal("extract", func(in Observable[*Subst]) Observable[*Subst] {
		return FlatMap(in, func(s *Subst) Observable[*Subst] {
			r, ok := s.Walk(rec).(*Record)
			if !ok {
				return Empty[*Subst]()
			}
			v, present := r.Fields[field]
			if !present {
				return Empty[*Subst]()
			}
			res := Unify(out, v, s)
			if res == failed {
				return Empty[*Subst]()
			}
			return Of(res)
		})
	})
}

// ExtractEach relates outSeq to the given field pulled from every Record in
// seq, preserving order. seq must walk to a Sequence of Records, each of
// which must carry field.
func ExtractEach(seq Term, field string, outSeq Term) Goal {
	return NewGoal("extracteach", func(in Observable[*Subst]) Observable[*Subst] {
		return FlatMap(in, func(s *Subst) Observable[*Subst] {
			sq, ok := s.Walk(seq).(*Sequence)
			if !ok {
				return Empty[*Subst]()
			}
			values := make([]Term, len(sq.Elems))
			for i, e := range sq.Elems {
				rec, ok := s.Walk(e).(*Record)
				if !ok {
					return Empty[*Subst]()
				}
				v, present := rec.Fields[field]
				if !present {
					return Empty[*Subst]()
				}
				values[i] = v
			}
			res := Unify(outSeq, Seq(values...), s)
			if res == failed {
				return Empty[*Subst]()
			}
			return Of(res)
		})
	})
}
