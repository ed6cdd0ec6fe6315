package blob

// Range is a half-open byte range [Start, End).
type Range struct {
	Start int
	End   int
}

// Len returns the number of bytes in r.
func (r Range) Len() int { return r.End - r.Start }

// Empty reports whether r covers no bytes.
func (r Range) Empty() bool { return r.End <= r.Start }

// Shift moves r n bytes to the right.
func (r Range) Shift(n int) Range { return Range{Start: r.Start + n, End: r.End + n} }

// Layout describes the fixed encoding of a sized type.
//
// Niche, when non-empty, is a byte range that is non-zero for every valid
// value; an all-zero niche can therefore encode "absent" without a tag.
type Layout struct {
	Size      int
	Niche     Range
	Inhabited bool
}

// Fixed returns the layout of an inhabited type of size bytes without a niche.
func Fixed(size int) Layout {
	return Layout{Size: size, Inhabited: true}
}

// WithNiche returns the layout of an inhabited type of size bytes whose
// niche is niche.
func WithNiche(size int, niche Range) Layout {
	if niche.Start < 0 || niche.End > size || niche.Empty() {
		panic("blob: niche outside layout")
	}
	return Layout{Size: size, Niche: niche, Inhabited: true}
}

// Uninhabited is the layout of a type with no valid values.
func Uninhabited() Layout {
	return Layout{}
}

// HasNiche reports whether l carries a niche.
func (l Layout) HasNiche() bool { return !l.Niche.Empty() }

// Extend returns the layout of l followed by next. The smaller of the two
// niches is kept, l's on a tie; either side being uninhabited makes the
// whole uninhabited.
func (l Layout) Extend(next Layout) Layout {
	out := Layout{
		Size:      l.Size + next.Size,
		Inhabited: l.Inhabited && next.Inhabited,
	}
	switch {
	case l.HasNiche() && next.HasNiche():
		if next.Niche.Len() < l.Niche.Len() {
			out.Niche = next.Niche.Shift(l.Size)
		} else {
			out.Niche = l.Niche
		}
	case l.HasNiche():
		out.Niche = l.Niche
	case next.HasNiche():
		out.Niche = next.Niche.Shift(l.Size)
	}
	return out
}

// Layouts folds Extend over ls, starting from an empty inhabited layout.
func Layouts(ls ...Layout) Layout {
	out := Fixed(0)
	for _, l := range ls {
		out = out.Extend(l)
	}
	return out
}
