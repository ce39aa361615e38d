// Package ranking holds the rank arithmetic for ordered playlist memberships.
//
// Ranks are 1-based and dense: a playlist with N entries always holds exactly
// the ranks 1..N. Every mutation is expressed as at most one ranged shift plus
// one point write, so the same plan can be executed as SQL or against a slice.
package ranking

// Shift moves every rank r with From <= r <= To by Delta.
// An empty shift has From > To.
type Shift struct {
	From  int
	To    int
	Delta int
}

// Empty reports whether the shift touches no ranks.
func (s Shift) Empty() bool {
	return s.From > s.To || s.Delta == 0
}

// Covers reports whether rank falls inside the shifted range.
func (s Shift) Covers(rank int) bool {
	return !s.Empty() && rank >= s.From && rank <= s.To
}

// Apply returns rank after the shift.
func (s Shift) Apply(rank int) int {
	if s.Covers(rank) {
		return rank + s.Delta
	}
	return rank
}

// Move describes how to reposition one entry.
type Move struct {
	From  int
	To    int
	Shift Shift
	NoOp  bool
}

// Clamp bounds target to [1, count]. A playlist with no entries clamps to 0.
func Clamp(target, count int) int {
	if count <= 0 {
		return 0
	}
	if target < 1 {
		return 1
	}
	if target > count {
		return count
	}
	return target
}

// NextRank is the rank given to a newly appended entry.
func NextRank(count int) int {
	return count + 1
}

// PlanMove computes the shift needed to move the entry at current to target.
// target is clamped first; a clamped target equal to current is a no-op.
func PlanMove(current, target, count int) Move {
	to := Clamp(target, count)
	m := Move{From: current, To: to}
	switch {
	case to == current:
		m.NoOp = true
	case to < current:
		m.Shift = Shift{From: to, To: current - 1, Delta: 1}
	default:
		m.Shift = Shift{From: current + 1, To: to, Delta: -1}
	}
	return m
}

// PlanRemove computes the compaction after the entry at removed is deleted
// from a playlist that held count entries.
func PlanRemove(removed, count int) Shift {
	return Shift{From: removed + 1, To: count, Delta: -1}
}

// Dense reports whether ranks is exactly a permutation of 1..len(ranks).
func Dense(ranks []int) bool {
	seen := make([]bool, len(ranks)+1)
	for _, r := range ranks {
		if r < 1 || r > len(ranks) || seen[r] {
			return false
		}
		seen[r] = true
	}
	return true
}
