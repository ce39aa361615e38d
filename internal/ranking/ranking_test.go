package ranking

import "testing"

func TestClamp(t *testing.T) {
	tests := []struct {
		name          string
		target, count int
		want          int
	}{
		{"inside", 2, 3, 2},
		{"above", 10, 3, 3},
		{"below", 0, 3, 1},
		{"negative", -4, 3, 1},
		{"empty playlist", 5, 0, 0},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := Clamp(tc.target, tc.count); got != tc.want {
				t.Fatalf("Clamp(%d, %d) = %d, want %d", tc.target, tc.count, got, tc.want)
			}
		})
	}
}

func TestPlanMove(t *testing.T) {
	tests := []struct {
		name                   string
		current, target, count int
		wantTo                 int
		wantShift              Shift
		wantNoOp               bool
	}{
		{"to front", 3, 1, 3, 1, Shift{From: 1, To: 2, Delta: 1}, false},
		{"to back", 1, 3, 3, 3, Shift{From: 2, To: 3, Delta: -1}, false},
		{"same rank", 2, 2, 3, 2, Shift{}, true},
		{"clamped to same rank", 3, 99, 3, 3, Shift{}, true},
		{"clamped to back", 1, 99, 4, 4, Shift{From: 2, To: 4, Delta: -1}, false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			m := PlanMove(tc.current, tc.target, tc.count)
			if m.To != tc.wantTo || m.NoOp != tc.wantNoOp || m.Shift != tc.wantShift {
				t.Fatalf("PlanMove(%d, %d, %d) = %+v", tc.current, tc.target, tc.count, m)
			}
		})
	}
}

func TestPlanMoveKeepsDensity(t *testing.T) {
	const count = 6
	for current := 1; current <= count; current++ {
		for target := 1; target <= count+2; target++ {
			m := PlanMove(current, target, count)
			ranks := make([]int, 0, count)
			for r := 1; r <= count; r++ {
				if r == current {
					ranks = append(ranks, m.To)
					continue
				}
				ranks = append(ranks, m.Shift.Apply(r))
			}
			if !Dense(ranks) {
				t.Fatalf("move %d -> %d produced %v", current, target, ranks)
			}
		}
	}
}

func TestPlanRemove(t *testing.T) {
	s := PlanRemove(2, 4)
	if s != (Shift{From: 3, To: 4, Delta: -1}) {
		t.Fatalf("unexpected shift %+v", s)
	}
	if !PlanRemove(4, 4).Empty() {
		t.Fatalf("removing the last entry should not shift")
	}
}

func TestDense(t *testing.T) {
	if !Dense(nil) {
		t.Fatalf("empty set is dense")
	}
	if !Dense([]int{2, 3, 1}) {
		t.Fatalf("permutation should be dense")
	}
	if Dense([]int{1, 1, 2}) {
		t.Fatalf("duplicate ranks are not dense")
	}
	if Dense([]int{1, 3}) {
		t.Fatalf("gap is not dense")
	}
}
