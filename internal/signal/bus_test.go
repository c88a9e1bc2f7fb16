package signal

import (
	"testing"

	"voxelnet/internal/model"
)

func testBody(t *testing.T) model.Body {
	t.Helper()
	body, err := model.ParseShape("10|11")
	if err != nil {
		t.Fatalf("parse shape: %v", err)
	}
	return body
}

func TestStageIsInvisibleUntilSwap(t *testing.T) {
	bus := NewBus(testBody(t), 2)
	c := model.Cell{X: 0, Y: 0}

	bus.Stage(c, []float64{0.5, -0.5})
	if got := bus.Last(c); got[0] != 0 || got[1] != 0 {
		t.Fatalf("staged signal leaked before swap: got=%v", got)
	}
	bus.Swap()
	if got := bus.Last(c); got[0] != 0.5 || got[1] != -0.5 {
		t.Fatalf("unexpected published signal: got=%v want=[0.5 -0.5]", got)
	}
	bus.Swap()
	if got := bus.Last(c); got[0] != 0 {
		t.Fatalf("expected fresh staging after swap: got=%v", got)
	}
}

func TestGatherZeroFillsMissingCells(t *testing.T) {
	bus := NewBus(testBody(t), 1)
	bus.Stage(model.Cell{X: 0, Y: 0}, []float64{1})
	bus.Stage(model.Cell{X: 1, Y: 1}, []float64{2})
	bus.Swap()

	got := bus.Gather([]model.Cell{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 5, Y: 5}, {X: 1, Y: 1}})
	want := []float64{1, 0, 0, 2}
	if len(got) != len(want) {
		t.Fatalf("unexpected gather length: got=%d want=%d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected gather: got=%v want=%v", got, want)
		}
	}
}

func TestStageIgnoresUnoccupied(t *testing.T) {
	bus := NewBus(testBody(t), 1)
	bus.Stage(model.Cell{X: 1, Y: 0}, []float64{3})
	bus.Swap()
	if got := bus.Last(model.Cell{X: 1, Y: 0}); got[0] != 0 {
		t.Fatalf("unoccupied cell published a signal: got=%v", got)
	}
}

func TestZeroWidth(t *testing.T) {
	bus := NewBus(testBody(t), 0)
	bus.Stage(model.Cell{}, []float64{1, 2})
	bus.Swap()
	if got := bus.Gather([]model.Cell{{X: 0, Y: 0}, {X: 0, Y: 1}}); len(got) != 0 {
		t.Fatalf("expected empty gather, got: %v", got)
	}
}

func TestReset(t *testing.T) {
	bus := NewBus(testBody(t), 1)
	bus.Stage(model.Cell{}, []float64{1})
	bus.Swap()
	bus.Stage(model.Cell{}, []float64{2})
	bus.Reset()
	if got := bus.Last(model.Cell{}); got[0] != 0 {
		t.Fatalf("expected zeroed previous after reset: got=%v", got)
	}
	if staged := bus.Staged(); staged[0][0] != 0 {
		t.Fatalf("expected zeroed staging after reset: got=%v", staged)
	}
}

func TestDiscard(t *testing.T) {
	bus := NewBus(testBody(t), 1)
	bus.Stage(model.Cell{}, []float64{1})
	bus.Discard()
	bus.Swap()
	if got := bus.Last(model.Cell{}); got[0] != 0 {
		t.Fatalf("discarded signal was published: got=%v", got)
	}
}
