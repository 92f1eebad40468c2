package models

import "testing"

func sampleBreakdown() Breakdown {
	return Breakdown{
		{ObjectiveID: 1, TypeCounts: []TypeCount{
			{Type: TypeMultipleChoice, Count: 4},
			{Type: TypeTrueFalse, Count: 1},
		}},
		{ObjectiveID: 2, TypeCounts: []TypeCount{
			{Type: TypeMultipleChoice, Count: 3},
			{Type: TypeTrueFalse, Count: 2},
		}},
	}
}

func TestBreakdownTotal(t *testing.T) {
	if got := sampleBreakdown().Total(); got != 10 {
		t.Errorf("Total = %d, want 10", got)
	}
	var empty Breakdown
	if got := empty.Total(); got != 0 {
		t.Errorf("empty Total = %d, want 0", got)
	}
}

func TestBreakdownCellsFor(t *testing.T) {
	b := sampleBreakdown()

	cells := b.CellsFor(2)
	if len(cells) != 2 || cells[0].Count != 3 {
		t.Errorf("CellsFor(2) = %+v", cells)
	}
	if b.CellsFor(99) != nil {
		t.Error("CellsFor on an absent objective should be nil")
	}
}

func TestComputeDistribution(t *testing.T) {
	dist := ComputeDistribution(sampleBreakdown())

	if len(dist) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(dist))
	}
	// Entries come out in canonical type order.
	if dist[0].Type != TypeMultipleChoice || dist[0].TotalCount != 7 {
		t.Errorf("entry 0 = %+v", dist[0])
	}
	if dist[0].Percentage != 70.0 {
		t.Errorf("multiple-choice percentage = %v, want 70.0", dist[0].Percentage)
	}
	if dist[1].Type != TypeTrueFalse || dist[1].TotalCount != 3 || dist[1].Percentage != 30.0 {
		t.Errorf("entry 1 = %+v", dist[1])
	}
}

func TestComputeDistributionSkipsZeroCounts(t *testing.T) {
	b := Breakdown{
		{ObjectiveID: 1, TypeCounts: []TypeCount{
			{Type: TypeFlashcard, Count: 3},
			{Type: TypeSummary, Count: 0},
		}},
	}
	dist := ComputeDistribution(b)
	if len(dist) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(dist))
	}
	if dist[0].Type != TypeFlashcard || dist[0].Percentage != 100.0 {
		t.Errorf("entry = %+v", dist[0])
	}
}

func TestComputeDistributionRounding(t *testing.T) {
	b := Breakdown{
		{ObjectiveID: 1, TypeCounts: []TypeCount{
			{Type: TypeMultipleChoice, Count: 1},
			{Type: TypeTrueFalse, Count: 2},
		}},
	}
	dist := ComputeDistribution(b)
	// 1/3 rounds to one decimal place.
	if dist[0].Percentage != 33.3 {
		t.Errorf("percentage = %v, want 33.3", dist[0].Percentage)
	}
	if dist[1].Percentage != 66.7 {
		t.Errorf("percentage = %v, want 66.7", dist[1].Percentage)
	}
}
