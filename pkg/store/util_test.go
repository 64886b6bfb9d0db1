package store

import (
	"errors"
	"testing"
)

func TestChunkRange(t *testing.T) {
	var got [][2]int
	err := ChunkRange(7, 3, func(start, end int) error {
		got = append(got, [2]int{start, end})
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := [][2]int{{0, 3}, {3, 6}, {6, 7}}
	if len(got) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("expected %v, got %v", expected, got)
		}
	}
}

func TestChunkRange_EdgeCases(t *testing.T) {
	calls := 0
	_ = ChunkRange(0, 3, func(int, int) error { calls++; return nil })
	if calls != 0 {
		t.Fatalf("expected no calls for empty range, got %d", calls)
	}

	_ = ChunkRange(5, 0, func(start, end int) error {
		calls++
		if start != 0 || end != 5 {
			t.Fatalf("expected single chunk [0,5), got [%d,%d)", start, end)
		}
		return nil
	})
	if calls != 1 {
		t.Fatalf("expected one call, got %d", calls)
	}

	boom := errors.New("boom")
	err := ChunkRange(10, 2, func(start, end int) error {
		if start == 4 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestNormalizeTopN(t *testing.T) {
	if NormalizeTopN(0) != DefaultTopN || NormalizeTopN(-3) != DefaultTopN || NormalizeTopN(5) != 5 {
		t.Fatal("unexpected top-n normalization")
	}
}
