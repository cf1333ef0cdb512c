package store

import "testing"

func TestNewPagination(t *testing.T) {
	cases := []struct {
		total     int
		page      int
		limit     int
		totalPage int
	}{
		{0, 1, 10, 0},
		{1, 1, 10, 1},
		{10, 1, 10, 1},
		{11, 2, 10, 2},
		{25, 1, 10, 3},
		{25, 3, 5, 5},
	}
	for _, tt := range cases {
		p := NewPagination(tt.total, tt.page, tt.limit)
		if p.TotalPage != tt.totalPage {
			t.Fatalf("NewPagination(%d,%d,%d).TotalPage=%d, want %d", tt.total, tt.page, tt.limit, p.TotalPage, tt.totalPage)
		}
		if p.Total != tt.total || p.CurrentPage != tt.page || p.PerPage != tt.limit {
			t.Fatalf("unexpected pagination block: %+v", p)
		}
	}
}

func TestNormalizePage(t *testing.T) {
	if page, limit := NormalizePage(0, 0); page != 1 || limit != 10 {
		t.Fatalf("expected defaults (1, 10), got (%d, %d)", page, limit)
	}
	if page, limit := NormalizePage(-3, -1); page != 1 || limit != 10 {
		t.Fatalf("expected defaults (1, 10), got (%d, %d)", page, limit)
	}
	if page, limit := NormalizePage(4, 25); page != 4 || limit != 25 {
		t.Fatalf("expected passthrough (4, 25), got (%d, %d)", page, limit)
	}
}
