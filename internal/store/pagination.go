package store

type Pagination struct {
	Total       int `json:"total"`
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	TotalPage   int `json:"total_page"`
}

// NormalizePage clamps page/limit to their minimums (page 1, limit 10).
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return page, limit
}

func NewPagination(total, page, limit int) Pagination {
	totalPage := 0
	if total > 0 {
		totalPage = (total + limit - 1) / limit
	}
	return Pagination{
		Total:       total,
		CurrentPage: page,
		PerPage:     limit,
		TotalPage:   totalPage,
	}
}
