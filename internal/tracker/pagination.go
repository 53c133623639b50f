package tracker

// MaxPageSize is the hard cap on the limit parameter of every listing
// operation.
const MaxPageSize = 100

// DefaultPageSize is used when a caller omits limit entirely.
const DefaultPageSize = 50

// Page carries the pagination metadata returned with every listing
// response. Walking a collection by advancing Offset by ReturnedCount
// until a page comes back empty is guaranteed to terminate.
type Page struct {
	TotalCount    int `json:"total_count"`
	ReturnedCount int `json:"returned_count"`
	Limit         int `json:"limit"`
	Offset        int `json:"offset"`
}

// ValidatePage checks limit and offset against the pagination contract.
// A zero limit defaults; out-of-range values are rejected with a
// structured error rather than clamped.
func ValidatePage(limit, offset int) (int, int, error) {
	if limit == 0 {
		limit = DefaultPageSize
	}
	if limit < 1 || limit > MaxPageSize {
		return 0, 0, &PaginationError{Field: "limit", Value: limit, Max: MaxPageSize}
	}
	if offset < 0 {
		return 0, 0, &PaginationError{Field: "offset", Value: offset}
	}
	return limit, offset, nil
}
