package repository

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// Normalize applies the default and maximum limit and clamps negative offsets.
func (pq PageQuery) Normalize() PageQuery {
	if pq.Limit <= 0 {
		pq.Limit = DefaultPageLimit
	}
	if pq.Limit > MaxPageLimit {
		pq.Limit = MaxPageLimit
	}
	if pq.Offset < 0 {
		pq.Offset = 0
	}
	return pq
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}
