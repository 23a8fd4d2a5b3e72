package repository

import "math"

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type PageRequest struct {
	Page     int
	PageSize int
}

// normalized clamps the request so repositories never see a zero page or an
// oversized page size, whatever the transport layer let through.
func (p PageRequest) normalized() PageRequest {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

func (p PageRequest) offset() int {
	return (p.Page - 1) * p.PageSize
}

type PageResult[T any] struct {
	Items      []T
	Page       int
	PageSize   int
	Total      int64
	TotalPages int
}

func (p *PageResult[T]) finish(req PageRequest) {
	p.Page = req.Page
	p.PageSize = req.PageSize
	if p.Total > 0 && req.PageSize > 0 {
		p.TotalPages = int(math.Ceil(float64(p.Total) / float64(req.PageSize)))
	}
}
