package store

import (
	"context"
	"fmt"
	"sync"

	"meetnote/internal/domain"
)

// Lister is the page-fetching slice of the proxy the pager needs.
type Lister interface {
	List(ctx context.Context, page, pageSize int) (domain.ConversationPage, error)
}

// Pager maps a page index and size onto proxy queries. Indices are clamped to
// [1, max(1, totalPages)] so an out-of-range request never produces an
// out-of-range fetch.
type Pager struct {
	lister Lister

	mu         sync.Mutex
	lastSize   int
	totalPages int
}

func NewPager(lister Lister) *Pager {
	return &Pager{lister: lister}
}

// Page fetches the requested page, defensively clamping the index. The known
// total-page count is recomputed from every result and discarded when the
// page size changes. When no total is known yet, page 1 is fetched first to
// learn it.
func (p *Pager) Page(ctx context.Context, index, size int) (domain.ConversationPage, error) {
	if size < 1 {
		return domain.ConversationPage{}, fmt.Errorf("invalid page size %d", size)
	}

	p.mu.Lock()
	if size != p.lastSize {
		p.totalPages = 0
		p.lastSize = size
	}
	known := p.totalPages
	p.mu.Unlock()

	if known == 0 {
		first, err := p.lister.List(ctx, 1, size)
		if err != nil {
			return domain.ConversationPage{}, err
		}
		known = first.TotalPages
		if clamp(index, known) == 1 {
			p.setTotal(size, known)
			return first, nil
		}
	}

	index = clamp(index, known)
	page, err := p.lister.List(ctx, index, size)
	if err != nil {
		return domain.ConversationPage{}, err
	}

	// The store may have shrunk between queries; re-clamp against the fresh
	// total rather than returning an empty trailing page.
	if reclamped := clamp(index, page.TotalPages); reclamped != index {
		page, err = p.lister.List(ctx, reclamped, size)
		if err != nil {
			return domain.ConversationPage{}, err
		}
	}

	p.setTotal(size, page.TotalPages)
	return page, nil
}

func (p *Pager) setTotal(size, totalPages int) {
	p.mu.Lock()
	p.lastSize = size
	p.totalPages = totalPages
	p.mu.Unlock()
}

// clamp bounds index to [1, max(1, totalPages)]; an empty store has no valid
// page beyond 1.
func clamp(index, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if index < 1 {
		return 1
	}
	if index > totalPages {
		return totalPages
	}
	return index
}
