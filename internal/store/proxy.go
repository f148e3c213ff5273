// Package store keeps the client-side view of conversation rows coherent
// with the persistence collaborator.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"meetnote/internal/domain"
	"meetnote/internal/ports"
)

type pageKey struct {
	page int
	size int
}

// Proxy mediates list/create/delete/get calls and caches page results.
// Every successful write invalidates the whole cache; there is no partial
// cache patching.
type Proxy struct {
	store  ports.ConversationStore
	engine ports.ArtifactDeleter
	log    zerolog.Logger

	mu    sync.Mutex
	cache map[pageKey]domain.ConversationPage
}

func NewProxy(store ports.ConversationStore, engine ports.ArtifactDeleter, log zerolog.Logger) *Proxy {
	return &Proxy{
		store:  store,
		engine: engine,
		log:    log.With().Str("component", "store").Logger(),
		cache:  make(map[pageKey]domain.ConversationPage),
	}
}

// List returns one page of conversations. Cached results are served until the
// next successful create or delete. Reads that fail surface
// domain.ErrStoreUnavailable and leave any cached pages visible.
func (p *Proxy) List(ctx context.Context, page, pageSize int) (domain.ConversationPage, error) {
	key := pageKey{page: page, size: pageSize}

	p.mu.Lock()
	if cached, ok := p.cache[key]; ok {
		p.mu.Unlock()
		return cached, nil
	}
	p.mu.Unlock()

	items, total, err := p.store.List(ctx, page, pageSize)
	if err != nil {
		return domain.ConversationPage{}, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	result := domain.ConversationPage{
		Items:      items,
		PageIndex:  page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}

	p.mu.Lock()
	p.cache[key] = result
	p.mu.Unlock()
	return result, nil
}

// Get fetches a single conversation row, bypassing the page cache.
func (p *Proxy) Get(ctx context.Context, id int64) (domain.Conversation, error) {
	conv, err := p.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrConversationNotFound) {
			return domain.Conversation{}, err
		}
		return domain.Conversation{}, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return conv, nil
}

// Create inserts a conversation row. On success the identifier is immediately
// usable and cached pages are dropped.
func (p *Proxy) Create(ctx context.Context) (domain.Conversation, error) {
	conv, err := p.store.Create(ctx)
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	p.Invalidate()
	p.log.Info().Int64("conversation", conv.ID).Msg("conversation created")
	return conv, nil
}

// Delete removes the engine's recording artifacts and then the row. A missing
// artifact is tolerated; any other artifact failure aborts the delete and the
// row is retained.
func (p *Proxy) Delete(ctx context.Context, id int64) error {
	if err := p.engine.DeleteRecordingData(ctx, id); err != nil {
		if !errors.Is(err, domain.ErrArtifactNotFound) {
			return fmt.Errorf("%w: %v", domain.ErrArtifactDeleteFailed, err)
		}
		p.log.Debug().Int64("conversation", id).Msg("no recording data to delete")
	}

	if err := p.store.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrConversationNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	p.Invalidate()
	p.log.Info().Int64("conversation", id).Msg("conversation deleted")
	return nil
}

// Invalidate drops all cached pages so the next list reflects the store.
func (p *Proxy) Invalidate() {
	p.mu.Lock()
	p.cache = make(map[pageKey]domain.ConversationPage)
	p.mu.Unlock()
}

func totalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
