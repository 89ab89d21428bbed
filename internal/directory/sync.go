package directory

import (
	"context"
	"fmt"

	"gsm-dashboard/internal/gateway"
)

// ExternalSource serves the authoritative directory, e.g. an LDAP export.
type ExternalSource interface {
	FetchExternalDirectory(ctx context.Context) ([]gateway.Contact, error)
}

// SyncAdapter overwrites the cache from an ExternalSource. Unsaved local
// edits are discarded.
type SyncAdapter struct {
	source ExternalSource
	cache  *Cache
}

func NewSyncAdapter(source ExternalSource, cache *Cache) *SyncAdapter {
	return &SyncAdapter{source: source, cache: cache}
}

// Sync fetches first and only touches the cache once the fetch succeeded.
// It returns the size of the new directory.
func (s *SyncAdapter) Sync(ctx context.Context) (int, error) {
	contacts, err := s.source.FetchExternalDirectory(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch external directory: %w", err)
	}
	if err := s.cache.Replace(ctx, contacts); err != nil {
		return len(contacts), err
	}
	return len(contacts), nil
}
