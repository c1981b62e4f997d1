package feed

import (
	"context"

	"github.com/go-pkgz/lgr"

	"github.com/feedgram/feedgram/pkg/dedup"
	"github.com/feedgram/feedgram/pkg/domain"
)

// ItemParser parses the feed source into domain items
type ItemParser interface {
	Parse(ctx context.Context, url string) ([]domain.Item, error)
}

// Fetcher produces delivery candidates: the most recent feed entries that
// were not delivered before.
type Fetcher struct {
	parser ItemParser
	store  dedup.Store
	url    string
	limit  int
}

// NewFetcher creates a fetcher for a single feed URL. Limit caps how many
// of the newest entries are examined per cycle.
func NewFetcher(parser ItemParser, store dedup.Store, url string, limit int) *Fetcher {
	if limit <= 0 {
		limit = 3
	}
	return &Fetcher{parser: parser, store: store, url: url, limit: limit}
}

// Latest returns up to limit fresh items. Soft-fail by contract: fetch and
// parse problems are logged and produce an empty result, never an error.
func (f *Fetcher) Latest(ctx context.Context) []domain.Item {
	items, err := f.parser.Parse(ctx, f.url)
	if err != nil {
		lgr.Printf("[WARN] failed to fetch feed %s: %v", f.url, err)
		return nil
	}

	if len(items) == 0 {
		lgr.Printf("[INFO] no entries in feed %s", f.url)
		return nil
	}

	if len(items) > f.limit {
		items = items[:f.limit]
	}

	fresh := make([]domain.Item, 0, len(items))
	for _, item := range items {
		seen, err := f.store.Seen(ctx, item.GUID)
		if err != nil {
			// treat the item as unseen, the notifier re-checks before sending
			lgr.Printf("[WARN] dedup check failed for %s: %v", item.GUID, err)
		}
		if seen {
			continue
		}
		fresh = append(fresh, item)
	}

	return fresh
}
