// Package scraper pulls listings out of upstream boards and normalizes them
// into model.RawListing batches ready for the store.
package scraper

import (
	"context"

	"github.com/shirinalapati/Internship-App/internal/model"
)

// Source is one upstream listings feed. Implementations own their transport
// and return fully normalized listings; callers never see source markup.
type Source interface {
	// Fetch retrieves and parses the current set of listings. An empty,
	// error-free result means the feed itself was empty.
	Fetch(ctx context.Context) ([]model.RawListing, error)

	// Name identifies the source on stored rows and in logs.
	Name() string
}
