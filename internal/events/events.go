package events

import (
	"context"
)

// ListingsSynced fires after a sync run that wrote at least one record.
type ListingsSynced struct {
	Regions []string
	Count   int
}

type Publisher interface {
	PublishListingsSynced(ctx context.Context, evt ListingsSynced)
	SubscribeListingsSynced() <-chan ListingsSynced
}

type inMemory struct{ ch chan ListingsSynced }

func NewInMemory(buffer int) Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &inMemory{ch: make(chan ListingsSynced, buffer)}
}

// PublishListingsSynced never blocks; a full buffer drops the event.
func (m *inMemory) PublishListingsSynced(_ context.Context, evt ListingsSynced) {
	select {
	case m.ch <- evt:
	default:
	}
}

func (m *inMemory) SubscribeListingsSynced() <-chan ListingsSynced { return m.ch }
