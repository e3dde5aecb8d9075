// Package live keeps standing, unfiltered subscriptions to document collections.
// Every delivery is the complete current member list of the collection, never a diff,
// and consumers must not rely on its order.
package live

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleetflow/internal/db"
)

// Subscription is one open subscription. Close releases the change stream.
type Subscription struct {
	collection string
	cancel     context.CancelFunc
	done       chan struct{}
	once       sync.Once
}

// Open subscribes to src and calls deliver with the full list after the initial
// read and after every change. deliver runs on the subscription's goroutine.
//
// Documents that do not decode into T are skipped with a warning. A failed read
// is logged and the last delivered list stays in place until the next change.
// If the change stream cannot be opened or fails later, the error is logged and
// the list stays as it is; there is no retry.
func Open[T any](parent context.Context, src db.Source, deliver func([]T), logger logrus.FieldLogger) *Subscription {
	ctx, cancel := context.WithCancel(parent)
	s := &Subscription{
		collection: src.Name(),
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	log := logger.WithField("collection", s.collection)
	go func() {
		defer close(s.done)
		run(ctx, src, deliver, log)
	}()
	return s
}

// Collection returns the subscribed collection name.
func (s *Subscription) Collection() string {
	return s.collection
}

// Done is closed once the subscription has stopped delivering.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close tears the subscription down and waits for its goroutine. No delivery
// starts after Close returns. Close is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
	<-s.done
}

func run[T any](ctx context.Context, src db.Source, deliver func([]T), log logrus.FieldLogger) {
	// The stream is opened before the initial read so no change can fall between the two.
	stream, err := src.Watch(ctx)
	if err != nil && ctx.Err() == nil {
		log.WithError(err).Error("Failed to open change stream, list will not update")
	}

	reload(ctx, src, deliver, log)
	if stream == nil {
		return
	}
	defer stream.Close(context.Background())

	for stream.Next(ctx) {
		reload(ctx, src, deliver, log)
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		log.WithError(err).Warn("Change stream ended, list is stale")
	}
}

func reload[T any](ctx context.Context, src db.Source, deliver func([]T), log logrus.FieldLogger) {
	items, err := readAll[T](ctx, src, log)
	if err != nil {
		if ctx.Err() == nil {
			log.WithError(err).Error("Failed to read collection, keeping last list")
		}
		return
	}
	if ctx.Err() != nil {
		return
	}
	log.WithField("count", len(items)).Debug("Delivering collection")
	deliver(items)
}

func readAll[T any](ctx context.Context, src db.Source, log logrus.FieldLogger) ([]T, error) {
	cursor, err := src.Find(ctx)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(context.Background())

	items := []T{}
	for cursor.Next(ctx) {
		var item T
		if err := cursor.Decode(&item); err != nil {
			log.WithError(err).Warn("Skipping document that does not decode")
			continue
		}
		items = append(items, item)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
