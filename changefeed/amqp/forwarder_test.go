package amqp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/xraph/depot/changefeed"
)

type fakePublisher struct {
	mu   sync.Mutex
	keys []string
	ids  []string
	got  chan struct{}
}

func (p *fakePublisher) PublishJSON(_ context.Context, key, messageID string, _ any) error {
	p.mu.Lock()
	p.keys = append(p.keys, key)
	p.ids = append(p.ids, messageID)
	p.mu.Unlock()
	select {
	case p.got <- struct{}{}:
	default:
	}
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func TestRoutingKey(t *testing.T) {
	c := changefeed.NewChange(changefeed.LendingRecords, changefeed.OpDeleted, "lnd_1", "o", time.Now())
	if got := RoutingKey(c); got != "depot.lending_records.deleted" {
		t.Errorf("RoutingKey: got %q", got)
	}
}

func TestForwarderPublishesChanges(t *testing.T) {
	feed := changefeed.New(8)
	pub := &fakePublisher{got: make(chan struct{}, 8)}
	fwd := NewForwarder(feed, pub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		fwd.Run(ctx)
		close(done)
	}()

	change := changefeed.NewChange(changefeed.Bookings, changefeed.OpCreated, "bkg_1", "o", time.Now())
	deadline := time.After(2 * time.Second)
	for delivered := false; !delivered; {
		// Subscriptions are set up asynchronously; republish until one lands.
		feed.Publish(change)
		select {
		case <-pub.got:
			delivered = true
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			t.Fatal("change was not forwarded")
		}
	}

	cancel()
	<-done

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if pub.keys[0] != "depot.bookings.created" {
		t.Errorf("key: got %q", pub.keys[0])
	}
	if pub.ids[0] != change.ID.String() {
		t.Errorf("message id: got %q, want %q", pub.ids[0], change.ID.String())
	}
}
