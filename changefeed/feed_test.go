package changefeed

import (
	"testing"
	"time"
)

func TestSubscribeReceivesOwnCollection(t *testing.T) {
	f := New(4)
	bookings, cancelB := f.Subscribe(Bookings)
	defer cancelB()
	stoves, cancelS := f.Subscribe(Stoves)
	defer cancelS()

	now := time.Now()
	f.Publish(NewChange(Bookings, OpDeleted, "bkg_1", "owner-1", now))

	select {
	case c := <-bookings:
		if c.Op != OpDeleted || c.RecordID != "bkg_1" || c.OwnerKey != "owner-1" {
			t.Errorf("unexpected change %+v", c)
		}
	default:
		t.Fatal("bookings subscriber got nothing")
	}

	select {
	case c := <-stoves:
		t.Fatalf("stoves subscriber got %+v", c)
	default:
	}
}

func TestPublishDropsWhenFull(t *testing.T) {
	f := New(1)
	_, cancel := f.Subscribe(Customers)
	defer cancel()

	for i := 0; i < 3; i++ {
		f.Publish(NewChange(Customers, OpCreated, "cus", "o", time.Now()))
	}
	if got := f.Dropped(); got != 2 {
		t.Errorf("Dropped: got %d, want 2", got)
	}
}

func TestCancelClosesChannel(t *testing.T) {
	f := New(1)
	ch, cancel := f.Subscribe(Cylinders)
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed")
	}
	// Publishing after cancel must not panic.
	f.Publish(NewChange(Cylinders, OpCreated, "cyl", "o", time.Now()))
}

func TestCloseClosesEverything(t *testing.T) {
	f := New(1)
	a, _ := f.Subscribe(Bookings)
	b, cancelB := f.Subscribe(LendingRecords)
	f.Close()
	cancelB()

	if _, ok := <-a; ok {
		t.Error("bookings channel should be closed")
	}
	if _, ok := <-b; ok {
		t.Error("lending channel should be closed")
	}

	late, _ := f.Subscribe(Bookings)
	if _, ok := <-late; ok {
		t.Error("subscription after Close should be closed")
	}
}
