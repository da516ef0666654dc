package service_test

import (
	"testing"
	"time"

	"github.com/industrialgate/sitepass/internal/sitepass/service"
)

func TestFeed_DeliversToTopicSubscribers(t *testing.T) {
	feed := service.NewFeed()

	requests, cancelReq := feed.Subscribe(service.TopicRequests)
	defer cancelReq()
	movements, cancelMov := feed.Subscribe(service.TopicMovements)
	defer cancelMov()

	feed.Publish(service.Event{Topic: service.TopicRequests, Kind: "submitted", RequestID: "r1"})

	select {
	case ev := <-requests:
		if ev.Kind != "submitted" || ev.RequestID != "r1" {
			t.Errorf("unexpected event: %+v", ev)
		}
		if ev.At.IsZero() {
			t.Error("expected At to be stamped")
		}
	case <-time.After(time.Second):
		t.Fatal("requests subscriber got nothing")
	}

	select {
	case ev := <-movements:
		t.Fatalf("movements subscriber should see nothing, got %+v", ev)
	default:
	}
}

func TestFeed_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	feed := service.NewFeed()

	_, cancel := feed.Subscribe(service.TopicRequests)
	defer cancel()

	// Overflow the subscriber buffer; Publish must never stall.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			feed.Publish(service.Event{Topic: service.TopicRequests, Kind: "submitted"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestFeed_CancelClosesChannel(t *testing.T) {
	feed := service.NewFeed()

	events, cancel := feed.Subscribe(service.TopicRequests)
	cancel()

	if _, ok := <-events; ok {
		t.Error("expected closed channel after cancel")
	}

	// Publishing after cancel must not panic.
	feed.Publish(service.Event{Topic: service.TopicRequests, Kind: "submitted"})
}
