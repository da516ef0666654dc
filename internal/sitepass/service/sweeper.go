package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/industrialgate/sitepass/internal/sitepass/store"
	"github.com/industrialgate/sitepass/internal/sitepass/types"
)

// UploadSweeper periodically scans for requests stuck in Uploading longer
// than a configurable threshold and flags them on the change feed so an
// operator can intervene (retry the upload or walk the applicant through a
// fresh submission). It never mutates request state.
//
// A threshold of 0 disables the sweeper entirely.
type UploadSweeper struct {
	requests  store.RequestStore
	feed      *Feed
	threshold time.Duration
	interval  time.Duration
	logger    *log.Logger
	cancel    context.CancelFunc
	done      chan struct{}

	mu      sync.Mutex
	flagged map[string]struct{}
}

// SweeperConfig holds the parameters for NewUploadSweeper.
type SweeperConfig struct {
	// StaleAfterHours is how long a request may sit in Uploading before it
	// is flagged. 0 disables the sweeper.
	StaleAfterHours int

	// IntervalMinutes is how often the sweep runs. Defaults to 30.
	IntervalMinutes int
}

func NewUploadSweeper(requests store.RequestStore, feed *Feed, cfg SweeperConfig, logger *log.Logger) *UploadSweeper {
	interval := time.Duration(cfg.IntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 30 * time.Minute
	}

	return &UploadSweeper{
		requests:  requests,
		feed:      feed,
		threshold: time.Duration(cfg.StaleAfterHours) * time.Hour,
		interval:  interval,
		logger:    logger,
		done:      make(chan struct{}),
		flagged:   make(map[string]struct{}),
	}
}

// Start begins the background sweep loop. It runs an immediate sweep on
// startup, then repeats on the configured interval. The loop exits when ctx
// is cancelled or Stop is called.
func (s *UploadSweeper) Start(ctx context.Context) {
	if s.threshold <= 0 {
		s.logger.Printf("upload sweeper disabled (threshold=0)")
		close(s.done)
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)

	go s.loop(ctx)

	s.logger.Printf("upload sweeper started (stale_after=%dh, interval=%dm)",
		int(s.threshold.Hours()), int(s.interval.Minutes()))
}

// Stop signals the sweeper to exit and waits for it to finish.
func (s *UploadSweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.done
}

func (s *UploadSweeper) loop(ctx context.Context) {
	defer close(s.done)

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *UploadSweeper) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.threshold)

	recs, err := s.requests.ListByStatus(ctx, types.StatusUploading)
	if err != nil {
		s.logger.Printf("upload sweep error: %v", err)
		return
	}

	for _, rec := range recs {
		if !rec.CreatedAt.Before(cutoff) {
			continue
		}

		s.mu.Lock()
		_, seen := s.flagged[rec.RequestID]
		if !seen {
			s.flagged[rec.RequestID] = struct{}{}
		}
		s.mu.Unlock()
		if seen {
			continue
		}

		s.logger.Printf("request %s stalled in uploading since %s",
			rec.RequestNo, rec.CreatedAt.Format(time.RFC3339))
		s.feed.Publish(Event{
			Topic:     TopicRequests,
			Kind:      "upload_stalled",
			RequestID: rec.RequestID,
		})
	}
}
