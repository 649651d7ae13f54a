package hosts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/logger"
)

const (
	// DefaultSyncInterval is how often the host lists are downloaded
	DefaultSyncInterval = 24 * time.Hour
	// DefaultTimeout bounds one download
	DefaultTimeout = 30 * time.Second
)

// Source is one downloadable host list
type Source struct {
	Protocol dstar.Protocol
	URL      string
}

// Syncer periodically downloads host lists into a store
type Syncer struct {
	store    Store
	sources  []Source
	interval time.Duration
	logger   *logger.Logger
	client   *http.Client
}

// NewSyncer creates a host list syncer. Zero interval and timeout use the
// defaults.
func NewSyncer(store Store, sources []Source, interval, timeout time.Duration, log *logger.Logger) *Syncer {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Syncer{
		store:    store,
		sources:  sources,
		interval: interval,
		logger:   log.WithComponent("hosts"),
		client:   &http.Client{Timeout: timeout},
	}
}

// Start syncs immediately and then every interval until ctx is cancelled
func (s *Syncer) Start(ctx context.Context) {
	s.logger.Info("Starting host list sync", logger.Int("sources", len(s.sources)))
	if err := s.Sync(ctx); err != nil {
		s.logger.Error("Failed to sync host lists on startup", logger.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Host list syncer stopped")
			return
		case <-ticker.C:
			if err := s.Sync(ctx); err != nil {
				s.logger.Error("Failed to sync host lists", logger.Error(err))
			}
		}
	}
}

// Sync downloads every source once. A failing source does not stop the
// others.
func (s *Syncer) Sync(ctx context.Context) error {
	var errs []error
	for _, src := range s.sources {
		if src.URL == "" {
			continue
		}
		if err := s.syncSource(ctx, src); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", src.Protocol, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Syncer) syncSource(ctx context.Context, src Source) error {
	start := time.Now()
	s.logger.Info("Downloading host list", logger.String("protocol", src.Protocol.String()), logger.String("url", src.URL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download host list: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			s.logger.Warn("Failed to close response body", logger.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	hosts, err := Parse(resp.Body, src.Protocol)
	if err != nil {
		return err
	}
	if len(hosts) == 0 {
		// Keep the previous list rather than emptying the cache
		return fmt.Errorf("host list is empty")
	}

	if err := Apply(s.store, src.Protocol, hosts); err != nil {
		return fmt.Errorf("failed to save hosts: %w", err)
	}

	s.logger.Info("Host list sync complete",
		logger.String("protocol", src.Protocol.String()),
		logger.Int("hosts", len(hosts)),
		logger.Duration("duration", time.Since(start)))
	return nil
}
