package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"smart-led-controller/backend/pkg/dialect"
	"smart-led-controller/backend/pkg/utils"
)

// OpenWithRetry retries OpenSQL with exponential backoff while the failure is
// ErrStoreUnavailable. Other errors (bad dialect, missing migrations) end it at once.
func OpenWithRetry(ctx context.Context, l *slog.Logger, d dialect.Dialect, connStr string, retries uint64) (*SQLStore, error) {
	var s *SQLStore
	op := func() error {
		var err error
		s, err = OpenSQL(ctx, l, d, connStr)
		if err != nil && !errors.Is(err, ErrStoreUnavailable) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second

	notify := func(err error, wait time.Duration) {
		l.Warn("store not reachable, retrying", utils.ErrAttr(err), slog.Duration("wait", wait))
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx), notify); err != nil {
		return nil, err
	}
	return s, nil
}
