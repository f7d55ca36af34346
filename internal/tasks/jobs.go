package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// InactiveUserPurger deletes accounts that were never activated.
type InactiveUserPurger interface {
	DeleteInactiveCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// InactiveAccountPurgeJob creates a job that removes accounts still inactive
// ttl after registration, together with their dependent rows.
func InactiveAccountPurgeJob(users InactiveUserPurger, logger *zap.Logger, ttl time.Duration) Job {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	if interval > 15*time.Minute {
		interval = 15 * time.Minute
	}
	return Job{
		Name:     "inactive-account-purge",
		Interval: interval,
		Run: func(ctx context.Context) error {
			count, err := users.DeleteInactiveCreatedBefore(ctx, time.Now().Add(-ttl))
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Info("purged inactive accounts",
					zap.Int64("count", count),
					zap.Duration("ttl", ttl))
			}
			return nil
		},
	}
}

// RefreshTokenPurger drops refresh tokens that can no longer be used.
type RefreshTokenPurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// RefreshTokenPurgeJob deletes refresh tokens that expired or were revoked
// more than retention ago.
func RefreshTokenPurgeJob(tokens RefreshTokenPurger, logger *zap.Logger, retention time.Duration) Job {
	return Job{
		Name:     "refresh-token-purge",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			count, err := tokens.PurgeExpired(ctx, time.Now().Add(-retention))
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Info("purged refresh tokens", zap.Int64("count", count))
			}
			return nil
		},
	}
}
