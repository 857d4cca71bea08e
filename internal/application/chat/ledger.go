package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vitalroute/v1/internal/ports/outbound"
	"github.com/vitalroute/v1/pkg/usersync"
)

// UsageLedger is the per-user daily token counter that gates paid calls.
// It is pure bookkeeping: reservation is a quick pre-check before a call,
// commit is the reconciling deduction afterwards. No lock is held across
// the provider call itself.
type UsageLedger struct {
	cache      outbound.CacheRepository
	locks      *usersync.KeyedMutex
	dailyLimit int64
	logger     *zap.Logger
	now        func() time.Time
}

// LedgerSnapshot reports a user's standing for the current period
type LedgerSnapshot struct {
	UserID     uuid.UUID `json:"user_id"`
	Period     string    `json:"period"`
	TokensUsed int64     `json:"tokens_used"`
	TokenLimit int64     `json:"token_limit"`
	Remaining  int64     `json:"remaining"`
}

// NewUsageLedger creates a ledger over a cache-backed counter store
func NewUsageLedger(cache outbound.CacheRepository, dailyLimit int64, logger *zap.Logger) *UsageLedger {
	return &UsageLedger{
		cache:      cache,
		locks:      usersync.New(64),
		dailyLimit: dailyLimit,
		logger:     logger.Named("usage-ledger"),
		now:        time.Now,
	}
}

// Periods are UTC days so the key and the rollover computation agree
// regardless of the process timezone.
func (l *UsageLedger) periodKey(userID uuid.UUID) (string, time.Duration) {
	now := l.now().UTC()
	day := now.Format("2006-01-02")
	// Counter expires shortly after the period rolls over.
	endOfDay := now.Truncate(24 * time.Hour).Add(25 * time.Hour)
	return fmt.Sprintf("ledger:%s:%s", userID, day), endOfDay.Sub(now)
}

// Reserve checks whether the estimated token count fits the user's
// remaining quota. It does not consume tokens; availability beats strict
// accounting, so an over-budget user is degraded, never rejected.
func (l *UsageLedger) Reserve(ctx context.Context, userID uuid.UUID, estimatedTokens int) (bool, error) {
	if l.dailyLimit <= 0 {
		return true, nil
	}
	snapshot, err := l.Snapshot(ctx, userID)
	if err != nil {
		return false, err
	}
	return snapshot.Remaining >= int64(estimatedTokens), nil
}

// Commit deducts actual usage after a paid call. TokensUsed is monotonically
// non-decreasing within a period and never goes negative.
func (l *UsageLedger) Commit(ctx context.Context, userID uuid.UUID, tokens int) error {
	if tokens <= 0 {
		return nil
	}

	unlock := l.locks.Lock(userID)
	defer unlock()

	key, ttl := l.periodKey(userID)
	used, err := l.cache.IncrementBy(ctx, key, int64(tokens), ttl)
	if err != nil {
		return err
	}

	l.logger.Debug("Token usage committed",
		zap.String("user_id", userID.String()),
		zap.Int("tokens", tokens),
		zap.Int64("tokens_used", used),
	)
	return nil
}

// Snapshot returns the user's current-period standing
func (l *UsageLedger) Snapshot(ctx context.Context, userID uuid.UUID) (*LedgerSnapshot, error) {
	key, _ := l.periodKey(userID)

	used, err := l.cache.Counter(ctx, key)
	if err != nil {
		// A missing counter means no usage this period.
		used = 0
	}

	remaining := l.dailyLimit - used
	if remaining < 0 {
		remaining = 0
	}

	return &LedgerSnapshot{
		UserID:     userID,
		Period:     l.now().UTC().Format("2006-01-02"),
		TokensUsed: used,
		TokenLimit: l.dailyLimit,
		Remaining:  remaining,
	}, nil
}
