package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"rabbit-key-bot/internal/logger"
)

// Stage names the backend at which an issuance stopped.
type Stage string

const (
	StageKeyLog   Stage = "key log"
	StageAccounts Stage = "account store"
)

var ErrBackendUnavailable = errors.New("backend unavailable")

// IssuanceError reports a failed or partially completed dual write. The
// earlier stage is NOT rolled back: the admin sees which backend failed and
// retries by hand.
type IssuanceError struct {
	Stage Stage
	Err   error
}

func (e *IssuanceError) Error() string {
	return fmt.Sprintf("key issuance failed at %s: %v", e.Stage, e.Err)
}

func (e *IssuanceError) Unwrap() error { return e.Err }

// KeyLog is the realtime append-only backend (A).
type KeyLog interface {
	Append(ctx context.Context, telegramID int64, keyValue string, issuedAt time.Time) error
}

// KeyHistoryStore is the durable document backend (B).
type KeyHistoryStore interface {
	PushKey(ctx context.Context, telegramID int64, keyValue string, date time.Time) error
}

// Issuer performs the dual write for every approved key: append to the key
// log, then push into the user document's embedded history. The two writes
// are sequential, not atomic; each backend stamps its own write time.
// IssueKey is not idempotent — approving the same key twice records it twice
// in both backends.
type Issuer struct {
	keyLog   KeyLog
	accounts KeyHistoryStore
	timeout  time.Duration
}

func NewIssuer(keyLog KeyLog, accounts KeyHistoryStore) *Issuer {
	return &Issuer{keyLog: keyLog, accounts: accounts, timeout: 10 * time.Second}
}

func (i *Issuer) IssueKey(ctx context.Context, telegramID int64, keyValue string) error {
	if err := i.write(ctx, func(ctx context.Context) error {
		return i.keyLog.Append(ctx, telegramID, keyValue, time.Now())
	}); err != nil {
		logger.Error("key log append failed", zap.Int64("user", telegramID), zap.Error(err))
		return &IssuanceError{Stage: StageKeyLog, Err: err}
	}

	if err := i.write(ctx, func(ctx context.Context) error {
		return i.accounts.PushKey(ctx, telegramID, keyValue, time.Now())
	}); err != nil {
		// Backend A already holds the record; surface the divergence.
		logger.Error("key history push failed after log append", zap.Int64("user", telegramID), zap.Error(err))
		return &IssuanceError{Stage: StageAccounts, Err: err}
	}

	logger.Info("key issued", zap.Int64("user", telegramID))
	return nil
}

func (i *Issuer) write(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()
	err := op(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrBackendUnavailable
	}
	return err
}
