package accounts

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"rabbit-key-bot/internal/logger"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

// KeyEntry is one issued key inside a user document's embedded history.
type KeyEntry struct {
	Key    string    `bson:"key"`
	Date   time.Time `bson:"date"`
	Active bool      `bson:"active"`
}

// UserAccount is the durable per-user document: wallet balance, key history
// and referral attribution. Created lazily on first contact or first
// issuance, never deleted.
type UserAccount struct {
	TelegramID int64      `bson:"telegram_id"`
	Wallet     int64      `bson:"wallet"`
	KeyHistory []KeyEntry `bson:"key_history"`
	ReferredBy int64      `bson:"referred_by,omitempty"`
}

// Store is the document-store boundary. FindOne returns (nil, nil) for an
// unknown user. DebitWallet must be conditional on the balance so it can
// never drive the wallet negative.
type Store interface {
	FindOne(ctx context.Context, telegramID int64) (*UserAccount, error)
	PushKey(ctx context.Context, telegramID int64, keyValue string, date time.Time) error
	EnsureAccount(ctx context.Context, telegramID int64, referredBy int64) (created bool, err error)
	CreditWallet(ctx context.Context, telegramID int64, amount int64) error
	DebitWallet(ctx context.Context, telegramID int64, amount int64) error
	AllTelegramIDs(ctx context.Context) ([]int64, error)
}

// Ledger applies wallet and referral policy on top of the document store.
type Ledger struct {
	store         Store
	referralBonus int64
	minWithdraw   int64
}

func NewLedger(store Store, referralBonus, minWithdraw int64) *Ledger {
	return &Ledger{store: store, referralBonus: referralBonus, minWithdraw: minWithdraw}
}

// KeyHistory returns the user's issued keys in issuance order. An unknown
// user has an empty history, not an error.
func (l *Ledger) KeyHistory(ctx context.Context, telegramID int64) ([]KeyEntry, error) {
	account, err := l.store.FindOne(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, nil
	}
	return account.KeyHistory, nil
}

// Balance returns the wallet balance, zero for an unknown user.
func (l *Ledger) Balance(ctx context.Context, telegramID int64) (int64, error) {
	account, err := l.store.FindOne(ctx, telegramID)
	if err != nil {
		return 0, err
	}
	if account == nil {
		return 0, nil
	}
	return account.Wallet, nil
}

// RegisterContact upserts the user's account on any inbound event. When the
// contact is a first-time signup carrying a referral payload, the referrer
// is credited the configured bonus exactly once. Self-referrals are ignored.
func (l *Ledger) RegisterContact(ctx context.Context, telegramID, referrerID int64) error {
	if referrerID == telegramID {
		referrerID = 0
	}
	created, err := l.store.EnsureAccount(ctx, telegramID, referrerID)
	if err != nil {
		return err
	}
	if !created || referrerID == 0 {
		return nil
	}
	if err := l.store.CreditWallet(ctx, referrerID, l.referralBonus); err != nil {
		// The signup itself stands; a missed bonus is logged, not fatal.
		logger.Error("referral credit failed", zap.Int64("referrer", referrerID), zap.Error(err))
		return nil
	}
	logger.Info("referral credited", zap.Int64("referrer", referrerID), zap.Int64("new_user", telegramID), zap.Int64("bonus", l.referralBonus))
	return nil
}

// Withdraw debits the wallet. The amount must meet the configured floor and
// must not exceed the balance; either violation is ErrInsufficientFunds.
func (l *Ledger) Withdraw(ctx context.Context, telegramID, amount int64) error {
	if amount < l.minWithdraw {
		return ErrInsufficientFunds
	}
	return l.store.DebitWallet(ctx, telegramID, amount)
}

func (l *Ledger) MinWithdraw() int64 { return l.minWithdraw }

// AllTelegramIDs lists every known user, for broadcast.
func (l *Ledger) AllTelegramIDs(ctx context.Context) ([]int64, error) {
	return l.store.AllTelegramIDs(ctx)
}
