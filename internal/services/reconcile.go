package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"rabbit-key-bot/internal/accounts"
	"rabbit-key-bot/internal/db"
	"rabbit-key-bot/internal/logger"
)

// ReconcileKeyBackends scans every known user and compares the number of
// issued keys recorded in the key log against the embedded history in the
// document store. The dual write has no cross-backend transaction, so the
// stores can diverge after a partial failure; this scan reports the
// divergence to the admin. It never repairs anything — the admin retries the
// failed write by hand.
func ReconcileKeyBackends(store accounts.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	ids, err := store.AllTelegramIDs(ctx)
	if err != nil {
		logger.Error("reconcile: user listing failed", zap.Error(err))
		logger.NotifyAdmin("Key backend reconciliation failed: " + err.Error())
		return
	}

	var mismatches []string
	for _, id := range ids {
		logCount, err := db.CountKeyRecords(ctx, id)
		if err != nil {
			logger.Error("reconcile: key log count failed", zap.Int64("user", id), zap.Error(err))
			continue
		}
		account, err := store.FindOne(ctx, id)
		if err != nil {
			logger.Error("reconcile: account read failed", zap.Int64("user", id), zap.Error(err))
			continue
		}
		historyCount := 0
		if account != nil {
			historyCount = len(account.KeyHistory)
		}
		if logCount != int64(historyCount) {
			mismatches = append(mismatches, fmt.Sprintf("user %d: key log has %d records, history has %d", id, logCount, historyCount))
		}
	}

	if len(mismatches) == 0 {
		logger.Info("reconcile: key backends consistent", zap.Int("users", len(ids)))
		return
	}
	logger.Error("reconcile: key backends diverged", zap.Int("mismatches", len(mismatches)))
	logger.NotifyAdmin(fmt.Sprintf("Key backends diverged for %d user(s):\n%s", len(mismatches), strings.Join(mismatches, "\n")))
}
