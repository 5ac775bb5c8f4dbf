package bot

import (
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rabbit-key-bot/internal/logger"
)

const broadcastConcurrency = 8

// Broadcast delivers text to every recipient through send, fanning out with
// bounded concurrency. A failed or slow recipient never aborts or delays the
// rest; the return value is the number of recipients attempted, not
// confirmed delivered.
func Broadcast(ids []int64, text string, send func(userID int64, text string) error) int {
	var g errgroup.Group
	g.SetLimit(broadcastConcurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := send(id, text); err != nil {
				logger.Error("broadcast delivery failed", zap.Int64("user", id), zap.Error(err))
			}
			return nil
		})
	}
	g.Wait()
	return len(ids)
}
