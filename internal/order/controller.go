package order

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"rabbit-key-bot/internal/logger"
	"rabbit-key-bot/internal/pricing"
	"rabbit-key-bot/internal/session"
)

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNoActiveOrder = errors.New("no active order")
	ErrInvalidInput  = errors.New("invalid input")
)

// Notifier is the outbound message boundary. Both methods are best-effort
// from the controller's point of view.
type Notifier interface {
	NotifyUser(userID int64, text string) error
	NotifyAdmin(text string) error
}

// Issuer performs the credential dual write.
type Issuer interface {
	IssueKey(ctx context.Context, telegramID int64, keyValue string) error
}

// Buyer identifies the user submitting a transaction, as shown to the admin.
type Buyer struct {
	ID        int64
	FirstName string
}

// PaymentDetails is the rendered payment step: order terms plus the
// out-of-band payment coordinates. Nothing is persisted at this point.
type PaymentDetails struct {
	Duration   pricing.Duration
	Devices    int
	Price      int64
	UPIID      string
	QRImageURL string
}

// Controller drives the purchase flow: duration, device count, payment,
// transaction submission, and the privileged approval that issues the key.
type Controller struct {
	sessions   *session.Store
	pricing    *pricing.Engine
	issuer     Issuer
	notifier   Notifier
	adminID    int64
	upiID      string
	qrImageURL string
}

func NewController(sessions *session.Store, engine *pricing.Engine, issuer Issuer, notifier Notifier, adminID int64, upiID, qrImageURL string) *Controller {
	return &Controller{
		sessions:   sessions,
		pricing:    engine,
		issuer:     issuer,
		notifier:   notifier,
		adminID:    adminID,
		upiID:      upiID,
		qrImageURL: qrImageURL,
	}
}

// Authorize is the single capability check for privileged commands.
func (c *Controller) Authorize(callerID int64) error {
	if callerID != c.adminID {
		return ErrUnauthorized
	}
	return nil
}

// ChooseDuration starts (or restarts) the purchase flow for the user.
func (c *Controller) ChooseDuration(userID int64, raw string) (pricing.Duration, error) {
	duration, err := pricing.ParseDuration(raw)
	if err != nil {
		return "", err
	}
	c.sessions.StartOrder(userID, duration)
	return duration, nil
}

// ChooseDevices completes the pending order and renders the payment step.
// Without a prior ChooseDuration there is no order to complete.
func (c *Controller) ChooseDevices(userID int64, devices int) (PaymentDetails, error) {
	if !pricing.ValidDeviceCount(devices) {
		return PaymentDetails{}, ErrInvalidInput
	}
	order, ok := c.sessions.Get(userID)
	if !ok {
		return PaymentDetails{}, ErrNoActiveOrder
	}
	price, err := c.pricing.Price(order.Duration, devices)
	if err != nil {
		return PaymentDetails{}, err
	}
	if !c.sessions.SetDevices(userID, devices) {
		return PaymentDetails{}, ErrNoActiveOrder
	}
	return PaymentDetails{
		Duration:   order.Duration,
		Devices:    devices,
		Price:      price,
		UPIID:      c.upiID,
		QRImageURL: c.qrImageURL,
	}, nil
}

// SubmitTransaction forwards the buyer's payment reference to the admin.
// Advisory only: nothing is verified and nothing is persisted.
func (c *Controller) SubmitTransaction(buyer Buyer, txID string) error {
	if txID == "" {
		return ErrInvalidInput
	}
	order, ok := c.sessions.Get(buyer.ID)
	if !ok || order.Devices == 0 {
		return ErrNoActiveOrder
	}
	text := fmt.Sprintf(
		"📢 New Payment Received\n\n👤 User: %s (%d)\n🕒 Duration: %s\n📱 Devices: %d\n💳 TxID: %s",
		buyer.FirstName, buyer.ID, order.Duration, order.Devices, txID)
	if err := c.notifier.NotifyAdmin(text); err != nil {
		return err
	}
	logger.Info("transaction submitted", zap.Int64("user", buyer.ID), zap.String("tx_id", txID))
	return nil
}

// Approve issues a key to the target user. Admin-only; any other caller gets
// ErrUnauthorized with zero writes. Deliberately not gated on workflow
// state: the admin verifies payment out-of-band and must be able to approve
// after a restart, with no live session for the target. There is no
// duplicate-approval check — approving the same transaction twice issues two
// keys.
func (c *Controller) Approve(ctx context.Context, callerID, targetID int64, keyValue string) error {
	if err := c.Authorize(callerID); err != nil {
		return err
	}
	if targetID == 0 || keyValue == "" {
		return ErrInvalidInput
	}
	if err := c.issuer.IssueKey(ctx, targetID, keyValue); err != nil {
		return err
	}
	c.sessions.Clear(targetID)
	if err := c.notifier.NotifyUser(targetID, fmt.Sprintf("✅ Your key has been approved!\n🔑 Key: %s", keyValue)); err != nil {
		// Key is issued and durable in both backends; delivery is best-effort.
		logger.Error("approval notification failed", zap.Int64("user", targetID), zap.Error(err))
	}
	logger.LogAdminAction(callerID, "approve", fmt.Sprintf("user=%d", targetID))
	return nil
}
