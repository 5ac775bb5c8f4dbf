package order

import (
	"context"
	"errors"
	"strings"
	"testing"

	"rabbit-key-bot/internal/pricing"
	"rabbit-key-bot/internal/session"
)

const adminID = int64(99)

type fakeNotifier struct {
	userMsgs  map[int64][]string
	adminMsgs []string
	userErr   error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{userMsgs: make(map[int64][]string)}
}

func (f *fakeNotifier) NotifyUser(userID int64, text string) error {
	if f.userErr != nil {
		return f.userErr
	}
	f.userMsgs[userID] = append(f.userMsgs[userID], text)
	return nil
}

func (f *fakeNotifier) NotifyAdmin(text string) error {
	f.adminMsgs = append(f.adminMsgs, text)
	return nil
}

type fakeIssuer struct {
	issued []struct {
		userID int64
		key    string
	}
	fail error
}

func (f *fakeIssuer) IssueKey(_ context.Context, userID int64, key string) error {
	if f.fail != nil {
		return f.fail
	}
	f.issued = append(f.issued, struct {
		userID int64
		key    string
	}{userID, key})
	return nil
}

func newController(issuer *fakeIssuer, notifier *fakeNotifier) *Controller {
	engine := pricing.NewEngine(map[string]int64{"7day": 100, "15day": 180, "30day": 300})
	return NewController(session.NewStore(), engine, issuer, notifier, adminID, "shop@upi", "https://example.com/qr.png")
}

func TestChooseDevicesWithoutDuration(t *testing.T) {
	c := newController(&fakeIssuer{}, newFakeNotifier())

	if _, err := c.ChooseDevices(1, 2); !errors.Is(err, ErrNoActiveOrder) {
		t.Errorf("got %v, want ErrNoActiveOrder", err)
	}
}

func TestSubmitTransactionWithoutOrder(t *testing.T) {
	c := newController(&fakeIssuer{}, newFakeNotifier())
	buyer := Buyer{ID: 1, FirstName: "Asha"}

	if err := c.SubmitTransaction(buyer, "TX1"); !errors.Is(err, ErrNoActiveOrder) {
		t.Errorf("no order at all: got %v, want ErrNoActiveOrder", err)
	}

	// Duration chosen but no device count yet: still no active order.
	if _, err := c.ChooseDuration(1, "7day"); err != nil {
		t.Fatalf("ChooseDuration: %v", err)
	}
	if err := c.SubmitTransaction(buyer, "TX1"); !errors.Is(err, ErrNoActiveOrder) {
		t.Errorf("before devices: got %v, want ErrNoActiveOrder", err)
	}
}

func TestSubmitTransactionEmptyTxID(t *testing.T) {
	c := newController(&fakeIssuer{}, newFakeNotifier())
	c.ChooseDuration(1, "7day")
	c.ChooseDevices(1, 1)

	if err := c.SubmitTransaction(Buyer{ID: 1}, ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("got %v, want ErrInvalidInput", err)
	}
}

func TestApproveUnauthorized(t *testing.T) {
	issuer := &fakeIssuer{}
	notifier := newFakeNotifier()
	c := newController(issuer, notifier)

	err := c.Approve(context.Background(), 1, 555, "KEY-XYZ")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
	if len(issuer.issued) != 0 {
		t.Errorf("unauthorized approve performed %d writes, want 0", len(issuer.issued))
	}
	if len(notifier.userMsgs) != 0 {
		t.Errorf("unauthorized approve sent notifications: %v", notifier.userMsgs)
	}
}

func TestApproveWithoutLiveSession(t *testing.T) {
	issuer := &fakeIssuer{}
	notifier := newFakeNotifier()
	c := newController(issuer, notifier)

	// No workflow state for user 555 at all, e.g. after a restart.
	if err := c.Approve(context.Background(), adminID, 555, "KEY-XYZ"); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if len(issuer.issued) != 1 || issuer.issued[0].userID != 555 || issuer.issued[0].key != "KEY-XYZ" {
		t.Fatalf("unexpected issuance: %+v", issuer.issued)
	}
}

func TestApproveIssuanceFailurePropagates(t *testing.T) {
	issuer := &fakeIssuer{fail: errors.New("backend down")}
	notifier := newFakeNotifier()
	c := newController(issuer, notifier)

	if err := c.Approve(context.Background(), adminID, 555, "KEY-XYZ"); err == nil {
		t.Fatal("expected error from failed issuance")
	}
	if len(notifier.userMsgs) != 0 {
		t.Errorf("user notified despite failed issuance: %v", notifier.userMsgs)
	}
}

func TestPurchaseScenario(t *testing.T) {
	issuer := &fakeIssuer{}
	notifier := newFakeNotifier()
	c := newController(issuer, notifier)
	buyer := Buyer{ID: 555, FirstName: "Ravi"}

	if _, err := c.ChooseDuration(555, "30day"); err != nil {
		t.Fatalf("ChooseDuration: %v", err)
	}
	details, err := c.ChooseDevices(555, 2)
	if err != nil {
		t.Fatalf("ChooseDevices: %v", err)
	}
	if details.Price != 600 {
		t.Errorf("price = %d, want 600", details.Price)
	}
	if details.UPIID != "shop@upi" || details.QRImageURL == "" {
		t.Errorf("payment coordinates missing: %+v", details)
	}

	if err := c.SubmitTransaction(buyer, "ABC123"); err != nil {
		t.Fatalf("SubmitTransaction: %v", err)
	}
	if len(notifier.adminMsgs) != 1 {
		t.Fatalf("admin messages = %d, want 1", len(notifier.adminMsgs))
	}
	for _, want := range []string{"30day", "2", "ABC123", "555"} {
		if !strings.Contains(notifier.adminMsgs[0], want) {
			t.Errorf("admin message missing %q: %s", want, notifier.adminMsgs[0])
		}
	}

	if err := c.Approve(context.Background(), adminID, 555, "KEY-XYZ"); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if len(issuer.issued) != 1 || issuer.issued[0].key != "KEY-XYZ" {
		t.Fatalf("unexpected issuance: %+v", issuer.issued)
	}
	msgs := notifier.userMsgs[555]
	if len(msgs) != 1 || !strings.Contains(msgs[0], "KEY-XYZ") {
		t.Errorf("approval notification missing: %v", msgs)
	}

	// The session is spent; a new transaction id needs a fresh flow.
	if err := c.SubmitTransaction(buyer, "DEF456"); !errors.Is(err, ErrNoActiveOrder) {
		t.Errorf("after approval: got %v, want ErrNoActiveOrder", err)
	}
}
