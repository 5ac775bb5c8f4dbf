package session

import (
	"sync"
	"testing"

	"rabbit-key-bot/internal/pricing"
)

func TestOrderLifecycle(t *testing.T) {
	s := NewStore()

	if _, ok := s.Get(1); ok {
		t.Fatal("expected no order before StartOrder")
	}
	if s.SetDevices(1, 2) {
		t.Fatal("SetDevices must fail before StartOrder")
	}

	s.StartOrder(1, pricing.Duration30Day)
	if !s.SetDevices(1, 2) {
		t.Fatal("SetDevices failed on active order")
	}
	order, ok := s.Get(1)
	if !ok || order.Duration != pricing.Duration30Day || order.Devices != 2 {
		t.Fatalf("unexpected order: %+v (ok=%v)", order, ok)
	}

	s.Clear(1)
	if _, ok := s.Get(1); ok {
		t.Fatal("expected no order after Clear")
	}
}

func TestRestartOverwritesOrder(t *testing.T) {
	s := NewStore()
	s.StartOrder(1, pricing.Duration7Day)
	s.SetDevices(1, 3)

	// Restarting the flow drops the previously chosen device count.
	s.StartOrder(1, pricing.Duration15Day)
	order, _ := s.Get(1)
	if order.Duration != pricing.Duration15Day || order.Devices != 0 {
		t.Fatalf("restart did not overwrite order: %+v", order)
	}
}

func TestUsersDoNotAlias(t *testing.T) {
	s := NewStore()
	s.StartOrder(1, pricing.Duration7Day)
	s.StartOrder(2, pricing.Duration30Day)
	s.SetDevices(2, 3)

	order1, _ := s.Get(1)
	if order1.Duration != pricing.Duration7Day || order1.Devices != 0 {
		t.Fatalf("user 1 order affected by user 2: %+v", order1)
	}
}

func TestConcurrentUsers(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := int64(0); i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			s.StartOrder(id, pricing.Duration7Day)
			s.SetDevices(id, 1)
			s.Get(id)
			s.Clear(id)
		}(i)
	}
	wg.Wait()
}
