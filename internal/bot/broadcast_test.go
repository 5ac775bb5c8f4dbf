package bot

import (
	"errors"
	"sync"
	"testing"
)

func TestBroadcastIsolatesFailures(t *testing.T) {
	var mu sync.Mutex
	delivered := make(map[int64]string)
	send := func(userID int64, text string) error {
		if userID == 2 {
			return errors.New("blocked the bot")
		}
		mu.Lock()
		delivered[userID] = text
		mu.Unlock()
		return nil
	}

	attempted := Broadcast([]int64{1, 2, 3}, "hello", send)

	if attempted != 3 {
		t.Errorf("attempted = %d, want 3 (count includes failed recipients)", attempted)
	}
	if delivered[1] != "hello" || delivered[3] != "hello" {
		t.Errorf("users 1 and 3 should receive the message, got %v", delivered)
	}
	if _, ok := delivered[2]; ok {
		t.Error("user 2 marked delivered despite failure")
	}
}

func TestBroadcastEmpty(t *testing.T) {
	calls := 0
	attempted := Broadcast(nil, "hello", func(int64, string) error {
		calls++
		return nil
	})
	if attempted != 0 || calls != 0 {
		t.Errorf("attempted = %d, calls = %d, want 0 and 0", attempted, calls)
	}
}

func TestBroadcastManyRecipients(t *testing.T) {
	var mu sync.Mutex
	count := 0
	ids := make([]int64, 100)
	for i := range ids {
		ids[i] = int64(i + 1)
	}

	attempted := Broadcast(ids, "hello", func(int64, string) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})

	if attempted != 100 || count != 100 {
		t.Errorf("attempted = %d, delivered = %d, want 100 and 100", attempted, count)
	}
}
