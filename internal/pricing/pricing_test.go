package pricing

import (
	"errors"
	"testing"
)

func testEngine() *Engine {
	return NewEngine(map[string]int64{"7day": 100, "15day": 180, "30day": 300})
}

func TestPriceTable(t *testing.T) {
	e := testEngine()
	base := map[Duration]int64{Duration7Day: 100, Duration15Day: 180, Duration30Day: 300}

	for _, d := range Durations {
		for _, n := range AllowedDevices {
			got, err := e.Price(d, n)
			if err != nil {
				t.Fatalf("Price(%s, %d): %v", d, n, err)
			}
			if want := base[d] * int64(n); got != want {
				t.Errorf("Price(%s, %d) = %d, want %d", d, n, got, want)
			}
		}
	}
}

func TestPriceIncreasesWithDevices(t *testing.T) {
	e := testEngine()
	for _, d := range Durations {
		prev := int64(0)
		for _, n := range AllowedDevices {
			got, err := e.Price(d, n)
			if err != nil {
				t.Fatalf("Price(%s, %d): %v", d, n, err)
			}
			if got <= prev {
				t.Errorf("Price(%s, %d) = %d, not greater than price for fewer devices (%d)", d, n, got, prev)
			}
			prev = got
		}
	}
}

func TestPriceInvalidArguments(t *testing.T) {
	e := testEngine()

	if _, err := e.Price("90day", 1); !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("unknown duration: got %v, want ErrInvalidDuration", err)
	}
	for _, n := range []int{0, -1, 4} {
		if _, err := e.Price(Duration7Day, n); !errors.Is(err, ErrInvalidDeviceCount) {
			t.Errorf("devices=%d: got %v, want ErrInvalidDeviceCount", n, err)
		}
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		raw     string
		want    Duration
		wantErr bool
	}{
		{"7day", Duration7Day, false},
		{"15day", Duration15Day, false},
		{"30day", Duration30Day, false},
		{"1day", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDuration(%q): err = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDuration(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
