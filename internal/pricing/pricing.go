package pricing

import (
	"errors"
)

// Duration is a subscription length tier. The base price is configured per
// tier; the total scales with the number of devices.
type Duration string

const (
	Duration7Day  Duration = "7day"
	Duration15Day Duration = "15day"
	Duration30Day Duration = "30day"
)

var Durations = []Duration{Duration7Day, Duration15Day, Duration30Day}

// AllowedDevices is the set of purchasable device counts.
var AllowedDevices = []int{1, 2, 3}

var (
	ErrInvalidDuration    = errors.New("invalid duration")
	ErrInvalidDeviceCount = errors.New("invalid device count")
)

// Engine maps (duration, device count) to a price. Deterministic, no I/O.
type Engine struct {
	basePrice map[Duration]int64
}

func NewEngine(keyPrice map[string]int64) *Engine {
	prices := make(map[Duration]int64, len(keyPrice))
	for d, p := range keyPrice {
		prices[Duration(d)] = p
	}
	return &Engine{basePrice: prices}
}

// ParseDuration validates a raw duration tag from callback data.
func ParseDuration(raw string) (Duration, error) {
	for _, d := range Durations {
		if Duration(raw) == d {
			return d, nil
		}
	}
	return "", ErrInvalidDuration
}

func ValidDeviceCount(n int) bool {
	for _, allowed := range AllowedDevices {
		if n == allowed {
			return true
		}
	}
	return false
}

func (e *Engine) BasePrice(d Duration) (int64, error) {
	price, ok := e.basePrice[d]
	if !ok {
		return 0, ErrInvalidDuration
	}
	return price, nil
}

// Price returns basePrice[duration] * devices.
func (e *Engine) Price(d Duration, devices int) (int64, error) {
	base, err := e.BasePrice(d)
	if err != nil {
		return 0, err
	}
	if !ValidDeviceCount(devices) {
		return 0, ErrInvalidDeviceCount
	}
	return base * int64(devices), nil
}
