package board

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/sguter90/pimaestro/pkg/models"
)

func newTestPins(t *testing.T) *PinRegistry {
	t.Helper()
	r, err := NewPinRegistry(RaspberryPiPins())
	if err != nil {
		t.Fatalf("Failed to create pin registry: %v", err)
	}
	return r
}

func TestNewPinRegistry_DuplicatePin(t *testing.T) {
	topology := []models.Pin{
		{Number: 1, Name: "3V3", Mode: models.PinModePower},
		{Number: 1, Name: "GPIO2", Mode: models.PinModeGPIO},
	}

	_, err := NewPinRegistry(topology)
	if !errors.Is(err, ErrDuplicatePin) {
		t.Errorf("Expected ErrDuplicatePin, got %v", err)
	}
}

func TestPinRegistry_Claim(t *testing.T) {
	tests := []struct {
		name    string
		number  int
		wantErr error
	}{
		{"gpio pin", 7, nil},
		{"power pin", 1, ErrNotGpio},
		{"ground pin", 6, ErrNotGpio},
		{"unknown pin", 41, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestPins(t)
			err := r.Claim(tt.number, "test")
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Expected claim to succeed, got %v", err)
				}
				pin, _ := r.Get(tt.number)
				if !pin.Claimed || pin.Claimant != "test" {
					t.Errorf("Expected pin to be claimed by test, got %+v", pin)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestPinRegistry_ClaimTwice(t *testing.T) {
	r := newTestPins(t)

	if err := r.Claim(7, "first"); err != nil {
		t.Fatalf("First claim failed: %v", err)
	}
	err := r.Claim(7, "second")
	if !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("Expected ErrAlreadyClaimed, got %v", err)
	}

	pin, _ := r.Get(7)
	if pin.Claimant != "first" {
		t.Errorf("Expected first claimant to keep the pin, got %q", pin.Claimant)
	}
}

func TestPinRegistry_Release(t *testing.T) {
	r := newTestPins(t)

	if err := r.Claim(11, "a"); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if err := r.Release(11); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := r.Claim(11, "b"); err != nil {
		t.Errorf("Expected pin to be claimable after release, got %v", err)
	}

	// releasing an unclaimed pin is a no-op
	if err := r.Release(13); err != nil {
		t.Errorf("Expected no error releasing an unclaimed pin, got %v", err)
	}
	if err := r.Release(99); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestPinRegistry_ConcurrentClaim(t *testing.T) {
	r := newTestPins(t)

	const workers = 64
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.Claim(7, "racer"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("Expected exactly one successful claim, got %d", wins)
	}
}

func TestPinRegistry_PinsOrdered(t *testing.T) {
	r := newTestPins(t)
	pins := r.Pins()

	if len(pins) != 40 {
		t.Fatalf("Expected 40 pins, got %d", len(pins))
	}
	for i, p := range pins {
		if p.Number != i+1 {
			t.Fatalf("Expected pin %d at index %d, got %d", i+1, i, p.Number)
		}
	}
}
