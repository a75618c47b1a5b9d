package sensors

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sguter90/pimaestro/pkg/board"
	"github.com/sguter90/pimaestro/pkg/models"
)

// MockPoller records calls and lets tests observe the board during Unschedule
type MockPoller struct {
	scheduled    map[uuid.UUID]models.Sensor
	unscheduled  []uuid.UUID
	scheduleErr  error
	onUnschedule func(id uuid.UUID)
}

func newMockPoller() *MockPoller {
	return &MockPoller{scheduled: make(map[uuid.UUID]models.Sensor)}
}

func (m *MockPoller) Schedule(sensor models.Sensor) error {
	if m.scheduleErr != nil {
		return m.scheduleErr
	}
	m.scheduled[sensor.ID] = sensor
	return nil
}

func (m *MockPoller) Unschedule(id uuid.UUID) error {
	if m.onUnschedule != nil {
		m.onUnschedule(id)
	}
	m.unscheduled = append(m.unscheduled, id)
	delete(m.scheduled, id)
	return nil
}

func newTestBoard(t *testing.T) *board.Board {
	t.Helper()
	b, err := board.New(board.Info{Name: "test", Model: "Raspberry Pi 4"}, nil)
	if err != nil {
		t.Fatalf("board.New failed: %v", err)
	}
	return b
}

func bindI2C(t *testing.T, b *board.Board) {
	t.Helper()
	spec, _ := board.LookupPortSpec("I2C-1")
	if _, err := b.Ports.BindPort(spec.Name, spec.Kind, spec.Roles); err != nil {
		t.Fatalf("BindPort failed: %v", err)
	}
}

func dht(name string, pin int) Registration {
	return Registration{Name: name, Kind: models.SensorKindDHT22, Binding: Binding{Pin: pin}, Interval: time.Second}
}

func TestRegister_DHT22(t *testing.T) {
	b := newTestBoard(t)
	poller := newMockPoller()
	r := NewRegistry(b, poller, nil)

	id, err := r.Register(dht("air", 7))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if id != models.SensorIDFromName("air") {
		t.Errorf("Expected id derived from name, got %s", id)
	}

	pin, _ := b.Pins.Get(7)
	if !pin.Claimed || pin.Claimant != SensorClaimant(id) {
		t.Errorf("Expected pin 7 claimed by %s, got %+v", SensorClaimant(id), pin)
	}

	sensor, err := r.Get(id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if sensor.Input == nil || sensor.Input.GPIO != 4 {
		t.Errorf("Expected GPIO4 input, got %+v", sensor.Input)
	}
	if len(sensor.Channels) != 2 {
		t.Errorf("Expected 2 channels, got %d", len(sensor.Channels))
	}
	if _, ok := poller.scheduled[id]; !ok {
		t.Error("Expected sensor to be scheduled")
	}
}

func TestRegister_Errors(t *testing.T) {
	b := newTestBoard(t)
	bindI2C(t, b)
	r := NewRegistry(b, nil, nil)

	if _, err := r.Register(dht("taken", 7)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tests := []struct {
		name    string
		reg     Registration
		wantErr error
	}{
		{"zero interval", Registration{Name: "a", Kind: models.SensorKindDHT22, Binding: Binding{Pin: 11}}, ErrInvalidInterval},
		{"negative interval", Registration{Name: "a", Kind: models.SensorKindDHT22, Binding: Binding{Pin: 11}, Interval: -time.Second}, ErrInvalidInterval},
		{"unknown kind", Registration{Name: "a", Kind: "SHT31", Binding: Binding{Pin: 11}, Interval: time.Second}, ErrUnknownKind},
		{"pin in use", dht("b", 7), board.ErrAlreadyClaimed},
		{"pin in use is binding error", dht("b", 7), ErrBindingUnavailable},
		{"power pin", dht("c", 1), board.ErrNotGpio},
		{"missing pin", dht("d", 41), board.ErrNotFound},
		{"port for DHT22", Registration{Name: "e", Kind: models.SensorKindDHT22, Binding: Binding{Port: "I2C-1"}, Interval: time.Second}, ErrBindingMismatch},
		{"pin for BMP085", Registration{Name: "f", Kind: models.SensorKindBMP085, Binding: Binding{Pin: 11}, Interval: time.Second}, ErrBindingMismatch},
		{"mismatch is binding error", Registration{Name: "f", Kind: models.SensorKindBMP085, Binding: Binding{Pin: 11}, Interval: time.Second}, ErrBindingUnavailable},
		{"unbound port", Registration{Name: "g", Kind: models.SensorKindBMP085, Binding: Binding{Port: "I2C-20"}, Interval: time.Second}, board.ErrPortNotFound},
		{"duplicate id", dht("taken", 11), ErrDuplicateSensor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Register(tt.reg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	if got := len(r.List()); got != 1 {
		t.Errorf("Expected failed registrations to leave 1 sensor, got %d", got)
	}
}

func TestRegister_BindingErrorKeepsCause(t *testing.T) {
	b := newTestBoard(t)
	r := NewRegistry(b, nil, nil)

	if _, err := r.Register(dht("a", 7)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	_, err := r.Register(dht("b", 7))
	var be *BindingError
	if !errors.As(err, &be) {
		t.Fatalf("Expected *BindingError, got %T", err)
	}
	if be.Binding != "pin 7" {
		t.Errorf("Expected binding 'pin 7', got %q", be.Binding)
	}
}

func TestRegister_BMP085Addresses(t *testing.T) {
	b := newTestBoard(t)
	bindI2C(t, b)
	r := NewRegistry(b, nil, nil)

	bmp := func(name string, addr uint16) Registration {
		return Registration{Name: name, Kind: models.SensorKindBMP085, Binding: Binding{Port: "I2C-1", Address: addr}, Interval: time.Second}
	}

	id, err := r.Register(bmp("baro", 0))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	sensor, _ := r.Get(id)
	if sensor.Port == nil || sensor.Port.Address != 0x77 {
		t.Errorf("Expected default address 0x77, got %+v", sensor.Port)
	}

	if _, err := r.Register(bmp("baro2", 0x77)); !errors.Is(err, ErrBindingUnavailable) {
		t.Errorf("Expected ErrBindingUnavailable for shared address, got %v", err)
	}

	if _, err := r.Register(bmp("baro3", 0x76)); err != nil {
		t.Errorf("Expected a second address on the same bus to work, got %v", err)
	}

	if err := r.Deregister(id); err != nil {
		t.Fatalf("Deregister failed: %v", err)
	}
	if _, err := r.Register(bmp("baro4", 0x77)); err != nil {
		t.Errorf("Expected address to be free after deregister, got %v", err)
	}
}

func TestRegister_ScheduleFailureRollsBack(t *testing.T) {
	b := newTestBoard(t)
	poller := newMockPoller()
	poller.scheduleErr = errors.New("scheduler is shut down")
	r := NewRegistry(b, poller, nil)

	if _, err := r.Register(dht("air", 7)); err == nil {
		t.Fatal("Expected schedule error")
	}

	pin, _ := b.Pins.Get(7)
	if pin.Claimed {
		t.Error("Expected pin 7 to be released after failed schedule")
	}
	if len(r.List()) != 0 {
		t.Error("Expected no sensors after failed schedule")
	}
}

func TestDeregister_StopsPollingBeforeRelease(t *testing.T) {
	b := newTestBoard(t)
	poller := newMockPoller()
	r := NewRegistry(b, poller, nil)

	id, err := r.Register(dht("air", 7))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	claimedDuringStop := false
	poller.onUnschedule = func(uuid.UUID) {
		pin, _ := b.Pins.Get(7)
		claimedDuringStop = pin.Claimed
	}

	if err := r.Deregister(id); err != nil {
		t.Fatalf("Deregister failed: %v", err)
	}

	if !claimedDuringStop {
		t.Error("Expected pin to stay claimed until polling stopped")
	}
	if len(poller.unscheduled) != 1 || poller.unscheduled[0] != id {
		t.Errorf("Expected one Unschedule for %s, got %v", id, poller.unscheduled)
	}

	pin, _ := b.Pins.Get(7)
	if pin.Claimed {
		t.Error("Expected pin 7 to be released")
	}
	if _, err := r.Get(id); !errors.Is(err, ErrSensorNotFound) {
		t.Errorf("Expected ErrSensorNotFound, got %v", err)
	}
	if err := r.Deregister(id); !errors.Is(err, ErrSensorNotFound) {
		t.Errorf("Expected ErrSensorNotFound on second deregister, got %v", err)
	}
}

func TestList_RegistrationOrder(t *testing.T) {
	b := newTestBoard(t)
	r := NewRegistry(b, nil, nil)

	names := []string{"c", "a", "b"}
	pins := []int{7, 11, 13}
	for i, n := range names {
		if _, err := r.Register(dht(n, pins[i])); err != nil {
			t.Fatalf("Register %s failed: %v", n, err)
		}
	}

	list := r.List()
	for i, s := range list {
		if s.Name != names[i] {
			t.Errorf("Expected %s at %d, got %s", names[i], i, s.Name)
		}
	}
}

func TestBinding_String(t *testing.T) {
	tests := map[string]Binding{
		"pin 7":               {Pin: 7},
		"I2C-1@0x77":          {Port: "I2C-1", Address: 0x77},
		"pin 7 and port SPI0": {Pin: 7, Port: "SPI0"},
		"no binding":          {},
	}

	for want, b := range tests {
		if got := b.String(); got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	}
}
