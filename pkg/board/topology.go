package board

import "github.com/sguter90/pimaestro/pkg/models"

// PortSpec is an entry of the default port table
type PortSpec struct {
	Name  string
	Kind  models.PortKind
	Roles map[string]int
}

// RaspberryPiPins returns the 40-pin header of a Raspberry Pi (B+ and later)
func RaspberryPiPins() []models.Pin {
	table := []struct {
		number int
		name   string
		mode   models.PinMode
	}{
		{1, "3V3", models.PinModePower},
		{2, "5V", models.PinModePower},
		{3, "GPIO2", models.PinModeGPIO},
		{4, "5V", models.PinModePower},
		{5, "GPIO3", models.PinModeGPIO},
		{6, "GND", models.PinModeGround},
		{7, "GPIO4", models.PinModeGPIO},
		{8, "GPIO14", models.PinModeGPIO},
		{9, "GND", models.PinModeGround},
		{10, "GPIO15", models.PinModeGPIO},
		{11, "GPIO17", models.PinModeGPIO},
		{12, "GPIO18", models.PinModeGPIO},
		{13, "GPIO27", models.PinModeGPIO},
		{14, "GND", models.PinModeGround},
		{15, "GPIO22", models.PinModeGPIO},
		{16, "GPIO23", models.PinModeGPIO},
		{17, "3V3", models.PinModePower},
		{18, "GPIO24", models.PinModeGPIO},
		{19, "GPIO10", models.PinModeGPIO},
		{20, "GND", models.PinModeGround},
		{21, "GPIO9", models.PinModeGPIO},
		{22, "GPIO25", models.PinModeGPIO},
		{23, "GPIO11", models.PinModeGPIO},
		{24, "GPIO8", models.PinModeGPIO},
		{25, "GND", models.PinModeGround},
		{26, "GPIO7", models.PinModeGPIO},
		{27, "GPIO0", models.PinModeGPIO},
		{28, "GPIO1", models.PinModeGPIO},
		{29, "GPIO5", models.PinModeGPIO},
		{30, "GND", models.PinModeGround},
		{31, "GPIO6", models.PinModeGPIO},
		{32, "GPIO12", models.PinModeGPIO},
		{33, "GPIO13", models.PinModeGPIO},
		{34, "GND", models.PinModeGround},
		{35, "GPIO19", models.PinModeGPIO},
		{36, "GPIO16", models.PinModeGPIO},
		{37, "GPIO26", models.PinModeGPIO},
		{38, "GPIO20", models.PinModeGPIO},
		{39, "GND", models.PinModeGround},
		{40, "GPIO21", models.PinModeGPIO},
	}

	pins := make([]models.Pin, 0, len(table))
	for _, p := range table {
		pins = append(pins, models.Pin{Number: p.number, Name: p.name, Mode: p.mode})
	}
	return pins
}

// RaspberryPiPorts returns the default bus ports of the 40-pin header.
// PWM2 and PWM3 share pins with SPI1, so at most one of them binds.
func RaspberryPiPorts() []PortSpec {
	return []PortSpec{
		// TX GPIO14, RX GPIO15
		{Name: "/dev/ttyS0", Kind: models.PortKindSerial, Roles: map[string]int{"tx": 8, "rx": 10}},
		// SDA GPIO2, SCL GPIO3
		{Name: "I2C-1", Kind: models.PortKindI2C, Roles: map[string]int{"sda": 3, "scl": 5}},
		// HAT EEPROM bus
		{Name: "I2C-20", Kind: models.PortKindI2C, Roles: map[string]int{"sda": 27, "scl": 28}},
		{Name: "SPI0", Kind: models.PortKindSPI, Roles: map[string]int{"mosi": 19, "miso": 21, "sclk": 23, "ce0": 24, "ce1": 26}},
		{Name: "SPI1", Kind: models.PortKindSPI, Roles: map[string]int{"mosi": 38, "miso": 35, "sclk": 40, "ce0": 12, "ce1": 11, "ce2": 36}},
		{Name: "PWM0", Kind: models.PortKindPWM, Roles: map[string]int{"pin": 32}},
		{Name: "PWM1", Kind: models.PortKindPWM, Roles: map[string]int{"pin": 33}},
		{Name: "PWM2", Kind: models.PortKindPWM, Roles: map[string]int{"pin": 12}},
		{Name: "PWM3", Kind: models.PortKindPWM, Roles: map[string]int{"pin": 35}},
	}
}

// LookupPortSpec finds a default port by name
func LookupPortSpec(name string) (PortSpec, bool) {
	for _, spec := range RaspberryPiPorts() {
		if spec.Name == name {
			return spec, true
		}
	}
	return PortSpec{}, false
}
