package driver

import (
	"context"
	"encoding/binary"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sguter90/pimaestro/pkg/models"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
)

// BMP085 registers and commands
const (
	bmpRegChipID      = 0xD0
	bmpRegCalibration = 0xAA
	bmpRegControl     = 0xF4
	bmpRegData        = 0xF6

	bmpChipID        = 0x55
	bmpCmdTemp       = 0x2E
	bmpCmdPressure   = 0x34
	bmpCalibrationSz = 22

	bmpTempDelay = 4500 * time.Microsecond

	// BMP085OversamplingStandard is the default pressure oversampling setting
	BMP085OversamplingStandard = 1

	seaLevelPa = 101325.0
)

var bmpPressureDelay = [4]time.Duration{
	4500 * time.Microsecond,
	7500 * time.Microsecond,
	13500 * time.Microsecond,
	25500 * time.Microsecond,
}

// bmpCalibration holds the factory trimming values from the EEPROM
type bmpCalibration struct {
	ac1, ac2, ac3 int16
	ac4, ac5, ac6 uint16
	b1, b2        int16
	mb, mc, md    int16
}

// BMP085 reads a Bosch BMP085/BMP180 barometer over I2C
type BMP085 struct {
	dev   *i2c.Dev
	bus   i2c.BusCloser
	calib bmpCalibration
	oss   uint8
}

// NewBMP085 checks the chip id and loads the calibration block. Both
// failures are fatal, the device is absent or not a BMP085.
func NewBMP085(bus i2c.Bus, addr uint16, oss uint8) (*BMP085, error) {
	if oss > 3 {
		return nil, Fatal(errors.Errorf("oversampling %d out of range", oss))
	}
	dev := &i2c.Dev{Bus: bus, Addr: addr}

	id := make([]byte, 1)
	if err := dev.Tx([]byte{bmpRegChipID}, id); err != nil {
		return nil, Fatal(errors.Wrapf(err, "read chip id at 0x%02x", addr))
	}
	if id[0] != bmpChipID {
		return nil, Fatal(errors.Wrapf(ErrDeviceMissing, "chip id 0x%02x at 0x%02x is not a BMP085", id[0], addr))
	}

	raw := make([]byte, bmpCalibrationSz)
	if err := dev.Tx([]byte{bmpRegCalibration}, raw); err != nil {
		return nil, Fatal(errors.Wrap(err, "read calibration"))
	}
	calib, err := parseBMPCalibration(raw)
	if err != nil {
		return nil, Fatal(err)
	}

	return &BMP085{dev: dev, calib: calib, oss: oss}, nil
}

func openBMP085(sensor models.Sensor) (Driver, error) {
	if sensor.Port == nil {
		return nil, Fatal(errors.Errorf("sensor %s: BMP085 needs an I2C port", sensor.Name))
	}
	busName := busNameFromPort(sensor.Port.Name)
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, Fatal(errors.Wrapf(err, "open i2c bus %q", busName))
	}
	d, err := NewBMP085(bus, sensor.Port.Address, BMP085OversamplingStandard)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	d.bus = bus
	return d, nil
}

// busNameFromPort maps port names like "I2C-1" to the periph bus name "1"
func busNameFromPort(port string) string {
	if i := strings.LastIndex(port, "-"); i >= 0 {
		return port[i+1:]
	}
	return port
}

func parseBMPCalibration(raw []byte) (bmpCalibration, error) {
	if len(raw) != bmpCalibrationSz {
		return bmpCalibration{}, errors.Errorf("calibration block is %d bytes", len(raw))
	}
	words := make([]uint16, bmpCalibrationSz/2)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(raw[2*i:])
		if words[i] == 0x0000 || words[i] == 0xFFFF {
			return bmpCalibration{}, errors.Errorf("calibration word %d is 0x%04x", i, words[i])
		}
	}
	return bmpCalibration{
		ac1: int16(words[0]), ac2: int16(words[1]), ac3: int16(words[2]),
		ac4: words[3], ac5: words[4], ac6: words[5],
		b1: int16(words[6]), b2: int16(words[7]),
		mb: int16(words[8]), mc: int16(words[9]), md: int16(words[10]),
	}, nil
}

// Read measures temperature then pressure and derives altitude
func (b *BMP085) Read(ctx context.Context) (Result, error) {
	ut, err := b.readRaw(ctx, bmpCmdTemp, bmpTempDelay, 2)
	if err != nil {
		return Result{}, err
	}
	up, err := b.readRaw(ctx, bmpCmdPressure+(b.oss<<6), bmpPressureDelay[b.oss], 3)
	if err != nil {
		return Result{}, err
	}
	up >>= 8 - uint32(b.oss)

	deciC, pa := b.calib.compensate(int32(ut), int32(up), b.oss)

	return Valid(map[string]float64{
		models.SensorTypeTemperature: float64(deciC) / 10,
		models.SensorTypePressure:    float64(pa) / 100,
		models.SensorTypeAltitude:    altitude(float64(pa)),
	}), nil
}

func (b *BMP085) readRaw(ctx context.Context, cmd byte, wait time.Duration, n int) (uint32, error) {
	if err := b.dev.Tx([]byte{bmpRegControl, cmd}, nil); err != nil {
		return 0, Transient(errors.Wrapf(err, "start conversion 0x%02x", cmd))
	}
	if err := sleepCtx(ctx, wait); err != nil {
		return 0, Transient(err)
	}
	buf := make([]byte, n)
	if err := b.dev.Tx([]byte{bmpRegData}, buf); err != nil {
		return 0, Transient(errors.Wrap(err, "read conversion"))
	}
	var v uint32
	for _, c := range buf {
		v = v<<8 | uint32(c)
	}
	return v, nil
}

// Close releases the bus if the driver opened it
func (b *BMP085) Close() error {
	if b.bus != nil {
		return b.bus.Close()
	}
	return nil
}

// compensate applies the datasheet integer algorithm. It returns the
// temperature in 0.1°C and the pressure in Pa.
func (c bmpCalibration) compensate(ut, up int32, oss uint8) (int32, int32) {
	x1 := ((ut - int32(c.ac6)) * int32(c.ac5)) >> 15
	x2 := (int32(c.mc) << 11) / (x1 + int32(c.md))
	b5 := x1 + x2
	t := (b5 + 8) >> 4

	b6 := b5 - 4000
	x1 = (int32(c.b2) * ((b6 * b6) >> 12)) >> 11
	x2 = (int32(c.ac2) * b6) >> 11
	x3 := x1 + x2
	b3 := (((int32(c.ac1)*4 + x3) << oss) + 2) / 4
	x1 = (int32(c.ac3) * b6) >> 13
	x2 = (int32(c.b1) * ((b6 * b6) >> 12)) >> 16
	x3 = ((x1 + x2) + 2) >> 2
	b4 := (uint32(c.ac4) * uint32(x3+32768)) >> 15
	b7 := (uint32(up) - uint32(b3)) * (50000 >> oss)

	var p int32
	if b7 < 0x80000000 {
		p = int32((b7 * 2) / b4)
	} else {
		p = int32((b7 / b4) * 2)
	}
	x1 = (p >> 8) * (p >> 8)
	x1 = (x1 * 3038) >> 16
	x2 = (-7357 * p) >> 16
	p += (x1 + x2 + 3791) >> 4

	return t, p
}

// altitude uses the international barometric formula against standard sea level pressure
func altitude(pa float64) float64 {
	return 44330 * (1 - math.Pow(pa/seaLevelPa, 1/5.255))
}
