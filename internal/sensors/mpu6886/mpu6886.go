package mpu6886

import (
	"fmt"
	"time"

	"github.com/KleanOcean/TennisBall-IMU/internal/i2c"
)

var sleep = time.Sleep

// Minimal MPU6886 driver (the 6-axis IMU inside the ATOM S3 class devices).
//
// Focus: probe + high-rate accel/gyro reads for spin tracking, plus the
// sleep/wake bit the power state machine toggles around a suspend.
// WHO_AM_I at 0x75 should return 0x19.

const (
	addrDefault = 0x68

	regSmplrtDiv   = 0x19
	regConfig      = 0x1A
	regGyroConfig  = 0x1B
	regAccelConfig = 0x1C
	regAccelXoutH  = 0x3B // accel(6) + temp(2) + gyro(6), contiguous
	regPwrMgmt1    = 0x6B
	regPwrMgmt2    = 0x6C
	regWhoAmI      = 0x75

	whoAmIVal = 0x19

	bitReset = 0x80
	bitSleep = 0x40
	clkPLL   = 0x01

	// Full-scale selections: the ball spins fast and hits hard.
	fsGyro2000dps = 0x18
	fsAccel8g     = 0x10

	scaleAccel = 8.0 / 32768.0    // g/LSB at ±8g
	scaleGyro  = 2000.0 / 32768.0 // dps/LSB at ±2000dps
)

type Sample struct {
	Time time.Time
	// Accel in G.
	Ax, Ay, Az float64
	// Gyro in deg/s.
	Gx, Gy, Gz float64
}

type Device struct {
	dev regIO
}

type regIO interface {
	ReadRegU8(reg byte) (byte, error)
	ReadReg(reg byte, dst []byte) error
	WriteReg(reg, value byte) error
}

func DefaultAddress() uint16 { return addrDefault }

func New(dev *i2c.Dev) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("mpu6886: dev is nil")
	}
	return newWithIO(dev)
}

func newWithIO(dev regIO) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("mpu6886: dev is nil")
	}
	d := &Device{dev: dev}

	who, err := d.dev.ReadRegU8(regWhoAmI)
	if err != nil {
		return nil, fmt.Errorf("mpu6886: whoami read failed: %w", err)
	}
	if who != whoAmIVal {
		return nil, fmt.Errorf("mpu6886: whoami=0x%02X want 0x%02X", who, whoAmIVal)
	}

	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Device) init() error {
	// Reset, then wake with the PLL clock source.
	if err := d.dev.WriteReg(regPwrMgmt1, bitReset); err != nil {
		return fmt.Errorf("mpu6886: reset failed: %w", err)
	}
	sleep(100 * time.Millisecond)

	if err := d.dev.WriteReg(regPwrMgmt1, clkPLL); err != nil {
		return fmt.Errorf("mpu6886: wake failed: %w", err)
	}
	sleep(10 * time.Millisecond)

	// All six axes on.
	_ = d.dev.WriteReg(regPwrMgmt2, 0x00)

	// DLPF ~176Hz, internal rate 1kHz; divider for ~200Hz output.
	_ = d.dev.WriteReg(regConfig, 0x01)
	_ = d.dev.WriteReg(regSmplrtDiv, byte(1000/200-1))

	if err := d.dev.WriteReg(regGyroConfig, fsGyro2000dps); err != nil {
		return fmt.Errorf("mpu6886: gyro config failed: %w", err)
	}
	if err := d.dev.WriteReg(regAccelConfig, fsAccel8g); err != nil {
		return fmt.Errorf("mpu6886: accel config failed: %w", err)
	}
	return nil
}

func (d *Device) Read() (Sample, error) {
	if d == nil {
		return Sample{}, fmt.Errorf("mpu6886: device is nil")
	}
	buf := make([]byte, 14)
	if err := d.dev.ReadReg(regAccelXoutH, buf); err != nil {
		return Sample{}, fmt.Errorf("mpu6886: read sensors failed: %w", err)
	}

	ax := int16(buf[0])<<8 | int16(buf[1])
	ay := int16(buf[2])<<8 | int16(buf[3])
	az := int16(buf[4])<<8 | int16(buf[5])
	// buf[6:8] is die temperature; unused.
	gx := int16(buf[8])<<8 | int16(buf[9])
	gy := int16(buf[10])<<8 | int16(buf[11])
	gz := int16(buf[12])<<8 | int16(buf[13])

	return Sample{
		Time: time.Now(),
		Ax:   float64(ax) * scaleAccel,
		Ay:   float64(ay) * scaleAccel,
		Az:   float64(az) * scaleAccel,
		Gx:   float64(gx) * scaleGyro,
		Gy:   float64(gy) * scaleGyro,
		Gz:   float64(gz) * scaleGyro,
	}, nil
}

// Sleep puts the sensor into its low-power mode. State is preserved; Wake
// resumes sampling with the configured scales.
func (d *Device) Sleep() error {
	if err := d.dev.WriteReg(regPwrMgmt1, bitSleep|clkPLL); err != nil {
		return fmt.Errorf("mpu6886: sleep failed: %w", err)
	}
	return nil
}

func (d *Device) Wake() error {
	if err := d.dev.WriteReg(regPwrMgmt1, clkPLL); err != nil {
		return fmt.Errorf("mpu6886: wake failed: %w", err)
	}
	sleep(10 * time.Millisecond)
	return nil
}
