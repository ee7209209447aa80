package main

import (
	"machine"
	"time"

	"github.com/ballbeam-lab/ballbeam"
	"github.com/ballbeam-lab/ballbeam/control"
	"github.com/ballbeam-lab/ballbeam/firmware/bus"
	"github.com/ballbeam-lab/ballbeam/firmware/device"
	"github.com/ballbeam-lab/ballbeam/modbus"
)

const (
	// Ranging configuration: 33ms budget keeps the cycle well under the
	// 50ms design intent.
	sensorTimingBudgetUS = 33000
	sensorPeriodMS       = 33
)

func main() {
	time.Sleep(2 * time.Second)
	println("ballbeam firmware, bus unit", ballbeam.SlaveID)

	// Supervisory bus UART, 9600 8N1 per the panel convention.
	uart := machine.UART0
	uart.Configure(machine.UARTConfig{
		BaudRate: ballbeam.BaudRate,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	})

	i2c := machine.I2C0
	err := i2c.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       machine.I2C0_SDA_PIN,
		SCL:       machine.I2C0_SCL_PIN,
	})
	if err != nil {
		halt("could not configure I2C: " + err.Error())
	}

	rangefinder, err := device.NewRangefinder(i2c, device.SensorConfig{
		TimingBudgetMicroseconds: sensorTimingBudgetUS,
		PeriodMilliseconds:       sensorPeriodMS,
	})
	if err != nil {
		// Bring-up failure is fatal: idle without ever driving the servo.
		halt("failed to boot rangefinder: " + err.Error())
	}

	beamServo, err := device.NewBeamServo(device.ServoConfig{
		PWM: machine.PWM7,
		Pin: machine.GP15,
	})
	if err != nil {
		halt("failed to attach servo: " + err.Error())
	}

	bank := modbus.NewBank(1, 6, 3)
	bank.SetHreg(ballbeam.HregSetpoint, ballbeam.ToFixed(ballbeam.DefaultSetpointCM))
	bank.SetHreg(ballbeam.HregKp, ballbeam.ToFixed(ballbeam.DefaultKp))
	bank.SetHreg(ballbeam.HregKi, ballbeam.ToFixed(ballbeam.DefaultKi))
	bank.SetHreg(ballbeam.HregKd, ballbeam.ToFixed(ballbeam.DefaultKd))
	bank.SetHreg(ballbeam.HregLeadK, ballbeam.ToFixed(ballbeam.DefaultLeadK))

	slave := bus.NewSlave(uart, ballbeam.SlaveID, bank)

	start := time.Now()
	loop := control.NewLoop(rangefinder, beamServo, bank, func() int64 {
		return time.Since(start).Milliseconds()
	})

	// One conditioned sample stabilises the filter before the first cycle.
	loop.Seed()
	println("control loop running")

	for {
		slave.Task()
		if err := loop.Cycle(); err != nil {
			println("servo write failed:", err.Error())
		}
	}
}

// halt parks the firmware in a tight idle state after a fatal bring-up
// failure. The servo is never driven from here.
func halt(msg string) {
	for {
		println(msg)
		time.Sleep(time.Second)
	}
}
