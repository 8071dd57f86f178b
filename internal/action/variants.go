// internal/action/variants.go
package action

import (
	"fmt"
)

// Register map.
const (
	SignalAddress   uint16 = 64300
	SignalQuantity  uint16 = 4
	ChannelsAddress uint16 = 64360
	SensorsAddress  uint16 = 64400

	// ChannelCount is the number of sensor channels per modem.
	ChannelCount = 8
)

// Telemetry field names.
const (
	FieldQuality  = "modem.quality"
	FieldSignal   = "modem.signal"
	FieldPower    = "modem.power"
	FieldVoltage  = "modem.voltage"
	FieldFirmware = "modem.firmware"
	FieldChannels = "modem.channels"
)

// ChannelField names a per-channel field, e.g. "channel.3.value".
func ChannelField(n int, name string) string {
	return fmt.Sprintf("channel.%d.%s", n, name)
}

// ---- signal ----

type signal struct{ exchange }

func newSignal(env Env) *signal {
	return &signal{exchange{env: env, kind: KindSignal, address: SignalAddress, quantity: SignalQuantity}}
}

func (a *signal) ShouldWrite() bool { return true }

func (a *signal) WriteCommand() (bool, error) {
	if !a.ShouldWrite() {
		return false, nil
	}
	return a.write()
}

func (a *signal) ReadResponse() error {
	regs, err := a.read()
	if err != nil {
		return err
	}

	m := a.env.Modem
	m.SetData(FieldQuality, int(regs[0]))
	m.SetData(FieldSignal, regs[1]&0x01 != 0)
	m.SetData(FieldPower, regs[1]&0x02 != 0)
	m.SetData(FieldVoltage, float64(regs[2])/100)
	m.SetData(FieldFirmware, fmt.Sprintf("%d.%d", regs[3]>>8, regs[3]&0xFF))
	return nil
}

// ---- channels ----

// channels reads the active channel mask; it needs a signal.
type channels struct{ exchange }

func newChannels(env Env) *channels {
	return &channels{exchange{env: env, kind: KindChannels, address: ChannelsAddress, quantity: 1}}
}

func (a *channels) ShouldWrite() bool { return a.env.Modem.Bool(FieldSignal) }

// WriteCommand clears the channel state when there is no signal, so a
// mask read before the signal was lost never gates a sensors read.
func (a *channels) WriteCommand() (bool, error) {
	if !a.ShouldWrite() {
		a.setMask(0)
		return false, nil
	}
	return a.write()
}

func (a *channels) ReadResponse() error {
	regs, err := a.read()
	if err != nil {
		return err
	}
	a.setMask(int(regs[0]))
	return nil
}

func (a *channels) setMask(mask int) {
	m := a.env.Modem
	m.SetData(FieldChannels, mask)
	for n := 1; n <= ChannelCount; n++ {
		m.SetData(ChannelField(n, "active"), active(mask, n))
	}
}

// ---- sensors ----

// sensors reads raw values of every channel and converts the active ones.
type sensors struct{ exchange }

func newSensors(env Env) *sensors {
	return &sensors{exchange{env: env, kind: KindSensors, address: SensorsAddress, quantity: ChannelCount}}
}

func (a *sensors) ShouldWrite() bool {
	m := a.env.Modem
	return m.Bool(FieldSignal) && m.Bool(FieldChannels)
}

func (a *sensors) WriteCommand() (bool, error) {
	if !a.ShouldWrite() {
		return false, nil
	}
	return a.write()
}

func (a *sensors) ReadResponse() error {
	regs, err := a.read()
	if err != nil {
		return err
	}

	m := a.env.Modem
	v, _ := m.Data(FieldChannels)
	mask, _ := v.(int)

	for n := 1; n <= ChannelCount; n++ {
		if !active(mask, n) {
			continue
		}
		raw := regs[n-1]
		m.SetData(ChannelField(n, "raw"), int(raw))

		id, ok := m.ConversionID(n)
		if !ok || a.env.Conversions == nil {
			continue
		}
		conv, ok := a.env.Conversions.Lookup(id)
		if !ok {
			a.env.Log.Notice("channel %d: conversion %d not loaded", n, id)
			continue
		}
		m.SetData(ChannelField(n, "value"), conv.Convert(raw))
		m.SetData(ChannelField(n, "unit"), conv.Unit)
	}
	return nil
}

func active(mask, n int) bool {
	return mask&(1<<(n-1)) != 0
}
