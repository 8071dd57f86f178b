// internal/action/action_test.go
package action

import (
	"errors"
	"testing"

	"github.com/goburrow/modbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/modem-monitor/internal/entity"
	"github.com/tamzrod/modem-monitor/internal/logging"
	"github.com/tamzrod/modem-monitor/internal/protocol"
	"github.com/tamzrod/modem-monitor/internal/protocol/protocoltest"
)

func newEnv(t *testing.T) (Env, *protocoltest.Device) {
	t.Helper()

	modem := entity.NewModem(entity.ModemRecord{
		ID:     1,
		Host:   "10.0.0.5",
		Port:   502,
		UnitID: 3,
		Sensors: []entity.SensorRecord{
			{Channel: 1, ConversionID: 100},
			{Channel: 3, ConversionID: 999}, // not loaded
		},
	})

	table := entity.NewConversionTable()
	table.Merge([]entity.ConversionRecord{{ID: 100, Unit: "bar", Factor: 0.1, Decimals: 1}})

	dev := protocoltest.NewDevice(modem.Address())
	return Env{
		Modem:       modem,
		Session:     dev,
		Log:         logging.Nop(),
		Codec:       protocol.NewCodec(),
		Conversions: table,
	}, dev
}

func run(t *testing.T, kind Kind, env Env) error {
	t.Helper()
	a, err := New(kind, env)
	require.NoError(t, err)
	require.Equal(t, kind, a.Kind())
	return Execute(a)
}

func TestNew_Validation(t *testing.T) {
	env, _ := newEnv(t)

	_, err := New(Kind(42), env)
	assert.ErrorIs(t, err, ErrUnknownKind)

	env.Session = nil
	_, err = New(KindSignal, env)
	assert.ErrorIs(t, err, ErrInvalidEnv)
}

func TestSignal_DecodesStatus(t *testing.T) {
	env, dev := newEnv(t)
	dev.Set(SignalAddress, 23, 0x0003, 1225, 0x0207)

	require.NoError(t, run(t, KindSignal, env))

	m := env.Modem
	assertField(t, m, FieldQuality, 23)
	assertField(t, m, FieldSignal, true)
	assertField(t, m, FieldPower, true)
	assertField(t, m, FieldVoltage, 12.25)
	assertField(t, m, FieldFirmware, "2.7")

	reqs := dev.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, byte(3), reqs[0][6], "unit id")
}

func TestChannels_SkippedWithoutSignal(t *testing.T) {
	env, dev := newEnv(t)

	a, err := New(KindChannels, env)
	require.NoError(t, err)
	assert.False(t, a.ShouldWrite())

	require.NoError(t, Execute(a))
	assert.Empty(t, dev.Requests())
	assertField(t, env.Modem, FieldChannels, 0)
}

func TestChannels_SignalLossClearsMask(t *testing.T) {
	env, dev := newEnv(t)
	env.Modem.SetData(FieldSignal, true)
	dev.Set(ChannelsAddress, 0b0000_0011)
	require.NoError(t, run(t, KindChannels, env))
	assertField(t, env.Modem, ChannelField(1, "active"), true)

	env.Modem.SetData(FieldSignal, false)
	require.NoError(t, run(t, KindChannels, env))

	assert.Len(t, dev.Requests(), 1)
	assertField(t, env.Modem, FieldChannels, 0)
	assertField(t, env.Modem, ChannelField(1, "active"), false)
	assertField(t, env.Modem, ChannelField(2, "active"), false)
}

func TestChannels_DecodesMask(t *testing.T) {
	env, dev := newEnv(t)
	env.Modem.SetData(FieldSignal, true)
	dev.Set(ChannelsAddress, 0b0000_0101)

	require.NoError(t, run(t, KindChannels, env))

	assertField(t, env.Modem, FieldChannels, 5)
	assertField(t, env.Modem, ChannelField(1, "active"), true)
	assertField(t, env.Modem, ChannelField(2, "active"), false)
	assertField(t, env.Modem, ChannelField(3, "active"), true)
	assertField(t, env.Modem, ChannelField(8, "active"), false)
}

func TestSensors_ConvertsActiveChannels(t *testing.T) {
	env, dev := newEnv(t)
	env.Modem.SetData(FieldSignal, true)
	env.Modem.SetData(FieldChannels, 0b0000_0111)
	dev.Set(SensorsAddress, 123, 456, 789, 1, 1, 1, 1, 1)

	require.NoError(t, run(t, KindSensors, env))

	m := env.Modem
	// channel 1: converted
	assertField(t, m, ChannelField(1, "raw"), 123)
	assertField(t, m, ChannelField(1, "value"), 12.3)
	assertField(t, m, ChannelField(1, "unit"), "bar")

	// channel 2: no mapping
	assertField(t, m, ChannelField(2, "raw"), 456)
	_, ok := m.Data(ChannelField(2, "value"))
	assert.False(t, ok)

	// channel 3: mapped to a conversion that is not loaded
	assertField(t, m, ChannelField(3, "raw"), 789)
	_, ok = m.Data(ChannelField(3, "value"))
	assert.False(t, ok)

	// channel 4: inactive
	_, ok = m.Data(ChannelField(4, "raw"))
	assert.False(t, ok)
}

func TestSensors_SkippedWithoutChannels(t *testing.T) {
	env, dev := newEnv(t)
	env.Modem.SetData(FieldSignal, true)
	env.Modem.SetData(FieldChannels, 0)

	require.NoError(t, run(t, KindSensors, env))
	assert.Empty(t, dev.Requests())
}

func TestSensors_SkippedWithoutSignal(t *testing.T) {
	env, dev := newEnv(t)
	env.Modem.SetData(FieldSignal, false)
	env.Modem.SetData(FieldChannels, 0b0000_0001)

	require.NoError(t, run(t, KindSensors, env))
	assert.Empty(t, dev.Requests())
	_, ok := env.Modem.Data(ChannelField(1, "raw"))
	assert.False(t, ok)
}

func TestExecute_ExceptionLeavesFieldsUntouched(t *testing.T) {
	env, dev := newEnv(t)
	env.Modem.SetData(FieldQuality, 9)
	dev.FailWith(modbus.ExceptionCodeServerDeviceBusy)

	err := run(t, KindSignal, env)
	require.Error(t, err)

	var exc *protocol.Exception
	require.True(t, errors.As(err, &exc))
	assert.Equal(t, 6, exc.Code())
	assertField(t, env.Modem, FieldQuality, 9)
}

func TestExecute_ReadTimeout(t *testing.T) {
	env, dev := newEnv(t)
	dev.Silence(true)

	err := run(t, KindSignal, env)
	assert.ErrorIs(t, err, ErrRead)
	assert.ErrorIs(t, err, protocoltest.ErrNoResponse)
	assert.True(t, dev.HasTimedOut())
}

func TestExecute_WriteFailure(t *testing.T) {
	env, dev := newEnv(t)
	dev.Disconnect()

	err := run(t, KindSignal, env)
	assert.ErrorIs(t, err, ErrWrite)
}

func TestReadResponse_WithoutWrite(t *testing.T) {
	env, _ := newEnv(t)
	a, err := New(KindSignal, env)
	require.NoError(t, err)

	assert.ErrorIs(t, a.ReadResponse(), ErrNotWritten)
}

func assertField(t *testing.T, m *entity.Modem, key string, want any) {
	t.Helper()
	got, ok := m.Data(key)
	require.True(t, ok, "field %s missing", key)
	if f, isFloat := want.(float64); isFloat {
		assert.InDelta(t, f, got, 1e-9, key)
		return
	}
	assert.Equal(t, want, got, key)
}
