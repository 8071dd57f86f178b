// internal/action/action.go
package action

import (
	"errors"
	"fmt"

	"github.com/tamzrod/modem-monitor/internal/entity"
	"github.com/tamzrod/modem-monitor/internal/logging"
	"github.com/tamzrod/modem-monitor/internal/protocol"
	"github.com/tamzrod/modem-monitor/internal/transport"
)

var (
	ErrUnknownKind = errors.New("action: unknown kind")
	ErrInvalidEnv  = errors.New("action: invalid environment")
	ErrWrite       = errors.New("action: write failed")
	ErrRead        = errors.New("action: read failed")
	ErrNotWritten  = errors.New("action: no request written")
)

// Kind tags an action variant.
type Kind int

const (
	KindSignal Kind = iota + 1
	KindChannels
	KindSensors
)

func (k Kind) String() string {
	switch k {
	case KindSignal:
		return "signal"
	case KindChannels:
		return "channels"
	case KindSensors:
		return "sensors"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Env binds an action to one device and its session for one tick.
type Env struct {
	Modem       *entity.Modem
	Session     transport.Stream
	Log         *logging.Logger
	Codec       *protocol.Codec
	Conversions entity.ConversionLookup
}

// Action is one request/response exchange.
type Action interface {
	Kind() Kind

	// ShouldWrite reports whether the device state allows a request.
	ShouldWrite() bool

	// WriteCommand sends the request when ShouldWrite holds.
	// It reports whether anything was written.
	WriteCommand() (bool, error)

	// ReadResponse reads and applies the matching response.
	ReadResponse() error
}

// New builds the variant for kind.
func New(kind Kind, env Env) (Action, error) {
	if env.Modem == nil || env.Session == nil || env.Codec == nil {
		return nil, ErrInvalidEnv
	}

	switch kind {
	case KindSignal:
		return newSignal(env), nil
	case KindChannels:
		return newChannels(env), nil
	case KindSensors:
		return newSensors(env), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
}

// Execute writes the request and, only if written, reads the response.
func Execute(a Action) error {
	written, err := a.WriteCommand()
	if err != nil {
		return err
	}
	if !written {
		return nil
	}
	return a.ReadResponse()
}

// ------------------------------------------------------------
// exchange: shared write-then-read plumbing
// ------------------------------------------------------------

type exchange struct {
	env      Env
	kind     Kind
	address  uint16
	quantity uint16

	req     protocol.Request
	written bool
}

func (x *exchange) Kind() Kind { return x.kind }

func (x *exchange) write() (bool, error) {
	req, err := x.env.Codec.EncodeRead(x.env.Modem.UnitID(), x.address, x.quantity)
	if err != nil {
		return false, err
	}

	x.env.Log.Write("%s: read %d registers at %d", x.kind, x.quantity, x.address)
	x.env.Log.Data(req.ADU)

	if _, err := x.env.Session.Write(req.ADU); err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrWrite, x.kind, err)
	}

	x.req = req
	x.written = true
	return true, nil
}

func (x *exchange) read() ([]uint16, error) {
	if !x.written {
		return nil, ErrNotWritten
	}

	adu, err := protocol.ReadFrame(x.env.Session)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRead, x.kind, err)
	}
	x.env.Log.Data(adu)

	regs, err := x.env.Codec.DecodeRegisters(x.req, adu)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", x.kind, err)
	}

	x.env.Log.Read("%s: %d registers", x.kind, len(regs))
	return regs, nil
}
