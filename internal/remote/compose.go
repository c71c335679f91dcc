package remote

import (
	"errors"
	"fmt"
	"math"
	"net"
	"strconv"

	"github.com/hypebeast/go-osc/osc"
)

// ErrUnsupportedValue marks a programming error: a value with no OSC type tag
var ErrUnsupportedValue = errors.New("unsupported OSC argument type")

// Transport pushes encoded packets to the remote control surface.
// *osc.Client satisfies it.
type Transport interface {
	Send(packet osc.Packet) error
}

// ComposeMessage builds a fresh single-argument message. The argument keeps its
// native OSC type: integers are tagged 'i', floats 'f', strings 's'.
// Any other value type panics.
func ComposeMessage(address string, value any) *osc.Message {
	msg := osc.NewMessage(address)

	switch v := value.(type) {
	case int:
		if v < math.MinInt32 || v > math.MaxInt32 {
			panic(fmt.Errorf("%w: int %d overflows int32", ErrUnsupportedValue, v))
		}
		msg.Append(int32(v))
	case int32:
		msg.Append(v)
	case float32:
		msg.Append(v)
	case float64:
		msg.Append(float32(v))
	case string:
		msg.Append(v)
	default:
		panic(fmt.Errorf("%w: %T", ErrUnsupportedValue, value))
	}

	return msg
}

// Dial returns a UDP client for a "host:port" target
func Dial(target string) (*osc.Client, error) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return nil, fmt.Errorf("invalid OSC target %q: %w", target, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid OSC port in %q", target)
	}
	return osc.NewClient(host, port), nil
}
