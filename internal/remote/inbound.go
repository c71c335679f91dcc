package remote

import (
	"fmt"
	"log"
	"strings"

	"github.com/hypebeast/go-osc/osc"
)

// Inbound addresses accepted from the control surface
const (
	AddressStopAll = addressRoot + "/stop_all"
	AddressDuckAll = addressRoot + "/duck_all"
	AddressSync    = addressRoot + "/sync"
)

// slotVerbs are the per-slot inbound actions, "/board/<verb>/<label>"
var slotVerbs = []string{"hotkey", "play", "pause", "stop"}

// CommandSink receives control-command tokens, e.g. ["stop", "Q"].
// It is called on the OSC server goroutine and must hand work to the event thread.
type CommandSink func(args []string)

// NewDispatcher registers a handler for every inbound address
func NewDispatcher(labels []string, sink CommandSink) (*osc.StandardDispatcher, error) {
	d := osc.NewStandardDispatcher()

	handler := func(msg *osc.Message) {
		args, ok := CommandFor(msg)
		if !ok {
			log.Printf("Ignoring OSC message %s", msg.Address)
			return
		}
		sink(args)
	}

	addresses := []string{AddressStopAll, AddressDuckAll, AddressSync}
	for _, verb := range slotVerbs {
		for _, label := range labels {
			addresses = append(addresses, addressRoot+"/"+verb+"/"+label)
		}
	}

	for _, addr := range addresses {
		if err := d.AddMsgHandler(addr, handler); err != nil {
			return nil, fmt.Errorf("failed to register OSC handler %s: %w", addr, err)
		}
	}
	return d, nil
}

// ListenAndServe runs an OSC server on addr until it fails
func ListenAndServe(addr string, d osc.Dispatcher) error {
	server := &osc.Server{Addr: addr, Dispatcher: d}
	log.Printf("OSC server listening on %s", addr)
	return server.ListenAndServe()
}

// CommandFor translates an inbound message into control-command tokens
func CommandFor(msg *osc.Message) ([]string, bool) {
	switch msg.Address {
	case AddressStopAll:
		return []string{"stopall"}, true
	case AddressSync:
		return []string{"sync"}, true
	case AddressDuckAll:
		if len(msg.Arguments) == 0 {
			return nil, false
		}
		on, ok := argFlag(msg.Arguments[0])
		if !ok {
			return nil, false
		}
		if on {
			return []string{"duck", "on"}, true
		}
		return []string{"duck", "off"}, true
	}

	parts := strings.Split(strings.TrimPrefix(msg.Address, addressRoot+"/"), "/")
	if len(parts) != 2 || !strings.HasPrefix(msg.Address, addressRoot+"/") {
		return nil, false
	}
	for _, verb := range slotVerbs {
		if parts[0] == verb && parts[1] != "" {
			return []string{verb, parts[1]}, true
		}
	}
	return nil, false
}

// argFlag reads a truthy OSC argument
func argFlag(arg any) (bool, bool) {
	switch v := arg.(type) {
	case int32:
		return v != 0, true
	case int64:
		return v != 0, true
	case float32:
		return v != 0, true
	case float64:
		return v != 0, true
	case bool:
		return v, true
	case string:
		switch strings.ToLower(v) {
		case "1", "on", "true":
			return true, true
		case "0", "off", "false":
			return false, true
		}
	}
	return false, false
}
