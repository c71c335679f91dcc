// Package control implements the command language shared by every front end:
// the TCP control server, the console, OSC inbound messages, and the TUI.
package control

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownCommand is returned for verbs the engine does not implement
	ErrUnknownCommand = errors.New("unknown command")
	// ErrBadArgument is returned for missing or malformed arguments
	ErrBadArgument = errors.New("invalid argument")
)

// Command is one parsed control line
type Command struct {
	Verb string
	Args []string
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Verb
	}
	quoted := make([]string, len(c.Args))
	for i, a := range c.Args {
		quoted[i] = Quote(a)
	}
	return c.Verb + " " + strings.Join(quoted, " ")
}

// Parse splits a control line into a verb and arguments. Arguments may be
// double-quoted; inside quotes a backslash escapes the next character.
func Parse(line string) (Command, error) {
	fields, err := split(line)
	if err != nil {
		return Command{}, err
	}
	if len(fields) == 0 {
		return Command{}, nil
	}
	return Command{Verb: strings.ToLower(fields[0]), Args: fields[1:]}, nil
}

// FromTokens builds a command from pre-split tokens, e.g. from an OSC message
func FromTokens(tokens []string) Command {
	if len(tokens) == 0 {
		return Command{}
	}
	return Command{Verb: strings.ToLower(tokens[0]), Args: tokens[1:]}
}

func split(line string) ([]string, error) {
	var (
		fields  []string
		cur     strings.Builder
		inField bool
		quoted  bool
		escaped bool
	)

	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case quoted && r == '\\':
			escaped = true
		case r == '"':
			quoted = !quoted
			inField = true
		case !quoted && (r == ' ' || r == '\t' || r == '\r' || r == '\n'):
			if inField {
				fields = append(fields, cur.String())
				cur.Reset()
				inField = false
			}
		default:
			cur.WriteRune(r)
			inField = true
		}
	}

	if quoted || escaped {
		return nil, fmt.Errorf("%w: unterminated quote", ErrBadArgument)
	}
	if inField {
		fields = append(fields, cur.String())
	}
	return fields, nil
}

// Quote returns s as a single argument token
func Quote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\r\n\"\\") {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

// parseFlag accepts on/off style arguments
func parseFlag(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "on", "true", "yes":
		return true, nil
	case "0", "off", "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("%w: expected on or off, got %q", ErrBadArgument, s)
}
