package ctlserver

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"net"
	"strings"

	"github.com/famish99/casterboard/internal/control"
)

// commandList buffers commands between command_list_begin and command_list_end
type commandList struct {
	active   bool
	listOK   bool // command_list_ok_begin: emit list_OK after each command
	commands []control.Command
}

// handleConnection serves one client until it disconnects or sends "close"
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	log.Printf("Control client connected: %s", conn.RemoteAddr())
	defer log.Printf("Control client disconnected: %s", conn.RemoteAddr())

	if _, err := io.WriteString(conn, Greeting); err != nil {
		return
	}

	done := make(chan struct{})
	defer close(done)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-done:
				return
			}
		}
		if err := scanner.Err(); err != nil {
			log.Printf("Connection error: %v", err)
		}
	}()

	var list commandList
	for {
		var line string
		select {
		case l, ok := <-lines:
			if !ok {
				return
			}
			line = l
		case <-s.ctx.Done():
			return
		}
		if line == "" {
			continue
		}

		response, keepOpen := s.handleLine(line, &list, lines)
		if response != "" {
			if _, err := io.WriteString(conn, response); err != nil {
				return
			}
		}
		if !keepOpen {
			return
		}
	}
}

// handleLine processes one client line and returns the response to write
func (s *Server) handleLine(line string, list *commandList, lines <-chan string) (string, bool) {
	switch line {
	case "command_list_begin", "command_list_ok_begin":
		*list = commandList{active: true, listOK: line == "command_list_ok_begin"}
		return "", true
	case "command_list_end":
		if !list.active {
			return "ACK [2@0] {command_list_end} not in command list\n", true
		}
		response := s.runList(list)
		*list = commandList{}
		return response, true
	}

	cmd, err := control.Parse(line)
	if err != nil {
		return control.FormatResponse("", "", err), true
	}

	if list.active {
		list.commands = append(list.commands, cmd)
		return "", true
	}

	switch cmd.Verb {
	case "close":
		return "", false
	case "idle":
		return s.waitIdle(cmd.Args, lines)
	case "noidle":
		return "OK\n", true
	}

	body, err := s.queue.Submit(s.ctx, cmd)
	return control.FormatResponse(cmd.Verb, body, err), true
}

// runList executes buffered commands, stopping at the first failure
func (s *Server) runList(list *commandList) string {
	var sb strings.Builder
	for i, cmd := range list.commands {
		body, err := s.queue.Submit(s.ctx, cmd)
		if err != nil {
			fmt.Fprintf(&sb, "ACK [%d@%d] {%s} %s\n", control.AckCode(err), i, cmd.Verb, err.Error())
			return sb.String()
		}
		sb.WriteString(body)
		if list.listOK {
			sb.WriteString("list_OK\n")
		}
	}
	sb.WriteString("OK\n")
	return sb.String()
}

// waitIdle blocks until a watched subsystem changes or the client sends noidle.
// Any other line during idle closes the connection.
func (s *Server) waitIdle(subsystems []string, lines <-chan string) (string, bool) {
	for i := range subsystems {
		subsystems[i] = strings.ToLower(subsystems[i])
	}
	w := s.idle.Register(subsystems...)
	defer s.idle.Unregister(w)

	select {
	case subsystem := <-w.C():
		return fmt.Sprintf("changed: %s\nOK\n", subsystem), true
	case line, ok := <-lines:
		if !ok {
			return "", false
		}
		if line == "noidle" {
			return "OK\n", true
		}
		log.Printf("Unexpected command during idle: %s", line)
		return "OK\n", false
	case <-s.ctx.Done():
		return "", false
	}
}
