// Package ctlserver serves the control command language over TCP, one
// command per line, answering "OK" or "ACK [code@0] {command} message".
package ctlserver

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/famish99/casterboard/internal/control"
)

// Greeting is sent to every new client
const Greeting = "OK CASTERBOARD 1.0\n"

// Server is the TCP control server
type Server struct {
	mu       sync.Mutex
	listener net.Listener
	addr     string
	running  bool

	queue control.Queue
	idle  *control.Idle

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a control server that submits commands to queue
func NewServer(addr string, queue control.Queue, idle *control.Idle) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:   addr,
		queue:  queue,
		idle:   idle,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start listens and accepts connections in the background
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to start control server: %w", err)
	}

	s.listener = listener
	s.running = true

	log.Printf("Control server listening on %s", listener.Addr())

	go s.acceptLoop()

	return nil
}

// Addr returns the bound address, useful when listening on port 0
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener and disconnects every client
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.running = false
	s.cancel()
	return s.listener.Close()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			running := s.running
			s.mu.Unlock()
			if !running {
				return
			}
			log.Printf("Accept error: %v", err)
			continue
		}

		go s.handleConnection(conn)
	}
}
