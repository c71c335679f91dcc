package control

import (
	"context"
	"log"
)

// Reply is the outcome of one request
type Reply struct {
	Body string
	Err  error
}

// Request carries a command from another goroutine to the event thread
type Request struct {
	Command Command
	Reply   chan Reply
}

// Queue hands requests to the event thread
type Queue chan Request

// NewQueue creates a queue with room for size pending requests
func NewQueue(size int) Queue {
	return make(Queue, size)
}

// Submit sends a command and waits for the event thread to execute it
func (q Queue) Submit(ctx context.Context, cmd Command) (string, error) {
	req := Request{Command: cmd, Reply: make(chan Reply, 1)}

	select {
	case q <- req:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case r := <-req.Reply:
		return r.Body, r.Err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// SubmitLine parses and submits a control line
func (q Queue) SubmitLine(ctx context.Context, line string) (string, error) {
	cmd, err := Parse(line)
	if err != nil {
		return "", err
	}
	return q.Submit(ctx, cmd)
}

// Post submits a command without waiting; failures are logged
func (q Queue) Post(cmd Command) {
	req := Request{Command: cmd, Reply: make(chan Reply, 1)}
	select {
	case q <- req:
	default:
		log.Printf("Dropping command %q: queue full", cmd)
		return
	}
	go func() {
		if r := <-req.Reply; r.Err != nil {
			log.Printf("Command %q failed: %v", cmd, r.Err)
		}
	}()
}

// Serve executes one request and replies
func (e *Engine) Serve(req Request) {
	body, err := e.Execute(req.Command)
	req.Reply <- Reply{Body: body, Err: err}
}

// Run is the headless event loop. It executes queued requests until ctx is done.
func Run(ctx context.Context, q Queue, e *Engine) error {
	log.Printf("Event loop started")
	for {
		select {
		case req := <-q:
			e.Serve(req)
		case <-ctx.Done():
			log.Printf("Event loop stopped")
			return ctx.Err()
		}
	}
}
