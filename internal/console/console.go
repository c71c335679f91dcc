// Package console is an interactive command line for the control language
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/famish99/casterboard/internal/board"
	"github.com/famish99/casterboard/internal/control"
)

// Prompt is shown before every command
const Prompt = "board> "

// verbs offered by tab completion
var verbs = []string{
	"hotkey", "key", "play", "pause", "stop", "stopall", "duck", "set", "clear",
	"name", "sync", "status", "boards", "board", "next", "new", "load",
	"save", "closeboard", "ping", "help", "quit",
}

const helpText = `hotkey|play|pause|stop <label>   drive one slot (labels: %s)
key <char|space|code>            release a key on the active board
stopall                          stop every slot on the active board
duck on|off|toggle               duck every slot
set <label> path|volume|loop|duck <value>
clear <label>                    unassign a slot
name <name>                      rename the active board
status | boards                  show the active board or every board
board <index|id|name> | next     switch the active board
new [name] | load <file> | save [file] | closeboard [board]
sync                             resend the board to the OSC surface
quit
`

// lineReader is the part of readline.Instance the console uses
type lineReader interface {
	Readline() (string, error)
}

// Console reads commands and submits them to the event thread
type Console struct {
	in    lineReader
	out   io.Writer
	queue control.Queue
}

// New creates a console on the terminal
func New(queue control.Queue) (*Console, *readline.Instance, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:       Prompt,
		AutoComplete: completer(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start console: %w", err)
	}
	return &Console{in: rl, out: rl.Stdout(), queue: queue}, rl, nil
}

func completer() *readline.PrefixCompleter {
	labelItems := make([]readline.PrefixCompleterInterface, 0, board.NumLabels)
	for _, l := range board.LabelNames() {
		labelItems = append(labelItems, readline.PcItem(l))
	}

	items := make([]readline.PrefixCompleterInterface, 0, len(verbs))
	for _, v := range verbs {
		switch v {
		case "hotkey", "play", "pause", "stop", "clear":
			items = append(items, readline.PcItem(v, labelItems...))
		case "key":
			keyItems := append([]readline.PrefixCompleterInterface{readline.PcItem("space")}, labelItems...)
			items = append(items, readline.PcItem(v, keyItems...))
		case "set":
			fields := []readline.PrefixCompleterInterface{
				readline.PcItem("path", readline.PcItemDynamic(listFiles)),
				readline.PcItem("volume"),
				readline.PcItem("loop", readline.PcItem("on"), readline.PcItem("off")),
				readline.PcItem("duck", readline.PcItem("on"), readline.PcItem("off")),
			}
			setItems := make([]readline.PrefixCompleterInterface, 0, board.NumLabels)
			for _, l := range board.LabelNames() {
				setItems = append(setItems, readline.PcItem(l, fields...))
			}
			items = append(items, readline.PcItem(v, setItems...))
		case "duck":
			items = append(items, readline.PcItem(v, readline.PcItem("on"), readline.PcItem("off"), readline.PcItem("toggle")))
		case "load":
			items = append(items, readline.PcItem(v, readline.PcItemDynamic(listFiles)))
		default:
			items = append(items, readline.PcItem(v))
		}
	}
	return readline.NewPrefixCompleter(items...)
}

// Run reads lines until EOF, "quit", or ctx is done
func (c *Console) Run(ctx context.Context) error {
	for {
		line, err := c.in.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read command: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}

		cmd, err := control.Parse(line)
		if err != nil {
			fmt.Fprint(c.out, control.FormatResponse("", "", err))
			continue
		}

		switch cmd.Verb {
		case "":
			continue
		case "quit", "exit":
			return nil
		case "help":
			fmt.Fprintf(c.out, helpText, strings.Join(board.LabelNames(), " "))
			continue
		}

		body, err := c.queue.Submit(ctx, cmd)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		fmt.Fprint(c.out, control.FormatResponse(cmd.Verb, body, err))
	}
}

// listFiles completes file paths
func listFiles(line string) []string {
	fields := strings.Fields(line)
	prefix := ""
	if len(fields) > 0 && !strings.HasSuffix(line, " ") {
		prefix = fields[len(fields)-1]
	}

	dir := filepath.Dir(prefix)
	if prefix == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var names []string
	for _, e := range entries {
		name := filepath.Join(dir, e.Name())
		if e.IsDir() {
			name += string(filepath.Separator)
		}
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names
}
