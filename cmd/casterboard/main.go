package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/famish99/casterboard/internal/backends"
	"github.com/famish99/casterboard/internal/backends/beepclip"
	"github.com/famish99/casterboard/internal/backends/nullclip"
	"github.com/famish99/casterboard/internal/backends/otoclip"
	"github.com/famish99/casterboard/internal/board"
	"github.com/famish99/casterboard/internal/config"
	"github.com/famish99/casterboard/internal/console"
	"github.com/famish99/casterboard/internal/control"
	"github.com/famish99/casterboard/internal/ctlserver"
	"github.com/famish99/casterboard/internal/deck"
	"github.com/famish99/casterboard/internal/remote"
	"github.com/famish99/casterboard/internal/store"
	"github.com/famish99/casterboard/internal/tui"
)

// boardList collects repeated -board flags
type boardList []string

func (b *boardList) String() string {
	return strings.Join(*b, ",")
}

func (b *boardList) Set(v string) error {
	*b = append(*b, v)
	return nil
}

var (
	configPath  = flag.String("config", getDefaultConfigPath(), "Path to configuration file")
	mode        = flag.String("mode", "", "Front end: tui, headless, or console (default from config)")
	backendName = flag.String("backend", "", "Audio backend: beep, oto, or none (default from config)")
	oscTarget   = flag.String("osc-target", "", "Send OSC to host:port (enables OSC)")
	controlAddr = flag.String("control-addr", "", "Control server listen address (default from config)")
	writeConfig = flag.Bool("write-config", false, "Write the effective configuration to -config and exit")
	boardFiles  boardList
)

func init() {
	flag.Var(&boardFiles, "board", "Board file to open (repeatable)")
}

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := applyFlags(cfg); err != nil {
		log.Fatalf("Invalid option: %v", err)
	}

	if *writeConfig {
		if err := config.SaveConfig(*configPath, cfg); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		log.Printf("Wrote configuration to %s", *configPath)
		return
	}

	// Keep log output off the screen the TUI draws on
	if cfg.UI.Mode == config.ModeTUI && cfg.UI.LogFile != "" {
		f, err := tea.LogToFile(cfg.UI.LogFile, "casterboard")
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()
	}

	format, err := store.ParseFormat(cfg.StoreFormat)
	if err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	factory, err := newFactory(cfg.Audio)
	if err != nil {
		log.Fatalf("Failed to initialize audio: %v", err)
	}

	var transport remote.Transport
	if cfg.OSC.Enabled {
		client, err := remote.Dial(cfg.OSC.Target)
		if err != nil {
			log.Fatalf("Failed to set up OSC output: %v", err)
		}
		transport = client
		log.Printf("Sending OSC to %s", cfg.OSC.Target)
	}

	d := deck.New(factory, transport, format)
	defer d.Close()
	openBoards(d, cfg.Boards)

	idle := control.NewIdle()
	engine := control.NewEngine(d, idle)
	queue := control.NewQueue(64)
	engine.WatchClipEnds(queue)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OSC.Enabled && cfg.OSC.Listen != "" {
		if err := startOSCServer(cfg.OSC.Listen, queue); err != nil {
			log.Fatalf("Failed to start OSC server: %v", err)
		}
	}

	if cfg.Control.Listen != "" {
		server := ctlserver.NewServer(cfg.Control.Listen, queue, idle)
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start control server: %v", err)
		}
		defer server.Stop()
	}

	switch cfg.UI.Mode {
	case config.ModeHeadless:
		runHeadless(ctx, queue, engine)
	case config.ModeConsole:
		runConsole(ctx, queue, engine)
	default:
		if err := tui.Run(ctx, engine, queue); err != nil {
			log.Printf("TUI error: %v", err)
		}
	}

	d.StopAll()
	log.Printf("Shutting down...")
}

func applyFlags(cfg *config.Config) error {
	if *mode != "" {
		if err := cfg.SetMode(*mode); err != nil {
			return err
		}
	}
	if *backendName != "" {
		cfg.Audio.Backend = *backendName
	}
	if *oscTarget != "" {
		if err := cfg.SetOSCTarget(*oscTarget); err != nil {
			return err
		}
	}
	if *controlAddr != "" {
		cfg.Control.Listen = *controlAddr
	}
	for _, path := range boardFiles {
		cfg.AddBoard(path)
	}
	return cfg.Validate()
}

// newFactory opens the configured audio output
func newFactory(audio config.AudioConfig) (backends.Factory, error) {
	switch audio.Backend {
	case config.BackendOto:
		engine, err := otoclip.NewEngine(audio.SampleRate)
		if err != nil {
			return nil, err
		}
		return engine.Factory(audio.DuckLevel), nil

	case config.BackendNone:
		log.Printf("Audio output disabled")
		return nullclip.NewFactory(), nil

	default:
		buffer := time.Duration(audio.BufferMS) * time.Millisecond
		if err := beepclip.Init(audio.SampleRate, buffer); err != nil {
			return nil, err
		}
		return beepclip.NewFactory(audio.SampleRate, duckExponent(audio.DuckLevel)), nil
	}
}

// duckExponent converts a duck gain (0..1) to beep's base-2 volume offset
func duckExponent(level float64) float64 {
	return math.Log2(math.Max(level, 1.0/1024))
}

// openBoards opens the configured boards. A missing file becomes a new board
// that will be saved to that path.
func openBoards(d *deck.Deck, files []config.BoardFile) {
	for _, bf := range files {
		entry, err := d.Open(bf.Path)
		if errors.Is(err, fs.ErrNotExist) {
			entry, err = d.NewBoard(bf.Name)
			if err == nil {
				entry.Path = bf.Path
			}
		}
		if err != nil {
			log.Printf("Failed to open board %s: %v", bf.Path, err)
			continue
		}
		if bf.Name != "" && entry.Board.Name() == board.DefaultName {
			entry.Board.SetName(bf.Name)
		}
	}

	if d.Len() == 0 {
		if _, err := d.NewBoard(""); err != nil {
			log.Fatalf("Failed to create board: %v", err)
		}
	}
}

func startOSCServer(addr string, queue control.Queue) error {
	dispatcher, err := remote.NewDispatcher(board.LabelNames(), func(args []string) {
		queue.Post(control.FromTokens(args))
	})
	if err != nil {
		return err
	}

	go func() {
		if err := remote.ListenAndServe(addr, dispatcher); err != nil {
			log.Printf("OSC server stopped: %v", err)
		}
	}()
	return nil
}

// runHeadless serves the control server and OSC until interrupted
func runHeadless(ctx context.Context, queue control.Queue, engine *control.Engine) {
	log.Printf("Casterboard running headless")
	if err := control.Run(ctx, queue, engine); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Event loop error: %v", err)
	}
}

// runConsole reads commands from the terminal until quit or interrupt
func runConsole(ctx context.Context, queue control.Queue, engine *control.Engine) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go control.Run(ctx, queue, engine)

	c, rl, err := console.New(queue)
	if err != nil {
		log.Printf("%v", err)
		return
	}
	defer rl.Close()

	go func() {
		<-ctx.Done()
		rl.Close()
	}()

	fmt.Fprintln(rl.Stdout(), "Type help for commands.")
	if err := c.Run(ctx); err != nil {
		log.Printf("Console error: %v", err)
	}
}

func getDefaultConfigPath() string {
	// Check common locations
	locations := []string{
		"./casterboard.yaml",
		"./config.yaml",
		filepath.Join(os.Getenv("HOME"), ".config", "casterboard", "config.yaml"),
		"/etc/casterboard/config.yaml",
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	// Default to first location if none exist
	return locations[0]
}
