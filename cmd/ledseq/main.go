// ledseq runs the LED sequencer daemon: it plays the program on a terminal
// strip and accepts commands over Connect and gRPC.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/ledseq/config"
	"github.com/chazu/ledseq/journal"
	"github.com/chazu/ledseq/pkg/sequencer"
	"github.com/chazu/ledseq/pkg/strip"
	"github.com/chazu/ledseq/server"
)

type verbosity int

func (v *verbosity) String() string   { return fmt.Sprint(int(*v)) }
func (v *verbosity) IsBoolFlag() bool { return true }
func (v *verbosity) Set(string) error {
	*v++
	return nil
}

func main() {
	var verbose verbosity
	flag.Var(&verbose, "v", "Increase log verbosity (repeatable)")
	dir := flag.String("C", ".", "Directory to search for ledseq.toml")
	listen := flag.String("listen", "", "Override server.listen")
	logPath := flag.String("log", "", "Log file (default stderr)")
	noRender := flag.Bool("no-render", false, "Do not draw the strip on stdout")
	lspMode := flag.Bool("lsp", false, "Run the assembly language server on stdio")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ledseq [options]\n\n")
		fmt.Fprintf(os.Stderr, "Plays the configured LED program and serves sequencer commands.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  ledseq                      # Use ./ledseq.toml or defaults\n")
		fmt.Fprintf(os.Stderr, "  ledseq -v -v -listen :9000  # Debug logging, serve on :9000\n")
		fmt.Fprintf(os.Stderr, "  ledseq -lsp -log lsp.log    # Editor support for .seq files\n")
	}
	flag.Parse()

	var path *string
	if *logPath != "" {
		path = logPath
	}
	commonlog.Configure(int(verbose), path)

	if *lspMode {
		if err := runLSP(*dir); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*dir, *listen, !*noRender); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(dir string) (*config.Config, error) {
	cfg, err := config.FindAndLoad(dir)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		commonlog.GetLogger("ledseq").Info("no ledseq.toml found, using defaults")
		cfg = config.Default()
	}
	return cfg, nil
}

func runLSP(dir string) error {
	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}
	return server.NewLSP(cfg.Program.Capacity).Run()
}

func run(dir, listen string, render bool) error {
	log := commonlog.GetLogger("ledseq")

	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Server.Listen = listen
	}

	opts, err := cfg.SequencerOptions()
	if err != nil {
		return err
	}
	term := strip.NewTerminal(os.Stdout, cfg.Strip.NumLEDs)
	seq, err := sequencer.New(term, uint8(cfg.Strip.NumLEDs), opts...)
	if err != nil {
		return err
	}
	seq.Init()

	var serverOpts []server.Option
	if cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.JournalPath())
		if err != nil {
			return err
		}
		defer j.Close()
		serverOpts = append(serverOpts, server.WithJournal(j))
		log.Infof("journaling commands to %s", j.Path())
	}

	worker := server.NewWorker(seq)
	srv := server.New(worker, serverOpts...)

	var hook server.TickHook
	if render {
		hook = func(sequencer.TickReport) {
			if err := term.Render(); err != nil {
				log.Errorf("render: %s", err)
			}
		}
	}
	ticker := server.NewTicker(worker, cfg.Clock.Tick.Duration, hook)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 2)
	go func() { errs <- ticker.Run(ctx) }()
	go func() { errs <- srv.ListenAndServe(cfg.Server.Listen) }()

	select {
	case <-ctx.Done():
	case err = <-errs:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil && !errors.Is(shutdownErr, context.Canceled) {
		log.Errorf("shutdown: %s", shutdownErr)
	}
	if render {
		fmt.Println()
	}
	return err
}
