package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	workerboot "github.com/hexbound/workerboot"
	"github.com/hexbound/workerboot/bootstrap"
	"github.com/hexbound/workerboot/glue"
	"github.com/hexbound/workerboot/loader"
	"github.com/hexbound/workerboot/scope"
	"github.com/hexbound/workerboot/worker"
)

func main() {
	var (
		dir         = flag.String("dir", ".", "Module directory containing pkg/gui.json and pkg/gui_bg.wasm")
		gluePath    = flag.String("glue", "", "Bindings manifest path relative to -dir (default pkg/gui.json)")
		payloadPath = flag.String("payload", "", "Payload path relative to -dir (overrides the manifest)")
		probe       = flag.Bool("probe", false, "Print manifest info and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Verbose logging to stderr")
		memPages    = flag.Uint("mem-pages", 0, "Memory limit in 64 KiB pages (0 = runtime default)")
	)
	flag.Parse()

	if *verbose {
		configureLogging()
	}

	loc := workerboot.Locator{Glue: *gluePath, Payload: *payloadPath}.WithDefaults()

	if *probe {
		if err := probeManifest(*dir, loc); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	var cfg *loader.Config
	if *memPages > 0 {
		cfg = &loader.Config{MemoryLimitPages: uint32(*memPages)}
	}

	if *interactive {
		if err := runInteractive(*dir, loc, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*dir, loc, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// configureLogging installs a shared zap logger across the library
// packages. Console encoding when stderr is a terminal, JSON otherwise.
func configureLogging() {
	encCfg := zap.NewDevelopmentEncoderConfig()
	var enc zapcore.Encoder
	if term.IsTerminal(int(os.Stderr.Fd())) {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}
	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), zapcore.DebugLevel)
	logger := zap.New(core)

	scope.SetLogger(logger.Named("scope"))
	glue.SetLogger(logger.Named("glue"))
	loader.SetLogger(logger.Named("loader"))
	bootstrap.SetLogger(logger.Named("bootstrap"))
	worker.SetLogger(logger.Named("worker"))
}

// probeManifest loads the bindings manifest and prints what it declares
// without spawning a worker.
func probeManifest(dir string, loc workerboot.Locator) error {
	path := joinDir(dir, loc.Glue)
	m, err := glue.Load(path)
	if err != nil {
		return err
	}

	fmt.Printf("Manifest: %s\n", path)
	if m.Name != "" {
		fmt.Printf("Module:   %s\n", m.Name)
	}
	fmt.Printf("Payload:  %s\n", m.Payload)
	fmt.Printf("Entry:    %s(%s)\n", m.Entry, strings.Join(m.EntrySignature.Params, ", "))

	fmt.Printf("\nProbed globals:\n")
	if len(m.Probes) == 0 {
		fmt.Printf("  (none)\n")
	}
	for _, p := range m.Probes {
		fmt.Printf("  %s\n", p)
	}

	fmt.Printf("\nHost imports:\n")
	if len(m.Imports) == 0 {
		fmt.Printf("  (none)\n")
	}
	for _, im := range m.Imports {
		for _, f := range im.Functions {
			result := ""
			if len(f.Signature.Results) > 0 {
				result = " -> " + strings.Join(f.Signature.Results, ", ")
			}
			fmt.Printf("  %s.%s(%s)%s\n", im.Module, f.Name,
				strings.Join(f.Signature.Params, ", "), result)
		}
	}
	return nil
}

// run spawns a worker and relays its outbound messages to stdout until the
// worker dies or the process is interrupted.
func run(dir string, loc workerboot.Locator, cfg *loader.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	w, err := worker.Spawn(ctx, worker.Options{
		Dir:          dir,
		Locator:      loc,
		LoaderConfig: cfg,
	})
	if err != nil {
		return err
	}
	defer w.Close(context.Background())

	fmt.Printf("Worker spawned over %s\n", dir)

	client := w.Client()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case err := <-w.Err():
			return err
		case <-ctx.Done():
			fmt.Printf("\nInterrupted, shutting down.\n")
			return nil
		case <-ticker.C:
			for {
				msg, ok := client.Poll()
				if !ok {
					break
				}
				fmt.Printf("[%s] %v\n", msg.Kind, msg.Data)
			}
			if client.Dead() {
				select {
				case err := <-w.Err():
					return err
				default:
				}
				fmt.Printf("Worker exited.\n")
				return nil
			}
		}
	}
}

func joinDir(dir, rel string) string {
	if dir == "" || dir == "." {
		return rel
	}
	return filepath.Join(dir, rel)
}
