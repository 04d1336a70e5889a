package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kilnvm/kiln/internal/audit"
	"github.com/kilnvm/kiln/internal/config"
	"github.com/kilnvm/kiln/internal/introspect"
	"github.com/kilnvm/kiln/internal/logger"
	"github.com/kilnvm/kiln/internal/typecheck"
	"github.com/kilnvm/kiln/internal/vm"
)

var version = "dev"

func main() {
	var (
		debug   = flag.Bool("v", false, "Verbose mode")
		noColor = flag.Bool("n", false, "No color")
		cfgPath = flag.String("config", "", "Config file (default: $KILN_CONFIG or kiln.yaml)")
		disasm  = flag.Bool("disasm", false, "Print bytecode of demo functions")
		addr    = flag.String("addr", "", "Introspection service address")
	)
	flag.Parse()

	logger.Init(*debug, *noColor)

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatal("Loading config failed", "error", err)
	}
	if *addr != "" {
		cfg.IntrospectAddr = *addr
	}

	switch cmd := flag.Arg(0); cmd {
	case "", "demo":
		if err := runDemo(cfg, *disasm); err != nil {
			log.Fatal("Demo failed", "error", err)
		}
	case "stats":
		if err := runStats(cfg); err != nil {
			log.Fatal("Fetching stats failed", "error", err)
		}
	case "version":
		fmt.Println("kiln", version)
	default:
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [demo|stats|version]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadDefault()
}

// runDemo builds a small annotated program, enables checking, and runs
// passing and violating calls through the hook.
func runDemo(cfg config.Config, disasm bool) error {
	rt := vm.NewRuntime()
	in := rt.NewInterp()

	opts := []typecheck.Option{}
	if cfg.OnMissingParam == "skip" {
		opts = append(opts, typecheck.WithMissingParamPolicy(typecheck.SkipMissingParam))
	}

	var store *audit.Store
	if cfg.AuditDB != "" {
		var err error
		store, err = audit.Open(cfg.AuditDB)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, typecheck.WithAuditStore(store))
	}

	hook, err := typecheck.Enable(rt, opts...)
	if err != nil {
		return err
	}

	var srv *introspect.Server
	if cfg.IntrospectAddr != "" {
		srv, err = introspect.New(hook.Stats)
		if err != nil {
			return err
		}
		if err := srv.Start(cfg.IntrospectAddr); err != nil {
			return err
		}
		defer srv.Stop()
		fmt.Println("introspection service on", srv.Addr())
	}

	double, greet := defineDemoFunctions(rt, in)
	if disasm {
		fmt.Print(vm.Disassemble(double.Code))
		fmt.Print(vm.Disassemble(greet.Code))
	}

	runDemoCalls(in, double, greet)

	snap := hook.Stats()
	fmt.Printf("frames=%d hits=%d resolutions=%d violations=%d\n",
		snap.Frames, snap.CacheHits, snap.Resolutions, snap.Violations)

	if store != nil {
		n, err := store.Count()
		if err != nil {
			return err
		}
		fmt.Printf("violations recorded: %d\n", n)
	}

	if srv != nil {
		// Leave the service up for inspection until interrupted.
		fmt.Println("serving; Ctrl-C to exit")
		select {}
	}
	return nil
}

func runStats(cfg config.Config) error {
	if cfg.IntrospectAddr == "" {
		return fmt.Errorf("no introspection address configured (set -addr or introspectAddr)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, err := introspect.FetchStats(ctx, cfg.IntrospectAddr)
	if err != nil {
		return err
	}

	fmt.Printf("frames       %d\n", snap.Frames)
	fmt.Printf("cache hits   %d\n", snap.CacheHits)
	fmt.Printf("resolutions  %d\n", snap.Resolutions)
	fmt.Printf("unresolved   %d\n", snap.Unresolved)
	fmt.Printf("fail-opens   %d\n", snap.FailOpens)
	fmt.Printf("violations   %d\n", snap.Violations)
	return nil
}
