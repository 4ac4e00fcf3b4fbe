package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/vmbridge/config"
	"github.com/wippyai/vmbridge/env"
	"github.com/wippyai/vmbridge/internal/host"
	"github.com/wippyai/vmbridge/internal/script"
	"github.com/wippyai/vmbridge/trampoline"
	"github.com/wippyai/vmbridge/value"
	"github.com/wippyai/vmbridge/vm/simvm"
	"github.com/wippyai/vmbridge/vm/wasmvm"
)

type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

func main() {
	var (
		configs     stringList
		className   = flag.String("class", "", "Class to call, e.g. demo/Calc")
		method      = flag.String("method", "", "Static method to call")
		sig         = flag.String("sig", "", "Method descriptor (optional unless overloaded)")
		args        = flag.String("args", "", "Arguments (comma-separated)")
		list        = flag.Bool("list", false, "List callable methods and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Var(&configs, "config", "CUE configuration file (repeatable)")
	flag.Parse()

	if len(configs) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: vmbridge -config <file.cue> -class <name> -method <name> [-sig desc] [-args a,b]")
		fmt.Fprintln(os.Stderr, "       vmbridge -config <file.cue> -list")
		fmt.Fprintln(os.Stderr, "       vmbridge -config <file.cue> -i  (interactive mode)")
		os.Exit(1)
	}

	cfg, err := config.Load(configs...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log, err := newLogger(cfg, *interactive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *interactive {
		if err := runInteractive(cfg, log, configs[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, log, *className, *method, *sig, *args, *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger and hands it to every package that
// logs. The TUI owns the terminal, so interactive runs only log errors.
func newLogger(cfg *config.Config, interactive bool) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(cfg.LogLevel())
	if interactive {
		zc.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}
	log, err := zc.Build()
	if err != nil {
		return nil, err
	}
	env.SetLogger(log.Named("env"))
	simvm.SetLogger(log.Named("simvm"))
	wasmvm.SetLogger(log.Named("wasmvm"))
	trampoline.SetLogger(log.Named("trampoline"))
	script.SetLogger(log.Named("script"))
	return log, nil
}

func run(cfg *config.Config, log *zap.Logger, className, method, sig, argStr string, listOnly bool) error {
	ctx := context.Background()

	h, err := host.Open(ctx, cfg, host.WithLogger(log))
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer h.Close(ctx)

	methods := h.Methods()
	if listOnly || method == "" {
		fmt.Printf("Classes: %d\n", len(cfg.Classes))
		fmt.Printf("\nStatic methods:\n")
		for _, m := range methods {
			kind := ""
			if m.Native {
				kind = " (native)"
			}
			fmt.Printf("  %s.%s%s%s\n", m.Class, m.Name, m.Descriptor(), kind)
		}
		if !listOnly {
			fmt.Printf("\nUse -class and -method to call one.\n")
		}
		return nil
	}

	if className == "" {
		className = uniqueClass(methods, method)
	}
	m, err := h.Lookup(className, method, sig)
	if err != nil {
		return err
	}

	var callArgs []string
	if argStr != "" {
		callArgs = strings.Split(argStr, ",")
	}
	fmt.Printf("Calling %s.%s%s(%s)...\n", m.Class, m.Name, m.Descriptor(), strings.Join(callArgs, ", "))
	result, err := h.Call(m, callArgs)
	if err != nil {
		return fmt.Errorf("call %s: %w", m.Name, err)
	}
	if m.Signature.Return.ValueKind() != value.Void {
		fmt.Printf("Result: %s\n", result)
	}
	return nil
}

// uniqueClass returns the only class declaring method, or "" when it is
// ambiguous or missing.
func uniqueClass(methods []host.Method, method string) string {
	found := ""
	for _, m := range methods {
		if m.Name != method {
			continue
		}
		if found != "" && found != m.Class {
			return ""
		}
		found = m.Class
	}
	return found
}
