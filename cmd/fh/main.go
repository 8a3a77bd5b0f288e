package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/filehandle"
)

func main() {
	var (
		output      = flag.String("o", "", "Write to the file at this path instead of stdout")
		custom      = flag.Bool("custom", false, "Use the builder-constructed accumulator sink")
		discard     = flag.Bool("null", false, "Throw away everything written")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		debug       = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	log := zap.NewNop()
	if *debug {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		log = l
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*output, *custom, *discard, log); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run writes a greeting through the chosen handle, then copies stdin to it
// until EOF. A line containing "flush" drains the handle.
func run(output string, custom, discard bool, log *zap.Logger) error {
	handle, err := buildHandle(output, custom, discard)
	if err != nil {
		return err
	}
	log.Debug("handle constructed",
		zap.String("output", output),
		zap.Bool("custom", custom),
		zap.Bool("null", discard))

	if err := writeAll(handle, []byte("Hello, World\n")); err != nil {
		handle.Close()
		return fmt.Errorf("write greeting: %w", err)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text() + "\n"
		if err := writeAll(handle, []byte(line)); err != nil {
			handle.Close()
			return fmt.Errorf("copy stdin: %w", err)
		}
		if strings.Contains(line, "flush") {
			if err := handle.Flush(); err != nil {
				handle.Close()
				return fmt.Errorf("flush: %w", err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		handle.Close()
		return fmt.Errorf("read stdin: %w", err)
	}

	return handle.Close()
}

// buildHandle picks the variant; past this point the handle's identity is
// invisible to the rest of the program.
func buildHandle(output string, custom, discard bool) (*filehandle.FileHandle, error) {
	switch {
	case custom:
		return newAccumulator()
	case discard:
		return filehandle.NewDiscard(), nil
	case output != "":
		return filehandle.NewPath(output)
	default:
		return filehandle.NewStdout(), nil
	}
}

// writeAll retries short counts until every byte is delivered.
func writeAll(h *filehandle.FileHandle, p []byte) error {
	for len(p) > 0 {
		n, err := h.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("write made no progress with %d bytes left", len(p))
		}
		p = p[n:]
	}
	return nil
}
