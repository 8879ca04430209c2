package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gmao-cli/internal/cli"
)

func isTaskLabel(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) <= len("ORDT-") || !strings.EqualFold(s[:len("ORDT-")], "ORDT-") {
		return false
	}
	for _, r := range s[len("ORDT-"):] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// rewriteTaskShortcut turns `gmao ORDT-12` into `gmao tasks show ORDT-12`.
//
// Cobra treats the first non-flag token as a subcommand, so argv is rewritten before
// parsing. Persistent flags may come first (`gmao --api ... ORDT-12`); unknown flags are
// skipped without consuming a value so the label is never swallowed.
func rewriteTaskShortcut(argv []string) []string {
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--config-dir": true,
		"--api":        true,
		"--format":     true,
	}
	boolFlags := map[string]bool{
		"--pretty": true,
	}

	insert := func(at int) []string {
		out := make([]string, 0, len(argv)+2)
		out = append(out, argv[:at]...)
		out = append(out, "tasks", "show")
		return append(out, argv[at:]...)
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) && isTaskLabel(argv[i+1]) {
				return insert(i + 1)
			}
			return argv
		}
		if strings.HasPrefix(a, "-") {
			if strings.Contains(a, "=") || boolFlags[a] {
				continue
			}
			if valueFlags[a] {
				i++
			}
			continue
		}

		if isTaskLabel(a) {
			return insert(i)
		}
		return argv
	}
	return argv
}

func main() {
	os.Args = rewriteTaskShortcut(os.Args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCmd()
	cmd.SetArgs(os.Args[1:])
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
