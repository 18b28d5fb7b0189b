package startup

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultPort is used when no port is supplied by argument or environment.
const DefaultPort = 3000

// ResolvePort determines the listen port from command-line arguments and
// the environment. args excludes the program name. Precedence: bare numeric
// argument > --port=N > --port N / -p N > VIDEOLAB_PORT > PORT > default.
func ResolvePort(args []string) (int, error) {
	// Bare numeric argument, e.g. "videolab 8080". A token following a
	// space-form port flag is that flag's value, not a positional port.
	skipNext := false
	for _, arg := range args {
		if skipNext {
			skipNext = false
			continue
		}
		if arg == "--port" || arg == "-p" {
			skipNext = true
			continue
		}
		if arg == "" || strings.HasPrefix(arg, "-") {
			continue
		}
		if n, err := strconv.Atoi(arg); err == nil {
			return validatePort(n, arg)
		}
	}

	// --port=N form.
	for _, arg := range args {
		if v, ok := strings.CutPrefix(arg, "--port="); ok {
			return parsePort(v)
		}
	}

	// --port N and -p N forms.
	for i, arg := range args {
		if (arg == "--port" || arg == "-p") && i+1 < len(args) {
			return parsePort(args[i+1])
		}
	}

	for _, key := range []string{"VIDEOLAB_PORT", "PORT"} {
		if v := os.Getenv(key); v != "" {
			return parsePort(v)
		}
	}

	return DefaultPort, nil
}

func parsePort(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: not a number", s)
	}
	return validatePort(n, s)
}

func validatePort(n int, raw string) (int, error) {
	if n < 1 || n > 65535 {
		return 0, fmt.Errorf("invalid port %q: must be between 1 and 65535", raw)
	}
	return n, nil
}
