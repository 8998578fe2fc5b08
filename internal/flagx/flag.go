// Package flagx holds helpers for pre-parsing a subset of command-line flags
// before the main flag set is built.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// FilterArgs returns only the allowed flags (and their values) from args.
//
// Supported formats:
//  1. Flag and value as separate arguments:  -c conf.json
//  2. Flag and value combined with '=':      -config=conf.json
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			// a following non-flag argument is this flag's value
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// PreFlags are the flags that must be known before the full configuration is
// assembled: where to find the JSON config and the dotenv file.
type PreFlags struct {
	ConfigPath string
	EnvFile    string
}

// ParsePreFlags extracts -c/-config and -env from args, ignoring everything
// else so the main flag set can still parse the full list later.
func ParsePreFlags(args []string) PreFlags {
	var pf PreFlags

	filtered := FilterArgs(args, []string{"-c", "-config", "-env"})

	fs := flag.NewFlagSet("pre", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&pf.ConfigPath, "config", "", "Path to JSON config file")
	fs.StringVar(&pf.ConfigPath, "c", "", "Path to JSON config file (short)")
	fs.StringVar(&pf.EnvFile, "env", "", "Path to .env file")
	_ = fs.Parse(filtered)

	return pf
}
