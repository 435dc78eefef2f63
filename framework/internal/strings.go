package internal

import (
	"strings"
)

// ParseCommandLineArgs converts a slice of command line arguments into a map for easy lookup.
// Arguments in the format "--key=value" are stored as key -> value.
// Arguments in the format "-key=value" are stored as key -> value.
// Arguments without "=" are stored as key -> "" (empty string).
// Anything that does not start with a dash, such as a separate flag value, is skipped.
func ParseCommandLineArgs(args []string) map[string]string {
	result := make(map[string]string)
	for _, arg := range args {
		if strings.HasPrefix(arg, "--") {
			parsePrefix(arg, "--", result)
		} else if strings.HasPrefix(arg, "-") {
			parsePrefix(arg, "-", result)
		}
	}
	return result
}

// parsePrefix removes the given prefix from arg and splits it into key and value at the first "=".
func parsePrefix(arg, prefix string, result map[string]string) {
	arg = strings.TrimPrefix(arg, prefix)
	if parts := strings.SplitN(arg, "=", 2); len(parts) == 2 {
		result[parts[0]] = parts[1]
	} else {
		result[arg] = ""
	}
}

// RedactURL strips credentials and query strings from an endpoint URL so it can be logged.
func RedactURL(raw string) string {
	if i := strings.Index(raw, "://"); i >= 0 {
		rest := raw[i+3:]
		if at := strings.LastIndex(rest, "@"); at >= 0 && !strings.Contains(rest[:at], "/") {
			raw = raw[:i+3] + rest[at+1:]
		}
	}
	if q := strings.IndexAny(raw, "?#"); q >= 0 {
		raw = raw[:q]
	}
	return raw
}
