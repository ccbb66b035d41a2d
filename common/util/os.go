package util

import (
	"os"
	"strings"
)

// FilterOSArgs returns args with masked values for all flags not on whitelist.
func FilterOSArgs(args []string, whitelist []string) []string {
	var (
		sanitized           = make([]string, len(args))
		sanitizeNext        = false
		whitelistByFlagName = make(map[string]struct{}, len(whitelist))
	)
	for _, name := range whitelist {
		whitelistByFlagName[name] = struct{}{}
	}
	for i, arg := range args {
		if strings.HasPrefix(arg, "--") {
			if _, ok := whitelistByFlagName[strings.TrimPrefix(strings.ToLower(arg), "--")]; !ok {
				sanitizeNext = true
			} else {
				sanitizeNext = false
			}
			sanitized[i] = arg
		} else {
			if sanitizeNext {
				sanitized[i] = strings.Repeat("*", len(arg))
				sanitizeNext = false
			} else {
				sanitized[i] = arg
			}
		}
	}
	return sanitized
}

// FilterOSEnviron returns the host environment variables whose names appear on
// the allowlist, in name=value form.
func FilterOSEnviron(allowlist []string) []string {
	var (
		filtered    []string
		allowByName = make(map[string]struct{}, len(allowlist))
	)
	for _, name := range allowlist {
		allowByName[name] = struct{}{}
	}
	for _, pair := range os.Environ() {
		name := pair
		if i := strings.Index(pair, "="); i >= 0 {
			name = pair[:i]
		}
		if _, ok := allowByName[name]; ok {
			filtered = append(filtered, pair)
		}
	}
	return filtered
}
