// Package utils provides shared helpers used across the node's ambient
// (non-consensus) code.
package utils

import (
	"fmt"
	"os"
)

// Wrap adds context to an error message. It returns nil if err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// EnvOrDefault returns the named environment variable, or def if unset.
func EnvOrDefault(name, def string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return def
}
