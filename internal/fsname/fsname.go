// Package fsname guards file names derived from user input.
package fsname

import (
	"fmt"
	"regexp"
)

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Sanitize validates a username for use as a path component. Anything
// outside [a-zA-Z0-9_-] is rejected so user input can never traverse
// outside the data directory.
func Sanitize(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("name cannot be empty")
	}
	if !namePattern.MatchString(name) {
		return "", fmt.Errorf("invalid name for filesystem use: %q", name)
	}
	return name, nil
}
