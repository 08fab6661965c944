// Package privacy removes credentials from database locations and messages
// before they reach logs or the terminal.
package privacy

import (
	"regexp"
	"strings"
)

const redacted = "***"

// dsnCredentials matches the user:password@ part of a mysql:// location
var dsnCredentials = regexp.MustCompile(`(mysql://)([^:@/\s]*)(:[^@\s]*)?@`)

// RedactDSN hides the password of a mysql:// database location. SQLite paths
// are returned unchanged.
func RedactDSN(location string) string {
	if !strings.HasPrefix(location, "mysql://") {
		return location
	}
	return ScrubMessage(location)
}

// ScrubMessage replaces the password of every mysql:// location in message.
// The user name is kept for debugging.
func ScrubMessage(message string) string {
	return dsnCredentials.ReplaceAllStringFunc(message, func(match string) string {
		parts := dsnCredentials.FindStringSubmatch(match)
		if parts[3] == "" {
			return match
		}
		return parts[1] + parts[2] + ":" + redacted + "@"
	})
}
