// Package device derives a human-readable device name from a User-Agent
// header for session records and "active sessions" listings.
package device

import (
	"fmt"

	"github.com/mssola/useragent"
)

// DisplayName parses a User-Agent into "Browser on OS". Unknown or empty
// agents collapse to "Unknown device" rather than echoing raw header bytes.
func DisplayName(ua string) string {
	if ua == "" {
		return "Unknown device"
	}

	parsed := useragent.New(ua)
	name, _ := parsed.Browser()
	os := parsed.OS()

	switch {
	case name != "" && os != "":
		return fmt.Sprintf("%s on %s", name, os)
	case name != "":
		return name
	case os != "":
		return os
	default:
		return "Unknown device"
	}
}
