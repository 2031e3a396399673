// Package version reports the concierge release.
package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var versionContent string

// override is set at link time with -ldflags "-X .../version.override=v1.2.3".
var override string

// Get returns the current version, with whitespace trimmed
func Get() string {
	if override != "" {
		return override
	}
	return strings.TrimSpace(versionContent)
}
