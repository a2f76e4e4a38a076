package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckSchemaCompatibility checks if this build can read a cache database
// provisioned with the given schema version.
// Returns nil if compatible, error with details if not.
//
// Compatibility Rules:
//   - If either version is "main" (development build), compatibility check is skipped
//   - Major versions must match exactly
//   - Minor versions must match exactly
//   - Patch versions can differ (e.g., 1.2.0 is compatible with 1.2.5)
//
// Examples:
//   - Build 1.2.0, Stored 1.2.0 -> OK (exact match)
//   - Build 1.2.1, Stored 1.2.0 -> OK (patch differs)
//   - Build 1.3.0, Stored 1.2.0 -> ERROR (minor differs)
//   - Build 2.0.0, Stored 1.2.0 -> ERROR (major differs)
//   - Build main, Stored 1.2.0 -> OK (dev build, skip check)
//   - Build 1.2.0, Stored main -> OK (dev build, skip check)
func CheckSchemaCompatibility(buildVersion, storedVersion string) error {
	// Strip 'v' prefix if present for consistency
	buildVersion = strings.TrimPrefix(buildVersion, "v")
	storedVersion = strings.TrimPrefix(storedVersion, "v")

	// Skip version check for "main" (development builds)
	if buildVersion == "main" || storedVersion == "main" {
		return nil
	}

	// Parse build schema version
	buildSemver, err := semver.NewVersion(buildVersion)
	if err != nil {
		return fmt.Errorf("invalid schema version '%s': %w", buildVersion, err)
	}

	// Parse stored schema version
	storedSemver, err := semver.NewVersion(storedVersion)
	if err != nil {
		return fmt.Errorf("invalid stored schema version '%s': %w", storedVersion, err)
	}

	// Check major version match
	if buildSemver.Major() != storedSemver.Major() {
		return fmt.Errorf("major schema version mismatch: build writes %d.x.x but cache holds %d.x.x",
			buildSemver.Major(), storedSemver.Major())
	}

	// Check minor version match
	if buildSemver.Minor() != storedSemver.Minor() {
		return fmt.Errorf("minor schema version mismatch: build writes %d.%d.x but cache holds %d.%d.x",
			buildSemver.Major(), buildSemver.Minor(),
			storedSemver.Major(), storedSemver.Minor())
	}

	// Patch versions can differ, so we're compatible
	return nil
}
