package version

// Version is the current version of the argo-histdata library.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/rxtech-lab/argo-histdata/internal/version.Version=1.2.3"
// The default value "main" indicates a development build.
var Version = "v0.3.0"

// SchemaVersion is the cache database schema this build reads and writes. It
// is recorded in the schema_info table when a cache file is provisioned.
var SchemaVersion = "v1.0.0"

// GetVersion returns the current version of the library.
func GetVersion() string {
	return Version
}
