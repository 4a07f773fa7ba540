package version

// Set at build time with -ldflags "-X github.com/tldr-it-stepankutaj/toolbox/pkg/version.Version=...".
var (
	Version   = "0.1.0"
	GitCommit = "dev"
	BuildDate = "unknown"
)

// String returns a human-readable version string.
func String() string {
	return "toolbox " + Version + " (" + GitCommit + ", " + BuildDate + ")"
}
