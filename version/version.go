package version

import "runtime/debug"

// Version is set at build time via -ldflags. It falls back to the
// module version recorded in the build info when available.
var Version = "dev"

const clientName = "eureka-go"

// String returns the effective version.
func String() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}

// UserAgent returns the User-Agent value sent with registry requests.
func UserAgent() string {
	return clientName + "/" + String()
}
