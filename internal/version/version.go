// Package version provides build and version information for the behavior daemon.
package version

// Version is the current release version of behaviord.
// This can be overridden at build time using:
//
//	go build -ldflags "-X github.com/AaronLay10/behaviorgraph/internal/version.Version=x.y.z"
var Version = "0.3.0"
