// Package version holds the build version, overridable with
// -ldflags "-X opintel/pkg/version.Version=...".
package version

var Version = "v0.1.0"
