// Package buildinfo carries version metadata injected at link time:
//
//	go build -ldflags "-X github.com/modoterra/agentlog/internal/buildinfo.Version=v0.3.0"
package buildinfo

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
