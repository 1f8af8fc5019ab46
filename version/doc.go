// Package version reports build information for the rtdb command and
// the User-Agent sent by its clients.
//
// Values are set at link time and fall back to the module's VCS stamp:
//
//	go build -ldflags "-X github.com/kbukum/rtdbkit/version.Version=1.2.0" ./cmd/rtdb
package version
