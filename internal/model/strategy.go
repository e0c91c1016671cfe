package model

import "fmt"

// Strategy selects how the conflict engine reconciles a divergent entity.
//
// Strategies are a closed set: an unrecognized value is rejected at parse
// time rather than silently falling through to a default.
type Strategy string

const (
	// LastWriteWins picks the copy with the strictly newer updated_at.
	// On an exact timestamp tie the remote copy wins; this tie-break is a
	// stable, documented contract.
	LastWriteWins Strategy = "last_write_wins"

	// LocalWins keeps the local copy unconditionally, ignoring timestamps.
	// The result stays dirty so it is still pushed upstream.
	LocalWins Strategy = "local_wins"

	// RemoteWins keeps the remote copy unconditionally, ignoring timestamps.
	RemoteWins Strategy = "remote_wins"

	// Manual refuses automatic resolution; the caller must supply a
	// resolution out-of-band.
	Manual Strategy = "manual"
)

// ParseStrategy converts a configuration string into a Strategy,
// rejecting unrecognized values.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case LastWriteWins, LocalWins, RemoteWins, Manual:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown conflict strategy %q", s)
	}
}
