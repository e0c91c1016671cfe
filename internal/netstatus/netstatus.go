// Package netstatus abstracts the device's connectivity state, which gates
// sync eligibility.
package netstatus

import "fmt"

// Connectivity is the current network type.
type Connectivity string

const (
	None     Connectivity = "none"
	Wifi     Connectivity = "wifi"
	Cellular Connectivity = "cellular"
)

// ParseConnectivity converts a string into a Connectivity value,
// rejecting unrecognized values.
func ParseConnectivity(s string) (Connectivity, error) {
	switch Connectivity(s) {
	case None, Wifi, Cellular:
		return Connectivity(s), nil
	default:
		return "", fmt.Errorf("unknown connectivity %q", s)
	}
}

// Provider reports the device's current connectivity. The platform shell
// supplies the real implementation; tests and the CLI use Static.
type Provider interface {
	Current() Connectivity
}

// Static is a fixed-value Provider.
type Static Connectivity

// Current implements Provider.
func (s Static) Current() Connectivity {
	return Connectivity(s)
}
