//go:build linux

package config

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// HostMemoryNote cross-checks the configured -p value against the host's
// actual RAM and returns an advisory line for the report's input-echo
// section if the configured figure is implausible. It never overrides the
// user's value — this is purely informational (E3).
func HostMemoryNote(configuredBytes uint64) string {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return ""
	}

	hostBytes := info.Totalram * uint64(info.Unit)
	if configuredBytes > hostBytes {
		return fmt.Sprintf(
			"configured physical memory (%d MiB) exceeds host RAM (%d MiB); the simulation models a hypothetical machine, not this host",
			configuredBytes/(1024*1024), hostBytes/(1024*1024))
	}

	return ""
}
