//go:build !linux

package config

// HostMemoryNote is a no-op off Linux: unix.Sysinfo has no portable
// equivalent in x/sys for the other platforms this CLI might run on, and
// the check is advisory only.
func HostMemoryNote(configuredBytes uint64) string {
	return ""
}
