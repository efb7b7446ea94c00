//go:build !windows

package agent

// Run is unavailable outside a Windows compositor process.
func Run(hostHWND uintptr) int { return -1 }
