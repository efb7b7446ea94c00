// Package strutil provides the UTF-8/UTF-16 conversion helpers the Win32
// surface needs everywhere a wide string crosses the syscall boundary.
// No capture-pipeline logic lives here.
package strutil

import "unicode/utf16"

// UTF16PtrFromString converts s to a NUL-terminated UTF-16 string and
// returns a pointer to its first element. Mirrors
// windows.UTF16PtrFromString but never fails on embedded NUL bytes already
// absent from a normal Go string — it cannot fail at all, so callers don't
// need to handle an error from this package specifically, unlike the x/sys
// equivalent used elsewhere for API parameters that do validate.
func UTF16PtrFromString(s string) (*uint16, error) {
	u := utf16.Encode([]rune(s + "\x00"))
	return &u[0], nil
}

// UTF16FromString converts s to a NUL-terminated UTF-16 slice.
func UTF16FromString(s string) []uint16 {
	return utf16.Encode([]rune(s + "\x00"))
}

// UTF16ToString converts a NUL-terminated (or full-length) UTF-16 slice
// back to a Go string, stopping at the first NUL.
func UTF16ToString(u []uint16) string {
	for i, c := range u {
		if c == 0 {
			u = u[:i]
			break
		}
	}
	return string(utf16.Decode(u))
}
