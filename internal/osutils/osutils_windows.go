//go:build windows

// Package osutils reports process properties that affect input injection.
package osutils

import (
	"golang.org/x/sys/windows"
)

// IsElevated reports whether the process runs with administrator rights.
// Input sent from a non-elevated process is dropped by elevated windows.
func IsElevated() bool {
	var token windows.Token
	h, _ := windows.GetCurrentProcess()
	err := windows.OpenProcessToken(h, windows.TOKEN_QUERY, &token)
	if err != nil {
		return false
	}
	defer token.Close()

	var sid *windows.SID
	err = windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&sid,
	)
	if err != nil {
		return false
	}
	defer windows.FreeSid(sid)

	member, err := token.IsMember(sid)
	if err != nil {
		return false
	}
	return member
}

// ElevationHint describes what a non-elevated process cannot reach.
const ElevationHint = "not running as administrator: input to elevated windows will be ignored"
