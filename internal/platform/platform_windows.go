//go:build windows

package platform

import "golang.org/x/sys/windows"

var serviceTools = []string{"sc", "taskkill"}

func isAdminPlatform() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}
