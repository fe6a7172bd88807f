//go:build !windows

package platform

import "os"

var serviceTools = []string{"systemctl"}

func isAdminPlatform() bool {
	return os.Geteuid() == 0
}
