// Package platform reports facts about the host the service runs on.
package platform

import (
	"os"
	"os/exec"
	"runtime"
	"strconv"
)

// CheckEnv returns a map of detected environment details.
// Platform-specific implementations in platform_*.go files.
func CheckEnv() map[string]string {
	env := make(map[string]string)
	env["OS"] = runtime.GOOS
	env["Arch"] = runtime.GOARCH
	env["PID"] = strconv.Itoa(os.Getpid())
	env["Admin"] = strconv.FormatBool(IsAdmin())
	for _, tool := range serviceTools {
		path, err := exec.LookPath(tool)
		if err == nil {
			env["Tool_"+tool] = path
		} else {
			env["Tool_"+tool] = "not found"
		}
	}
	return env
}

// ServiceTools lists the service management tools CheckEnv looks for.
func ServiceTools() []string {
	return append([]string(nil), serviceTools...)
}

// HasTool checks if a system tool is available in PATH
func HasTool(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// IsAdmin reports whether the current process may manage system services.
func IsAdmin() bool {
	return isAdminPlatform()
}
