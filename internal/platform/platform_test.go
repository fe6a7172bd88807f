package platform

import (
	"runtime"
	"testing"
)

func TestCheckEnv(t *testing.T) {
	env := CheckEnv()
	if env["OS"] != runtime.GOOS {
		t.Errorf("OS = %q, want %q", env["OS"], runtime.GOOS)
	}
	for _, tool := range serviceTools {
		if _, ok := env["Tool_"+tool]; !ok {
			t.Errorf("missing entry for tool %s", tool)
		}
	}
	if env["Admin"] != "true" && env["Admin"] != "false" {
		t.Errorf("Admin = %q", env["Admin"])
	}
}

func TestHasTool(t *testing.T) {
	if HasTool("definitely-not-a-real-tool-xyz") {
		t.Error("nonexistent tool reported as present")
	}
}

func TestServiceToolsIsCopy(t *testing.T) {
	tools := ServiceTools()
	if len(tools) == 0 {
		t.Fatal("no service tools listed")
	}
	tools[0] = "changed"
	if ServiceTools()[0] == "changed" {
		t.Error("ServiceTools exposes the package slice")
	}
}
