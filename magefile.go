//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName = "uploadsvc"
	buildDir   = "dist"
	cmdPath    = "./cmd/uploadsvc"
	versionVar = "uploadsvc/internal/cmd.Version"
)

var Default = Build

// version is the nearest tag, suffixed with the commit distance when non-zero
// and "-dirty" for a modified tree. Untagged checkouts use the short hash.
func version() string {
	v, err := sh.Output("git", "describe", "--tags", "--abbrev=0")
	if err != nil {
		v, err = sh.Output("git", "rev-parse", "--short", "HEAD")
		if err != nil {
			return "0.0.0-dev"
		}
	} else if n, err := sh.Output("git", "rev-list", "--count", v+"..HEAD"); err == nil && n != "" && n != "0" {
		v += "-" + n
	}
	if out, err := sh.Output("git", "status", "--porcelain"); err == nil && strings.TrimSpace(out) != "" {
		v += "-dirty"
	}
	return v
}

func ldflags() string {
	return fmt.Sprintf("-s -w -X '%s=%s'", versionVar, version())
}

func exe(name, goos string) string {
	if goos == "windows" {
		return name + ".exe"
	}
	return name
}

// Test runs the unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Build compiles the binary for the host platform.
func Build() error {
	if err := os.MkdirAll(buildDir, 0755); err != nil {
		return err
	}
	out := filepath.Join(buildDir, exe(binaryName, runtime.GOOS))
	return sh.RunV("go", "build", "-ldflags", ldflags(), "-o", out, cmdPath)
}

// Clean removes build output and the foreground log.
func Clean() {
	fmt.Println("Cleaning...")
	os.RemoveAll(buildDir)
	os.Remove("log.txt")
	os.Remove("api.log")
}

// CrossAll builds every supported windows and linux target in parallel.
func CrossAll() error {
	mg.Deps(Clean)
	if err := os.MkdirAll(buildDir, 0755); err != nil {
		return err
	}

	targets := [][2]string{
		{"windows", "amd64"},
		{"windows", "arm64"},
		{"linux", "amd64"},
		{"linux", "arm64"},
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(targets))
	for _, t := range targets {
		wg.Add(1)
		go func(goos, goarch string) {
			defer wg.Done()
			out := filepath.Join(buildDir, exe(fmt.Sprintf("%s-%s-%s", binaryName, goos, goarch), goos))
			fmt.Printf("Building %s/%s...\n", goos, goarch)
			env := map[string]string{"GOOS": goos, "GOARCH": goarch, "CGO_ENABLED": "0"}
			if err := sh.RunWithV(env, "go", "build", "-ldflags", ldflags(), "-o", out, cmdPath); err != nil {
				errs <- fmt.Errorf("build %s/%s: %w", goos, goarch, err)
			}
		}(t[0], t[1])
	}
	wg.Wait()
	close(errs)
	return <-errs
}

// Checksum writes dist/checksums.txt.
func Checksum() error {
	files, err := filepath.Glob(filepath.Join(buildDir, binaryName+"-*"))
	if err != nil {
		return err
	}
	var b strings.Builder
	for _, f := range files {
		sum, err := sh.Output("sha256sum", f)
		if err != nil {
			continue
		}
		b.WriteString(sum + "\n")
	}
	return os.WriteFile(filepath.Join(buildDir, "checksums.txt"), []byte(b.String()), 0644)
}

// Install builds and registers the service with the OS manager.
func Install() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(buildDir, exe(binaryName, runtime.GOOS)), "install")
}

// Uninstall builds and removes the service registration.
func Uninstall() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(buildDir, exe(binaryName, runtime.GOOS)), "remove")
}
