package app

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"uploadsvc/internal/config"
	"uploadsvc/internal/servicectl"
	"uploadsvc/internal/servicectl/servicectltest"
)

func TestServiceOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Service.Username = "svc-user"
	path := filepath.Join(t.TempDir(), "config.toml")

	opts, err := ServiceOptions(&cfg, path, Credentials{})
	if err != nil {
		t.Fatal(err)
	}
	if len(opts.Args) != 3 || opts.Args[0] != "run" || opts.Args[1] != "--config" || opts.Args[2] != path {
		t.Errorf("args = %v", opts.Args)
	}
	if opts.Username != "svc-user" || opts.Startup != cfg.Service.Startup {
		t.Errorf("options = %+v", opts)
	}

	opts, _ = ServiceOptions(&cfg, path, Credentials{Username: `.\bob`, Password: "pw"})
	if opts.Username != `.\bob` || opts.Password != "pw" {
		t.Errorf("explicit credentials not used: %+v", opts)
	}
}

func TestInstallAndUninstall(t *testing.T) {
	cfg := config.DefaultConfig()
	fake := servicectltest.New(cfg.Service.Name)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := Install(ctx, fake, &cfg, path, Credentials{}); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if fake.Options.Executable == "" {
		t.Error("executable not set")
	}
	if err := Install(ctx, fake, &cfg, path, Credentials{}); err == nil {
		t.Error("second install must fail")
	}

	fake.SetState(servicectl.StateRunning)
	if err := Uninstall(ctx, fake, false); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	if st, _ := fake.Query(ctx); st.Installed {
		t.Error("still installed")
	}
	// Removing a missing service is not an error.
	if err := Uninstall(ctx, fake, false); err != nil {
		t.Errorf("second Uninstall: %v", err)
	}
}

func TestUninstallPurge(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("relies on XDG_CONFIG_HOME")
	}
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))

	appDir, err := config.EnsureConfig(false)
	if err != nil {
		t.Fatal(err)
	}
	completion := CompletionPaths(home)[0]
	if err := os.MkdirAll(filepath.Dir(completion), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(completion, []byte("complete"), 0644); err != nil {
		t.Fatal(err)
	}

	fake := servicectltest.New("TestUploaderService")
	if err := Uninstall(context.Background(), fake, true); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(appDir); !os.IsNotExist(err) {
		t.Errorf("config dir not removed: %v", err)
	}
	if _, err := os.Stat(completion); !os.IsNotExist(err) {
		t.Errorf("completion not removed: %v", err)
	}
}
