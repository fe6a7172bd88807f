package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"uploadsvc/internal/app"
)

func init() {
	completionCmd.Flags().BoolP("install", "i", false, "Automatically install completion script")
	RootCmd.AddCommand(completionCmd)
}

var completionCmd = &cobra.Command{
	Use:                   "completion [bash|zsh|fish|powershell]",
	Short:                 "Generate shell completion script",
	DisableFlagsInUseLine: true,
	ValidArgs:             app.Shells,
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE:                  runCompletion,
}

// generators write the completion script for each shell.
var generators = map[string]func(*cobra.Command, io.Writer) error{
	"bash":       (*cobra.Command).GenBashCompletion,
	"zsh":        (*cobra.Command).GenZshCompletion,
	"fish":       func(c *cobra.Command, w io.Writer) error { return c.GenFishCompletion(w, true) },
	"powershell": (*cobra.Command).GenPowerShellCompletionWithDesc,
}

func runCompletion(cmd *cobra.Command, args []string) error {
	shell := args[0]
	install, _ := cmd.Flags().GetBool("install")
	gen := generators[shell]

	if !install {
		return gen(RootCmd, os.Stdout)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home dir: %w", err)
	}
	target := app.CompletionPath(shell, home)
	if err := installToFile(target, gen); err != nil {
		return err
	}

	fmt.Printf("✓ Completion installed to: %s\n", target)
	if msg := postInstallMessage(shell); msg != "" {
		fmt.Println(msg)
	}
	return nil
}

func installToFile(path string, gen func(*cobra.Command, io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("mkdir failed: %w", err)
	}
	var buf bytes.Buffer
	if err := gen(RootCmd, &buf); err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write file failed: %w", err)
	}
	return nil
}

func postInstallMessage(shell string) string {
	switch shell {
	case "bash":
		return "Please restart your shell to apply changes."
	case "zsh":
		if runtime.GOOS == "windows" {
			return "Please restart your shell."
		}
		return `Please restart your shell.
Note: Ensure ~/.zfunc is in your fpath in .zshrc:
      fpath+=~/.zfunc; autoload -U compinit; compinit`
	case "powershell":
		return "To enable, add the file path to your $PROFILE."
	}
	return ""
}
