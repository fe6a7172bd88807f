package servicectl

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// parseSystemctlShow converts `systemctl show -p LoadState,ActiveState,SubState,MainPID`
// output into a Status.
func parseSystemctlShow(name, out string) Status {
	props := map[string]string{}
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		props[k] = v
	}

	st := Status{Service: name, State: StateUnknown}
	if props["LoadState"] == "not-found" || props["LoadState"] == "" {
		st.State = StateNotInstalled
		return st
	}
	st.Installed = true
	if pid, err := strconv.Atoi(props["MainPID"]); err == nil {
		st.PID = pid
	}
	st.State = systemdState(props["ActiveState"], props["SubState"])
	return st
}

func systemdState(active, sub string) State {
	switch active {
	case "active", "reloading":
		if sub == "exited" {
			return StateStopped
		}
		return StateRunning
	case "activating":
		return StateStartPending
	case "deactivating":
		return StateStopPending
	case "inactive", "failed":
		return StateStopped
	default:
		return StateUnknown
	}
}

// renderUnit produces the systemd unit file for the service.
func renderUnit(opts InstallOptions) string {
	var b strings.Builder
	desc := opts.Description
	if desc == "" {
		desc = opts.DisplayName
	}
	fmt.Fprintf(&b, "[Unit]\nDescription=%s\nAfter=network.target\n\n", desc)
	b.WriteString("[Service]\nType=simple\n")
	fmt.Fprintf(&b, "ExecStart=%s\n", execLine(opts.Executable, opts.Args))
	if opts.Username != "" {
		fmt.Fprintf(&b, "User=%s\n", opts.Username)
	}
	b.WriteString("Restart=on-failure\nRestartSec=5s\nKillMode=mixed\n\n")
	b.WriteString("[Install]\nWantedBy=multi-user.target\n")
	return b.String()
}

func execLine(exe string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	for _, a := range append([]string{exe}, args...) {
		if strings.ContainsAny(a, " \t\"") {
			a = strconv.Quote(a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}
