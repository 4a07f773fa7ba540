// Package system wraps the network and housekeeping commands of the
// system tool: DNS flush, IP renew, network stack and proxy reset, DNS
// server scan and switch, hosts file check and temp cleanup.
package system

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Action is one entry of the system tool. Shell actions list Commands,
// the others implement Do.
type Action struct {
	ID       string
	Title    string
	Commands []string
	Do       func(ctx context.Context, e Executor) Report
	// Confirm marks destructive actions.
	Confirm bool
}

// Report is the outcome of an action.
type Report struct {
	Action  string
	Steps   []StepResult
	Summary string
	Err     error
	// At is when the action finished.
	At time.Time
}

// OK reports whether every step succeeded.
func (r Report) OK() bool {
	if r.Err != nil {
		return false
	}
	for _, s := range r.Steps {
		if !s.OK() {
			return false
		}
	}
	return true
}

// Executor runs actions.
type Executor struct {
	Runner    Runner
	TempDir   string
	HostsPath string
	// GOOS selects the platform commands; empty means runtime.GOOS.
	GOOS       string
	ResolvConf string
	// DNSServers are the scan candidates; empty means PublicDNS.
	DNSServers  []string
	Dialer      Dialer
	DialTimeout time.Duration
	DNS         *DNSChoice
}

func (e Executor) goos() string {
	if e.GOOS != "" {
		return e.GOOS
	}
	return runtime.GOOS
}

// Execute runs every command of a shell action, continuing after
// failures, or delegates to Do.
func (e Executor) Execute(ctx context.Context, a Action) Report {
	if a.Do != nil {
		r := a.Do(ctx, e)
		r.Action = a.ID
		return r
	}
	rep := Report{Action: a.ID}
	failed := 0
	for _, c := range a.Commands {
		step := e.Runner.Run(ctx, c)
		if !step.OK() {
			failed++
		}
		rep.Steps = append(rep.Steps, step)
	}
	if failed == 0 {
		rep.Summary = fmt.Sprintf("%s: done", a.Title)
	} else {
		rep.Summary = fmt.Sprintf("%s: %d of %d command(s) failed (administrator rights may be required)", a.Title, failed, len(a.Commands))
	}
	return rep
}

var shellCommands = map[string]map[string][]string{
	"flush-dns": {
		"windows": {"ipconfig /flushdns"},
		"darwin":  {"dscacheutil -flushcache", "killall -HUP mDNSResponder"},
		"linux":   {"resolvectl flush-caches"},
	},
	"renew-ip": {
		"windows": {"ipconfig /release", "ipconfig /renew"},
		"linux":   {"dhclient -r", "dhclient"},
	},
	"reset-network": {
		"windows": {"netsh int ip reset", "netsh winsock reset"},
		"linux":   {"nmcli networking off", "nmcli networking on"},
	},
	"reset-proxy": {
		"windows": {
			`reg delete 'HKCU\Software\Microsoft\Windows\CurrentVersion\Internet Settings' /v ProxyEnable /f`,
			`reg delete 'HKCU\Software\Microsoft\Windows\CurrentVersion\Internet Settings' /v ProxyServer /f`,
			`reg add 'HKCU\Software\Microsoft\Windows\CurrentVersion\Internet Settings' /v ProxyEnable /t REG_DWORD /d 0 /f`,
			"netsh winhttp reset proxy",
		},
		"darwin": {
			"networksetup -setwebproxystate Wi-Fi off",
			"networksetup -setsecurewebproxystate Wi-Fi off",
		},
		"linux": {"gsettings set org.gnome.system.proxy mode 'none'"},
	},
}

// Actions returns the actions available on goos, in menu order.
func Actions(goos string) []Action {
	shell := []struct{ id, title string }{
		{"flush-dns", "Flush DNS cache"},
		{"renew-ip", "Release and renew IP"},
		{"reset-network", "Reset network stack"},
		{"reset-proxy", "Disable proxy settings"},
	}
	var out []Action
	for _, s := range shell {
		if cmds := shellCommands[s.id][goos]; len(cmds) > 0 {
			out = append(out, Action{ID: s.id, Title: s.title, Commands: cmds})
		}
	}
	out = append(out,
		Action{ID: "current-dns", Title: "Show current DNS servers", Do: currentDNSAction},
		Action{ID: "scan-dns", Title: "Find the fastest DNS server", Do: scanDNSAction},
	)
	if goos == "windows" || goos == "linux" {
		out = append(out, Action{ID: "set-dns", Title: "Use the fastest DNS server", Do: setDNSAction, Confirm: true})
	}
	out = append(out,
		Action{ID: "check-hosts", Title: "Check hosts file", Do: checkHostsAction},
		Action{ID: "clean-temp", Title: "Clean temporary files", Do: cleanTempAction, Confirm: true},
	)
	return out
}

// HostsPath is the hosts file location on goos.
func HostsPath(goos string) string {
	if goos == "windows" {
		return `C:\Windows\System32\drivers\etc\hosts`
	}
	return "/etc/hosts"
}

// ResolvConfPath is where the resolver configuration lives outside Windows.
const ResolvConfPath = "/etc/resolv.conf"

// CheckHosts returns the entries of a hosts file that map something
// other than localhost.
func CheckHosts(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // fixed system path or test fixture
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var suspicious []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.Contains(line, "localhost") || strings.Contains(line, "::1") {
			continue
		}
		suspicious = append(suspicious, line)
	}
	return suspicious, sc.Err()
}

func checkHostsAction(_ context.Context, e Executor) Report {
	entries, err := CheckHosts(e.HostsPath)
	if err != nil {
		return Report{Err: fmt.Errorf("read hosts file: %w", err), Summary: "could not read " + e.HostsPath}
	}
	if len(entries) == 0 {
		return Report{Summary: "hosts file looks clean"}
	}
	return Report{
		Summary: fmt.Sprintf("%d suspicious hosts entr(ies):\n  %s", len(entries), strings.Join(entries, "\n  ")),
	}
}

// CleanTemp removes every entry directly under dir. It keeps going after
// failures and returns them joined.
func CleanTemp(ctx context.Context, dir string) (int, error) {
	if dir == "" {
		return 0, errors.New("temp directory unknown")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	var errs []error
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

func cleanTempAction(ctx context.Context, e Executor) Report {
	removed, err := CleanTemp(ctx, e.TempDir)
	rep := Report{Summary: fmt.Sprintf("removed %d item(s) from %s", removed, e.TempDir)}
	if err != nil {
		rep.Err = err
		rep.Summary += " (some could not be removed)"
	}
	return rep
}
