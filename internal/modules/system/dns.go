package system

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc/iter"
	"mvdan.cc/sh/v3/syntax"
)

// DNSServer is a public resolver offered by the DNS scan.
type DNSServer struct {
	Addr     string
	Provider string
}

var PublicDNS = []DNSServer{
	{"8.8.8.8", "Google"},
	{"8.8.4.4", "Google"},
	{"1.1.1.1", "Cloudflare"},
	{"1.0.0.1", "Cloudflare"},
	{"9.9.9.9", "Quad9"},
	{"149.112.112.112", "Quad9"},
	{"208.67.222.222", "OpenDNS"},
	{"208.67.220.220", "OpenDNS"},
	{"208.67.222.123", "OpenDNS FamilyShield"},
	{"208.67.220.123", "OpenDNS FamilyShield"},
	{"8.26.56.26", "Comodo Secure DNS"},
	{"8.20.247.20", "Comodo Secure DNS"},
	{"4.2.2.1", "Level3"},
	{"4.2.2.2", "Level3"},
	{"114.114.114.114", "114DNS"},
	{"223.5.5.5", "AliDNS"},
	{"223.6.6.6", "AliDNS"},
	{"180.76.76.76", "Baidu DNS"},
	{"119.29.29.29", "DNSPod"},
	{"182.254.116.116", "Tencent DNS"},
	{"119.28.28.28", "Tencent DNS"},
	{"210.140.92.20", "NTT Communications"},
}

// Provider names the operator of addr, or "unknown".
func Provider(addr string) string {
	for _, s := range PublicDNS {
		if s.Addr == addr {
			return s.Provider
		}
	}
	return "unknown"
}

// Dialer is satisfied by *net.Dialer.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// DNSResult is the measured TCP connect time to one resolver.
type DNSResult struct {
	Server  string
	Latency time.Duration
	Err     error
}

func (p DNSResult) OK() bool { return p.Err == nil }

const (
	defaultDialTimeout = time.Second
	maxDials           = 32
)

// ScanDNS dials port 53 of every server concurrently, each under its own
// timeout, and returns the results fastest first. Unreachable servers sort
// last in input order.
func ScanDNS(ctx context.Context, d Dialer, servers []string, timeout time.Duration) []DNSResult {
	if len(servers) == 0 {
		return nil
	}
	if d == nil {
		d = &net.Dialer{}
	}
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}

	mapper := iter.Mapper[string, DNSResult]{MaxGoroutines: min(len(servers), maxDials)}
	results := mapper.Map(servers, func(server *string) DNSResult {
		return dialDNS(ctx, d, *server, timeout)
	})

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.OK() != b.OK() {
			return a.OK()
		}
		return a.OK() && a.Latency < b.Latency
	})
	return results
}

func dialDNS(ctx context.Context, d Dialer, server string, timeout time.Duration) DNSResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(server, "53"))
	if err != nil {
		return DNSResult{Server: server, Err: err}
	}
	latency := time.Since(start)
	_ = conn.Close()
	return DNSResult{Server: server, Latency: latency}
}

// DNSChoice holds the servers picked by the last scan until set-dns
// applies them. It is shared by the actions of one panel.
type DNSChoice struct {
	mu        sync.Mutex
	primary   string
	secondary string
}

func (c *DNSChoice) Set(primary, secondary string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.primary, c.secondary = primary, secondary
}

func (c *DNSChoice) Get() (primary, secondary string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.primary, c.secondary
}

// ParseResolvConf returns the nameserver entries of a resolv.conf.
func ParseResolvConf(r io.Reader) ([]string, error) {
	var servers []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) >= 2 && fields[0] == "nameserver" {
			servers = append(servers, fields[1])
		}
	}
	return servers, sc.Err()
}

var ipconfigDNS = regexp.MustCompile(`^\s*DNS Servers[ .]*:\s*(\S+)`)

// ParseIPConfig extracts the DNS servers of the first adapter listing
// them in `ipconfig /all` output. Additional servers follow on their own
// indented lines.
func ParseIPConfig(out string) []string {
	var servers []string
	lines := strings.Split(strings.ReplaceAll(out, "\r\n", "\n"), "\n")
	for i, line := range lines {
		m := ipconfigDNS.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		servers = append(servers, m[1])
		for _, next := range lines[i+1:] {
			addr := strings.TrimSpace(next)
			if net.ParseIP(addr) == nil {
				break
			}
			servers = append(servers, addr)
		}
		return servers
	}
	return nil
}

// ParseActiveInterface returns the first connected interface name from
// `netsh interface show interface` output.
func ParseActiveInterface(out string) string {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 4 && fields[1] == "Connected" {
			return strings.Join(fields[3:], " ")
		}
	}
	return ""
}

// WriteResolvConf replaces the nameserver lines of path, keeping search
// and option lines. Empty servers are skipped.
func WriteResolvConf(path string, servers ...string) error {
	var kept []string
	if f, err := os.Open(path); err == nil { //nolint:gosec // fixed system path or test fixture
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			if fields := strings.Fields(sc.Text()); len(fields) > 0 && fields[0] == "nameserver" {
				continue
			}
			kept = append(kept, sc.Text())
		}
		_ = f.Close()
		if err := sc.Err(); err != nil {
			return err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	var b strings.Builder
	for _, s := range servers {
		if s != "" {
			fmt.Fprintf(&b, "nameserver %s\n", s)
		}
	}
	for _, line := range kept {
		b.WriteString(line + "\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0o644) //nolint:gosec // resolv.conf is world readable
}

func currentDNSAction(ctx context.Context, e Executor) Report {
	var (
		servers []string
		rep     Report
	)
	if e.goos() == "windows" {
		step := e.Runner.Run(ctx, "ipconfig /all")
		if !step.OK() {
			rep.Steps = append(rep.Steps, step)
			rep.Summary = "could not read adapter configuration"
			return rep
		}
		servers = ParseIPConfig(step.Output)
	} else {
		f, err := os.Open(e.ResolvConf) //nolint:gosec // fixed system path or test fixture
		if err != nil {
			return Report{Err: fmt.Errorf("read resolver config: %w", err), Summary: "could not read " + e.ResolvConf}
		}
		defer f.Close()
		if servers, err = ParseResolvConf(f); err != nil {
			return Report{Err: fmt.Errorf("read resolver config: %w", err), Summary: "could not read " + e.ResolvConf}
		}
	}
	if len(servers) == 0 {
		rep.Summary = "no DNS servers configured"
		return rep
	}
	rep.Summary = "current DNS: " + strings.Join(servers, ", ")
	return rep
}

func scanDNSAction(ctx context.Context, e Executor) Report {
	servers := e.DNSServers
	if len(servers) == 0 {
		for _, s := range PublicDNS {
			servers = append(servers, s.Addr)
		}
	}
	results := ScanDNS(ctx, e.Dialer, servers, e.DialTimeout)

	var reachable []string
	var b strings.Builder
	for _, p := range results {
		if p.OK() {
			reachable = append(reachable, p.Server)
			fmt.Fprintf(&b, "\n  %-16s %-22s %s", p.Server, Provider(p.Server), p.Latency.Round(time.Millisecond))
		} else {
			fmt.Fprintf(&b, "\n  %-16s %-22s unreachable", p.Server, Provider(p.Server))
		}
	}
	if len(reachable) == 0 {
		return Report{Err: errors.New("no DNS server reachable"), Summary: "no DNS server answered" + b.String()}
	}

	primary, secondary := reachable[0], ""
	if len(reachable) > 1 {
		secondary = reachable[1]
	}
	if e.DNS != nil {
		e.DNS.Set(primary, secondary)
	}
	return Report{Summary: fmt.Sprintf("fastest DNS: %s (%s)%s", primary, Provider(primary), b.String())}
}

func setDNSAction(ctx context.Context, e Executor) Report {
	var primary, secondary string
	if e.DNS != nil {
		primary, secondary = e.DNS.Get()
	}
	if primary == "" {
		return Report{Err: errors.New("no DNS server chosen"), Summary: "run the DNS scan first"}
	}

	if e.goos() != "windows" {
		if err := WriteResolvConf(e.ResolvConf, primary, secondary); err != nil {
			return Report{Err: err, Summary: "could not write " + e.ResolvConf + " (administrator rights may be required)"}
		}
		return Report{Summary: "DNS set to " + joinServers(primary, secondary)}
	}

	rep := Report{}
	show := e.Runner.Run(ctx, "netsh interface show interface")
	rep.Steps = append(rep.Steps, show)
	iface := ParseActiveInterface(show.Output)
	if iface == "" {
		rep.Err = errors.New("no connected network interface")
		rep.Summary = "no connected network interface found"
		return rep
	}
	name, err := syntax.Quote("name="+iface, syntax.LangPOSIX)
	if err != nil {
		rep.Err = err
		return rep
	}
	cmds := []string{fmt.Sprintf("netsh interface ip set dns %s static %s primary", name, primary)}
	if secondary != "" {
		cmds = append(cmds, fmt.Sprintf("netsh interface ip add dns %s addr=%s index=2", name, secondary))
	}
	for _, c := range cmds {
		step := e.Runner.Run(ctx, c)
		rep.Steps = append(rep.Steps, step)
		if !step.OK() {
			rep.Summary = "setting DNS failed (administrator rights may be required)"
			return rep
		}
	}
	rep.Summary = fmt.Sprintf("DNS on %s set to %s", iface, joinServers(primary, secondary))
	return rep
}

func joinServers(primary, secondary string) string {
	if secondary == "" {
		return primary
	}
	return primary + ", " + secondary
}
