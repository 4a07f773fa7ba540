package system

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// fakeDialer answers after a per-host delay, refuses hosts in refuse and
// hangs on unknown hosts until the dial context ends.
type fakeDialer struct {
	delays map[string]time.Duration
	refuse map[string]bool
	calls  atomic.Int32
}

func (d *fakeDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	d.calls.Add(1)
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}
	if network != "tcp" || port != "53" {
		return nil, fmt.Errorf("unexpected dial %s %s", network, address)
	}
	if d.refuse[host] {
		return nil, errors.New("connection refused")
	}
	delay, ok := d.delays[host]
	if !ok {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	select {
	case <-time.After(delay):
		return pipeConn(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// barrierDialer only connects once n dials are in flight at the same time.
type barrierDialer struct {
	n       int32
	arrived atomic.Int32
	all     chan struct{}
	once    sync.Once
}

func (d *barrierDialer) DialContext(ctx context.Context, _, _ string) (net.Conn, error) {
	if d.arrived.Add(1) == d.n {
		d.once.Do(func() { close(d.all) })
	}
	select {
	case <-d.all:
		return pipeConn(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func pipeConn() net.Conn {
	c, other := net.Pipe()
	_ = other.Close()
	return c
}

func serverOrder(results []DNSResult) []string {
	var out []string
	for _, r := range results {
		out = append(out, r.Server)
	}
	return out
}

func TestScanDNS_FastestFirst(t *testing.T) {
	d := &fakeDialer{
		delays: map[string]time.Duration{
			"8.8.8.8": 120 * time.Millisecond,
			"1.1.1.1": time.Millisecond,
			"9.9.9.9": 60 * time.Millisecond,
		},
		refuse: map[string]bool{"4.2.2.1": true},
	}
	list := []string{"4.2.2.1", "8.8.8.8", "203.0.113.1", "1.1.1.1", "9.9.9.9"}

	results := ScanDNS(context.Background(), d, list, 400*time.Millisecond)

	assert.Equal(t, []string{"1.1.1.1", "9.9.9.9", "8.8.8.8", "4.2.2.1", "203.0.113.1"}, serverOrder(results))
	assert.EqualValues(t, len(list), d.calls.Load())
	for _, r := range results[:3] {
		assert.True(t, r.OK(), r.Server)
		assert.Positive(t, r.Latency)
	}
	assert.EqualError(t, results[3].Err, "connection refused")
	assert.ErrorIs(t, results[4].Err, context.DeadlineExceeded)
}

func TestScanDNS_DialsConcurrently(t *testing.T) {
	list := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4", "10.0.0.5"}
	d := &barrierDialer{n: int32(len(list)), all: make(chan struct{})}

	results := ScanDNS(context.Background(), d, list, 2*time.Second)

	require.Len(t, results, len(list))
	for _, r := range results {
		assert.True(t, r.OK(), "%s: %v", r.Server, r.Err)
	}
}

func TestScanDNS_Empty(t *testing.T) {
	d := &fakeDialer{}
	assert.Nil(t, ScanDNS(context.Background(), d, nil, time.Second))
	assert.Zero(t, d.calls.Load())
}

func TestScanDNS_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := ScanDNS(ctx, &fakeDialer{}, []string{"1.1.1.1", "8.8.8.8"}, time.Minute)

	require.Len(t, results, 2)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestScanDNSAction_StoresChoice(t *testing.T) {
	choice := &DNSChoice{}
	e := Executor{
		DNSServers: []string{"8.8.8.8", "1.1.1.1", "4.2.2.1"},
		Dialer: &fakeDialer{
			delays: map[string]time.Duration{"8.8.8.8": 50 * time.Millisecond, "1.1.1.1": time.Millisecond},
			refuse: map[string]bool{"4.2.2.1": true},
		},
		DialTimeout: time.Second,
		DNS:         choice,
	}

	rep := e.Execute(context.Background(), Action{ID: "scan-dns", Do: scanDNSAction})

	require.True(t, rep.OK(), rep.Err)
	assert.Equal(t, "scan-dns", rep.Action)
	assert.True(t, strings.HasPrefix(rep.Summary, "fastest DNS: 1.1.1.1 (Cloudflare)"), rep.Summary)
	assert.Contains(t, rep.Summary, "unreachable")
	primary, secondary := choice.Get()
	assert.Equal(t, "1.1.1.1", primary)
	assert.Equal(t, "8.8.8.8", secondary)
}

func TestScanDNSAction_NothingReachable(t *testing.T) {
	choice := &DNSChoice{}
	e := Executor{
		DNSServers: []string{"1.1.1.1"},
		Dialer:     &fakeDialer{refuse: map[string]bool{"1.1.1.1": true}},
		DNS:        choice,
	}

	rep := e.Execute(context.Background(), Action{ID: "scan-dns", Do: scanDNSAction})

	assert.False(t, rep.OK())
	assert.EqualError(t, rep.Err, "no DNS server reachable")
	primary, _ := choice.Get()
	assert.Empty(t, primary)
}

func TestSetDNSAction_RewritesResolvConf(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolv.conf")
	require.NoError(t, os.WriteFile(path, []byte("search lan\nnameserver 192.168.1.1\noptions edns0\n"), 0o644))
	choice := &DNSChoice{}
	choice.Set("1.1.1.1", "8.8.8.8")
	e := Executor{GOOS: "linux", ResolvConf: path, DNS: choice}

	rep := e.Execute(context.Background(), Action{ID: "set-dns", Do: setDNSAction})

	require.True(t, rep.OK(), rep.Err)
	assert.Equal(t, "DNS set to 1.1.1.1, 8.8.8.8", rep.Summary)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "nameserver 1.1.1.1\nnameserver 8.8.8.8\nsearch lan\noptions edns0\n", string(data))

	rep = e.Execute(context.Background(), Action{ID: "current-dns", Do: currentDNSAction})
	require.True(t, rep.OK(), rep.Err)
	assert.Equal(t, "current DNS: 1.1.1.1, 8.8.8.8", rep.Summary)
}

func TestSetDNSAction_NeedsScan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolv.conf")
	original := "nameserver 192.168.1.1\n"
	require.NoError(t, os.WriteFile(path, []byte(original), 0o644))

	for _, e := range []Executor{
		{GOOS: "linux", ResolvConf: path},
		{GOOS: "linux", ResolvConf: path, DNS: &DNSChoice{}},
	} {
		rep := e.Execute(context.Background(), Action{ID: "set-dns", Do: setDNSAction})
		assert.False(t, rep.OK())
		assert.Equal(t, "run the DNS scan first", rep.Summary)
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, string(data))
}

func TestCurrentDNSAction(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resolv.conf")
	require.NoError(t, os.WriteFile(path, []byte("# generated\nnameserver 192.168.1.1\nnameserver 10.0.0.1\nsearch lan\n"), 0o644))
	a := Action{ID: "current-dns", Do: currentDNSAction}

	rep := Executor{GOOS: "linux", ResolvConf: path}.Execute(context.Background(), a)
	require.True(t, rep.OK(), rep.Err)
	assert.Equal(t, "current DNS: 192.168.1.1, 10.0.0.1", rep.Summary)

	empty := filepath.Join(dir, "empty.conf")
	require.NoError(t, os.WriteFile(empty, []byte("search lan\n"), 0o644))
	rep = Executor{GOOS: "darwin", ResolvConf: empty}.Execute(context.Background(), a)
	assert.True(t, rep.OK())
	assert.Equal(t, "no DNS servers configured", rep.Summary)

	rep = Executor{GOOS: "linux", ResolvConf: filepath.Join(dir, "missing")}.Execute(context.Background(), a)
	assert.False(t, rep.OK())
	assert.ErrorIs(t, rep.Err, os.ErrNotExist)
}

func TestWriteResolvConf_CreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolv.conf")

	require.NoError(t, WriteResolvConf(path, "9.9.9.9", ""))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "nameserver 9.9.9.9\n", string(data))
}

func TestWriteResolvConf_KeepsOtherLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolv.conf")
	octet := rapid.IntRange(1, 254)
	addr := rapid.Custom(func(t *rapid.T) string {
		return fmt.Sprintf("%d.%d.%d.%d", octet.Draw(t, "a"), octet.Draw(t, "b"), octet.Draw(t, "c"), octet.Draw(t, "d"))
	})
	other := rapid.SampledFrom([]string{"search lan", "options edns0 trust-ad", "# managed by hand", "domain example.com"})

	rapid.Check(t, func(rt *rapid.T) {
		before := rapid.SliceOfN(addr, 0, 3).Draw(rt, "before")
		kept := rapid.SliceOfN(other, 0, 4).Draw(rt, "kept")
		want := rapid.SliceOfN(addr, 1, 2).Draw(rt, "want")

		var b strings.Builder
		for i, line := range kept {
			if i < len(before) {
				b.WriteString("nameserver " + before[i] + "\n")
			}
			b.WriteString(line + "\n")
		}
		if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
			rt.Fatal(err)
		}

		if err := WriteResolvConf(path, want...); err != nil {
			rt.Fatal(err)
		}

		f, err := os.Open(path)
		if err != nil {
			rt.Fatal(err)
		}
		got, err := ParseResolvConf(f)
		_ = f.Close()
		if err != nil {
			rt.Fatal(err)
		}
		assert.Equal(rt, want, got)

		data, err := os.ReadFile(path)
		if err != nil {
			rt.Fatal(err)
		}
		lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
		assert.Equal(rt, strings.Join(kept, "\n"), strings.Join(lines[len(want):], "\n"))
	})
}

func TestParseIPConfig(t *testing.T) {
	out := strings.Join([]string{
		"Windows IP Configuration",
		"",
		"Ethernet adapter Ethernet:",
		"",
		"   Connection-specific DNS Suffix  . : lan",
		"   DNS Servers . . . . . . . . . . . : 192.168.1.1",
		"                                       8.8.8.8",
		"   NetBIOS over Tcpip. . . . . . . . : Enabled",
		"",
		"Wireless LAN adapter Wi-Fi:",
		"   DNS Servers . . . . . . . . . . . : 10.0.0.1",
	}, "\r\n")

	assert.Equal(t, []string{"192.168.1.1", "8.8.8.8"}, ParseIPConfig(out))
	assert.Nil(t, ParseIPConfig("Windows IP Configuration\r\n"))
}

func TestParseActiveInterface(t *testing.T) {
	out := `
Admin State    State          Type             Interface Name
-------------------------------------------------------------------------
Enabled        Disconnected   Dedicated        Wi-Fi
Enabled        Connected      Dedicated        Ethernet 2
`
	assert.Equal(t, "Ethernet 2", ParseActiveInterface(out))
	assert.Empty(t, ParseActiveInterface("Enabled        Disconnected   Dedicated        Wi-Fi\n"))
}

func TestProvider(t *testing.T) {
	assert.Equal(t, "Cloudflare", Provider("1.1.1.1"))
	assert.Equal(t, "Quad9", Provider("149.112.112.112"))
	assert.Equal(t, "unknown", Provider("192.0.2.1"))
}
