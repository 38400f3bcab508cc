package pakbus

import (
	"fmt"
	"net"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"
)

// TCPLink is a Link backed by a plain (or SOCKS-proxied) TCP connection,
// the transport most PakBus IP dataloggers and NL-series interfaces expose
// (spec §6 "tcp:host:port").
type TCPLink struct {
	addr      string
	proxyURL  string
	timeout   time.Duration
	conn      net.Conn
}

// NewTCPLink builds a TCPLink for addr ("host:port"). If proxyURL is
// non-empty it is used as a SOCKS5 dialer (e.g. "socks5://127.0.0.1:1080"),
// mirroring the teacher's preference for a pluggable dialer over a bespoke
// proxy client.
func NewTCPLink(addr, proxyURL string) *TCPLink {
	return &TCPLink{addr: addr, proxyURL: proxyURL, timeout: DefaultTimeout}
}

func (l *TCPLink) Open() error {
	if l.proxyURL != "" {
		u, err := url.Parse(l.proxyURL)
		if err != nil {
			return fmt.Errorf("pakbus: bad proxy url %q: %w", l.proxyURL, err)
		}
		dialer, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return fmt.Errorf("pakbus: building proxy dialer: %w", err)
		}
		conn, err := dialer.Dial("tcp", l.addr)
		if err != nil {
			return err
		}
		l.conn = conn
		log.WithFields(log.Fields{"addr": l.addr, "proxy": l.proxyURL}).Debug("pakbus: tcp link opened via proxy")
		return nil
	}
	conn, err := net.DialTimeout("tcp", l.addr, l.timeout)
	if err != nil {
		return err
	}
	l.conn = conn
	log.WithField("addr", l.addr).Debug("pakbus: tcp link opened")
	return nil
}

func (l *TCPLink) Close() error {
	if l.conn == nil {
		return nil
	}
	err := l.conn.Close()
	l.conn = nil
	return err
}

// Read returns up to n bytes read before the configured deadline elapses.
// A timeout that yields zero bytes is reported as (nil, nil) -- "no packet
// yet" -- matching the spec's non-fatal read-timeout contract; any other
// I/O error is returned as-is.
func (l *TCPLink) Read(n int) ([]byte, error) {
	if l.conn == nil {
		return nil, newError(KindNoDevice, "tcp link not open")
	}
	_ = l.conn.SetReadDeadline(time.Now().Add(l.timeout))
	buf := make([]byte, n)
	read, err := l.conn.Read(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, nil
		}
		return nil, err
	}
	return buf[:read], nil
}

func (l *TCPLink) Write(p []byte) error {
	if l.conn == nil {
		return newError(KindNoDevice, "tcp link not open")
	}
	_ = l.conn.SetWriteDeadline(time.Now().Add(l.timeout))
	_, err := l.conn.Write(p)
	return err
}

func (l *TCPLink) SetTimeout(d time.Duration) { l.timeout = d }
func (l *TCPLink) Timeout() time.Duration     { return l.timeout }
func (l *TCPLink) String() string             { return fmt.Sprintf("tcp:%s", l.addr) }
