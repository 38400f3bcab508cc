//go:build linux

package pakbus

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// SerialLink is a Link backed by a raw, non-canonical serial port, the
// transport RS-232/RS-485-wired dataloggers use (spec §6 "serial:/dev/..").
// Baud rate selection and raw-mode termios setup follow the same
// TCGETS/TCSETS ioctl shape the example pack's serial driver uses, narrowed here
// to the handful of POSIX flags PakBus actually needs (8N1, no echo, no
// flow control).
type SerialLink struct {
	path    string
	baud    uint32
	timeout time.Duration
	file    *os.File
}

// NewSerialLink builds a SerialLink for path at baud (e.g. 9600, 115200).
func NewSerialLink(path string, baud uint32) *SerialLink {
	return &SerialLink{path: path, baud: baud, timeout: DefaultTimeout}
}

func (l *SerialLink) Open() error {
	f, err := os.OpenFile(l.path, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return err
	}
	fd := int(f.Fd())

	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		f.Close()
		return fmt.Errorf("pakbus: getting termios for %s: %w", l.path, err)
	}

	rate, ok := baudRates[l.baud]
	if !ok {
		f.Close()
		return newError(KindBadData, "serial: unsupported baud rate %d", l.baud)
	}

	// Raw mode, 8N1, no flow control -- this client does its own framing
	// and never expects the tty driver to interpret control characters.
	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	termios.Cflag &^= unix.CSIZE | unix.PARENB | unix.CBAUD
	termios.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL | rate
	termios.Cc[unix.VMIN] = 0
	termios.Cc[unix.VTIME] = 0
	termios.Ispeed = rate
	termios.Ospeed = rate

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		f.Close()
		return fmt.Errorf("pakbus: setting termios for %s: %w", l.path, err)
	}

	l.file = f
	log.WithFields(log.Fields{"path": l.path, "baud": l.baud}).Debug("pakbus: serial link opened")
	return nil
}

func (l *SerialLink) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Read polls the fd with the configured timeout and returns whatever bytes
// are available; like TCPLink, a timeout with zero bytes is (nil, nil).
func (l *SerialLink) Read(n int) ([]byte, error) {
	if l.file == nil {
		return nil, newError(KindNoDevice, "serial link not open")
	}
	fd := int(l.file.Fd())
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	ready, err := unix.Poll(fds, int(l.timeout/time.Millisecond))
	if err != nil {
		return nil, err
	}
	if ready == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	read, err := l.file.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:read], nil
}

func (l *SerialLink) Write(p []byte) error {
	if l.file == nil {
		return newError(KindNoDevice, "serial link not open")
	}
	_, err := l.file.Write(p)
	return err
}

func (l *SerialLink) SetTimeout(d time.Duration) { l.timeout = d }
func (l *SerialLink) Timeout() time.Duration     { return l.timeout }
func (l *SerialLink) String() string             { return fmt.Sprintf("serial:%s@%d", l.path, l.baud) }

var baudRates = map[uint32]uint32{
	1200:   unix.B1200,
	2400:   unix.B2400,
	4800:   unix.B4800,
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
}
