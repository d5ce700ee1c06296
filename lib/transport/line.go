package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// ErrReadTimeout is returned by Query when no response arrived in time.
var ErrReadTimeout = errors.New("read timeout")

// timeoutReader reports an empty read as ErrReadTimeout. Serial drivers
// return (0, nil) when their read timeout expires.
type timeoutReader struct{ r io.Reader }

func (t timeoutReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n == 0 && err == nil && len(p) > 0 {
		return 0, ErrReadTimeout
	}
	return n, err
}

// Line is a terminator-delimited command transport over a byte stream, as
// spoken by instruments on USB-CDC serial or raw sockets.
type Line struct {
	rwc         io.ReadWriteCloser
	r           *bufio.Reader
	term        byte
	readTimeout time.Duration
}

// NewLine wraps rwc. Commands are terminated, and responses are read up to,
// term.
func NewLine(rwc io.ReadWriteCloser, term byte) *Line {
	return &Line{rwc: rwc, r: bufio.NewReader(timeoutReader{rwc}), term: term}
}

// Write sends cmd with surrounding whitespace replaced by the terminator.
func (l *Line) Write(cmd string) error {
	_, err := fmt.Fprintf(l.rwc, "%s%c", strings.TrimSpace(cmd), l.term)
	return err
}

// Query sends cmd and reads one response line, terminator included.
func (l *Line) Query(cmd string) (string, error) {
	if err := l.Write(cmd); err != nil {
		return "", err
	}
	if d, ok := l.rwc.(interface{ SetReadDeadline(time.Time) error }); ok && l.readTimeout > 0 {
		if err := d.SetReadDeadline(time.Now().Add(l.readTimeout)); err != nil {
			return "", err
		}
	}
	s, err := l.r.ReadString(l.term)
	if err == io.EOF && len(s) > 0 {
		return s, nil
	}
	if errors.Is(err, ErrReadTimeout) {
		return s, fmt.Errorf("waiting for response to %q: %w", strings.TrimSpace(cmd), err)
	}
	return s, err
}

// Close closes the underlying stream.
func (l *Line) Close() error {
	return l.rwc.Close()
}
