// Package cmdlog traces instrument traffic for interactive use.
package cmdlog

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gotmc/afg"
	"github.com/sirupsen/logrus"
)

func isAscii(s string) bool {
	return !strings.ContainsFunc(s, func(r rune) bool {
		switch {
		case r < 7:
			return true
		case r > 6 && r < 14:
			return false
		case r > 13 && r < 32:
			return true
		case r > 127:
			return true
		}
		return false
	})
}

var (
	CmdStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	RespStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("35"))
	ErrStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Transport logs every command and response passing through an
// afg.Transport at info level.
type Transport struct {
	next afg.Transport
	log  logrus.FieldLogger
}

// Wrap returns t with tracing to log.
func Wrap(t afg.Transport, log logrus.FieldLogger) *Transport {
	return &Transport{next: t, log: log}
}

func (t *Transport) Write(cmd string) error {
	err := t.next.Write(cmd)
	if err != nil {
		t.log.Errorf("%s: %s", CmdStyle.Render(abbrev(cmd)), ErrStyle.Render(err.Error()))
		return err
	}
	t.log.Infof("%s", CmdStyle.Render(abbrev(cmd)))
	return nil
}

func (t *Transport) Query(cmd string) (string, error) {
	resp, err := t.next.Query(cmd)
	q := CmdStyle.Render(abbrev(cmd))
	if err != nil {
		t.log.Errorf("%s: %s", q, ErrStyle.Render(err.Error()))
		return resp, err
	}
	t.log.Infof("%s %s", q, RespStyle.Render(Format(resp)))
	return resp, nil
}

func (t *Transport) Close() error {
	return t.next.Close()
}

// Format renders a response for display: quoted text for ASCII, hex
// otherwise.
func Format(resp string) string {
	a := strings.TrimRight(resp, "\r\n")
	switch {
	case len(a) == 0:
		return "<no response>"
	case isAscii(a):
		return fmt.Sprintf("[%d] %q", len(a), a)
	case len(a) < 32:
		return fmt.Sprintf("[%d] %q (% 2x)", len(a), a, []byte(a))
	}
	return fmt.Sprintf("[%d] % 2x", len(a), []byte(a))
}

// abbrev shortens long commands, such as waveform uploads, for display.
func abbrev(cmd string) string {
	const maxLen = 80
	if len(cmd) <= maxLen {
		return cmd
	}
	return fmt.Sprintf("%s... (%d bytes)", cmd[:maxLen], len(cmd))
}
