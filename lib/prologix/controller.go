// Copyright (c) 2020–2024 The afg developers. All rights reserved.
// Project site: https://github.com/gotmc/afg
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package prologix reaches a GPIB instrument through a Prologix (or AR488)
// USB-to-GPIB controller. A Controller satisfies afg.Transport.
package prologix

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Controller models a GPIB controller-in-charge addressing one instrument.
type Controller struct {
	rw               io.ReadWriter
	r                *bufio.Reader
	primaryAddr      int
	hasSecondaryAddr bool
	secondaryAddr    int
	eos              GpibTerm
	usbTerm          byte
	eotChar          byte
	readTimeout      time.Duration
	writeDelay       time.Duration
	log              logrus.FieldLogger
	ar488            bool // compatibility with Arduino AR488 - see WithAR488 documentation for details.
}

// ControllerOption applies an option to the controller.
type ControllerOption func(*Controller)

// NewController configures the Prologix controller on rw to address the
// instrument at the given primary GPIB address. Enable clear to send the
// Selected Device Clear (SDC) message once configured. If rw is also an
// io.Closer, Close closes it.
func NewController(
	rw io.ReadWriter,
	addr int,
	clear bool,
	opts ...ControllerOption,
) (*Controller, error) {
	c := Controller{
		rw:          rw,
		r:           bufio.NewReader(rw),
		primaryAddr: addr,
		eos:         AppendLF,
		usbTerm:     '\n',
		eotChar:     '\n',
		readTimeout: 500 * time.Millisecond,
	}

	// Apply options using the functional option pattern.
	for _, opt := range opts {
		opt(&c)
	}
	if c.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		c.log = l
	}

	if !isPrimaryAddressValid(c.primaryAddr) {
		return nil, fmt.Errorf("invalid primary address %d (must be 0-30)", c.primaryAddr)
	}
	addrCmd := fmt.Sprintf("addr %d", c.primaryAddr)
	if c.hasSecondaryAddr {
		if !isSecondaryAddressValid(c.secondaryAddr) {
			return nil, fmt.Errorf("invalid secondary address %d (must be 96-126)", c.secondaryAddr)
		}
		addrCmd = fmt.Sprintf("addr %d %d", c.primaryAddr, c.secondaryAddr)
	}
	cmds := []string{}
	if !c.ar488 {
		cmds = append(cmds,
			"verbose 0", // turn off verbosity if on
			"savecfg 0", // don't wear the EEPROM while configuring
		)
	}
	cmds = append(cmds,
		addrCmd,
		"mode 1", // controller mode
		"auto 0", // no read-after-write; queries send ++read explicitly
		"eoi 1",  // assert EOI with the last byte
		fmt.Sprintf("eos %d", c.eos),
		fmt.Sprintf("read_tmo_ms %d", c.readTimeout.Milliseconds()),
		fmt.Sprintf("eot_char %d", c.eotChar),
		"eot_enable 1",
	)
	if !c.ar488 {
		cmds = append(cmds, "savecfg 1") // persist the configuration
	}
	if clear {
		cmds = append(cmds, "clr")
	}
	for _, cmd := range cmds {
		if err := c.CommandController(cmd); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

// WithSecondaryAddress sets a secondary address, which must be in the range of
// 96 and 126, inclusive.
func WithSecondaryAddress(addr int) ControllerOption {
	return func(c *Controller) {
		c.hasSecondaryAddr = true
		c.secondaryAddr = addr
	}
}

// WithGPIBTermination sets the terminator the controller appends to data
// sent over GPIB.
func WithGPIBTermination(term GpibTerm) ControllerOption {
	return func(c *Controller) { c.eos = term }
}

// WithReadTimeout sets how long the controller waits for the instrument
// while reading. The controller accepts 1 ms to 3 s.
func WithReadTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) { c.readTimeout = d }
}

// WithWriteDelay pauses before every write to the controller. Some
// instruments drop commands that arrive back to back.
func WithWriteDelay(d time.Duration) ControllerOption {
	return func(c *Controller) { c.writeDelay = d }
}

// WithLogger logs controller traffic at debug level.
func WithLogger(l logrus.FieldLogger) ControllerOption {
	return func(c *Controller) { c.log = l }
}

// WithAR488 slightly alters the init commands, for compatiblity with the
// Arduino-based AR488. Specifically, we do not emit 'verbose 0', nor do
// we toggle savecfg.
func WithAR488() ControllerOption { return func(c *Controller) { c.ar488 = true } }

func (c *Controller) send(b []byte) error {
	if c.writeDelay > 0 {
		time.Sleep(c.writeDelay)
	}
	_, err := c.rw.Write(b)
	return err
}

// Write sends a command to the instrument. Characters the controller would
// otherwise consume (CR, LF, ESC and '+') are escaped.
func (c *Controller) Write(cmd string) error {
	data := escape(strings.TrimSpace(cmd)) + string(c.usbTerm)
	c.log.WithField("data", data).Debug("prologix write")
	return c.send([]byte(data))
}

// Query sends a command to the instrument and reads one response,
// terminated by the EOT character. A response cut short by the end of
// the stream is returned without error.
func (c *Controller) Query(cmd string) (string, error) {
	if err := c.Write(cmd); err != nil {
		return "", fmt.Errorf("error writing command: %w", err)
	}
	if err := c.CommandController("read eoi"); err != nil {
		return "", fmt.Errorf("error sending `++read eoi` command: %w", err)
	}
	s, err := c.r.ReadString(c.eotChar)
	if err == io.EOF && len(s) > 0 {
		err = nil
	}
	c.log.WithField("resp", s).Debug("prologix read")
	return s, err
}

// QueryController sends the given command to the Prologix controller and
// returns its response.
func (c *Controller) QueryController(cmd string) (string, error) {
	if err := c.CommandController(cmd); err != nil {
		return "", err
	}
	s, err := c.r.ReadString(c.eotChar)
	c.log.WithField("resp", s).Debug("prologix controller read")
	return strings.TrimSpace(s), err
}

// CommandController sends the given command to the Prologix controller. To
// indicate this is a command for the Prologix controller, thereby not
// transmitting to the instrument over GPIB, two plus signs `++` are prepended.
func (c *Controller) CommandController(cmd string) error {
	cmd = fmt.Sprintf("++%s%c", strings.ToLower(strings.TrimSpace(cmd)), c.usbTerm)
	c.log.WithField("cmd", cmd).Debug("prologix controller command")
	return c.send([]byte(cmd))
}

// Version returns the controller's firmware version string.
func (c *Controller) Version() (string, error) {
	return c.QueryController("ver")
}

// Local returns the instrument to front panel control.
func (c *Controller) Local() error {
	return c.CommandController("loc")
}

// Close returns the instrument to front panel control and closes the
// underlying connection if it can be closed.
func (c *Controller) Close() error {
	err := c.Local()
	if cl, ok := c.rw.(io.Closer); ok {
		err = multierr.Append(err, cl.Close())
	}
	return err
}

func escape(s string) string {
	if !strings.ContainsAny(s, "\r\n\x1b+") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\r', '\n', 0x1b, '+':
			b.WriteByte(0x1b)
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// GpibTerm provides the type for the available GPIB terminators.
type GpibTerm int

// Available GPIB terminators for the Prologix Controller.
const (
	AppendCRLF GpibTerm = iota
	AppendCR
	AppendLF
	AppendNothing
)

var gpibTermDesc = map[GpibTerm]string{
	AppendCRLF:    `Append CR+LF (\r\n) to instrument commands`,
	AppendCR:      `Append CR (\r) to instrument commands`,
	AppendLF:      `Append LF (\n) to instrument commands`,
	AppendNothing: `Do not append anything to instrument commands`,
}

func (term GpibTerm) String() string {
	return gpibTermDesc[term]
}

// isPrimaryAddressValid checks that the primary GPIB address is between 0 and
// 30, inclusive.
func isPrimaryAddressValid(addr int) bool {
	return addr >= 0 && addr <= 30
}

// isSecondaryAddressValid checks that the secondary GPIB address is between 96
// and 126, inclusive.
func isSecondaryAddressValid(addr int) bool {
	return addr >= 96 && addr <= 126
}
