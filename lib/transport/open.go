// Package transport opens instrument connections named by VISA-style
// resource strings.
package transport

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gotmc/afg"
	"github.com/gotmc/afg/lib/prologix"
	"github.com/sirupsen/logrus"
	"github.com/soypat/cereal"
	"go.bug.st/serial"
)

// Kind is the connection type of a resource.
type Kind int

// Resource kinds.
const (
	Serial Kind = iota
	Socket
	GPIB
)

var kindDesc = map[Kind]string{
	Serial: "ASRL",
	Socket: "TCPIP",
	GPIB:   "GPIB",
}

func (k Kind) String() string { return kindDesc[k] }

// Resource is a parsed resource string.
type Resource struct {
	Kind         Kind
	Device       string // serial device
	Addr         string // host:port
	Primary      int    // GPIB primary address
	Secondary    int    // GPIB secondary address, if HasSecondary
	HasSecondary bool
}

// ParseResource parses the supported resource forms:
//
//	ASRL/dev/ttyACM0::INSTR   serial device by path
//	ASRL9::INSTR              serial port COM9
//	TCPIP::10.0.0.5::5025::SOCKET
//	GPIB::10::INSTR           primary address 10
//	GPIB0::10::96::INSTR      primary 10, secondary 96
//
// Board numbers after TCPIP and GPIB are accepted and ignored.
func ParseResource(s string) (Resource, error) {
	parts := strings.Split(strings.TrimSpace(s), "::")
	if len(parts) < 2 {
		return Resource{}, fmt.Errorf("invalid resource %q", s)
	}
	head := parts[0]
	suffix := strings.ToUpper(parts[len(parts)-1])
	fields := parts[1 : len(parts)-1]
	upper := strings.ToUpper(head)
	switch {
	case strings.HasPrefix(upper, "ASRL"):
		if suffix != "INSTR" || len(fields) != 0 {
			return Resource{}, fmt.Errorf("invalid serial resource %q", s)
		}
		dev := head[len("ASRL"):]
		if dev == "" {
			return Resource{}, fmt.Errorf("serial resource %q has no device", s)
		}
		if _, err := strconv.Atoi(dev); err == nil {
			dev = "COM" + dev
		}
		return Resource{Kind: Serial, Device: dev}, nil
	case strings.HasPrefix(upper, "TCPIP"):
		if suffix != "SOCKET" || len(fields) != 2 {
			return Resource{}, fmt.Errorf("invalid socket resource %q", s)
		}
		port, err := strconv.Atoi(fields[1])
		if err != nil || port < 1 || port > 65535 {
			return Resource{}, fmt.Errorf("invalid port in resource %q", s)
		}
		return Resource{Kind: Socket, Addr: net.JoinHostPort(fields[0], fields[1])}, nil
	case strings.HasPrefix(upper, "GPIB"):
		if suffix != "INSTR" || len(fields) < 1 || len(fields) > 2 {
			return Resource{}, fmt.Errorf("invalid GPIB resource %q", s)
		}
		r := Resource{Kind: GPIB}
		var err error
		if r.Primary, err = strconv.Atoi(fields[0]); err != nil {
			return Resource{}, fmt.Errorf("invalid primary address in resource %q", s)
		}
		if len(fields) == 2 {
			if r.Secondary, err = strconv.Atoi(fields[1]); err != nil {
				return Resource{}, fmt.Errorf("invalid secondary address in resource %q", s)
			}
			r.HasSecondary = true
		}
		return r, nil
	}
	return Resource{}, fmt.Errorf("unsupported resource %q", s)
}

// Serial port drivers.
const (
	DriverBugst = "bugst" // go.bug.st/serial
	DriverTarm  = "tarm"  // github.com/tarm/serial through soypat/cereal
)

type options struct {
	baud         int
	driver       string
	readTimeout  time.Duration
	term         byte
	prologixPort string
	prologixOpts []prologix.ControllerOption
	clear        bool
	log          logrus.FieldLogger
}

// Option configures Open.
type Option func(*options)

// WithBaudRate sets the serial baud rate. The default is 115200.
func WithBaudRate(baud int) Option { return func(o *options) { o.baud = baud } }

// WithSerialDriver selects DriverBugst (the default) or DriverTarm.
func WithSerialDriver(driver string) Option { return func(o *options) { o.driver = driver } }

// WithReadTimeout bounds each response read. The default is 5 s.
func WithReadTimeout(d time.Duration) Option { return func(o *options) { o.readTimeout = d } }

// WithTerminator sets the line terminator. The default is '\n'.
func WithTerminator(term byte) Option { return func(o *options) { o.term = term } }

// WithPrologix names the serial port of the Prologix controller used for
// GPIB resources, with options passed to prologix.NewController.
func WithPrologix(port string, opts ...prologix.ControllerOption) Option {
	return func(o *options) {
		o.prologixPort = port
		o.prologixOpts = append(o.prologixOpts, opts...)
	}
}

// WithDeviceClear sends Selected Device Clear when a GPIB resource is opened.
func WithDeviceClear() Option { return func(o *options) { o.clear = true } }

// WithLogger logs connection setup.
func WithLogger(l logrus.FieldLogger) Option { return func(o *options) { o.log = l } }

// Open connects to the instrument named by resource.
func Open(resource string, opts ...Option) (afg.Transport, error) {
	o := options{
		baud:        115200,
		driver:      DriverBugst,
		readTimeout: 5 * time.Second,
		term:        '\n',
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.log = l
	}
	r, err := ParseResource(resource)
	if err != nil {
		return nil, err
	}
	o.log.WithFields(logrus.Fields{"resource": resource, "kind": r.Kind}).Info("opening instrument")

	switch r.Kind {
	case Serial:
		port, err := openSerial(r.Device, o)
		if err != nil {
			return nil, err
		}
		return NewLine(port, o.term), nil
	case Socket:
		conn, err := net.DialTimeout("tcp", r.Addr, o.readTimeout)
		if err != nil {
			return nil, err
		}
		l := NewLine(conn, o.term)
		l.readTimeout = o.readTimeout
		return l, nil
	case GPIB:
		if o.prologixPort == "" {
			return nil, fmt.Errorf("GPIB resource %q needs a Prologix port", resource)
		}
		port, err := openSerial(o.prologixPort, o)
		if err != nil {
			return nil, err
		}
		popts := append([]prologix.ControllerOption{prologix.WithLogger(o.log)}, o.prologixOpts...)
		if r.HasSecondary {
			popts = append(popts, prologix.WithSecondaryAddress(r.Secondary))
		}
		c, err := prologix.NewController(port, r.Primary, o.clear, popts...)
		if err != nil {
			port.Close()
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("unsupported resource kind %d", r.Kind)
}

func openSerial(dev string, o options) (io.ReadWriteCloser, error) {
	o.log.WithFields(logrus.Fields{"port": dev, "baud": o.baud, "driver": o.driver}).Debug("opening serial port")
	switch o.driver {
	case DriverBugst:
		port, err := serial.Open(dev, &serial.Mode{
			BaudRate: o.baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		})
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", dev, err)
		}
		if err := port.SetReadTimeout(o.readTimeout); err != nil {
			port.Close()
			return nil, err
		}
		return port, nil
	case DriverTarm:
		cimpl := cereal.Tarm{}
		port, err := cimpl.OpenPort(dev, cereal.Mode{
			BaudRate:    o.baud,
			ReadTimeout: o.readTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", dev, err)
		}
		return port, nil
	}
	return nil, fmt.Errorf("unknown serial driver %q (must be %s or %s)", o.driver, DriverBugst, DriverTarm)
}
