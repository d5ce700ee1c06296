package connutil

import (
	"bufio"
	"flag"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "afg.yaml")
	body := "resource: \"ASRL/dev/ttyUSB1::INSTR\"\nserial:\n  baud: 9600\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	var c Conn
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.AddFlags(fs)
	if err := fs.Parse([]string{"-config", path, "-driver", "tarm", "-v"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := c.Config()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Resource != "ASRL/dev/ttyUSB1::INSTR" || cfg.Serial.Baud != 9600 {
		t.Errorf("file values lost: %+v", cfg)
	}
	if cfg.Serial.Driver != "tarm" || cfg.Log.Level != "debug" {
		t.Errorf("flags not applied: %+v", cfg)
	}
}

func TestConfigInvalid(t *testing.T) {
	c := Conn{Driver: "termios"}
	if _, err := c.Config(); err == nil {
		t.Error("accepted unknown driver")
	}
}

func TestSetupSocket(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		for {
			cmd, err := r.ReadString('\n')
			if err != nil {
				return
			}
			if cmd == "SOUR:FREQ?\n" {
				conn.Write([]byte("+1.000000E+03\n"))
			}
		}
	}()

	_, port, _ := net.SplitHostPort(ln.Addr().String())
	log := logrus.New()
	log.SetOutput(io.Discard)
	c := Conn{
		Resource:    "TCPIP::127.0.0.1::" + port + "::SOCKET",
		ReadTimeout: 2 * time.Second,
		Trace:       true,
		Log:         log,
	}
	s, cleanup, err := c.Setup()
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetOutput(true); err != nil {
		t.Fatal(err)
	}
	f, err := s.Frequency()
	if err != nil {
		t.Fatal(err)
	}
	if f != 1000 {
		t.Errorf("got %g", f)
	}
	if err := cleanup(); err != nil {
		t.Error(err)
	}
}
