// Copyright (c) 2024 The afg developers. All rights reserved.
// Project site: https://github.com/gotmc/afg
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package afg

import (
	"errors"
	"reflect"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

// ---- fake transport ----

type fakeTransport struct {
	sent      []string
	responses map[string]string
	failOn    string
	closed    int
}

var errLineDown = errors.New("line down")

func (f *fakeTransport) Write(cmd string) error {
	if cmd == f.failOn {
		return errLineDown
	}
	f.sent = append(f.sent, cmd)
	return nil
}

func (f *fakeTransport) Query(cmd string) (string, error) {
	if cmd == f.failOn {
		return "", errLineDown
	}
	f.sent = append(f.sent, cmd)
	return f.responses[cmd], nil
}

func (f *fakeTransport) Close() error {
	f.closed++
	return nil
}

func newFake(responses map[string]string) (*fakeTransport, *Session) {
	ft := &fakeTransport{responses: responses}
	return ft, NewSession(ft)
}

// ---- tests ----

func TestSessionIdentify(t *testing.T) {
	ft, s := newFake(map[string]string{"*IDN?": "GW INSTEK,AFG-2125,SN:EN123456,V1.10\r\n"})
	idn, err := s.Identify()
	if err != nil {
		t.Fatal(err)
	}
	if idn != "GW INSTEK,AFG-2125,SN:EN123456,V1.10" {
		t.Errorf("got %q", idn)
	}
	if !reflect.DeepEqual(ft.sent, []string{"*IDN?"}) {
		t.Errorf("sent %q", ft.sent)
	}
}

func TestSessionCommonCommands(t *testing.T) {
	ft, s := newFake(nil)
	steps := []func() error{
		s.Reset,
		s.Clear,
		func() error { return s.Save(10) },
		func() error { return s.Recall(19) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			t.Fatal(err)
		}
	}
	want := []string{"*RST", "*CLS", "*SAV 10", "*RCL 19"}
	if !reflect.DeepEqual(ft.sent, want) {
		t.Errorf("sent %q, want %q", ft.sent, want)
	}
}

func TestSessionApply(t *testing.T) {
	ft, s := newFake(nil)
	err := s.Apply(ApplyIntent{Function: User, Frequency: Num(1000), Amplitude: Num(1), Offset: Num(0)})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ft.sent, []string{"SOUR:APPL:USER 1000,1,0"}) {
		t.Errorf("sent %q", ft.sent)
	}
}

func TestSessionRejectsBeforeWriting(t *testing.T) {
	ft, s := newFake(nil)
	if err := s.Apply(ApplyIntent{Function: Sine, Amplitude: Num(1)}); !errors.Is(err, ErrInvalidIntent) {
		t.Errorf("apply: got %v", err)
	}
	if err := s.SetArbitraryWaveform(nil, 10); !errors.Is(err, ErrInvalidWaveform) {
		t.Errorf("empty waveform: got %v", err)
	}
	if err := s.SetArbitraryWaveform([]float64{1}, 9); !errors.Is(err, ErrInvalidWaveform) {
		t.Errorf("slot 9: got %v", err)
	}
	if err := s.Save(20); !errors.Is(err, ErrInvalidWaveform) {
		t.Errorf("save 20: got %v", err)
	}
	if err := s.ConfigureAM(Modulation{Enabled: true, Source: Internal}); !errors.Is(err, ErrInvalidIntent) {
		t.Errorf("AM: got %v", err)
	}
	if len(ft.sent) != 0 {
		t.Errorf("sent %q before failing", ft.sent)
	}
}

func TestSessionArbitraryWaveform(t *testing.T) {
	ft, s := newFake(nil)
	if err := s.SetArbitraryWaveform([]float64{1.0, -0.5, 0.0, 0.5}, 10); err != nil {
		t.Fatal(err)
	}
	want := []string{"DATA:DAC VOLATILE,0,511,-256,0,256", "*SAV 10"}
	if !reflect.DeepEqual(ft.sent, want) {
		t.Errorf("sent %q, want %q", ft.sent, want)
	}
}

func TestSessionArbitraryUploadFails(t *testing.T) {
	ft, s := newFake(nil)
	ft.failOn = "DATA:DAC VOLATILE,0,0"
	err := s.SetArbitraryWaveform([]float64{0}, 11)
	if !errors.Is(err, ErrTransport) || !errors.Is(err, errLineDown) {
		t.Fatalf("got %v, want a transport failure wrapping %v", err, errLineDown)
	}
	var te *TransportError
	if !errors.As(err, &te) || te.Op != "write" || te.Cmd != ft.failOn {
		t.Errorf("got %#v", te)
	}
	if len(ft.sent) != 0 {
		t.Errorf("save sent after failed upload: %q", ft.sent)
	}
}

func TestSessionSweepStopsAtFailure(t *testing.T) {
	ft, s := newFake(nil)
	ft.failOn = "SOUR:SWE:SPAC LIN"
	sw := DefaultSweep()
	sw.Enabled = true
	if err := s.ConfigureSweep(sw); !errors.Is(err, ErrTransport) {
		t.Fatalf("got %v", err)
	}
	want := []string{"SOUR:SWE:STAT ON", "SOUR:FREQ:STAR 10", "SOUR:FREQ:STOP 10000"}
	if !reflect.DeepEqual(ft.sent, want) {
		t.Errorf("sent %q, want %q", ft.sent, want)
	}
}

func TestSessionModulation(t *testing.T) {
	ft, s := newFake(nil)
	if err := s.ConfigureAM(Modulation{Source: Internal, Depth: Num(20)}); err != nil {
		t.Fatal(err)
	}
	if err := s.ConfigureFM(Modulation{Enabled: true, Source: External, Depth: Num(500)}); err != nil {
		t.Fatal(err)
	}
	want := []string{"SOUR:AM:STAT OFF", "SOUR:FM:STAT ON", "SOUR:FM:DEV 500"}
	if !reflect.DeepEqual(ft.sent, want) {
		t.Errorf("sent %q, want %q", ft.sent, want)
	}
}

func TestSessionScalarSetters(t *testing.T) {
	ft, s := newFake(nil)
	steps := []func() error{
		func() error { return s.SetFunction(Square) },
		func() error { return s.SetFrequency(Num(1e3)) },
		func() error { return s.SetAmplitude(Max) },
		func() error { return s.SetOffset(Num(0.1)) },
		func() error { return s.SetDutyCycle(Num(25)) },
		func() error { return s.SetRampSymmetry(Min) },
		func() error { return s.SetOutput(false) },
		func() error { return s.SetOutputLoad(LoadDefault) },
		func() error { return s.SetVoltageUnit(DBm) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			t.Fatal(err)
		}
	}
	want := []string{
		"SOUR:FUNC SQU",
		"SOUR:FREQ 1000",
		"SOUR:AMPL MAX",
		"SOUR:DCO 0.1",
		"SOUR:SQU:DCYC 25",
		"SOUR:RAMP:SYMM MIN",
		"OUTP OFF",
		"OUTP:LOAD DEF",
		"SOUR:VOLT:UNIT DBM",
	}
	if !reflect.DeepEqual(ft.sent, want) {
		t.Errorf("sent %q, want %q", ft.sent, want)
	}
}

func TestSessionGetters(t *testing.T) {
	_, s := newFake(map[string]string{
		"SOUR:FUNC?":      "USER\n",
		"SOUR:FREQ?":      "+1.000000E+03\n",
		"SOUR:AMPL?":      "+5.000E-01\n",
		"SOUR:DCO?":       "-0.25\n",
		"SOUR:SQU:DCYC?":  "50\n",
		"SOUR:RAMP:SYMM?": "75.0\n",
		"OUTP?":           "1\n",
		"OUTP:LOAD?":      "INF\n",
		"SOUR:VOLT:UNIT?": "VRMS\n",
	})
	fn, err := s.Function()
	if err != nil || fn != User {
		t.Errorf("function: %q, %v", fn, err)
	}
	floats := []struct {
		get  func() (float64, error)
		want float64
	}{
		{s.Frequency, 1000},
		{s.Amplitude, 0.5},
		{s.Offset, -0.25},
		{s.DutyCycle, 50},
		{s.RampSymmetry, 75},
	}
	for i, f := range floats {
		got, err := f.get()
		if err != nil {
			t.Errorf("%d: %s", i, err)
			continue
		}
		if got != f.want {
			t.Errorf("%d: got %g, want %g", i, got, f.want)
		}
	}
	on, err := s.Output()
	if err != nil || !on {
		t.Errorf("output: %t, %v", on, err)
	}
	load, err := s.OutputLoad()
	if err != nil || load != LoadInfinite {
		t.Errorf("load: %q, %v", load, err)
	}
	unit, err := s.VoltageUnit()
	if err != nil || unit != Vrms {
		t.Errorf("unit: %q, %v", unit, err)
	}
}

func TestSessionGetterParseError(t *testing.T) {
	_, s := newFake(map[string]string{"SOUR:FREQ?": "-222,\"Data out of range\"\n"})
	if _, err := s.Frequency(); !errors.Is(err, ErrParse) {
		t.Errorf("got %v, want ErrParse", err)
	}
}

func TestSessionGetterTransportError(t *testing.T) {
	ft, s := newFake(nil)
	ft.failOn = "SOUR:AMPL?"
	_, err := s.Amplitude()
	var te *TransportError
	if !errors.As(err, &te) || te.Op != "query" || !errors.Is(err, errLineDown) {
		t.Errorf("got %v", err)
	}
}

func TestSessionNoCache(t *testing.T) {
	ft, s := newFake(map[string]string{"SOUR:FREQ?": "1000"})
	for i := 0; i < 3; i++ {
		if _, err := s.Frequency(); err != nil {
			t.Fatal(err)
		}
	}
	if len(ft.sent) != 3 {
		t.Errorf("sent %d queries, want 3", len(ft.sent))
	}
}

func TestSessionClose(t *testing.T) {
	ft, s := newFake(nil)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if ft.closed != 1 {
		t.Errorf("transport closed %d times", ft.closed)
	}
	if err := s.Reset(); !errors.Is(err, ErrClosed) || !errors.Is(err, ErrTransport) {
		t.Errorf("write after close: got %v", err)
	}
	if _, err := s.Identify(); !errors.Is(err, ErrClosed) {
		t.Errorf("query after close: got %v", err)
	}
}

func TestSessionLogsCommands(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	ft := &fakeTransport{responses: map[string]string{"*IDN?": "GW INSTEK,AFG-2125,SN:1,V1"}}
	s := NewSession(ft, WithLogger(logger))
	if err := s.SetOutput(true); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Identify(); err != nil {
		t.Fatal(err)
	}
	entries := hook.AllEntries()
	if len(entries) != 2 {
		t.Fatalf("got %d log entries, want 2", len(entries))
	}
	if entries[0].Data["cmd"] != "OUTP ON" {
		t.Errorf("write entry %v", entries[0].Data)
	}
	if entries[1].Data["resp"] != "GW INSTEK,AFG-2125,SN:1,V1" {
		t.Errorf("query entry %v", entries[1].Data)
	}
}
