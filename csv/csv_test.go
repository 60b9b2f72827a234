package csv

import (
	"bytes"
	"io"
	"runtime"
	"strings"
	"testing"

	"golang.org/x/xerrors"
)

func TestRecorderNil(t *testing.T) {
	buf := &bytes.Buffer{}
	enc := NewEncoder(buf)

	if err := enc.Encode(nil); err == nil {
		t.Fatalf("%+v\n", err)
	}
}

type Msg []string

func (m Msg) Record() []string {
	return m
}

func TestRecorder(t *testing.T) {
	buf := &bytes.Buffer{}
	enc := NewEncoder(buf)

	msg := Msg{"2026-08-29T12:00:00Z", "ch0", "BSCH", "MCC=262"}
	if err := enc.Encode(msg); err != nil {
		t.Fatalf("%+v\n", err)
	}

	if got := strings.TrimSpace(buf.String()); got != "2026-08-29T12:00:00Z,ch0,BSCH,MCC=262" {
		t.Fatalf("%q\n", got)
	}
}

type NonRecorder struct{}

func TestNonRecorder(t *testing.T) {
	buf := &bytes.Buffer{}
	enc := NewEncoder(buf)

	err := enc.Encode(NonRecorder{})

	var runtimeErr runtime.Error
	if !xerrors.As(err, &runtimeErr) {
		t.Fatalf("%+v\n", runtimeErr)
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) {
	return 0, io.ErrClosedPipe
}

func TestWriterError(t *testing.T) {
	enc := NewEncoder(failWriter{})

	if err := enc.Encode(Msg{"ch0"}); err == nil {
		t.Fatal("write error not surfaced")
	}
}
