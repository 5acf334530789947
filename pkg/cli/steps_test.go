package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestStepsOutput(t *testing.T) {
	var buf bytes.Buffer
	s := NewSteps(&buf)

	s.OK("configuration loaded")
	s.Note("")
	s.Fail("supervisor", errors.New("binary not found"))

	out := buf.String()
	if !strings.Contains(out, "✓ configuration loaded\n") {
		t.Errorf("missing ok line:\n%s", out)
	}
	if !strings.Contains(out, "✗ supervisor: binary not found\n") {
		t.Errorf("missing fail line:\n%s", out)
	}
}

func TestStepsDo(t *testing.T) {
	var buf bytes.Buffer
	s := NewSteps(&buf)

	if err := s.Do("connect", func() error { return nil }); err != nil {
		t.Errorf("Do returned error for passing step: %v", err)
	}

	boom := errors.New("boom")
	if err := s.Do("sync", func() error { return boom }); !errors.Is(err, boom) {
		t.Errorf("Do did not return the step error, got %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "✓ connect") || !strings.Contains(out, "✗ sync: boom") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestStepsDefaultWriter(t *testing.T) {
	if s := NewSteps(nil); s.w == nil {
		t.Error("nil writer not defaulted")
	}
}
