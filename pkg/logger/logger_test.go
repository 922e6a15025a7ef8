package logger

import (
	"bytes"
	"strings"
	"testing"
)

func newTestLogger(buf *bytes.Buffer, level LogLevel) *Logger {
	return New(Config{
		Level:    level,
		Colorize: false,
		ShowTime: false,
		Output:   buf,
	})
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf, WARN)

	log.Debugf("debug %d", 1)
	log.Infof("info %d", 2)
	log.Warnf("warn %d", 3)
	log.Errorf("error %d", 4)

	out := buf.String()
	if strings.Contains(out, "debug 1") || strings.Contains(out, "info 2") {
		t.Errorf("messages below WARN leaked: %q", out)
	}
	if !strings.Contains(out, "[WARN] warn 3") {
		t.Errorf("missing warn line: %q", out)
	}
	if !strings.Contains(out, "[ERROR] error 4") {
		t.Errorf("missing error line: %q", out)
	}
}

func TestWithSharesSink(t *testing.T) {
	var buf bytes.Buffer
	root := newTestLogger(&buf, INFO)
	child := root.With("analyser").With("sampler")

	child.Infof("tick")
	if got := buf.String(); !strings.Contains(got, "analyser sampler tick") {
		t.Errorf("expected nested prefix, got %q", got)
	}

	buf.Reset()
	root.SetLevel(ERROR)
	child.Infof("hidden")
	if buf.Len() != 0 {
		t.Errorf("child should follow root level, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
		ok   bool
	}{
		{"debug", DEBUG, true},
		{" Info ", INFO, true},
		{"warning", WARN, true},
		{"ERROR", ERROR, true},
		{"fatal", FATAL, true},
		{"loud", INFO, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = %v,%v want %v,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
