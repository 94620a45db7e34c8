package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestCustomFormatter(t *testing.T) {
	f := &CustomFormatter{SystemName: "taskmaster"}
	entry := &logrus.Entry{
		Time:    time.Date(2026, 10, 16, 14, 5, 9, 0, time.UTC),
		Level:   logrus.ErrorLevel,
		Message: "Event ID: TASK_CREATE_FAILED, Description: boom",
		Data:    logrus.Fields{"task_id": "t1", "op": "create"},
	}

	out, err := f.Format(entry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	line := string(out)
	pattern := `^Date: 2026-10-16, Time: 14:05:09, Event Source: taskmaster, Event Type: ERROR, ` +
		`Event ID: [0-9a-f-]{36}, Message: Event ID: TASK_CREATE_FAILED, Description: boom, op: create, task_id: t1\n$`
	if !regexp.MustCompile(pattern).MatchString(line) {
		t.Errorf("unexpected log line: %q", line)
	}
}

func TestConfigure_WritesFileAndMirrorsInDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "taskmaster.log")
	var stderr bytes.Buffer

	l := logrus.New()
	configure(l, Options{File: path, Debug: true, Stderr: &stderr})
	l.Debug("hello from test")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected log file: %v", err)
	}
	if !strings.Contains(string(data), "Message: hello from test") {
		t.Errorf("log file missing entry: %q", data)
	}
	if !strings.Contains(stderr.String(), "Message: hello from test") {
		t.Errorf("stderr missing mirrored entry: %q", stderr.String())
	}
}

func TestConfigure_InfoLevelWithoutDebug(t *testing.T) {
	var stderr bytes.Buffer
	l := logrus.New()
	configure(l, Options{Stderr: &stderr})

	if l.GetLevel() != logrus.InfoLevel {
		t.Errorf("expected info level, got %v", l.GetLevel())
	}
	l.Info("not mirrored")
	if stderr.Len() != 0 {
		t.Errorf("stderr should stay empty outside debug mode, got %q", stderr.String())
	}
}
