package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	Init(level)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		Init("info")
	})
	return &buf
}

func TestInitAndLevelString(t *testing.T) {
	cases := map[string]string{
		"debug":    "debug",
		"WARN":     "warn",
		"warning":  "warn",
		" Error ":  "error",
		"fatal":    "fatal",
		"nonsense": "info",
		"":         "info",
	}
	for in, want := range cases {
		Init(in)
		assert.Equal(t, want, LevelString(), "Init(%q)", in)
	}
	Init("info")
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, "warn")

	Debugf("debug-%d", 1)
	Infof("info-%d", 1)
	Println("hello")
	Warnf("warn-%d", 1)
	Error("error-1")

	out := buf.String()
	assert.NotContains(t, out, "debug-1")
	assert.NotContains(t, out, "info-1")
	assert.NotContains(t, out, "hello")
	assert.Contains(t, out, "warn-1")
	assert.Contains(t, out, "error-1")
}

func TestPrintlnAtInfo(t *testing.T) {
	buf := capture(t, "info")
	Println("pages", 3)
	assert.Contains(t, buf.String(), "pages 3")
	assert.Contains(t, buf.String(), "level=info")
}

func TestWithFields(t *testing.T) {
	buf := capture(t, "info")
	With(Fields{"document_id": 42, "page": 7}).Warn("ocr failed")

	out := buf.String()
	assert.Contains(t, out, "document_id=42")
	assert.Contains(t, out, "page=7")
	assert.Contains(t, out, "level=warning")
	assert.Contains(t, out, `msg="ocr failed"`)
}
