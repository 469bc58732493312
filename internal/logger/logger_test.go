package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDebug_VerboseDisabled(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)
	t.Cleanup(func() { SetVerbose(false); ResetSecrets() })

	Debug("should not appear")

	assert.Empty(t, buf.String())
}

func TestDebug_VerboseEnabled(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)
	t.Cleanup(func() { SetVerbose(false); ResetSecrets() })

	Debug("value is %d", 42)

	assert.Contains(t, buf.String(), "[DEBUG] value is 42")
}

func TestRedaction(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)
	t.Cleanup(func() { SetVerbose(false); ResetSecrets() })

	AddSecret("hunter2")
	Info("logging in with password hunter2 for user")

	out := buf.String()
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "********")
}

func TestRedaction_MultipleSecrets(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)
	t.Cleanup(func() { SetVerbose(false); ResetSecrets() })

	AddSecret("token-abc")
	AddSecret("token-def")
	Warn("tokens: token-abc token-def")

	out := buf.String()
	assert.NotContains(t, out, "token-abc")
	assert.NotContains(t, out, "token-def")
}

func TestAddSecret_EmptyIgnored(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)
	t.Cleanup(func() { SetVerbose(false); ResetSecrets() })

	AddSecret("")
	Info("plain message")

	assert.Contains(t, buf.String(), "plain message")
}
