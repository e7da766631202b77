package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetDefault(t *testing.T) {
	t.Helper()
	t.Cleanup(func() { defaultLogger = newDefaultLogger() })
}

func TestSetLevel(t *testing.T) {
	resetDefault(t)

	require.NoError(t, SetLevel("debug"))
	assert.Equal(t, "debug", Level())
	assert.True(t, Default().IsDebugging())
	assert.False(t, Default().IsTracing())

	require.NoError(t, SetLevel("WARN"))
	assert.Equal(t, "warning", Level())

	require.NoError(t, SetLevel(""))
	assert.Equal(t, "warning", Level(), "empty level keeps the current one")

	assert.Error(t, SetLevel("chatty"))
}

func TestSetLevelNone(t *testing.T) {
	resetDefault(t)

	var buf bytes.Buffer
	SetOutput(&buf)
	require.NoError(t, SetLevel("none"))
	Default().Error("should not appear")
	assert.Empty(t, buf.String())
	assert.NotEqual(t, os.Stderr, defaultLogger.Out)
}

func TestJSONFormatWithFields(t *testing.T) {
	resetDefault(t)

	var buf bytes.Buffer
	SetOutput(&buf)
	require.NoError(t, SetOutputFormat("json"))
	require.NoError(t, SetLevel("info"))

	Default().
		WithField(BranchFieldKey, "main").
		WithFields(Fields{CommitFieldKey: "abc123"}).
		WithError(errors.New("boom")).
		Info("ref moved")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "main", entry[BranchFieldKey])
	assert.Equal(t, "abc123", entry[CommitFieldKey])
	assert.Equal(t, "boom", entry[logrus.ErrorKey])
	assert.Equal(t, "ref moved", entry["msg"])
	assert.Equal(t, "info", entry["level"])
}

func TestSetOutputFormatUnknown(t *testing.T) {
	resetDefault(t)
	assert.Error(t, SetOutputFormat("xml"))
	assert.NoError(t, SetOutputFormat("text"))
}

func TestDummyDiscards(t *testing.T) {
	l := Dummy()
	assert.NotPanics(t, func() {
		l.WithField(PathFieldKey, "a.txt").Errorf("nothing %d", 1)
	})
}
