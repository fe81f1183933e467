package logging

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLevels(t *testing.T) {
	defer log.SetLevel(log.InfoLevel)

	for in, want := range map[string]log.Level{
		"":      log.InfoLevel,
		"ERROR": log.ErrorLevel,
		"warn":  log.WarnLevel,
		"debug": log.DebugLevel,
		"trace": log.TraceLevel,
	} {
		require.NoError(t, Setup(in), in)
		assert.Equal(t, want, log.GetLevel(), in)
	}
	assert.Error(t, Setup("loud"))
}

func TestCategoryAndLaunch(t *testing.T) {
	var buf bytes.Buffer
	out := log.StandardLogger().Out
	log.SetOutput(&buf)
	defer log.SetOutput(out)
	require.NoError(t, Setup("info"))

	e, id := WithLaunch(Category("GameProvider"))
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	e.Info("located")

	line := buf.String()
	assert.Contains(t, line, "logger=Silk/GameProvider")
	assert.Contains(t, line, "launch_id="+id)
	assert.Contains(t, line, "msg=located")
}
