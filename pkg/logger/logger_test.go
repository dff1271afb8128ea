package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := Wrap(zap.New(core)).With("component", "test")

	log.Warn("skipped orphan entries", "count", 3)
	log.Debug("fetched", "collection", "leads")

	entries := logs.All()
	assert.Len(t, entries, 2)
	assert.Equal(t, "skipped orphan entries", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "test", fields["component"])
	assert.EqualValues(t, 3, fields["count"])
}

func TestNewFallsBackToInfo(t *testing.T) {
	assert.NotNil(t, New("not-a-level", false))
	assert.NotNil(t, NewNop())
}
