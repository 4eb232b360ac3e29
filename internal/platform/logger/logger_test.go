package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter(t *testing.T) {
	t.Run("json output carries service attribute", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(&buf, "info", "json")
		log.Info("dispatch complete", "outcomes", 3)

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "bloodlink", entry["service"])
		assert.Equal(t, "dispatch complete", entry["msg"])
		assert.EqualValues(t, 3, entry["outcomes"])
	})

	t.Run("level filters lower records", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(&buf, "warn", "text")
		log.Info("hidden")
		assert.Zero(t, buf.Len())
		log.Warn("shown")
		assert.Contains(t, buf.String(), "shown")
	})
}
