package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	tests := []struct {
		env, level string
		debug      bool
	}{
		{env: "local", debug: true},
		{env: "dev", debug: true},
		{env: "prod", debug: false},
		{env: "prod", level: "debug", debug: true},
		{env: "local", level: "warn", debug: false},
	}
	for _, tt := range tests {
		t.Run(tt.env+"/"+tt.level, func(t *testing.T) {
			logger, err := New(tt.env, tt.level)
			require.NoError(t, err)
			assert.Equal(t, tt.debug, logger.Core().Enabled(zap.DebugLevel))
		})
	}
}

func TestNewRejectsUnknownValues(t *testing.T) {
	_, err := New("staging", "")
	assert.Error(t, err)

	_, err = New("prod", "loud")
	assert.Error(t, err)
}
