package logging_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwin1596/gclabel/internal/logging"
)

func TestNewAppliesLevelAndFormat(t *testing.T) {
	log, err := logging.New(2, "run-abc", logging.WithLevel("debug"), logging.WithFormat(logging.FormatJSON))
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestNewFallsBackOnBadLevel(t *testing.T) {
	log, err := logging.New(0, "run-abc", logging.WithLevel("not-a-level"))
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestWithSuperstepDerivesLogger(t *testing.T) {
	log, err := logging.New(0, "run-abc")
	require.NoError(t, err)
	derived := logging.WithSuperstep(log, 3)
	assert.NotNil(t, derived)
}
