package observability_test

import (
	"testing"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deshgyan/deshgyan/internal/observability"
)

func TestLoggerPrefersServerLogger(t *testing.T) {
	originalCLI, originalServer := observability.CLILogger, observability.ServerLogger
	t.Cleanup(func() {
		observability.CLILogger, observability.ServerLogger = originalCLI, originalServer
	})

	observability.CLILogger, observability.ServerLogger = nil, nil
	assert.Nil(t, observability.Logger())

	observability.InitCLILogger("deshgyan-test", false)
	require.NotNil(t, observability.CLILogger)
	assert.Same(t, observability.CLILogger, observability.Logger())

	observability.InitServerLogger("deshgyan-test", "debug", "deshgyan")
	require.NotNil(t, observability.ServerLogger)
	assert.Same(t, observability.ServerLogger, observability.Logger())

	observability.Logger().Info("search completed",
		zap.String("provider", "deshgyan-gemini"),
		zap.Int("chunks", 3))
}

func TestVerboseCLILogger(t *testing.T) {
	original := observability.CLILogger
	t.Cleanup(func() { observability.CLILogger = original })

	observability.InitCLILogger("deshgyan-test", true)
	require.NotNil(t, observability.CLILogger)
	observability.CLILogger.Debug("debug enabled", zap.String("mode", "verbose"))
}

func TestEmbeddedCrucible(t *testing.T) {
	version := crucible.GetVersion()
	assert.NotEmpty(t, version.Gofulmen)
	assert.NotEmpty(t, version.Crucible)
	assert.NotEmpty(t, crucible.GetVersionString())
}
