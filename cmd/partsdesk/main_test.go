package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/partsdesk/partsdesk/internal/app"
	"github.com/partsdesk/partsdesk/internal/testing/guard"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	require.Equal(t, "1", os.Getenv(guard.TestModeEnv))
	require.True(t, app.InTestMode())
	main()
}
