package main

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/waddythomson/buwa-crm/internal/config"
)

func TestAppGraph(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Auth.JWTSecret = "graph-test"
	require.NoError(t, fx.ValidateApp(appOptions(cfg)))
}

func TestRootCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "token", "version"} {
		require.True(t, names[want], want)
	}
}
