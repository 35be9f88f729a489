// SPDX-License-Identifier: ice License 1.0

//go:build test

package client

import (
	"testing"
	stdlibtime "time"

	"github.com/stretchr/testify/require"

	"github.com/ice-blockchain/subzero-client/cfg"
)

func TestConfigFromApplicationYAML(t *testing.T) {
	t.Parallel()

	c := cfg.MustGet[Config]()
	require.Equal(t, "ws://localhost:9998", c.URL)
	require.Equal(t, 5*stdlibtime.Second, c.WriteTimeout)
	require.Equal(t, 64, c.RequestQueueSize)
	require.Zero(t, c.ReadTimeout)

	defaults := (&Config{}).Defaults()
	require.Equal(t, 5*stdlibtime.Second, defaults.Timeout)
	require.Equal(t, 256, defaults.ResponseQueueSize)
	require.Zero(t, defaults.WriteTimeout)
}
