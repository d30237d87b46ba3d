package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFileFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("path: /data/store\n"), 0600))

	rootCmd.SetArgs([]string{"version", "--config", path})
	require.NoError(t, rootCmd.Execute())

	// The config file named by the flag was actually read.
	assert.Equal(t, path, viper.ConfigFileUsed())
	assert.Equal(t, "/data/store", viper.GetString("path"))
}
