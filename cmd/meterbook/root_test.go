package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/meterbook/internal/config"
	"github.com/jgoulah/meterbook/internal/consumption"
	"github.com/jgoulah/meterbook/pkg/models"
)

func TestGetFilter(t *testing.T) {
	t.Cleanup(func() { filterUnit, filterUtility = 0, "" })

	filterUnit, filterUtility = 0, ""
	f, err := getFilter()
	require.NoError(t, err)
	assert.Equal(t, consumption.Filter{}, f)

	filterUnit, filterUtility = 2, "water"
	f, err = getFilter()
	require.NoError(t, err)
	assert.Equal(t, consumption.Filter{Unit: models.UnitGroundFloor, Utility: models.Water}, f)

	filterUnit, filterUtility = 3, ""
	_, err = getFilter()
	assert.Error(t, err)

	filterUnit, filterUtility = 0, "oil"
	_, err = getFilter()
	assert.Error(t, err)
}

func TestParseReadingID(t *testing.T) {
	id, err := parseReadingID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, s := range []string{"", "0", "-1", "abc"} {
		_, err := parseReadingID(s)
		assert.Error(t, err, s)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"serve", "add", "list", "update", "delete", "rates", "yearly", "export", "publish", "import", "config"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestInitConfigFile(t *testing.T) {
	t.Setenv("METERBOOK_ADDR", "")
	path := filepath.Join(t.TempDir(), "etc", "config.yaml")

	require.NoError(t, initConfigFile(path, false))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)

	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9000\"\n"), 0600))
	err = initConfigFile(path, false)
	assert.ErrorContains(t, err, "already exists")

	cfg, err = config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)

	require.NoError(t, initConfigFile(path, true))
	cfg, err = config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestFormatReading(t *testing.T) {
	r := &models.Reading{ID: 7, Date: "2024-03-01", Unit: models.UnitGroundFloor, Utility: models.Water, Value: 1234.5}
	assert.Equal(t, "#7  2024-03-01  EG Wohnung  Wasser  1,234.5 m³", formatReading(r))
}
