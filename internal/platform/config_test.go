package platform_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/notekeep/internal/platform"
)

func TestLoadConfig_Missing(t *testing.T) {
	cfg, err := platform.LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, platform.Config{}, cfg)
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	doc := "adapter: sqlite\nkey: work-notes\ndebounce: 1s\nwatch: true\nlanguage: de\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, platform.ConfigFile), []byte(doc), 0644))

	cfg, err := platform.LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, platform.Config{
		Adapter:  platform.AdapterSQLite,
		Key:      "work-notes",
		Debounce: time.Second,
		Watch:    true,
		Language: "de",
	}, cfg)
}

func TestParseConfig_Empty(t *testing.T) {
	cfg, err := platform.ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, platform.Config{}, cfg)
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad duration":      "debounce: soon\n",
		"negative duration": "debounce: -1s\n",
		"unknown adapter":   "adapter: redis\n",
		"unknown field":     "adaptor: fs\n",
		"bad language":      "language: toolongsubtag\n",
		"not yaml":          "adapter: [fs\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := platform.ParseConfig([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseConfig_UnknownAdapterIs(t *testing.T) {
	_, err := platform.ParseConfig([]byte("adapter: redis\n"))
	assert.ErrorIs(t, err, platform.ErrUnknownAdapter)
}
