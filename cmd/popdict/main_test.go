package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/popdict/internal/history"
	"github.com/at-ishikawa/popdict/internal/kvstore"
	"github.com/at-ishikawa/popdict/internal/testutil"
)

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		name      string
		debugMode bool
		wantLevel slog.Level
	}{
		{
			name:      "debug mode enabled",
			debugMode: true,
			wantLevel: slog.LevelDebug,
		},
		{
			name:      "debug mode disabled",
			debugMode: false,
			wantLevel: slog.LevelInfo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupLogger(tt.debugMode)
			logger := slog.Default()
			assert.NotNil(t, logger)
			assert.Equal(t, tt.wantLevel <= slog.LevelDebug, logger.Enabled(context.Background(), slog.LevelDebug))
		})
	}
}

func TestNewRootCommand(t *testing.T) {
	cmd := newRootCommand()

	assert.Equal(t, "popdict", cmd.Use)
	for _, name := range []string{"lookup", "interactive", "history", "export"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("debug"))
}

// setupHistory writes a config using file storage under a temp dir and seeds it with phrases.
func setupHistory(t *testing.T, texts ...string) (string, []history.Entry) {
	t.Helper()
	color.NoColor = true

	dir := t.TempDir()
	configPath := testutil.SetupTestConfig(t, dir)
	return configPath, testutil.SeedHistory(t, dir, texts...)
}

func execute(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestHistoryCommands(t *testing.T) {
	configPath, entries := setupHistory(t, "hello world", "good morning")

	out, err := execute(t, configPath, "history", "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "good morning")
	assert.Contains(t, lines[1], "hello world")

	out, err = execute(t, configPath, "history", "search", "source:en", "hello")
	require.NoError(t, err)
	assert.Contains(t, out, "hello world")
	assert.NotContains(t, out, "good morning")

	out, err = execute(t, configPath, "history", "show", entries[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "translated hello world")

	_, err = execute(t, configPath, "history", "show", "missing")
	assert.ErrorIs(t, err, history.ErrEntryNotFound)

	out, err = execute(t, configPath, "history", "pin", entries[0].ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "* "))

	out, err = execute(t, configPath, "history", "list")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "* "+entries[0].ID))

	out, err = execute(t, configPath, "history", "usage")
	require.NoError(t, err)
	assert.Contains(t, out, "2 / 20 entries")

	_, err = execute(t, configPath, "history", "remove", entries[1].ID)
	require.NoError(t, err)
	out, err = execute(t, configPath, "history", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "good morning")

	_, err = execute(t, configPath, "history", "clear")
	require.NoError(t, err)
	out, err = execute(t, configPath, "history", "list")
	require.NoError(t, err)
	assert.Equal(t, "No history entries.\n", out)
}

func TestExportCommand(t *testing.T) {
	configPath, _ := setupHistory(t, "hello world", "good morning")

	out, err := execute(t, configPath, "export", "hello")
	require.NoError(t, err)
	assert.Contains(t, out, "## hello world")
	assert.NotContains(t, out, "good morning")

	yamlPath := filepath.Join(t.TempDir(), "history.yml")
	_, err = execute(t, configPath, "export", "--format", "yaml", "--output", yamlPath)
	require.NoError(t, err)
	content, err := os.ReadFile(yamlPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "kind: phrase")
	assert.Contains(t, string(content), "text: good morning")

	_, err = execute(t, configPath, "export", "--format", "docx")
	assert.Error(t, err)
}

func TestLookupCommand_RequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	configPath, _ := setupHistory(t)

	_, err := execute(t, configPath, "lookup", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestHistoryStatsCommand(t *testing.T) {
	configPath, _ := setupHistory(t, "hello world", "good morning", "Hello World")

	out, err := execute(t, configPath, "history", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "3 lookups (0 words, 3 phrases), 2 unique")
	assert.Contains(t, out, "Total: 3 lookups, 2 unique, 0 pinned")
	assert.Contains(t, out, "en -> vi: 3")

	out, err = execute(t, configPath, "history", "stats", "--year", "1999")
	require.NoError(t, err)
	assert.Contains(t, out, "No lookups in this period.")

	_, err = execute(t, configPath, "history", "stats", "--month", "2")
	assert.Error(t, err)
}

func TestHistoryImportCommand(t *testing.T) {
	configPath, entries := setupHistory(t, "hello world")

	dump := `{"translationHistory": [
		{"id": "` + entries[0].ID + `", "timestamp": 1, "translation": {"text": "hello world", "translation": "replaced", "source_language_code": "en"}, "pinned": false},
		{"id": "1700000000000-abcdef123", "timestamp": 1700000000000, "translation": {"text": "see you", "translation": "hẹn gặp lại", "source_language_code": "en"}, "pinned": true}
	]}`
	dumpPath := filepath.Join(t.TempDir(), "dump.json")
	require.NoError(t, os.WriteFile(dumpPath, []byte(dump), 0o644))

	out, err := execute(t, configPath, "history", "import", "--dry-run", dumpPath)
	require.NoError(t, err)
	assert.Contains(t, out, "[dry run] 1 new, 0 updated, 1 skipped")
	out, err = execute(t, configPath, "history", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "see you")

	out, err = execute(t, configPath, "history", "import", dumpPath)
	require.NoError(t, err)
	assert.Contains(t, out, "1 new, 0 updated, 1 skipped")

	out, err = execute(t, configPath, "history", "list")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "* 1700000000000-abcdef123"))
	assert.NotContains(t, out, "replaced")

	out, err = execute(t, configPath, "history", "import", "--update-existing", dumpPath)
	require.NoError(t, err)
	assert.Contains(t, out, "0 new, 2 updated, 0 skipped")
	out, err = execute(t, configPath, "history", "show", entries[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "replaced")

	_, err = execute(t, configPath, "history", "import", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestHistoryMigrateCommand(t *testing.T) {
	configPath, _ := setupHistory(t, "hello world", "good morning")
	destinationDir := t.TempDir()
	destinationConfig := testutil.SetupTestConfig(t, destinationDir)

	out, err := execute(t, configPath, "history", "migrate", destinationConfig)
	require.NoError(t, err)
	assert.Equal(t, "Migrated 2 entries from file to file.\n", out)

	got, err := history.NewStore(kvstore.NewFileStore(testutil.StorageDir(destinationDir))).List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "good morning", got[0].Translation.Text())

	smallDir := t.TempDir()
	smallConfig := testutil.SetupTestConfig(t, smallDir)
	content, err := os.ReadFile(smallConfig)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(smallConfig, []byte(strings.Replace(string(content), "max_entries: 20", "max_entries: 1", 1)), 0o644))
	out, err = execute(t, configPath, "history", "migrate", smallConfig)
	require.NoError(t, err)
	assert.Equal(t, "Migrated 1 entries from file to file.\n1 entries did not fit in the destination history and were dropped\n", out)
	got, err = history.NewStore(kvstore.NewFileStore(testutil.StorageDir(smallDir))).List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "good morning", got[0].Translation.Text())

	emptyConfig := testutil.SetupTestConfig(t, t.TempDir())
	out, err = execute(t, emptyConfig, "history", "migrate", destinationConfig)
	require.NoError(t, err)
	assert.Equal(t, "Nothing to migrate.\n", out)
}
