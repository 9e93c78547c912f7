// Package testutil provides shared test helpers for creating config files and history fixtures.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/popdict/internal/history"
	"github.com/at-ishikawa/popdict/internal/kvstore"
	"github.com/at-ishikawa/popdict/internal/translation"
)

// StorageDir returns the directory the file storage of a test config under tmpDir writes to.
func StorageDir(tmpDir string) string {
	return filepath.Join(tmpDir, "storage")
}

// SetupTestConfig creates a minimal config file using file storage under tmpDir.
// Returns the path to the generated config file.
func SetupTestConfig(t *testing.T, tmpDir string) string {
	t.Helper()

	require.NoError(t, os.MkdirAll(StorageDir(tmpDir), 0755))
	configContent := fmt.Sprintf(`storage:
  driver: file
  file:
    directory: %s
history:
  max_entries: 20
translation:
  default_target_language: vi
`, StorageDir(tmpDir))

	cfgPath := filepath.Join(tmpDir, "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(configContent), 0644))
	return cfgPath
}

// SetupTestConfigWithAPIKey creates a config file with a fake OpenAI API key for tests
// that require API key validation to pass.
func SetupTestConfigWithAPIKey(t *testing.T, tmpDir string) string {
	t.Helper()
	cfgPath := SetupTestConfig(t, tmpDir)

	content, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	content = append(content, []byte("openai:\n  api_key: fake-key-for-testing\n  model: gpt-4o-mini\n")...)
	require.NoError(t, os.WriteFile(cfgPath, content, 0644))
	return cfgPath
}

// NewPhrase returns an English to Vietnamese phrase translation of text.
func NewPhrase(text string) translation.Translation {
	return translation.NewPhrase(translation.PhraseTranslation{
		Text:        text,
		Translation: "translated " + text,
		Languages:   translation.Languages{SourceLanguageCode: "en", TargetLanguageCode: "vi"},
	})
}

// SeedHistory saves a phrase for each text into the file storage of the test config under tmpDir.
// Entries are saved one second apart, so the last text is the newest.
func SeedHistory(t *testing.T, tmpDir string, texts ...string) []history.Entry {
	t.Helper()

	now := time.Now()
	store := history.NewStore(kvstore.NewFileStore(StorageDir(tmpDir)), history.WithClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	}))
	entries := make([]history.Entry, 0, len(texts))
	for _, text := range texts {
		e, err := store.Save(context.Background(), NewPhrase(text))
		require.NoError(t, err)
		entries = append(entries, e)
	}
	return entries
}
