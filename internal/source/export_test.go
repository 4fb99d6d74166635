package source

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const exportJSON = `{
  "version": 3,
  "components": [
    {
      "name": "map",
      "effects": {
        "dispatches": [
          {"name": "set-viewport", "params": [{"zoom": 8}]},
          {
            "name": "display-markers",
            "params": [[
              {"id": 1, "user": {"firstname": "Anna", "lastname": "Müller"}},
              {"id": 2, "user": {"firstname": "Jean-François", "lastname": "Briefer"}}
            ]]
          }
        ]
      }
    },
    {"name": "sidebar"}
  ]
}`

func writeExport(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCollectsProfiles(t *testing.T) {
	path := writeExport(t, exportJSON)

	export, err := Load(path, testLogger())
	require.NoError(t, err)
	require.Len(t, export.Profiles, 2)

	require.Equal(t, "Anna", export.Profiles[0].FirstName())
	require.Equal(t, "Jean-François", export.Profiles[1].FirstName())
}

func TestLoadMalformedInnerShape(t *testing.T) {
	path := writeExport(t, `{"components": [{"effects": "oops"}]}`)

	export, err := Load(path, testLogger())
	require.NoError(t, err)
	require.Empty(t, export.Profiles)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"), testLogger())
	require.Error(t, err)
}

func TestLoadInvalidJSON(t *testing.T) {
	path := writeExport(t, "{not json")
	_, err := Load(path, testLogger())
	require.Error(t, err)
}

func TestAnnotationsRoundTrip(t *testing.T) {
	path := writeExport(t, exportJSON)

	export, err := Load(path, testLogger())
	require.NoError(t, err)

	export.Profiles[0]["scraped_at"] = int64(1756700000)
	export.Profiles[0]["phone"] = "+41791234567"
	require.NoError(t, export.Save(path))

	reloaded, err := Load(path, testLogger())
	require.NoError(t, err)
	require.Len(t, reloaded.Profiles, 2)
	require.True(t, reloaded.Profiles[0].Scraped())
	require.Equal(t, "+41791234567", reloaded.Profiles[0].Str("phone"))
	require.False(t, reloaded.Profiles[1].Scraped())
}

func TestBackupPreservesContent(t *testing.T) {
	path := writeExport(t, exportJSON)
	backup := filepath.Join(filepath.Dir(path), "export.json.backup")

	export, err := Load(path, testLogger())
	require.NoError(t, err)
	require.NoError(t, export.Backup(backup))

	restored, err := Load(backup, testLogger())
	require.NoError(t, err)
	require.Len(t, restored.Profiles, 2)
}
