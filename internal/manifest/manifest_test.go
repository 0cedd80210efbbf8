package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	m := &BuildManifest{
		Project:   "CookieOne Voice Assistant",
		Version:   "1.0.0",
		RunID:     "run-1",
		BuildTime: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		Configuration: Configuration{
			Branch: "main", ReleaseMode: true, Platform: "linux", Architecture: "amd64",
		},
		Stages: []StageEntry{{Name: "build_core", Status: "success", Duration: "12.3s"}},
	}

	path, err := m.Write(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileName), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	restored, err := FromJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, m.RunID, restored.RunID)
	assert.Equal(t, m.Configuration, restored.Configuration)
	assert.Equal(t, m.Stages, restored.Stages)
}

func TestScanArtifactsSkipsManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "deb"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jarvis-app"), []byte("bin"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "deb", "app.deb"), []byte("deb"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{}"), 0o600))

	arts, err := ScanArtifacts(dir)
	require.NoError(t, err)
	require.Len(t, arts, 2)
	assert.Equal(t, "deb/app.deb", arts[0].Path)
	assert.Equal(t, "jarvis-app", arts[1].Path)
	assert.Equal(t, int64(3), arts[1].Size)
	// sha256("bin")
	assert.Equal(t, "51a1f05af85e342e3c849b47d387086476282d5f50dc240c19216d6edfb1eb5a", arts[1].SHA256)
}

func TestHashIsDeterministic(t *testing.T) {
	a := &BuildManifest{RunID: "a", Configuration: Configuration{Branch: "main"}, Artifacts: []Artifact{{Path: "x", SHA256: "1"}}}
	b := &BuildManifest{RunID: "b", Configuration: Configuration{Branch: "main"}, Artifacts: []Artifact{{Path: "x", SHA256: "1"}}}
	c := &BuildManifest{RunID: "a", Configuration: Configuration{Branch: "dev"}, Artifacts: []Artifact{{Path: "x", SHA256: "1"}}}

	ha, err := a.Hash()
	require.NoError(t, err)
	hb, _ := b.Hash()
	hc, _ := c.Hash()
	assert.Equal(t, ha, hb, "run id does not affect the hash")
	assert.NotEqual(t, ha, hc)
}
