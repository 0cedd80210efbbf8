// Package manifest describes a finished build's inputs and outputs in build_manifest.json.
package manifest

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// FileName is the manifest's name inside the output directory.
const FileName = "build_manifest.json"

// BuildManifest records what was built, from which sources, and what came out.
type BuildManifest struct {
	Project       string        `json:"project"`
	Version       string        `json:"version"`
	RunID         string        `json:"run_id"`
	BuildTime     time.Time     `json:"build_time"`
	Configuration Configuration `json:"configuration"`
	Stages        []StageEntry  `json:"stages"`
	Artifacts     []Artifact    `json:"artifacts,omitempty"`
}

// Configuration captures the switches and sources of the build.
type Configuration struct {
	Branch       string `json:"branch"`
	Commit       string `json:"commit,omitempty"`
	ReleaseMode  bool   `json:"release_mode"`
	Platform     string `json:"platform"`
	Architecture string `json:"architecture"`
}

// StageEntry is one stage's outcome as of manifest time.
type StageEntry struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Duration string `json:"duration"`
}

// Artifact is one file in the output directory.
type Artifact struct {
	Path   string `json:"path"` // relative to the output directory
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// ToJSON serializes the manifest to JSON.
func (m *BuildManifest) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return data, nil
}

// FromJSON deserializes a manifest from JSON.
func FromJSON(data []byte) (*BuildManifest, error) {
	var m BuildManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return &m, nil
}

// Write stores the manifest as FileName inside dir and returns the file path.
func (m *BuildManifest) Write(dir string) (string, error) {
	data, err := m.ToJSON()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}

// Hash computes a deterministic hash over the build configuration and artifact digests.
// Two builds with the same hash produced byte-identical outputs from the same sources.
func (m *BuildManifest) Hash() (string, error) {
	hashInput := struct {
		Configuration Configuration `json:"configuration"`
		Artifacts     []Artifact    `json:"artifacts"`
	}{m.Configuration, m.Artifacts}

	data, err := json.Marshal(hashInput)
	if err != nil {
		return "", fmt.Errorf("marshal for hash: %w", err)
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash), nil
}

// ScanArtifacts digests every regular file under dir except the manifest itself, sorted by
// path.
func ScanArtifacts(dir string) ([]Artifact, error) {
	var out []Artifact
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == FileName {
			return nil
		}
		sum, size, err := digest(path)
		if err != nil {
			return err
		}
		out = append(out, Artifact{Path: filepath.ToSlash(rel), Size: size, SHA256: sum})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan artifacts: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func digest(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), n, nil
}
