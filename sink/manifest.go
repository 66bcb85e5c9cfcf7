package sink

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ManifestPath is the file, relative to the output root, that lists the
// artifacts produced by the previous run.
const ManifestPath = ".ocpgen-manifest"

// Manifest renders the artifact paths as manifest content, one per line.
func Manifest(artifacts []Artifact) []byte {
	var buf bytes.Buffer
	buf.WriteString("# Generated by ocpgen. Lists files owned by the generator.\n")
	for _, a := range artifacts {
		buf.WriteString(a.Path)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// ParseManifest returns the paths listed in manifest content.
// Blank lines and lines starting with # are ignored.
func ParseManifest(data []byte) []string {
	var paths []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		paths = append(paths, line)
	}
	return paths
}

// Prune removes files recorded in the root's previous manifest that are not part
// of artifacts. It returns the removed paths. Paths in the manifest that fail
// ValidatePath are skipped, so a hand-edited manifest cannot reach outside the root.
func Prune(s *FilesystemSink, artifacts []Artifact) ([]string, error) {
	data, err := s.ReadFile(ManifestPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	keep := make(map[string]bool, len(artifacts))
	for _, a := range artifacts {
		keep[a.Path] = true
	}

	var removed []string
	for _, p := range ParseManifest(data) {
		if keep[p] || p == ManifestPath || ValidatePath(p) != nil {
			continue
		}
		if err := s.Remove(p); err != nil {
			return removed, err
		}
		removed = append(removed, p)
	}
	return removed, nil
}
