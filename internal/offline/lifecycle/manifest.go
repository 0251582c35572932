package lifecycle

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// LoadManifest reads a shell manifest file. Both a bare JSON array of paths
// and an object with a "files" array are accepted.
func LoadManifest(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest is LoadManifest without the file read.
func ParseManifest(data []byte) ([]string, error) {
	var paths []string
	if err := json.Unmarshal(data, &paths); err != nil {
		var wrapped struct {
			Files []string `json:"files"`
		}
		if err2 := json.Unmarshal(data, &wrapped); err2 != nil {
			return nil, fmt.Errorf("failed to parse manifest: %w", err)
		}
		paths = wrapped.Files
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("manifest is empty")
	}
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !strings.HasPrefix(p, "/") {
			return nil, fmt.Errorf("manifest path %q is not absolute", p)
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}
