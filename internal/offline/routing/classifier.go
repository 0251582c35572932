// Package routing classifies intercepted requests. Classification is pure:
// it reads request metadata only and never touches the cache or the network.
package routing

import (
	"net/http"
	"regexp"
	"strings"
	"sync"

	"github.com/vietddude/outpost/internal/core/domain"
)

var imagePattern = regexp.MustCompile(`(?i)\.(png|jpe?g|svg|webp|gif|ico)$`)

// Classifier maps a request to exactly one RequestClass.
type Classifier struct {
	apiPrefix string

	mu    sync.RWMutex
	shell map[string]struct{}
}

// NewClassifier builds a classifier for a shell manifest and API prefix.
func NewClassifier(manifest []string, apiPrefix string) *Classifier {
	c := &Classifier{apiPrefix: apiPrefix}
	c.SetManifest(manifest)
	return c
}

// SetManifest swaps the static shell path set.
func (c *Classifier) SetManifest(manifest []string) {
	shell := make(map[string]struct{}, len(manifest))
	for _, p := range manifest {
		shell[p] = struct{}{}
	}
	c.mu.Lock()
	c.shell = shell
	c.mu.Unlock()
}

// Classify evaluates, first match wins: navigation, shell manifest, image
// extension, API prefix, other.
func (c *Classifier) Classify(r *http.Request) domain.RequestClass {
	path := r.URL.Path
	switch {
	case IsNavigation(r):
		return domain.ClassNavigation
	case c.inShell(path):
		return domain.ClassStaticShell
	case imagePattern.MatchString(path):
		return domain.ClassImage
	case c.apiPrefix != "" && strings.HasPrefix(path, c.apiPrefix):
		return domain.ClassAPIData
	default:
		return domain.ClassOther
	}
}

// InShell reports whether path belongs to the static shell manifest.
func (c *Classifier) InShell(path string) bool { return c.inShell(path) }

func (c *Classifier) inShell(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.shell[path]
	return ok
}

// IsNavigation reports a top-level document navigation. Fetch metadata wins
// when present; older clients are recognized by a GET accepting HTML.
func IsNavigation(r *http.Request) bool {
	if mode := r.Header.Get("Sec-Fetch-Mode"); mode != "" {
		return mode == "navigate"
	}
	if r.Method != http.MethodGet {
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
