package cache

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// Keyer turns requests into cache keys: "METHOD /path?sorted=query".
// Query parameters matching an ignore pattern are dropped, so tracking
// parameters do not split the cache.
type Keyer struct {
	ignore []*regexp.Regexp
}

// NewKeyer compiles the ignore patterns.
func NewKeyer(ignore []string) (*Keyer, error) {
	k := &Keyer{}
	for _, p := range ignore {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", p, err)
		}
		k.ignore = append(k.ignore, re)
	}
	return k, nil
}

// Request returns the key for r.
func (k *Keyer) Request(r *http.Request) string {
	return k.Key(r.Method, r.URL)
}

// Path returns the GET key for a bare path such as a manifest entry.
func (k *Keyer) Path(path string) string {
	u, err := url.Parse(path)
	if err != nil {
		return http.MethodGet + " " + path
	}
	return k.Key(http.MethodGet, u)
}

// Key returns the key for method and u.
func (k *Keyer) Key(method string, u *url.URL) string {
	if method == "" {
		method = http.MethodGet
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}

	query := u.Query()
	names := make([]string, 0, len(query))
	for name := range query {
		if k.ignored(name) {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return strings.ToUpper(method) + " " + path
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		values := append([]string(nil), query[name]...)
		sort.Strings(values)
		for _, v := range values {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(name))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return strings.ToUpper(method) + " " + path + "?" + b.String()
}

func (k *Keyer) ignored(name string) bool {
	for _, re := range k.ignore {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}
