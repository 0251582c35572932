package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// RegionKind is the logical name of a cache region.
type RegionKind string

const (
	RegionShell RegionKind = "shell"
	RegionImage RegionKind = "img"
	RegionData  RegionKind = "data"
)

// RegionName renders "<kind>-cache-v<version>".
func RegionName(kind RegionKind, version int) string {
	return fmt.Sprintf("%s-cache-v%d", kind, version)
}

// ParseRegionName splits a region name produced by RegionName.
func ParseRegionName(name string) (RegionKind, int, error) {
	idx := strings.LastIndex(name, "-cache-v")
	if idx <= 0 {
		return "", 0, fmt.Errorf("invalid region name: %s", name)
	}
	version, err := strconv.Atoi(name[idx+len("-cache-v"):])
	if err != nil {
		return "", 0, fmt.Errorf("invalid region version in %s: %w", name, err)
	}
	return RegionKind(name[:idx]), version, nil
}

// RegionSet is the current version of each logical region.
type RegionSet struct {
	Shell string
	Image string
	Data  string
}

// Names returns the keep-set used during activation.
func (s RegionSet) Names() []string {
	return []string{s.Shell, s.Image, s.Data}
}
