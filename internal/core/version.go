package core

import (
	"cmp"
	"fmt"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	pep440 "github.com/aquasecurity/go-pep440-version"
	goversion "github.com/hashicorp/go-version"
	debversion "github.com/knqyf263/go-deb-version"

	"choco-cli/internal/types"
)

// versionCache memoizes parsed versions for one source type. Feed packages
// and gems use semantic versions, pip uses PEP 440 and Cygwin uses Debian
// style upstream-release strings.
type versionCache struct {
	sourceType types.SourceType
	sem        map[string]*goversion.Version
	deb        map[string]debversion.Version
	pep        map[string]pep440.Version
}

func newVersionCache(sourceType types.SourceType) *versionCache {
	return &versionCache{
		sourceType: sourceType,
		sem:        map[string]*goversion.Version{},
		deb:        map[string]debversion.Version{},
		pep:        map[string]pep440.Version{},
	}
}

func (c *versionCache) semVersion(value string) (*goversion.Version, error) {
	if parsed, ok := c.sem[value]; ok {
		return parsed, nil
	}
	parsed, err := goversion.NewVersion(value)
	if err != nil {
		return nil, err
	}
	c.sem[value] = parsed
	return parsed, nil
}

func (c *versionCache) debVersion(value string) (debversion.Version, error) {
	if parsed, ok := c.deb[value]; ok {
		return parsed, nil
	}
	parsed, err := debversion.NewVersion(value)
	if err != nil {
		return debversion.Version{}, err
	}
	c.deb[value] = parsed
	return parsed, nil
}

func (c *versionCache) pepVersion(value string) (pep440.Version, error) {
	if parsed, ok := c.pep[value]; ok {
		return parsed, nil
	}
	parsed, err := pep440.Parse(value)
	if err != nil {
		return pep440.Version{}, err
	}
	c.pep[value] = parsed
	return parsed, nil
}

func (c *versionCache) validate(value string) error {
	var err error
	switch c.sourceType {
	case types.SourceTypePython:
		_, err = c.pepVersion(value)
	case types.SourceTypeCygwin:
		_, err = c.debVersion(value)
	default:
		_, err = c.semVersion(value)
	}
	return err
}

// compare returns -1, 0 or 1. Unparseable versions fall back to a plain
// string comparison so ordering stays total.
func (c *versionCache) compare(a string, b string) int {
	switch c.sourceType {
	case types.SourceTypePython:
		v1, err1 := c.pepVersion(a)
		v2, err2 := c.pepVersion(b)
		if err1 == nil && err2 == nil {
			return v1.Compare(v2)
		}
	case types.SourceTypeCygwin:
		v1, err1 := c.debVersion(a)
		v2, err2 := c.debVersion(b)
		if err1 == nil && err2 == nil {
			return cmp.Compare(v1.Compare(v2), 0)
		}
	default:
		v1, err1 := c.semVersion(a)
		v2, err2 := c.semVersion(b)
		if err1 == nil && err2 == nil {
			return v1.Compare(v2)
		}
	}
	return strings.Compare(a, b)
}

// CompareVersions orders two versions using the rules of sourceType.
func CompareVersions(sourceType types.SourceType, a string, b string) int {
	return newVersionCache(sourceType).compare(a, b)
}

// ValidateVersion rejects a requested version the source cannot parse.
func ValidateVersion(sourceType types.SourceType, value string) error {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	if err := newVersionCache(sourceType).validate(value); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("'%s' is not a valid %s version", value, sourceType)).
			WithCause(err)
	}
	return nil
}

// HighestVersion returns the greatest entry of available.
func HighestVersion(sourceType types.SourceType, available []string) (string, error) {
	if len(available) == 0 {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("no available versions")
	}
	cache := newVersionCache(sourceType)
	sorted := append([]string(nil), available...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return cache.compare(sorted[i], sorted[j]) > 0
	})
	return sorted[0], nil
}

// SplitNameVersion splits tool output such as "requests-2.31.0" or
// "make-4.2.1-2" into name and version. The rightmost split whose suffix
// parses as a version for sourceType wins; Cygwin suffixes must carry a
// release component.
func SplitNameVersion(sourceType types.SourceType, token string) (string, string, bool) {
	token = strings.TrimSpace(token)
	cache := newVersionCache(sourceType)
	minHyphens := 0
	if sourceType == types.SourceTypeCygwin {
		minHyphens = 1
	}
	for i := len(token) - 1; i > 0; i-- {
		if token[i] != '-' {
			continue
		}
		name, version := token[:i], token[i+1:]
		if version == "" || version[0] < '0' || version[0] > '9' {
			continue
		}
		if strings.Count(version, "-") < minHyphens {
			continue
		}
		if cache.validate(version) == nil {
			return name, version, true
		}
	}
	return token, "", false
}

// IsPrerelease reports whether value carries a prerelease tag. Only
// semantic versions are inspected.
func IsPrerelease(sourceType types.SourceType, value string) bool {
	switch sourceType {
	case types.SourceTypeNormal, types.SourceTypeRuby:
		parsed, err := newVersionCache(sourceType).semVersion(value)
		return err == nil && parsed.Prerelease() != ""
	default:
		return false
	}
}
