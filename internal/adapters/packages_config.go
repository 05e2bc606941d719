package adapters

import (
	"encoding/xml"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"choco-cli/internal/ports"
	"choco-cli/internal/types"
)

// PackagesConfigAdapter parses packages.config manifests. Parsed files are
// cached until their modification time changes.
type PackagesConfigAdapter struct {
	mu    sync.Mutex
	cache map[string]packagesConfigCacheEntry
}

func NewPackagesConfigAdapter() *PackagesConfigAdapter {
	return &PackagesConfigAdapter{cache: map[string]packagesConfigCacheEntry{}}
}

type packagesConfigXML struct {
	Packages []packagesConfigPackage `xml:"package"`
}

type packagesConfigPackage struct {
	ID                 string `xml:"id,attr"`
	Version            string `xml:"version,attr"`
	Source             string `xml:"source,attr"`
	InstallArguments   string `xml:"installArguments,attr"`
	PackageParameters  string `xml:"packageParameters,attr"`
	ForceX86           string `xml:"forceX86,attr"`
	AllowMultiple      string `xml:"allowMultipleVersions,attr"`
	IgnoreDependencies string `xml:"ignoreDependencies,attr"`
	Force              string `xml:"force,attr"`
	Prerelease         string `xml:"prerelease,attr"`
	PinPackage         string `xml:"pinPackage,attr"`
	SkipScripts        string `xml:"skipAutomationScripts,attr"`
	Timeout            string `xml:"executionTimeout,attr"`
	Disabled           string `xml:"disabled,attr"`
}

type packagesConfigCacheEntry struct {
	modTime time.Time
	entries []types.PackagesConfigEntry
}

func (a *PackagesConfigAdapter) Parse(path string) ([]types.PackagesConfigEntry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("Could not find '" + path + "' in the location specified.").
			WithCause(err)
	}
	a.mu.Lock()
	if entry, ok := a.cache[path]; ok && entry.modTime.Equal(info.ModTime()) {
		a.mu.Unlock()
		return entry.entries, nil
	}
	a.mu.Unlock()

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("failed to read packages.config").
			WithCause(err)
	}
	var doc packagesConfigXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse packages.config").
			WithCause(err)
	}

	var entries []types.PackagesConfigEntry
	for _, pkg := range doc.Packages {
		id := strings.TrimSpace(pkg.ID)
		if id == "" {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("packages.config entry is missing an id")
		}
		timeout, _ := strconv.Atoi(strings.TrimSpace(pkg.Timeout))
		entries = append(entries, types.PackagesConfigEntry{
			ID:                 id,
			Version:            strings.TrimSpace(pkg.Version),
			Source:             strings.TrimSpace(pkg.Source),
			InstallArguments:   pkg.InstallArguments,
			PackageParameters:  pkg.PackageParameters,
			ForceX86:           xmlBool(pkg.ForceX86),
			AllowMultiple:      xmlBool(pkg.AllowMultiple),
			IgnoreDependencies: xmlBool(pkg.IgnoreDependencies),
			Force:              xmlBool(pkg.Force),
			Prerelease:         xmlBool(pkg.Prerelease),
			PinPackage:         xmlBool(pkg.PinPackage),
			SkipScripts:        xmlBool(pkg.SkipScripts),
			Timeout:            timeout,
			Disabled:           xmlBool(pkg.Disabled),
		})
	}

	a.mu.Lock()
	a.cache[path] = packagesConfigCacheEntry{modTime: info.ModTime(), entries: entries}
	a.mu.Unlock()
	return entries, nil
}

func xmlBool(value string) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	return err == nil && parsed
}

var _ ports.PackagesConfigPort = (*PackagesConfigAdapter)(nil)
