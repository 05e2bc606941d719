package adapters

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"choco-cli/internal/ports"
	"choco-cli/internal/types"
)

const packageInfoFileName = "info.yaml"

// PackageInfoFileAdapter keeps one yaml record per package below the
// package information directory.
type PackageInfoFileAdapter struct {
	root string
}

func NewPackageInfoFileAdapter(root string) PackageInfoFileAdapter {
	return PackageInfoFileAdapter{root: root}
}

// Get returns an empty record for packages that have never been saved.
func (a PackageInfoFileAdapter) Get(name string) (types.PackageInformation, error) {
	data, err := os.ReadFile(a.path(name))
	if os.IsNotExist(err) {
		return types.PackageInformation{Name: name}, nil
	}
	if err != nil {
		return types.PackageInformation{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read package information for " + name).
			WithCause(err)
	}
	var info types.PackageInformation
	if err := yaml.Unmarshal(data, &info); err != nil {
		return types.PackageInformation{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse package information yaml").
			WithCause(err)
	}
	if info.Name == "" {
		info.Name = name
	}
	return info, nil
}

func (a PackageInfoFileAdapter) Save(info types.PackageInformation) error {
	if strings.TrimSpace(info.Name) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package information requires a name")
	}
	data, err := yaml.Marshal(info)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode package information").
			WithCause(err)
	}
	path := a.path(info.Name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create package information directory").
			WithCause(err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write package information for " + info.Name).
			WithCause(err)
	}
	return nil
}

func (a PackageInfoFileAdapter) Remove(name string) error {
	if err := os.RemoveAll(filepath.Dir(a.path(name))); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to remove package information for " + name).
			WithCause(err)
	}
	return nil
}

func (a PackageInfoFileAdapter) path(name string) string {
	return filepath.Join(a.root, strings.ToLower(strings.TrimSpace(name)), packageInfoFileName)
}

var _ ports.PackageInfoStorePort = PackageInfoFileAdapter{}
