package adapters

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"choco-cli/internal/types"
)

type nuspecDocument struct {
	Metadata nuspecMetadata `xml:"metadata"`
}

type nuspecMetadata struct {
	ID           string             `xml:"id"`
	Version      string             `xml:"version"`
	Title        string             `xml:"title"`
	Authors      string             `xml:"authors"`
	Description  string             `xml:"description"`
	Dependencies nuspecDependencies `xml:"dependencies"`
}

type nuspecDependencies struct {
	Dependencies []nuspecDependency `xml:"dependency"`
	Groups       []nuspecGroup      `xml:"group"`
}

type nuspecGroup struct {
	Dependencies []nuspecDependency `xml:"dependency"`
}

type nuspecDependency struct {
	ID      string `xml:"id,attr"`
	Version string `xml:"version,attr"`
}

type PackageDependency struct {
	ID         string
	MinVersion string
}

// NuspecManifest is the subset of package metadata the runners use.
type NuspecManifest struct {
	ID           string
	Version      string
	Title        string
	Authors      string
	Description  string
	Dependencies []PackageDependency
}

func ParseNuspec(data []byte) (NuspecManifest, error) {
	var doc nuspecDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return NuspecManifest{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse nuspec").
			WithCause(err)
	}
	meta := doc.Metadata
	manifest := NuspecManifest{
		ID:          strings.TrimSpace(meta.ID),
		Version:     strings.TrimSpace(meta.Version),
		Title:       strings.TrimSpace(meta.Title),
		Authors:     strings.TrimSpace(meta.Authors),
		Description: strings.TrimSpace(meta.Description),
	}
	if manifest.ID == "" || manifest.Version == "" {
		return NuspecManifest{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("nuspec requires an id and a version")
	}
	deps := append([]nuspecDependency(nil), meta.Dependencies.Dependencies...)
	for _, group := range meta.Dependencies.Groups {
		deps = append(deps, group.Dependencies...)
	}
	seen := map[string]struct{}{}
	for _, dep := range deps {
		id := strings.TrimSpace(dep.ID)
		key := strings.ToLower(id)
		if id == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		manifest.Dependencies = append(manifest.Dependencies, PackageDependency{ID: id, MinVersion: minimumVersion(dep.Version)})
	}
	return manifest, nil
}

// minimumVersion reduces a NuGet version range to its lower bound.
func minimumVersion(spec string) string {
	spec = strings.TrimSpace(spec)
	spec = strings.TrimLeft(spec, "[(")
	spec = strings.TrimRight(spec, "])")
	lower, _, _ := strings.Cut(spec, ",")
	return strings.TrimSpace(lower)
}

// ReadArchiveManifest reads the nuspec at the root of a package archive.
func ReadArchiveManifest(archivePath string) (NuspecManifest, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return NuspecManifest{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to open package archive " + archivePath).
			WithCause(err)
	}
	defer reader.Close()
	for _, file := range reader.File {
		if strings.Contains(file.Name, "/") || !strings.HasSuffix(strings.ToLower(file.Name), types.ManifestExtension) {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return NuspecManifest{}, archiveError("failed to open nuspec in "+archivePath, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return NuspecManifest{}, archiveError("failed to read nuspec in "+archivePath, err)
		}
		return ParseNuspec(data)
	}
	return NuspecManifest{}, errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg("package archive " + archivePath + " has no nuspec")
}

// ExtractArchive unpacks a package archive into dest, leaving out the
// packaging metadata entries.
func ExtractArchive(archivePath, dest string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return archiveError("failed to open package archive "+archivePath, err)
	}
	defer reader.Close()

	root, err := filepath.Abs(dest)
	if err != nil {
		return archiveError("failed to resolve "+dest, err)
	}
	for _, file := range reader.File {
		name := strings.ReplaceAll(file.Name, `\`, "/")
		if isPackagingMetadata(name) {
			continue
		}
		target := filepath.Join(root, filepath.FromSlash(path.Clean("/" + name)))
		if target != root && !strings.HasPrefix(target, root+string(filepath.Separator)) {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("archive entry escapes the package directory: " + file.Name)
		}
		if file.FileInfo().IsDir() || strings.HasSuffix(name, "/") {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return archiveError("failed to create "+target, err)
			}
			continue
		}
		if err := extractFile(file, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(file *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return archiveError("failed to create "+filepath.Dir(target), err)
	}
	rc, err := file.Open()
	if err != nil {
		return archiveError("failed to open "+file.Name, err)
	}
	defer rc.Close()
	mode := file.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode|0o200)
	if err != nil {
		return archiveError("failed to create "+target, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return archiveError("failed to extract "+file.Name, err)
	}
	return out.Close()
}

func isPackagingMetadata(name string) bool {
	lower := strings.ToLower(name)
	return lower == "[content_types].xml" ||
		strings.HasPrefix(lower, "_rels/") ||
		strings.HasPrefix(lower, "package/services/metadata/")
}

// WriteArchive packs the directory holding nuspecPath into
// "<id>.<version>.nupkg" inside outputDir.
func WriteArchive(nuspecPath, outputDir string) (string, error) {
	data, err := os.ReadFile(nuspecPath)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("nuspec not found").
			WithCause(err)
	}
	manifest, err := ParseNuspec(data)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", archiveError("failed to create "+outputDir, err)
	}
	archivePath := filepath.Join(outputDir, ArchiveFileName(manifest.ID, manifest.Version))
	out, err := os.Create(archivePath)
	if err != nil {
		return "", archiveError("failed to create "+archivePath, err)
	}
	writer := zip.NewWriter(out)

	srcDir := filepath.Dir(nuspecPath)
	walkErr := filepath.WalkDir(srcDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(strings.ToLower(p), types.ArchiveExtension) {
			return nil
		}
		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return err
		}
		entry, err := writer.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		in, err := os.Open(p)
		if err != nil {
			return err
		}
		defer in.Close()
		_, err = io.Copy(entry, in)
		return err
	})
	closeErr := writer.Close()
	fileErr := out.Close()
	for _, err := range []error{walkErr, closeErr, fileErr} {
		if err != nil {
			_ = os.Remove(archivePath)
			return "", archiveError("failed to write "+archivePath, err)
		}
	}
	return archivePath, nil
}

func ArchiveFileName(id, version string) string {
	return id + "." + version + types.ArchiveExtension
}

func archiveError(msg string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(msg).
		WithCause(err)
}
