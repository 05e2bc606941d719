package adapters

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/afero"

	"choco-cli/internal/ports"
)

// FileSystemAdapter implements the directory moves the pipeline needs on
// top of an afero filesystem.
type FileSystemAdapter struct {
	fs afero.Fs
}

func NewFileSystemAdapter(fsys afero.Fs) FileSystemAdapter {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return FileSystemAdapter{fs: fsys}
}

func (a FileSystemAdapter) Fs() afero.Fs {
	return a.fs
}

func (a FileSystemAdapter) FileExists(path string) bool {
	info, err := a.fs.Stat(path)
	return err == nil && !info.IsDir()
}

func (a FileSystemAdapter) DirectoryExists(path string) bool {
	ok, err := afero.DirExists(a.fs, path)
	return err == nil && ok
}

func (a FileSystemAdapter) EnsureDirectory(path string) error {
	if err := a.fs.MkdirAll(path, 0o755); err != nil {
		return fsError("failed to create directory "+path, err)
	}
	return nil
}

// CopyDirectory copies src into dst. Existing files are kept unless
// overwrite is set.
func (a FileSystemAdapter) CopyDirectory(src, dst string, overwrite bool) error {
	err := afero.Walk(a.fs, src, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return a.fs.MkdirAll(target, 0o755)
		}
		if !overwrite && a.FileExists(target) {
			return nil
		}
		return a.copyFile(path, target, info.Mode().Perm())
	})
	if err != nil {
		return fsError("failed to copy "+src+" to "+dst, err)
	}
	return nil
}

func (a FileSystemAdapter) copyFile(src, dst string, perm fs.FileMode) error {
	in, err := a.fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := a.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := a.fs.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm|0o200)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// MoveDirectory renames src to dst, falling back to copy and delete when a
// rename is not possible.
func (a FileSystemAdapter) MoveDirectory(src, dst string) error {
	if err := a.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fsError("failed to create "+filepath.Dir(dst), err)
	}
	if a.DirectoryExists(dst) {
		if err := a.fs.RemoveAll(dst); err != nil {
			return fsError("failed to clear "+dst, err)
		}
	}
	if err := a.fs.Rename(src, dst); err == nil {
		return nil
	}
	if err := a.CopyDirectory(src, dst, true); err != nil {
		return err
	}
	return a.DeleteDirectory(src)
}

func (a FileSystemAdapter) DeleteDirectory(path string) error {
	if err := a.fs.RemoveAll(path); err != nil {
		return fsError("failed to delete "+path, err)
	}
	return nil
}

func (a FileSystemAdapter) DeleteFile(path string) error {
	if err := a.fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return fsError("failed to delete "+path, err)
	}
	return nil
}

func (a FileSystemAdapter) MoveFile(src, dst string) error {
	if err := a.fs.Rename(src, dst); err != nil {
		return fsError("failed to move "+src, err)
	}
	return nil
}

// ListFiles returns every file below root.
func (a FileSystemAdapter) ListFiles(root string) ([]string, error) {
	var files []string
	err := afero.Walk(a.fs, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fsError("failed to list "+root, err)
	}
	return files, nil
}

func (a FileSystemAdapter) ReadFile(path string) ([]byte, error) {
	data, err := afero.ReadFile(a.fs, path)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("failed to read " + path).
			WithCause(err)
	}
	return data, nil
}

func (a FileSystemAdapter) WriteFile(path string, data []byte) error {
	if err := a.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fsError("failed to create "+filepath.Dir(path), err)
	}
	if err := afero.WriteFile(a.fs, path, data, 0o644); err != nil {
		return fsError("failed to write "+path, err)
	}
	return nil
}

func fsError(msg string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(msg).
		WithCause(err)
}

var _ ports.FileSystemPort = FileSystemAdapter{}
