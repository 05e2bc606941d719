package ports

import (
	"context"

	"choco-cli/internal/types"
)

type FilesPort interface {
	EnsureCompatibleFileAttributes(ctx context.Context, result *types.PackageResult) error
	WriteArchitectureIgnoreFiles(ctx context.Context, result *types.PackageResult, prefer32Bit bool) ([]string, error)
	CaptureSnapshot(ctx context.Context, result *types.PackageResult) (types.FilesSnapshot, error)
}

type FileSystemPort interface {
	FileExists(path string) bool
	DirectoryExists(path string) bool
	EnsureDirectory(path string) error
	CopyDirectory(src, dst string, overwrite bool) error
	MoveDirectory(src, dst string) error
	DeleteDirectory(path string) error
	DeleteFile(path string) error
	MoveFile(src, dst string) error
	ListFiles(root string) ([]string, error)
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
}
