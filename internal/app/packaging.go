package app

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"choco-cli/internal/types"
)

// Pack builds a package archive from a nuspec and returns its path.
func (s Service) Pack(ctx context.Context, cfg *types.OperationConfiguration) (string, error) {
	if s.Packaging == nil {
		return "", packagingUnavailable("pack")
	}
	cfg = s.prepare(ctx, cfg, types.CommandPack)
	return s.Packaging.Pack(ctx, cfg)
}

// Push publishes a package archive to the first configured source.
func (s Service) Push(ctx context.Context, cfg *types.OperationConfiguration) error {
	if s.Packaging == nil {
		return packagingUnavailable("push")
	}
	cfg = s.prepare(ctx, cfg, types.CommandPush)
	return s.Packaging.Push(ctx, cfg)
}

func packagingUnavailable(command string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(fmt.Sprintf("%s is not available without a packaging backend", command))
}
