package ports

import "context"

type PrompterPort interface {
	Confirm(ctx context.Context, question string, defaultYes bool) (bool, error)
}
