package domain

import (
	"context"
	"io"
)

// ServicePort is consumed by handlers and other modules.
// WriteSchema streams the raw schema document; everything else rides the
// standard envelope
type ServicePort interface {
	Dispatch(ctx context.Context, in BatchInput) (BatchOutput, error)
	WriteSchema(ctx context.Context, w io.Writer) error
	Modules(ctx context.Context) ([]ModuleInfo, error)
}
