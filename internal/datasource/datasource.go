// Package datasource defines how the pipeline obtains source bytes.
package datasource

import (
	"context"
	"io"
)

// Source opens a fresh stream over the input. The pipeline opens its source
// twice (header scan, then the main pass), so Open must be repeatable.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
