// Package journal stores one record per finished live session and lists them
// back for the history command.
package journal

import (
	"context"
	"errors"
	"slices"

	"github.com/vango-go/agriguard-live/pkg/core/live"
)

// Common errors for journal operations.
var (
	ErrInvalidConfig = errors.New("invalid journal configuration")
	ErrInvalidDriver = errors.New("invalid journal driver")
	ErrInvalidID     = errors.New("summary has no session id")
	ErrClosed        = errors.New("journal closed")
)

// DefaultListLimit bounds List when no limit is given.
const DefaultListLimit = 20

// ListOptions filters List results. Results are newest first.
type ListOptions struct {
	// UserName restricts results to one user; empty lists everyone.
	UserName string
	Limit    int
}

func (o ListOptions) limit() int {
	if o.Limit <= 0 {
		return DefaultListLimit
	}
	return o.Limit
}

// Store persists session summaries. It satisfies live.Recorder.
type Store interface {
	Record(ctx context.Context, summary live.Summary) error
	List(ctx context.Context, opts ListOptions) ([]live.Summary, error)
	Close() error
}

func validate(s live.Summary) error {
	if s.ID == "" {
		return ErrInvalidID
	}
	return nil
}

func sortNewestFirst(s []live.Summary) {
	slices.SortStableFunc(s, func(a, b live.Summary) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
}
