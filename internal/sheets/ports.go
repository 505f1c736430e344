package sheets

import (
	"context"

	"metas/internal/core"
)

// Ports for outbound adapters.
type (
	// ReportWriter appends a goal snapshot to the progress report and
	// returns a reference to the written row.
	ReportWriter interface {
		Append(ctx context.Context, g core.Goal) (rowRef string, err error)
	}
)
