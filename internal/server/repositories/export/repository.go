package export

import (
	"context"
	"time"

	"github.com/dmitrijs2005/securemsg/internal/server/models"
)

// Repository reads whole tables for the administrative export. Callers are
// expected to bind it to a read-only snapshot transaction.
type Repository interface {
	SetStatementTimeout(ctx context.Context, d time.Duration) error
	ListTables(ctx context.Context) ([]string, error)
	DumpTable(ctx context.Context, name string) (*models.Table, error)
}
