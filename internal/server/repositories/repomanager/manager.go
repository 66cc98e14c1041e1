package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/securemsg/internal/dbx"
	"github.com/dmitrijs2005/securemsg/internal/server/repositories/export"
	"github.com/dmitrijs2005/securemsg/internal/server/repositories/messages"
	"github.com/dmitrijs2005/securemsg/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Messages(db dbx.DBTX) messages.Repository
	Export(db dbx.DBTX) export.Repository
}
