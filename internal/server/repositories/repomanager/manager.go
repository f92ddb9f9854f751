package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/neurorecall/internal/dbx"
	"github.com/dmitrijs2005/neurorecall/internal/server/repositories/attempts"
	"github.com/dmitrijs2005/neurorecall/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/neurorecall/internal/server/repositories/scores"
	"github.com/dmitrijs2005/neurorecall/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Scores(db dbx.DBTX) scores.Repository
	Attempts(db dbx.DBTX) attempts.Repository
}
