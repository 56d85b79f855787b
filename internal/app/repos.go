package app

import (
	"gorm.io/gorm"

	"github.com/revisia/revisia-backend/internal/pkg/logger"
	"github.com/revisia/revisia-backend/internal/repos"
)

type Repos struct {
	TxRunner           repos.TxRunner
	User               repos.UserRepo
	UserToken          repos.UserTokenRepo
	Folder             repos.FolderRepo
	Synthese           repos.SyntheseRepo
	RevisionSession    repos.RevisionSessionRepo
	RevisionCompletion repos.RevisionCompletionRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		TxRunner:           repos.NewGormTxRunner(db),
		User:               repos.NewUserRepo(db, log),
		UserToken:          repos.NewUserTokenRepo(db, log),
		Folder:             repos.NewFolderRepo(db, log),
		Synthese:           repos.NewSyntheseRepo(db, log),
		RevisionSession:    repos.NewRevisionSessionRepo(db, log),
		RevisionCompletion: repos.NewRevisionCompletionRepo(db, log),
	}
}
