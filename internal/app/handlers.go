package app

import (
	"github.com/revisia/revisia-backend/internal/handlers"
	"github.com/revisia/revisia-backend/internal/pkg/logger"
)

type Handlers struct {
	Auth     *handlers.AuthHandler
	User     *handlers.UserHandler
	Folder   *handlers.FolderHandler
	Synthese *handlers.SyntheseHandler
	Revision *handlers.RevisionHandler
}

func wireHandlers(log *logger.Logger, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Auth:     handlers.NewAuthHandler(serviceset.Auth),
		User:     handlers.NewUserHandler(serviceset.User),
		Folder:   handlers.NewFolderHandler(serviceset.Folder),
		Synthese: handlers.NewSyntheseHandler(serviceset.Synthese),
		Revision: handlers.NewRevisionHandler(serviceset.Revision),
	}
}
