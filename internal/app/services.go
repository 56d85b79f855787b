package app

import (
	"os"

	"gorm.io/gorm"

	redisclient "github.com/revisia/revisia-backend/internal/clients/redis"
	"github.com/revisia/revisia-backend/internal/pkg/logger"
	"github.com/revisia/revisia-backend/internal/services"
)

type Services struct {
	Auth     services.AuthService
	User     services.UserService
	Folder   services.FolderService
	Synthese services.SyntheseService
	Revision services.RevisionService

	Bus redisclient.Bus
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos) (Services, error) {
	log.Info("Wiring services...")

	authService := services.NewAuthService(
		db, log,
		reposet.User, reposet.UserToken,
		cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL,
	)
	userService := services.NewUserService(db, log, reposet.User)
	folderService := services.NewFolderService(db, log, reposet.Folder)
	syntheseService := services.NewSyntheseService(db, log, reposet.Synthese, reposet.Folder)

	comparator, err := services.NewOpenAIComparator(log)
	if err != nil {
		return Services{}, err
	}

	// The event bus is optional: without REDIS_ADDR the notifier degrades
	// to structured logs only.
	var bus redisclient.Bus
	if os.Getenv("REDIS_ADDR") != "" {
		bus, err = redisclient.NewBus(log)
		if err != nil {
			return Services{}, err
		}
	}
	notifier := services.NewRevisionNotifier(log, bus)

	revisionService := services.NewRevisionService(
		reposet.TxRunner, log,
		reposet.RevisionSession, reposet.RevisionCompletion, reposet.Synthese,
		comparator, notifier,
	)

	return Services{
		Auth:     authService,
		User:     userService,
		Folder:   folderService,
		Synthese: syntheseService,
		Revision: revisionService,
		Bus:      bus,
	}, nil
}
