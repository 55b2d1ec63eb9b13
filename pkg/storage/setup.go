package storage

import (
	"github.com/sirupsen/logrus"

	"github.com/CuongBC195/e-contract-backend/pkg/storage/db"
	"github.com/CuongBC195/e-contract-backend/pkg/storage/memory"
	"github.com/CuongBC195/e-contract-backend/pkg/storage/model"
)

var log = logrus.StandardLogger().WithField("package", "storage")

func SetupMemoryStorage() model.DocumentStore {
	return memory.New()
}

func SetupDbStorage(dsn string) model.DocumentStore {
	selectedStorage, err := db.New(dsn)
	if err != nil {
		log.Fatalf("unable to create db storage: %v", err)
	}
	return selectedStorage
}
