package database

import (
	"github.com/yeremiapane/pos-terminal/models"
	"github.com/yeremiapane/pos-terminal/utils"
	"gorm.io/gorm"
)

// Migrate creates or updates the local ledger schema. Orders carry their own
// sync flag, so there is no separate queue table.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Product{},
		&models.Order{},
		&models.Shift{},
		&models.User{},
	)
	if err != nil {
		return err
	}

	// Lookups the sync agent and history views depend on.
	for _, idx := range []struct {
		model interface{}
		name  string
	}{
		{&models.Order{}, "Synced"},
		{&models.Order{}, "Status"},
		{&models.Order{}, "CreatedAt"},
		{&models.Order{}, "PaymentMethod"},
		{&models.Shift{}, "UserID"},
	} {
		if !db.Migrator().HasIndex(idx.model, idx.name) {
			utils.ErrorLogger.Warnf("index on %s missing after migration", idx.name)
		}
	}

	utils.InfoLogger.Println("AutoMigrate completed.")
	return nil
}
