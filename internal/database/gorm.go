package database

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"whatsapp-relay/internal/config"
	"whatsapp-relay/internal/models"
)

// Open connects the settings store named by cfg.DBDriver/cfg.DBDSN and
// migrates its schema.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DBDSN)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DBDSN)
	default:
		return nil, errors.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "connect %s settings store", cfg.DBDriver)
	}

	if err := db.AutoMigrate(&models.SystemSetting{}); err != nil {
		return nil, errors.Wrap(err, "migrate settings store")
	}

	return db, nil
}

// SyncConfig overlays stored credentials onto cfg. Keys missing from the
// store are seeded from the current (env) value when it is set.
func SyncConfig(db *gorm.DB, cfg *config.Config, l log.FieldLogger) error {
	settings := []struct {
		Key   string
		Value *string
	}{
		{"WHATSAPP_VERIFY_TOKEN", &cfg.VerifyToken},
		{"WHATSAPP_ACCESS_TOKEN", &cfg.AccessToken},
		{"WHATSAPP_PHONE_NUMBER_ID", &cfg.PhoneNumberID},
		{"WHATSAPP_BUSINESS_ACCOUNT_ID", &cfg.BusinessAccountID},
		{"WHATSAPP_APP_SECRET", &cfg.AppSecret},
	}

	for _, s := range settings {
		var setting models.SystemSetting
		err := db.Where("key = ?", s.Key).First(&setting).Error
		switch {
		case err == nil:
			if setting.Value != "" {
				*s.Value = setting.Value
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if *s.Value == "" {
				continue
			}
			if err := db.Create(&models.SystemSetting{Key: s.Key, Value: *s.Value}).Error; err != nil {
				return errors.Wrapf(err, "seed setting %s", s.Key)
			}
		default:
			return errors.Wrapf(err, "load setting %s", s.Key)
		}
	}

	l.Info("System settings synchronized from database")
	return nil
}
