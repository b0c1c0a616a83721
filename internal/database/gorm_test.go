package database

import (
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"whatsapp-relay/internal/config"
	"whatsapp-relay/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(&config.Config{DBDriver: "sqlite", DBDSN: "file:" + t.Name() + "?mode=memory&cache=shared"})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func TestSyncConfigSeedsMissingKeys(t *testing.T) {
	db := openTestDB(t)
	logger, _ := test.NewNullLogger()
	cfg := &config.Config{VerifyToken: "env-verify", AccessToken: "env-access"}

	require.NoError(t, SyncConfig(db, cfg, logger))

	var settings []models.SystemSetting
	require.NoError(t, db.Order("key").Find(&settings).Error)
	require.Len(t, settings, 2)
	assert.Equal(t, "WHATSAPP_ACCESS_TOKEN", settings[0].Key)
	assert.Equal(t, "env-access", settings[0].Value)
	assert.Equal(t, "WHATSAPP_VERIFY_TOKEN", settings[1].Key)
	assert.Equal(t, "env-verify", settings[1].Value)
}

func TestSyncConfigOverlaysStoredValues(t *testing.T) {
	db := openTestDB(t)
	logger, _ := test.NewNullLogger()
	require.NoError(t, db.Create(&models.SystemSetting{Key: "WHATSAPP_PHONE_NUMBER_ID", Value: "stored-phone"}).Error)
	require.NoError(t, db.Create(&models.SystemSetting{Key: "WHATSAPP_APP_SECRET", Value: ""}).Error)
	cfg := &config.Config{PhoneNumberID: "env-phone", AppSecret: "env-secret"}

	require.NoError(t, SyncConfig(db, cfg, logger))

	assert.Equal(t, "stored-phone", cfg.PhoneNumberID)
	assert.Equal(t, "env-secret", cfg.AppSecret)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(&config.Config{DBDriver: "oracle", DBDSN: "x"})

	assert.EqualError(t, err, `unsupported DB_DRIVER "oracle"`)
}
