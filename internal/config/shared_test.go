package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SIGNAGE_SERVER_JWT_SECRET", "test-secret")
	t.Setenv("SIGNAGE_DATABASE_DRIVER", "sqlite")
	t.Setenv("SIGNAGE_STORAGE_PROVIDER", "local")
	t.Setenv("SIGNAGE_PUBLISHER_HORIZON_DAYS", "30")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-secret", cfg.Server.JWTSecret)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "local", cfg.Storage.Provider)
	assert.Equal(t, 30, cfg.Publisher.HorizonDays)
	assert.Equal(t, ":8081", cfg.Server.Port)
	assert.Equal(t, "signage-manifests", cfg.Storage.BucketManifests)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SIGNAGE_SERVER_JWT_SECRET", "")

	_, err := Load(NeedAuth)
	assert.ErrorContains(t, err, "jwt_secret")
}

func TestLoad_PublisherNeedsNoSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SIGNAGE_SERVER_JWT_SECRET", "")
	t.Setenv("SIGNAGE_STORAGE_KEY_ID", "")

	// s3 is the default provider; a simulated run needs no credentials.
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "s3", cfg.Storage.Provider)

	_, err = Load(NeedStorage)
	assert.ErrorContains(t, err, "key_id")
}

func TestValidate(t *testing.T) {
	var cfg Config
	cfg.Server.JWTSecret = "x"
	cfg.Database.Driver = "postgres"
	cfg.Storage.Provider = "s3"
	require.NoError(t, cfg.Validate())
	assert.ErrorContains(t, cfg.Validate(NeedStorage), "key_id")

	cfg.Storage.KeyID = "key"
	require.NoError(t, cfg.Validate(NeedAuth, NeedStorage))
	assert.Equal(t, 1, cfg.Publisher.HorizonDays)

	cfg.Server.JWTSecret = ""
	assert.ErrorContains(t, cfg.Validate(NeedAuth), "jwt_secret")

	cfg.Database.Driver = "mysql"
	assert.Error(t, cfg.Validate())
}
