package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"myblog/internal/config"
	"myblog/internal/database"
	"myblog/internal/mail"
	"myblog/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Env:             "test",
		Port:            "5000",
		SecretKey:       "secure-secret-at-least-32-chars-long",
		DBDriver:        "sqlite",
		DBPath:          filepath.Join(t.TempDir(), "blog.db"),
		PostsPerPage:    3,
		SessionTTLHours: 24,
		RememberDays:    30,
		MailServer:      "smtp.example.com",
		MailPort:        587,
	}
}

func TestInitRuntime_WithoutRedis(t *testing.T) {
	cfg := testConfig(t)

	rt, err := InitRuntime(cfg)
	require.NoError(t, err)

	assert.Nil(t, rt.Redis)
	assert.False(t, rt.Cache.Enabled())
	assert.NotNil(t, rt.Metrics)
	assert.IsType(t, &mail.LogMailer{}, rt.Mailer)
	require.NoError(t, database.Ping(context.Background(), rt.DB))

	assert.True(t, rt.DB.Migrator().HasTable("users"))
	assert.True(t, rt.DB.Migrator().HasTable("posts"))

	require.NoError(t, rt.Close(context.Background()))
}

func TestInitRuntime_BadDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.DBDriver = "mysql"

	_, err := InitRuntime(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database connection failed")
}

func TestNewMailer(t *testing.T) {
	log := observability.NopLogger()

	cfg := testConfig(t)
	assert.IsType(t, &mail.LogMailer{}, NewMailer(cfg, log))

	cfg.MailUsername = "blog@example.com"
	assert.IsType(t, &mail.SMTPMailer{}, NewMailer(cfg, log))

	cfg.MailUsername = ""
	cfg.Env = "production"
	assert.IsType(t, &mail.SMTPMailer{}, NewMailer(cfg, log), "production always uses SMTP")
}
