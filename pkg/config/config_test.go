package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "Pendente", cfg.Statuses.Pending)
	assert.Equal(t, "Validado", cfg.Statuses.Validated)
	assert.Equal(t, "Professor", cfg.Admin.TeacherProfileName)
	assert.Equal(t, []string{"Administrador", "Coordenador"}, cfg.Admin.ManagerProfiles)
	assert.Equal(t, 5*time.Minute, cfg.Stats.CacheTTL)
	assert.Equal(t, int64(10*1024*1024), cfg.Mail.MaxFileSizeBytes)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("STATUS_REJECTED", "Recusado")
	t.Setenv("STATS_CACHE_TTL", "not-a-duration")
	t.Setenv("MANAGER_PROFILES", " Gestor , ,Diretor")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Recusado", cfg.Statuses.Rejected)
	assert.Equal(t, 5*time.Minute, cfg.Stats.CacheTTL)
	assert.Equal(t, []string{"Gestor", "Diretor"}, cfg.Admin.ManagerProfiles)
}

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
