package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, devJWTSecret, c.JWTSecret)
	assert.Equal(t, time.Hour, c.SlotDuration())
	assert.Equal(t, 30*time.Minute, c.TokenTTL())
	assert.True(t, c.StrictSlotDuration)
	assert.False(t, c.RequireVerifiedPO)
	assert.Equal(t, time.UTC, c.Location())
	assert.False(t, c.OdooConfigured())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SLOT_DURATION_MIN", "30")
	t.Setenv("STRICT_STATUS_TRANSITIONS", "false")
	t.Setenv("TIMEZONE", "Asia/Jakarta")
	t.Setenv("ODOO_URL", "http://erp")
	t.Setenv("ODOO_DB", "erp")
	t.Setenv("ODOO_USER", "bot")
	t.Setenv("ODOO_PASSWORD", "secret")
	t.Setenv("PO_VALIDATION_TIMEOUT", "2s")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, c.SlotDuration())
	assert.False(t, c.StrictStatusTransitions)
	assert.Equal(t, "Asia/Jakarta", c.Location().String())
	assert.True(t, c.OdooConfigured())
	assert.Equal(t, 2*time.Second, c.POValidationTimeout)
}

func TestValidate(t *testing.T) {
	base := Config{SlotDurationMin: 60, JWTExpireMin: 30, Timezone: "UTC"}
	require.NoError(t, base.Validate())

	release := base
	release.GinMode = "release"
	assert.Error(t, release.Validate(), "release mode needs a real secret")

	badZone := base
	badZone.Timezone = "Mars/Olympus"
	assert.Error(t, badZone.Validate())

	badSlot := base
	badSlot.SlotDurationMin = 0
	assert.Error(t, badSlot.Validate())
}
