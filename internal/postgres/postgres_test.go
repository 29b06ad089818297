package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigSetup(t *testing.T) {
	cfg := (&Config{Port: "not-a-port", Password: "secret"}).Setup()

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, "5432", cfg.Port)
	assert.Equal(t, 10, cfg.MaxConns)
	assert.Contains(t, cfg.DSN(), "password=secret")
	assert.NotContains(t, cfg.String(), "secret")
}
