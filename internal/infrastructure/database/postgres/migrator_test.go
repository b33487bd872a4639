package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matsource/matsource/internal/config"
)

func TestSourceURL(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"bare relative directory", "migrations", "file://migrations"},
		{"bare absolute directory", "/srv/matsource/migrations", "file:///srv/matsource/migrations"},
		{"explicit file URL passes through", "file://migrations", "file://migrations"},
		{"other scheme passes through", "github://owner/repo/migrations", "github://owner/repo/migrations"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sourceURL(tt.path))
		})
	}
}

// The default configuration ships a plain directory path; it must resolve to
// a usable source URL so an out-of-the-box boot reaches the database instead
// of dying on migrate.New.
func TestSourceURLAcceptsDefaultConfigPath(t *testing.T) {
	cfg := config.NewDefaultConfig()
	assert.Equal(t, "file://migrations", sourceURL(cfg.Database.MigrationPath))
}
