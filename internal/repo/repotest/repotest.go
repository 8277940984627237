// Package repotest opens throwaway sqlite databases with the full schema for
// repository tests.
package repotest

import (
	"fmt"
	"testing"

	"github.com/angelmondragon/elitejewels-backend/pkg/db"
	"github.com/angelmondragon/elitejewels-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Open returns an isolated in-memory database migrated with every model.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	client, err := db.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := client.DB().AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client.DB()
}
