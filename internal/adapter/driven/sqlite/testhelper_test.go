package sqlite

import (
	"context"
	"fmt"
	"net/url"
	"testing"

	"github.com/ericfisherdev/credaudit/internal/domain/model"
	"github.com/ericfisherdev/credaudit/internal/logger"
)

// setupTestDB creates a named shared in-memory SQLite database for testing.
// Writer and reader connections share the same in-memory database via cache=shared.
// A unique name derived from t.Name() keeps parallel tests isolated.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?%s", url.PathEscape(t.Name()), memoryPragmas)

	db, err := openPools(context.Background(), dsn, ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if _, err := RunMigrations(db.Writer, logger.Nop()); err != nil {
		_ = db.Close()
		t.Fatalf("run migrations: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	return db
}

// seedCredentials inserts one record per identity with IDs "r1", "r2", ...
func seedCredentials(t *testing.T, repo *CredentialRepo, identities ...string) []model.Credential {
	t.Helper()

	out := make([]model.Credential, 0, len(identities))
	for i, identity := range identities {
		cred, err := repo.Insert(context.Background(), model.Credential{
			ID:       fmt.Sprintf("r%d", i+1),
			Name:     fmt.Sprintf("Account %d", i+1),
			Identity: identity,
			Secret:   fmt.Sprintf("secret-%d", i+1),
			Source:   "test",
		})
		if err != nil {
			t.Fatalf("seed credential %q: %v", identity, err)
		}
		out = append(out, cred)
	}
	return out
}
