package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/compass/core"
	"github.com/trezcool/compass/core/user"
	"github.com/trezcool/compass/storage/database"
)

// DatabaseURLEnv names the variable holding the Postgres URL used by repository tests.
const DatabaseURLEnv = "COMPASS_TEST_DATABASE_URL"

// NewValidate returns a validator and its translator set up like the binaries do.
func NewValidate() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

// NewRetrier retries like the binaries do, without the waits.
func NewRetrier() core.Retrier {
	return core.Retrier{MaxAttempts: core.DefaultMaxAttempts, BaseDelay: time.Microsecond, Logger: core.NopLogger{}}
}

// OpenDB opens and migrates the test database, skipping the test when none is configured.
// Rows written by the test are deleted when it ends; the seeded reference data stays.
func OpenDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv(DatabaseURLEnv)
	if dsn == "" {
		t.Skipf("%s is not set", DatabaseURLEnv)
	}
	db, err := database.OpenURL(dsn)
	if err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	if err := database.Migrate(db.DB); err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	t.Cleanup(func() {
		for _, table := range []string{"student", "school", "district", "operator"} {
			_, _ = db.Exec("DELETE FROM " + table)
		}
		_ = db.Close()
	})
	return db
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	id, name, email, pwd string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        id,
		Name:      name,
		Email:     email,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}
