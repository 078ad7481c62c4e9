package service

import (
	"testing"

	"taxoffice/internal/database"
	"taxoffice/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// openTestDB runs the production schema migration against an in-memory
// sqlite database so service tests exercise real repository queries.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// A pooled :memory: DSN would give every connection its own database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

type testServices struct {
	db         *gorm.DB
	rules      RuleService
	holidays   HolidayService
	extensions ExtensionService
	deadlines  DeadlineService
}

func newTestServices(t *testing.T) testServices {
	t.Helper()

	db := openTestDB(t)
	ruleRepo := repository.NewRuleRepository(db)
	holidayRepo := repository.NewHolidayRepository(db)
	extRepo := repository.NewExtensionRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	txm := repository.NewTransactionManager(db)

	rules := NewRuleService(ruleRepo, auditRepo, txm, nil)
	holidays := NewHolidayService(holidayRepo, auditRepo)
	extensions := NewExtensionService(extRepo, auditRepo, txm, nil)
	deadlines := NewDeadlineService(rules, holidays, extensions, ruleRepo)

	return testServices{
		db:         db,
		rules:      rules,
		holidays:   holidays,
		extensions: extensions,
		deadlines:  deadlines,
	}
}
