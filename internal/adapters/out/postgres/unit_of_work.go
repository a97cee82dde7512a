// Package postgres provides the GORM-based Unit of Work of the billing engine.
//
// A unit of work is one business transaction: plan creation inserts every job
// of a plan inside a single one, the executor claims and finalizes inside short
// separate ones so that the claim is visible to other processes before the
// invoicing call starts.
//
// Usage:
//
//	uow := factory.Create()
//	if err := uow.Begin(ctx); err != nil {
//	    return err
//	}
//	defer uow.Rollback(ctx)
//
//	if err := uow.JobRepository().Add(ctx, j); err != nil {
//	    return err
//	}
//
//	return uow.Commit(ctx)
//
// Rollback after a successful Commit returns gorm.ErrInvalidTransaction and is
// otherwise harmless, which is what makes the deferred call above safe.
package postgres

import (
	"context"
	"fmt"

	"billing/internal/adapters/out/postgres/jobrepo"
	"billing/internal/adapters/out/postgres/userrepo"
	"billing/internal/core/ports"

	"gorm.io/gorm"
)

// GormUnitOfWorkFactory creates UnitOfWork instances sharing one connection pool.
type GormUnitOfWorkFactory struct {
	db *gorm.DB
}

// NewGormUnitOfWorkFactory creates a factory for GORM-based unit of work instances.
//
// Example:
//
//	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
//	if err != nil {
//	    log.Fatal("failed to connect database")
//	}
//	factory := NewGormUnitOfWorkFactory(db)
func NewGormUnitOfWorkFactory(db *gorm.DB) *GormUnitOfWorkFactory {
	return &GormUnitOfWorkFactory{db: db}
}

// Create produces a new UnitOfWork. Instances are not safe for concurrent use;
// every goroutine creates its own.
func (f *GormUnitOfWorkFactory) Create() ports.UnitOfWork {
	return &GormUnitOfWork{db: f.db}
}

// GormUnitOfWork coordinates a database transaction across repositories.
type GormUnitOfWork struct {
	db *gorm.DB
	tx *gorm.DB
}

// Begin starts a transaction. Calling Begin twice does not nest.
func (uow *GormUnitOfWork) Begin(ctx context.Context) error {
	if uow.tx != nil {
		return nil
	}

	tx := uow.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("%w: begin: %w", ports.ErrPersistence, tx.Error)
	}

	uow.tx = tx
	return nil
}

// Commit finalizes the current transaction.
func (uow *GormUnitOfWork) Commit(_ context.Context) error {
	if uow.tx == nil {
		return gorm.ErrInvalidTransaction
	}

	err := uow.tx.Commit().Error
	uow.tx = nil
	if err != nil {
		return fmt.Errorf("%w: commit: %w", ports.ErrPersistence, err)
	}
	return nil
}

// Rollback discards the current transaction.
func (uow *GormUnitOfWork) Rollback(_ context.Context) error {
	if uow.tx == nil {
		return gorm.ErrInvalidTransaction
	}

	err := uow.tx.Rollback().Error
	uow.tx = nil
	return err
}

// JobRepository returns a job repository bound to the active transaction, or
// to the root connection when no transaction is open.
func (uow *GormUnitOfWork) JobRepository() ports.JobRepository {
	return jobrepo.NewGormJobRepository(uow.conn())
}

func (uow *GormUnitOfWork) conn() *gorm.DB {
	if uow.tx != nil {
		return uow.tx
	}
	return uow.db
}

// Migrate creates the tables owned by the billing engine and, when
// withDirectory is set, the user directory table too (local and test setups).
func Migrate(db *gorm.DB, withDirectory bool) error {
	models := []any{&jobrepo.JobDTO{}}
	if withDirectory {
		models = append(models, &userrepo.UserDTO{})
	}
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("%w: migrate: %w", ports.ErrPersistence, err)
	}
	return nil
}
