package unitofwork

import (
	"context"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type RepositoryFactoryImpl struct {
	db  *gorm.DB
	rdb *redis.Client
}

func NewRepositoryFactory(db *gorm.DB, rdb *redis.Client) RepositoryFactory {
	return &RepositoryFactoryImpl{
		db:  db,
		rdb: rdb,
	}
}

func (f *RepositoryFactoryImpl) NewUnitOfWork(ctx context.Context) UnitOfWork {
	// UoW is short lived per request; the context is used when calling Begin()
	// or passed explicitly to repository methods.
	return NewUnitOfWork(f.db, f.rdb)
}
