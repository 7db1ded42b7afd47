package store

import (
	"context"

	"gorm.io/gorm"
)

// Generic GORM helpers shared by the store implementation files. They
// operate on the raw *gorm.DB and fold standard concerns: context
// propagation and not-found error conversion.

// getByField retrieves a single record of type T by matching field=value,
// converting gorm.ErrRecordNotFound to the provided notFoundErr for
// consistent domain error mapping.
//
// Example:
//
//	user, err := getByField[models.User](db, ctx, "uid", 42, models.ErrUserNotFound)
func getByField[T any](db *gorm.DB, ctx context.Context, field string, value any, notFoundErr error) (*T, error) {
	var result T
	if err := db.WithContext(ctx).Where(field+" = ?", value).First(&result).Error; err != nil {
		return nil, convertNotFoundError(err, notFoundErr)
	}
	return &result, nil
}

// listAll retrieves all records of type T with an optional order
// clause. Returns an empty slice (not nil) on success with no records.
func listAll[T any](db *gorm.DB, ctx context.Context, order string) ([]*T, error) {
	var results []*T
	q := db.WithContext(ctx)
	if order != "" {
		q = q.Order(order)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
