package services

import (
  "context"

  "gorm.io/gorm"
)

// runInTx executes fn inside a transaction when a database handle is
// present. Without one, repos receive a nil tx and fall back to their
// own handles.
func runInTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
  if db == nil {
    return fn(nil)
  }
  return db.WithContext(ctx).Transaction(fn)
}
