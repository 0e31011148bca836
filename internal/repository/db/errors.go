package db

import "errors"

// Common database errors
var (
	ErrNoRecord            = errors.New("no matching record found")
	ErrDuplicateEmail      = errors.New("email already exists")
	ErrForeignKeyViolation = errors.New("foreign key constraint violation")
	ErrDup                 = errors.New("record already exists") // Duplicate unique key / Clé unique dupliquée
	ErrBusy                = errors.New("database is busy")      // Database busy / Base de données occupée
	ErrLocked              = errors.New("database is locked")    // Database locked / Base de données verrouillée
	ErrCheckViolation      = errors.New("check constraint violation")
)
