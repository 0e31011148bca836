package repository

import (
	"github.com/richblaalid/chuckbox/internal/repository/db"
)

// Re-export common errors for convenience / Réexporte les erreurs communes
var (
	ErrNoRecord            = db.ErrNoRecord
	ErrDuplicateEmail      = db.ErrDuplicateEmail
	ErrForeignKeyViolation = db.ErrForeignKeyViolation
	ErrDup                 = db.ErrDup
	ErrBusy                = db.ErrBusy
	ErrLocked              = db.ErrLocked
	ErrCheckViolation      = db.ErrCheckViolation
)
