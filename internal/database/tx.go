package database

import (
	"database/sql"

	"github.com/trogers1052/trade-journal/internal/storage"
)

// Tx is a journal unit of work backed by a single *sql.Tx
type Tx struct {
	tx *sql.Tx
}

var _ storage.JournalTx = (*Tx)(nil)
