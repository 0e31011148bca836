package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/richblaalid/chuckbox/internal/config"
)

// BackupTaskName labels the SQLite backup in metrics / Nom de la tâche de sauvegarde
const BackupTaskName = "database_backup"

// Backup snapshots a SQLite database with VACUUM INTO / Sauvegarde SQLite via VACUUM INTO
type Backup struct {
	db     *sql.DB
	source string
	cfg    config.BackupConfig
	now    func() time.Time
}

// NewBackup prepares backups of the database at dsn / Prépare les sauvegardes de la base dsn
func NewBackup(db *sql.DB, dsn string, cfg config.BackupConfig) (*Backup, error) {
	source := sqliteFile(dsn)
	if source == "" || source == ":memory:" {
		return nil, errors.New("cannot backup in-memory database")
	}
	if cfg.Path == "" {
		return nil, errors.New("backup.path is required")
	}
	return &Backup{db: db, source: source, cfg: cfg, now: time.Now}, nil
}

// Task schedules a backup then a retention sweep / Planifie sauvegarde puis nettoyage
func (b *Backup) Task() Task {
	interval := b.cfg.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return Task{
		Name:     BackupTaskName,
		Interval: interval,
		Run: func(ctx context.Context) error {
			if _, err := b.Snapshot(ctx); err != nil {
				return err
			}
			_, err := b.Prune()
			return err
		},
	}
}

// Snapshot writes one timestamped copy / Écrit une copie horodatée
func (b *Backup) Snapshot(ctx context.Context) (string, error) {
	if err := os.MkdirAll(b.cfg.Path, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := fmt.Sprintf("%s.backup-%s.db", filepath.Base(b.source), b.now().Format("20060102-150405"))
	target := filepath.Join(b.cfg.Path, name)

	// VACUUM INTO takes a literal, not a bind parameter (SQLite 3.27+)
	query := fmt.Sprintf("VACUUM INTO '%s'", strings.ReplaceAll(target, "'", "''"))
	if _, err := b.db.ExecContext(ctx, query); err != nil {
		return "", fmt.Errorf("backup execution failed: %w", err)
	}

	slog.Info("database backup created", "path", target)
	return target, nil
}

// Prune deletes backups older than the retention window / Supprime les sauvegardes expirées
func (b *Backup) Prune() (int, error) {
	if b.cfg.RetentionDays <= 0 {
		return 0, nil
	}
	cutoff := b.now().AddDate(0, 0, -b.cfg.RetentionDays)

	entries, err := os.ReadDir(b.cfg.Path)
	if err != nil {
		return 0, fmt.Errorf("failed to read backup directory: %w", err)
	}

	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() || !isBackupFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			slog.Warn("failed to stat backup", "file", entry.Name(), "err", err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(b.cfg.Path, entry.Name())); err != nil {
			slog.Warn("failed to delete old backup", "file", entry.Name(), "err", err)
			continue
		}
		deleted++
	}

	if deleted > 0 {
		slog.Info("old backups removed", "count", deleted, "retention_days", b.cfg.RetentionDays)
	}
	return deleted, nil
}

func isBackupFile(name string) bool {
	return strings.Contains(name, ".backup-") && strings.HasSuffix(name, ".db")
}

// sqliteFile extracts the file path from a modernc DSN / Extrait le chemin du fichier du DSN
func sqliteFile(dsn string) string {
	if i := strings.IndexByte(dsn, '?'); i >= 0 {
		dsn = dsn[:i]
	}
	return strings.TrimPrefix(dsn, "file:")
}
