package reconciler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oocloud/oocloud/internal/domain"
	"github.com/oocloud/oocloud/internal/port"
	"github.com/oocloud/oocloud/internal/storage"
	"github.com/oocloud/oocloud/internal/util/keylock"
)

// Config contains reconciler configuration
type Config struct {
	// TrashRetention is how long trashed files are kept before they are purged
	TrashRetention time.Duration
}

// DefaultConfig returns default reconciler configuration
func DefaultConfig() *Config {
	return &Config{
		TrashRetention: 30 * 24 * time.Hour,
	}
}

// Reconciler aligns the record store with the physical state of a user's
// three subfolders (main, favorites, trash) per category. It runs before
// every listing so the store is never trusted before it mirrors disk.
type Reconciler struct {
	config *Config
	layout *storage.Layout
	files  port.FileRepository
	logger *zap.Logger
	locks  *keylock.KeyLock
}

// New creates a new Reconciler
func New(cfg *Config, layout *storage.Layout, files port.FileRepository, locks *keylock.KeyLock, logger *zap.Logger) *Reconciler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.TrashRetention <= 0 {
		cfg.TrashRetention = 30 * 24 * time.Hour
	}

	return &Reconciler{
		config: cfg,
		layout: layout,
		files:  files,
		locks:  locks,
		logger: logger,
	}
}

// Key returns the serialization key for (user, category). State transitions
// lock the same key so they cannot race a reconciliation pass.
func Key(userID string, cat domain.Category) string {
	return userID + "/" + string(cat)
}

// SyncUser reconciles every category of one user. Each category is handled
// independently; errors are collected so one bad subtree cannot hide the
// other's result.
func (r *Reconciler) SyncUser(user *domain.User) error {
	var errs []error
	for _, cat := range domain.Categories() {
		if err := r.SyncCategory(user, cat); err != nil {
			errs = append(errs, fmt.Errorf("category %s: %w", cat, err))
		}
	}
	return errors.Join(errs...)
}

// SyncCategory reconciles the record store against the three physical
// subfolders for one (user, category) pair.
func (r *Reconciler) SyncCategory(user *domain.User, cat domain.Category) error {
	key := Key(user.ID, cat)
	r.locks.Lock(key)
	defer r.locks.Unlock(key)

	folder := user.FolderName()
	now := time.Now()

	// Purge trash past retention before scanning, so expired files are
	// neither listed nor resurrected as untracked files.
	r.expireTrash(user, now)

	dirs := map[domain.Location]string{
		domain.LocationMain:      r.layout.LocationDir(folder, cat, domain.LocationMain),
		domain.LocationFavorites: r.layout.LocationDir(folder, cat, domain.LocationFavorites),
		domain.LocationTrash:     r.layout.LocationDir(folder, cat, domain.LocationTrash),
	}

	for loc, dir := range dirs {
		if err := r.layout.EnsureDir(dir); err != nil {
			// Keep going with whatever folders exist; their listings
			// simply come back empty.
			r.logger.Warn("failed to ensure folder",
				zap.String("user", user.ID),
				zap.String("location", loc.String()),
				zap.Error(err))
		}
	}

	records, err := r.files.ListByCategory(user.ID, cat)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	byName := make(map[string]*domain.FileRecord, len(records))
	for _, rec := range records {
		byName[rec.PhysicalName] = rec
	}

	seen := make(map[string]struct{})
	created, updated := 0, 0

	// Scan order is main, favorites, trash. A name present in more than
	// one folder ends up with the state of the last folder scanned.
	for _, loc := range []domain.Location{domain.LocationMain, domain.LocationFavorites, domain.LocationTrash} {
		names := listFiles(dirs[loc], r.logger)
		for _, name := range names {
			if _, dup := seen[name]; dup {
				r.logger.Warn("duplicate physical name across folders",
					zap.String("user", user.ID),
					zap.String("name", name),
					zap.String("winning_location", loc.String()))
			}
			seen[name] = struct{}{}

			didCreate, didUpdate, err := r.syncEntry(user, cat, loc, dirs[loc], name, byName, now)
			if err != nil {
				r.logger.Warn("failed to sync file",
					zap.String("user", user.ID),
					zap.String("name", name),
					zap.Error(err))
				if !domain.IsSkippable(err) {
					return err
				}
				continue
			}
			if didCreate {
				created++
			}
			if didUpdate {
				updated++
			}
		}
	}

	// Records whose physical backing is gone from every folder are orphans.
	deleted := 0
	for name, rec := range byName {
		if _, ok := seen[name]; ok {
			continue
		}
		if err := r.files.Delete(rec.ID); err != nil {
			r.logger.Warn("failed to delete orphan record",
				zap.String("user", user.ID),
				zap.String("name", name),
				zap.Error(err))
			continue
		}
		deleted++
	}

	if created > 0 || updated > 0 || deleted > 0 {
		r.logger.Info("reconciled category",
			zap.String("user", user.ID),
			zap.String("category", string(cat)),
			zap.Int("created", created),
			zap.Int("updated", updated),
			zap.Int("orphans_deleted", deleted))
	}

	return nil
}

// expireTrash purges trashed records older than the retention window.
// Both the file removal and the record delete are idempotent, so a failure
// here is retried implicitly on the next pass.
func (r *Reconciler) expireTrash(user *domain.User, now time.Time) {
	cutoff := now.Add(-r.config.TrashRetention)
	expired, err := r.files.ListTrashedBefore(user.ID, cutoff)
	if err != nil {
		r.logger.Error("failed to list expired trash", zap.String("user", user.ID), zap.Error(err))
		return
	}

	for _, rec := range expired {
		abs := r.layout.AbsFromLogical(rec.LogicalPath)
		if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
			r.logger.Warn("failed to remove expired trash file",
				zap.String("user", user.ID),
				zap.String("path", abs),
				zap.Error(err))
			continue
		}
		if err := r.files.Delete(rec.ID); err != nil {
			r.logger.Warn("failed to delete expired trash record",
				zap.String("user", user.ID),
				zap.String("id", rec.ID),
				zap.Error(err))
			continue
		}
		r.logger.Info("purged expired trash",
			zap.String("user", user.ID),
			zap.String("name", rec.PhysicalName))
	}
}

// syncEntry creates or repairs the record for one physical file.
func (r *Reconciler) syncEntry(user *domain.User, cat domain.Category, loc domain.Location, dir, name string, byName map[string]*domain.FileRecord, now time.Time) (created, updated bool, err error) {
	logical := domain.LogicalPathFor(user.FolderName(), cat, loc, name)

	rec, ok := byName[name]
	if !ok {
		var size int64
		if info, statErr := os.Stat(filepath.Join(dir, name)); statErr == nil {
			size = info.Size()
		}

		rec = &domain.FileRecord{
			ID:           uuid.NewString(),
			UserID:       user.ID,
			Category:     cat,
			PhysicalName: name,
			LogicalPath:  logical,
			Size:         size,
			IsFavorite:   loc == domain.LocationFavorites,
		}
		if loc == domain.LocationTrash {
			rec.TrashedAt = &now
		}

		if err := r.files.Create(rec); err != nil {
			return false, false, domain.NewSkippableError(err, "failed to create record")
		}
		byName[name] = rec
		return true, false, nil
	}

	size := rec.Size
	if info, statErr := os.Stat(filepath.Join(dir, name)); statErr == nil {
		size = info.Size()
	}

	if !rec.ApplyLocation(loc, logical, size, now) {
		return false, false, nil
	}
	if err := r.files.Update(rec); err != nil {
		return false, false, domain.NewSkippableError(err, "failed to update record")
	}
	return false, true, nil
}

// listFiles returns the plain files directly inside dir. An unreadable
// directory is treated as empty.
func listFiles(dir string, logger *zap.Logger) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Debug("failed to read folder", zap.String("dir", dir), zap.Error(err))
		}
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names
}
