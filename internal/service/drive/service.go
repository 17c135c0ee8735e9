package drive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oocloud/oocloud/internal/domain"
	"github.com/oocloud/oocloud/internal/port"
	"github.com/oocloud/oocloud/internal/service/reconciler"
	"github.com/oocloud/oocloud/internal/storage"
	"github.com/oocloud/oocloud/internal/util/keylock"
)

// Service implements the private-space operations: listings backed by
// reconciliation, uploads, and the favorite/trash state transitions.
type Service struct {
	layout *storage.Layout
	files  port.FileRepository
	rec    *reconciler.Reconciler
	locks  *keylock.KeyLock
	logger *zap.Logger
}

// New creates a new drive Service. The keylock must be the same instance the
// reconciler uses, so transitions and reconciliation serialize on one key.
func New(layout *storage.Layout, files port.FileRepository, rec *reconciler.Reconciler, locks *keylock.KeyLock, logger *zap.Logger) *Service {
	return &Service{
		layout: layout,
		files:  files,
		rec:    rec,
		locks:  locks,
		logger: logger,
	}
}

// TransitionResult reports the outcome of a state transition. Moved is false
// when the physical file was missing and only the record could be updated;
// the next reconciliation pass repairs the remaining drift.
type TransitionResult struct {
	Record *domain.FileRecord
	Moved  bool
}

// DeleteResult reports what Delete did: first call trashes, second purges.
type DeleteResult struct {
	Purged bool
	Record *domain.FileRecord
}

// ListActive reconciles the user's tree, then returns all active records.
func (s *Service) ListActive(user *domain.User) ([]*domain.FileRecord, error) {
	if err := s.rec.SyncUser(user); err != nil {
		return nil, fmt.Errorf("reconciliation failed: %w", err)
	}
	return s.files.ListActive(user.ID)
}

// ListTrashed reconciles the user's tree, then returns all trashed records.
func (s *Service) ListTrashed(user *domain.User) ([]*domain.FileRecord, error) {
	if err := s.rec.SyncUser(user); err != nil {
		return nil, fmt.Errorf("reconciliation failed: %w", err)
	}
	return s.files.ListTrashed(user.ID)
}

// Browse lists a directory inside the user's own folder without touching
// the record store. Missing directories are created on first visit.
func (s *Service) Browse(user *domain.User, rel string) (*storage.Listing, error) {
	folder := user.FolderName()
	target, err := s.layout.ResolveUser(folder, rel)
	if err != nil {
		return nil, err
	}
	return storage.ListDir(s.layout.UserRoot(folder), target)
}

// Get returns one of the user's records.
func (s *Service) Get(user *domain.User, id string) (*domain.FileRecord, error) {
	rec, err := s.files.GetByID(id)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.UserID != user.ID {
		return nil, domain.ErrNotFound
	}
	return rec, nil
}

// ToggleFavorite flips a record between the main and favorites folders.
// Trashed records are left untouched.
func (s *Service) ToggleFavorite(user *domain.User, id string) (*TransitionResult, error) {
	rec, unlock, err := s.lockRecord(user, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if rec.Trashed() {
		return &TransitionResult{Record: rec, Moved: false}, nil
	}

	target := domain.LocationFavorites
	if rec.IsFavorite {
		target = domain.LocationMain
	}

	return s.transition(user, rec, target, time.Now())
}

// SoftDelete moves a record into the trash folder and stamps it. The
// favorite flag is cleared; a later restore goes back to main.
func (s *Service) SoftDelete(user *domain.User, id string) (*TransitionResult, error) {
	rec, unlock, err := s.lockRecord(user, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if rec.Trashed() {
		return &TransitionResult{Record: rec, Moved: false}, nil
	}

	return s.transition(user, rec, domain.LocationTrash, time.Now())
}

// Restore moves a trashed record back to the main folder. The favorite
// state is not restored.
func (s *Service) Restore(user *domain.User, id string) (*TransitionResult, error) {
	rec, unlock, err := s.lockRecord(user, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !rec.Trashed() {
		return &TransitionResult{Record: rec, Moved: false}, nil
	}

	return s.transition(user, rec, domain.LocationMain, time.Now())
}

// Delete implements delete-once-to-trash, delete-twice-to-purge: a record
// not yet in the trash is soft-deleted, a trashed record is removed for good
// together with its physical file.
func (s *Service) Delete(user *domain.User, id string) (*DeleteResult, error) {
	rec, unlock, err := s.lockRecord(user, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !rec.Trashed() {
		res, err := s.transition(user, rec, domain.LocationTrash, time.Now())
		if err != nil {
			return nil, err
		}
		return &DeleteResult{Purged: false, Record: res.Record}, nil
	}

	abs := s.layout.AbsFromLogical(rec.LogicalPath)
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to remove file: %w", err)
	}
	if err := s.files.Delete(rec.ID); err != nil {
		return nil, fmt.Errorf("failed to delete record: %w", err)
	}

	s.logger.Info("hard deleted file",
		zap.String("user", user.ID),
		zap.String("name", rec.PhysicalName))

	return &DeleteResult{Purged: true, Record: rec}, nil
}

// Upload stores an incoming file in the user's main folder for cat and
// creates its record. A name collision gets a timestamp suffix; the final
// record carries the name actually used.
func (s *Service) Upload(user *domain.User, cat domain.Category, name string, r io.Reader) (*domain.FileRecord, error) {
	if !cat.Valid() {
		cat = domain.CategoryForName(name)
	}
	if filepath.Base(name) != name || name == "." || name == "" {
		return nil, domain.ErrInvalidPath
	}

	key := reconciler.Key(user.ID, cat)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	folder := user.FolderName()
	dir := s.layout.LocationDir(folder, cat, domain.LocationMain)
	if err := s.layout.EnsureDir(dir); err != nil {
		return nil, err
	}

	finalName := storage.DisambiguateName(dir, name)

	// A record can hold the name while its file is gone (pending repair);
	// the disk check alone would then collide on the unique index.
	if existing, err := s.files.GetByName(user.ID, cat, finalName); err != nil {
		return nil, err
	} else if existing != nil {
		finalName = storage.TimestampName(finalName)
	}
	dest := filepath.Join(dir, finalName)

	size, err := writeFile(dest, r)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	rec := &domain.FileRecord{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		Category:     cat,
		PhysicalName: finalName,
		LogicalPath:  domain.LogicalPathFor(folder, cat, domain.LocationMain, finalName),
		Size:         size,
	}
	if err := s.files.Create(rec); err != nil {
		// Keep disk and store consistent when the insert fails.
		os.Remove(dest)
		return nil, fmt.Errorf("failed to create record: %w", err)
	}

	s.logger.Info("uploaded file",
		zap.String("user", user.ID),
		zap.String("name", finalName),
		zap.Int64("size", size))

	return rec, nil
}

// AbsPath returns the absolute filesystem path of the record's file.
func (s *Service) AbsPath(rec *domain.FileRecord) string {
	return s.layout.AbsFromLogical(rec.LogicalPath)
}

// Open returns a handle on the record's physical file for serving.
func (s *Service) Open(user *domain.User, id string) (*domain.FileRecord, *os.File, error) {
	rec, err := s.Get(user, id)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(s.layout.AbsFromLogical(rec.LogicalPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, err
	}
	return rec, f, nil
}

// lockRecord loads the record, verifies ownership and takes the per
// (user, category) lock so transitions cannot race reconciliation.
func (s *Service) lockRecord(user *domain.User, id string) (*domain.FileRecord, func(), error) {
	rec, err := s.files.GetByID(id)
	if err != nil {
		return nil, nil, err
	}
	if rec == nil || rec.UserID != user.ID {
		return nil, nil, domain.ErrNotFound
	}

	key := reconciler.Key(user.ID, rec.Category)
	s.locks.Lock(key)

	// Re-read under the lock; a concurrent reconciliation or transition
	// may have changed or deleted the record.
	rec, err = s.files.GetByID(id)
	if err != nil {
		s.locks.Unlock(key)
		return nil, nil, err
	}
	if rec == nil || rec.UserID != user.ID {
		s.locks.Unlock(key)
		return nil, nil, domain.ErrNotFound
	}

	return rec, func() { s.locks.Unlock(key) }, nil
}

// transition moves the record's physical file to the target location's
// folder and updates the record to match. A missing physical file degrades
// to a record-only update instead of failing.
func (s *Service) transition(user *domain.User, rec *domain.FileRecord, target domain.Location, now time.Time) (*TransitionResult, error) {
	folder := user.FolderName()
	destDir := s.layout.LocationDir(folder, rec.Category, target)
	if err := s.layout.EnsureDir(destDir); err != nil {
		return nil, err
	}

	src := s.layout.AbsFromLogical(rec.LogicalPath)
	dest := filepath.Join(destDir, rec.PhysicalName)

	moved := false
	if _, err := os.Stat(src); err == nil {
		if _, err := os.Stat(dest); os.IsNotExist(err) {
			if err := os.Rename(src, dest); err != nil {
				return nil, fmt.Errorf("failed to move file: %w", err)
			}
		}
		// A same-named file already at the destination counts as
		// already migrated.
		moved = true
	} else {
		s.logger.Warn("physical file missing, updating record only",
			zap.String("user", user.ID),
			zap.String("name", rec.PhysicalName),
			zap.String("target", target.String()))
	}

	logical := domain.LogicalPathFor(folder, rec.Category, target, rec.PhysicalName)
	if rec.ApplyLocation(target, logical, rec.Size, now) {
		if err := s.files.Update(rec); err != nil {
			return nil, fmt.Errorf("failed to update record: %w", err)
		}
	}

	return &TransitionResult{Record: rec, Moved: moved}, nil
}

// writeFile streams r into dest.
func writeFile(dest string, r io.Reader) (int64, error) {
	f, err := os.Create(dest)
	if err != nil {
		return 0, err
	}

	written, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(dest)
		return 0, err
	}

	if err := f.Close(); err != nil {
		return 0, err
	}
	return written, nil
}
