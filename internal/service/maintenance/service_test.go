package maintenance

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oocloud/oocloud/internal/adapter/sqlite"
	"github.com/oocloud/oocloud/internal/domain"
	"github.com/oocloud/oocloud/internal/service/reconciler"
	"github.com/oocloud/oocloud/internal/storage"
	"github.com/oocloud/oocloud/internal/util/keylock"
)

func newTestStore(t *testing.T) (*sqlite.Store, *reconciler.Reconciler) {
	t.Helper()

	layout, err := storage.NewLayout(t.TempDir())
	if err != nil {
		t.Fatalf("NewLayout() error = %v", err)
	}

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	rec := reconciler.New(nil, layout, store, keylock.New(), zap.NewNop())
	return store, rec
}

func newTestUser(t *testing.T, store *sqlite.Store) *domain.User {
	t.Helper()
	user := &domain.User{
		ID:          uuid.NewString(),
		PhoneNumber: "5551112233",
		Username:    "ercan",
		Folder:      "ercan",
		IsActive:    true,
	}
	if err := store.CreateUser(user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	return user
}

func TestService_New(t *testing.T) {
	store, rec := newTestStore(t)
	logger := zap.NewNop()

	s := New(nil, store, rec, logger)
	if s == nil {
		t.Fatal("New() returned nil")
	}
	if s.config.SweepInterval != time.Hour {
		t.Errorf("SweepInterval = %v, want %v", s.config.SweepInterval, time.Hour)
	}
	if s.config.OTPCleanupInterval != 15*time.Minute {
		t.Errorf("OTPCleanupInterval = %v, want %v", s.config.OTPCleanupInterval, 15*time.Minute)
	}

	cfg := &Config{
		SweepInterval:      2 * time.Minute,
		OTPCleanupInterval: time.Minute,
	}
	s = New(cfg, store, rec, logger)
	if s.config.SweepInterval != 2*time.Minute {
		t.Errorf("SweepInterval = %v, want %v", s.config.SweepInterval, 2*time.Minute)
	}
}

func TestService_SweepPurgesExpiredTrash(t *testing.T) {
	store, rec := newTestStore(t)
	user := newTestUser(t, store)

	old := time.Now().Add(-31 * 24 * time.Hour)
	expired := &domain.FileRecord{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		Category:     domain.CategoryFile,
		PhysicalName: "old.txt",
		LogicalPath:  domain.LogicalPathFor(user.Folder, domain.CategoryFile, domain.LocationTrash, "old.txt"),
		TrashedAt:    &old,
	}
	if err := store.Create(expired); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{
		SweepInterval:      10 * time.Millisecond,
		OTPCleanupInterval: time.Hour,
	}
	s := New(cfg, store, rec, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Start(ctx)
	}()

	deadline := time.After(time.Second)
	for {
		got, err := store.GetByID(expired.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got == nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("expired trash record was not purged by the sweep")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	s.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start() did not return after Stop()")
	}
}

func TestService_CleansUpExpiredOTPs(t *testing.T) {
	store, rec := newTestStore(t)
	user := newTestUser(t, store)

	stale := &domain.OTP{
		UserID:    user.ID,
		Code:      "123456",
		CreatedAt: time.Now().Add(-10 * time.Minute),
		ExpiresAt: time.Now().Add(-8 * time.Minute),
	}
	if err := store.CreateOTP(stale); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{
		SweepInterval:      time.Hour,
		OTPCleanupInterval: 10 * time.Millisecond,
	}
	s := New(cfg, store, rec, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		s.Start(ctx)
	}()

	deadline := time.After(time.Second)
	for {
		got, err := store.GetOTP(user.ID, "123456")
		if err != nil {
			t.Fatal(err)
		}
		if got == nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("expired otp was not cleaned up")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	s.Stop()
}

func TestService_DoubleStart(t *testing.T) {
	store, rec := newTestStore(t)
	s := New(nil, store, rec, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		s.Start(ctx)
	}()
	time.Sleep(10 * time.Millisecond)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err == nil {
			t.Error("second Start() should fail")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("second Start() did not return")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.SweepInterval != time.Hour {
		t.Errorf("SweepInterval = %v, want %v", cfg.SweepInterval, time.Hour)
	}
	if cfg.OTPCleanupInterval != 15*time.Minute {
		t.Errorf("OTPCleanupInterval = %v, want %v", cfg.OTPCleanupInterval, 15*time.Minute)
	}
}
