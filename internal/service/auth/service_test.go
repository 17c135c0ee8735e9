package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/oocloud/oocloud/internal/adapter/sqlite"
	"github.com/oocloud/oocloud/internal/domain"
	"github.com/oocloud/oocloud/internal/storage"
)

func newTestService(t *testing.T) (*Service, *sqlite.Store, *storage.Layout) {
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

	svc := New(Config{JWTSecret: "test-secret"}, store, layout, zap.NewNop())
	return svc, store, layout
}

func TestRegister(t *testing.T) {
	svc, _, layout := newTestService(t)

	user, err := svc.Register("5551112233", "ercan", "Ercan Demir", "hunter2")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.Folder != "ercan" {
		t.Errorf("Folder = %q, want ercan", user.Folder)
	}
	if user.PasswordHash == "hunter2" {
		t.Error("password must not be stored in the clear")
	}

	for _, cat := range domain.Categories() {
		for _, loc := range []domain.Location{domain.LocationMain, domain.LocationFavorites, domain.LocationTrash} {
			dir := layout.LocationDir(user.Folder, cat, loc)
			if _, err := os.Stat(dir); err != nil {
				t.Errorf("expected provisioned dir %s: %v", dir, err)
			}
		}
	}

	if _, err := svc.Register("5551112233", "other", "", "pw"); !errors.Is(err, domain.ErrUserExists) {
		t.Errorf("duplicate Register() error = %v, want ErrUserExists", err)
	}
}

func TestRegister_FolderFallsBackToFullName(t *testing.T) {
	svc, _, _ := newTestService(t)

	user, err := svc.Register("5551112234", "", "Ayse Yilmaz", "pw")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.Folder != "AYSE_YILMAZ" {
		t.Errorf("Folder = %q, want AYSE_YILMAZ", user.Folder)
	}
}

func TestRegister_Invalid(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.Register("", "x", "", "pw"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Register(no phone) error = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.Register("5551112233", "x", "", ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Register(no password) error = %v, want ErrInvalidInput", err)
	}
}

func TestLogin(t *testing.T) {
	svc, store, _ := newTestService(t)

	if _, err := svc.Register("5551112233", "ercan", "", "hunter2"); err != nil {
		t.Fatal(err)
	}

	user, token, err := svc.Login("5551112233", "hunter2")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if token == "" {
		t.Fatal("Login() returned an empty token")
	}

	got, err := svc.Authenticate(token)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("Authenticate() user = %v, want %v", got.ID, user.ID)
	}

	if _, _, err := svc.Login("5551112233", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("Login(bad password) error = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := svc.Login("5550000000", "hunter2"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("Login(unknown phone) error = %v, want ErrInvalidCredentials", err)
	}

	user.IsActive = false
	if err := store.UpdateUser(user); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.Login("5551112233", "hunter2"); !errors.Is(err, domain.ErrUserDisabled) {
		t.Errorf("Login(disabled) error = %v, want ErrUserDisabled", err)
	}
}

func TestOTPFlow(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.Register("5551112233", "ercan", "", "pw"); err != nil {
		t.Fatal(err)
	}

	otp, err := svc.RequestOTP("5551112233")
	if err != nil {
		t.Fatalf("RequestOTP() error = %v", err)
	}
	if len(otp.Code) != otpDigits {
		t.Errorf("len(Code) = %d, want %d", len(otp.Code), otpDigits)
	}
	if got := otp.ExpiresAt.Sub(otp.CreatedAt); got != 120*time.Second {
		t.Errorf("OTP lifetime = %v, want 120s", got)
	}

	user, token, err := svc.VerifyOTP("5551112233", otp.Code)
	if err != nil {
		t.Fatalf("VerifyOTP() error = %v", err)
	}
	if token == "" || user == nil {
		t.Fatal("VerifyOTP() should return a user and token")
	}

	// Single use.
	if _, _, err := svc.VerifyOTP("5551112233", otp.Code); !errors.Is(err, domain.ErrInvalidOTP) {
		t.Errorf("second VerifyOTP() error = %v, want ErrInvalidOTP", err)
	}
}

func TestVerifyOTP_Expired(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.Register("5551112233", "ercan", "", "pw"); err != nil {
		t.Fatal(err)
	}

	otp, err := svc.RequestOTP("5551112233")
	if err != nil {
		t.Fatal(err)
	}

	svc.now = func() time.Time { return time.Now().Add(121 * time.Second) }
	if _, _, err := svc.VerifyOTP("5551112233", otp.Code); !errors.Is(err, domain.ErrInvalidOTP) {
		t.Errorf("VerifyOTP(expired) error = %v, want ErrInvalidOTP", err)
	}
}

func TestVerifyOTP_WrongCode(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.Register("5551112233", "ercan", "", "pw"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RequestOTP("5551112233"); err != nil {
		t.Fatal(err)
	}

	if _, _, err := svc.VerifyOTP("5551112233", "000000x"); !errors.Is(err, domain.ErrInvalidOTP) {
		t.Errorf("VerifyOTP(wrong code) error = %v, want ErrInvalidOTP", err)
	}
}

func TestAuthenticate_BadTokens(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.Authenticate("not-a-token"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("Authenticate(garbage) error = %v, want ErrInvalidCredentials", err)
	}

	other := New(Config{JWTSecret: "other-secret"}, svc.users, svc.layout, zap.NewNop())
	user, err := svc.Register("5551112233", "ercan", "", "pw")
	if err != nil {
		t.Fatal(err)
	}
	token, err := other.IssueToken(user)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Authenticate(token); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("Authenticate(wrong secret) error = %v, want ErrInvalidCredentials", err)
	}
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	user, err := svc.Register("5551112233", "ercan", "", "pw")
	if err != nil {
		t.Fatal(err)
	}

	svc.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	token, err := svc.IssueToken(user)
	if err != nil {
		t.Fatal(err)
	}

	svc.now = time.Now
	if _, err := svc.Authenticate(token); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("Authenticate(expired) error = %v, want ErrInvalidCredentials", err)
	}
}
