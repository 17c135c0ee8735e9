package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/oocloud/oocloud/internal/domain"
	"github.com/oocloud/oocloud/internal/port"
	"github.com/oocloud/oocloud/internal/storage"
)

const otpDigits = 6

// Config carries the auth knobs.
type Config struct {
	JWTSecret string
	TokenTTL  time.Duration
	OTPTTL    time.Duration
}

// Service implements registration, password and OTP login, and the bearer
// tokens the HTTP layer checks. Accounts are keyed by phone number.
type Service struct {
	config Config
	users  port.UserRepository
	layout *storage.Layout
	logger *zap.Logger

	// now is swappable for tests.
	now func() time.Time
}

// New creates a new auth Service.
func New(config Config, users port.UserRepository, layout *storage.Layout, logger *zap.Logger) *Service {
	if config.TokenTTL <= 0 {
		config.TokenTTL = 24 * time.Hour
	}
	if config.OTPTTL <= 0 {
		config.OTPTTL = 120 * time.Second
	}
	return &Service{
		config: config,
		users:  users,
		layout: layout,
		logger: logger,
		now:    time.Now,
	}
}

type claims struct {
	jwt.RegisteredClaims
}

// Register creates an account and provisions its folder tree on disk.
func (s *Service) Register(phone, username, fullName, password string) (*domain.User, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || password == "" {
		return nil, domain.ErrInvalidInput
	}

	existing, err := s.users.GetUserByPhone(phone)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		PhoneNumber:  phone,
		Username:     username,
		FullName:     fullName,
		PasswordHash: string(hash),
		IsActive:     true,
		DateJoined:   s.now(),
	}
	user.Folder = user.FolderName()

	if err := s.users.CreateUser(user); err != nil {
		return nil, err
	}
	if err := s.layout.EnsureUserDirs(user.Folder); err != nil {
		return nil, fmt.Errorf("failed to provision user folders: %w", err)
	}

	s.logger.Info("registered user",
		zap.String("user", user.ID),
		zap.String("folder", user.Folder))

	return user, nil
}

// Login checks phone and password and returns a signed token.
func (s *Service) Login(phone, password string) (*domain.User, string, error) {
	user, err := s.users.GetUserByPhone(strings.TrimSpace(phone))
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, "", domain.ErrUserDisabled
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", domain.ErrInvalidCredentials
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// RequestOTP creates a one-time code for the account and returns it for
// dispatch. The code is single use and expires after the configured TTL.
func (s *Service) RequestOTP(phone string) (*domain.OTP, error) {
	user, err := s.users.GetUserByPhone(strings.TrimSpace(phone))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	if !user.IsActive {
		return nil, domain.ErrUserDisabled
	}

	code, err := generateCode()
	if err != nil {
		return nil, err
	}

	now := s.now()
	otp := &domain.OTP{
		UserID:    user.ID,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.OTPTTL),
	}
	if err := s.users.CreateOTP(otp); err != nil {
		return nil, err
	}

	s.logger.Info("issued otp", zap.String("user", user.ID))
	return otp, nil
}

// VerifyOTP redeems a code for a signed token. A code works once.
func (s *Service) VerifyOTP(phone, code string) (*domain.User, string, error) {
	user, err := s.users.GetUserByPhone(strings.TrimSpace(phone))
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", domain.ErrInvalidOTP
	}
	if !user.IsActive {
		return nil, "", domain.ErrUserDisabled
	}

	otp, err := s.users.GetOTP(user.ID, code)
	if err != nil {
		return nil, "", err
	}
	if otp == nil || !otp.Valid(s.now()) {
		return nil, "", domain.ErrInvalidOTP
	}
	if err := s.users.MarkOTPUsed(otp.ID); err != nil {
		return nil, "", err
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// IssueToken signs a bearer token for the user.
func (s *Service) IssueToken(user *domain.User) (string, error) {
	now := s.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Authenticate validates a bearer token and loads its user.
func (s *Service) Authenticate(tokenString string) (*domain.User, error) {
	c := &claims{}
	_, err := jwt.ParseWithClaims(tokenString, c, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.config.JWTSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.GetUserByID(c.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, domain.ErrUserDisabled
	}
	return user, nil
}

// generateCode draws a random zero-padded 6 digit code.
func generateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < otpDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", otpDigits, n), nil
}
