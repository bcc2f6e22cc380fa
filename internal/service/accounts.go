package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/tumortrace/classification-service/internal/auth"
	"github.com/tumortrace/classification-service/internal/interfaces"
	"github.com/tumortrace/classification-service/internal/models"
	"github.com/tumortrace/classification-service/internal/telemetry"
)

const minPasswordLength = 6

var whitespace = regexp.MustCompile(`\s+`)

type tokenIssuer interface {
	Issue(userID string) (string, error)
}

type AccountService struct {
	users  interfaces.UserRepository
	images interfaces.ImageStore
	tokens tokenIssuer
	now    func() time.Time
}

func NewAccountService(users interfaces.UserRepository, images interfaces.ImageStore, tokens tokenIssuer) *AccountService {
	return &AccountService{
		users:  users,
		images: images,
		tokens: tokens,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Age      int
}

// Session is a signed-in user and the token that identifies them.
type Session struct {
	User  *models.User
	Token string
}

func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.TrimSpace(in.Username)
	switch {
	case username == "":
		return nil, models.Validationf("username is required")
	case !validEmail(email):
		return nil, models.Validationf("a valid email is required")
	case len(in.Password) < minPasswordLength:
		return nil, models.Validationf("password must be at least %d characters", minPasswordLength)
	case in.Age < 0:
		return nil, models.Validationf("age must not be negative")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Age:          in.Age,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, models.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: user already exists, please login", models.ErrDuplicateKey)
		}
		return nil, err
	}

	telemetry.Logger.Info("User registered", zap.String("user_id", user.ID))
	return s.newSession(user)
}

func (s *AccountService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, models.Validationf("email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: invalid credentials", models.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, fmt.Errorf("%w: this account uses Google sign-in", models.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", models.ErrUnauthorized)
	}
	return s.newSession(user)
}

// Current returns the user together with their images.
func (s *AccountService) Current(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	images, err := s.images.ListImages(ctx, userID)
	if err != nil {
		return nil, err
	}
	if images == nil {
		images = []models.ImageRecord{}
	}
	user.Images = images
	return user, nil
}

type UpdateInput struct {
	Username string
	Email    string
	Password string
}

// Update changes only the fields that are set.
func (s *AccountService) Update(ctx context.Context, userID string, in UpdateInput) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if v := strings.TrimSpace(in.Username); v != "" {
		user.Username = v
	}
	if v := strings.ToLower(strings.TrimSpace(in.Email)); v != "" {
		if !validEmail(v) {
			return nil, models.Validationf("a valid email is required")
		}
		user.Email = v
	}
	if in.Password != "" {
		if len(in.Password) < minPasswordLength {
			return nil, models.Validationf("password must be at least %d characters", minPasswordLength)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = string(hash)
	}
	user.UpdatedAt = s.now()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AccountService) Delete(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	telemetry.Logger.Info("User deleted", zap.String("user_id", userID))
	return nil
}

// GoogleSignIn finds the account linked to the Google subject, links an
// existing account with the same email, or creates a new one. Only a verified
// Google email may be linked to an existing account.
func (s *AccountService) GoogleSignIn(ctx context.Context, identity *auth.GoogleIdentity) (*Session, error) {
	user, err := s.users.GetByGoogleSub(ctx, identity.Sub)
	if err == nil {
		return s.newSession(user)
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	email := strings.ToLower(identity.Email)
	user, err = s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if !identity.EmailVerified {
			telemetry.Logger.Warn("Refusing to link unverified Google email", zap.String("user_id", user.ID))
			return nil, fmt.Errorf("%w: google email is not verified", models.ErrUnauthorized)
		}
		if err := s.users.LinkGoogle(ctx, user.ID, identity.Sub); err != nil {
			return nil, err
		}
		sub := identity.Sub
		user.GoogleSub = &sub
		return s.newSession(user)
	case !errors.Is(err, models.ErrNotFound):
		return nil, err
	}

	now := s.now()
	sub := identity.Sub
	user = &models.User{
		ID:        uuid.NewString(),
		Username:  googleUsername(identity),
		Email:     email,
		GoogleSub: &sub,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	telemetry.Logger.Info("User created from Google sign-in", zap.String("user_id", user.ID))
	return s.newSession(user)
}

func (s *AccountService) newSession(user *models.User) (*Session, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token}, nil
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// googleUsername derives a username from the display name, falling back to
// the email's local part. The subject suffix keeps it unique.
func googleUsername(identity *auth.GoogleIdentity) string {
	base := strings.ToLower(whitespace.ReplaceAllString(identity.Name, ""))
	if base == "" {
		base, _, _ = strings.Cut(identity.Email, "@")
	}
	suffix := identity.Sub
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return base + "_" + suffix
}
