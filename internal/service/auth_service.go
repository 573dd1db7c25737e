package service

import (
	"alcyxob/bmi-tracker/internal/auth"
	"alcyxob/bmi-tracker/internal/domain"
	"alcyxob/bmi-tracker/internal/repository"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// SignupInput is what a new user submits.
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role // optional, defaults to user
}

// InstructorCredentials are the fixed shared instructor login.
type InstructorCredentials struct {
	LoginID  string
	Password string
}

type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (user *domain.User, token string, err error)
	Login(ctx context.Context, email, password string) (user *domain.User, token string, err error)
	// Me returns the user behind a user session, or nil for any other principal.
	Me(ctx context.Context, p domain.Principal) (*domain.User, error)
	InstructorLogin(ctx context.Context, loginID, password string) (profile *domain.InstructorProfile, token string, err error)
}

// authService implements the AuthService interface.
type authService struct {
	userRepo   repository.UserRepository
	sessions   *auth.Sessions
	instructor InstructorCredentials
	now        func() time.Time
}

// NewAuthService creates a new instance of authService.
func NewAuthService(userRepo repository.UserRepository, sessions *auth.Sessions, instructor InstructorCredentials) AuthService {
	if instructor.LoginID == "" || instructor.Password == "" {
		panic("instructor credentials cannot be empty")
	}
	return &authService{
		userRepo:   userRepo,
		sessions:   sessions,
		instructor: instructor,
		now:        time.Now,
	}
}

// Signup registers a user and starts a session for them.
func (s *authService) Signup(ctx context.Context, in SignupInput) (*domain.User, string, error) {
	email := strings.TrimSpace(in.Email)
	name := strings.TrimSpace(in.Name)
	if name == "" || email == "" || in.Password == "" {
		return nil, "", invalid("Missing fields")
	}
	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	if role != domain.RoleUser && role != domain.RoleInstructor {
		return nil, "", invalid(fmt.Sprintf("Unknown role %q", role))
	}

	_, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil, "", ErrEmailInUse
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, "", err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", ErrHashingFailed
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         role,
	}
	userID, err := s.userRepo.Create(ctx, user)
	if err != nil {
		// lost the race against a concurrent signup; the unique index caught it
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, "", ErrEmailInUse
		}
		return nil, "", err
	}
	user.ID = userID

	token, err := s.sessions.IssueUser(user)
	if err != nil {
		slog.Error("failed to issue session", "user_id", user.ID.Hex(), "error", err)
		return nil, "", ErrSessionIssue
	}

	user.PasswordHash = ""
	return user, token, nil
}

// Login checks the password and starts a user session.
func (s *authService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, "", invalid("Missing fields")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.sessions.IssueUser(user)
	if err != nil {
		slog.Error("failed to issue session", "user_id", user.ID.Hex(), "error", err)
		return nil, "", ErrSessionIssue
	}

	user.PasswordHash = ""
	return user, token, nil
}

func (s *authService) Me(ctx context.Context, p domain.Principal) (*domain.User, error) {
	if !p.Has(domain.CapabilityUser) {
		return nil, nil
	}
	user, err := s.userRepo.GetByID(ctx, p.UserID)
	if err != nil {
		// the session outlived its user
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

// InstructorLogin matches the shared instructor credentials.
func (s *authService) InstructorLogin(ctx context.Context, loginID, password string) (*domain.InstructorProfile, string, error) {
	if loginID == "" || password == "" {
		return nil, "", invalid("Login ID and password required")
	}

	idOK := subtle.ConstantTimeCompare([]byte(loginID), []byte(s.instructor.LoginID)) == 1
	pwOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.instructor.Password)) == 1
	if !idOK || !pwOK {
		return nil, "", ErrInstructorAuthFailed
	}

	instructorID := fmt.Sprintf("instructor_%d", s.now().UnixMilli())
	token, err := s.sessions.IssueInstructor(instructorID)
	if err != nil {
		slog.Error("failed to issue instructor session", "error", err)
		return nil, "", ErrSessionIssue
	}

	return &domain.InstructorProfile{
		ID:      "instructor",
		Name:    "Instructor",
		Email:   "instructor@bmi-tracker.com",
		Role:    domain.RoleInstructor,
		LoginID: loginID,
	}, token, nil
}
