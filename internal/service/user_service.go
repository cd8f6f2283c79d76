package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go-blog-app/internal/auth"
	"go-blog-app/internal/data"
)

// UserRepository defines the interface for database operations on accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*data.User, error)
	GetByUsername(ctx context.Context, username string) (*data.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*data.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, user *data.User) error
	UpdateProfile(ctx context.Context, user *data.User) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
}

const (
	maxUsernameLength = 150
	maxNameLength     = 150
	maxEmailLength    = 254
	minPasswordLength = 8
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// Registration carries the sign-up form.
type Registration struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
	Password1 string
	Password2 string
}

// ProfileInput carries the editable profile fields.
type ProfileInput struct {
	FirstName string
	LastName  string
	Email     string
}

// PasswordChange carries the password change form.
type PasswordChange struct {
	OldPassword  string
	NewPassword1 string
	NewPassword2 string
}

// UserServicer defines the interface for account management.
type UserServicer interface {
	Register(ctx context.Context, in Registration) (*data.User, error)
	Authenticate(ctx context.Context, username, password string) (*data.User, error)
	GetByID(ctx context.Context, id int64) (*data.User, error)
	GetByUsername(ctx context.Context, username string) (*data.User, error)
	UpdateProfile(ctx context.Context, actor Principal, username string, in ProfileInput) (*data.User, error)
	ChangePassword(ctx context.Context, actor Principal, username string, in PasswordChange) error
	FindOrCreateExternal(ctx context.Context, id ExternalIdentity) (*data.User, error)
}

// UserService provides registration, authentication and profile management.
type UserService struct {
	users UserRepository
	now   func() time.Time
	held  map[string]bool
}

// NewUserService creates a new UserService.
func NewUserService(users UserRepository) *UserService {
	return &UserService{users: users, now: time.Now, held: map[string]bool{}}
}

// HoldUsernames keeps names from being claimed by registration or external
// login, as for configured admins whose account does not exist yet. It must
// be called before the service is shared.
func (s *UserService) HoldUsernames(names []string) {
	for _, name := range names {
		s.held[name] = true
	}
}

func (s *UserService) reserved(username string) bool {
	return auth.IsReservedName(username) || s.held[username]
}

func validateEmail(errs fieldErrors, email string) {
	switch {
	case email == "":
	case utf8.RuneCountInString(email) > maxEmailLength:
		errs.add("email", "Ensure this value has at most 254 characters.")
	default:
		if _, err := mail.ParseAddress(email); err != nil {
			errs.add("email", "Enter a valid email address.")
		}
	}
}

func validateNames(errs fieldErrors, firstName, lastName string) {
	if utf8.RuneCountInString(firstName) > maxNameLength {
		errs.add("first_name", "Ensure this value has at most 150 characters.")
	}
	if utf8.RuneCountInString(lastName) > maxNameLength {
		errs.add("last_name", "Ensure this value has at most 150 characters.")
	}
}

func validateNewPassword(errs fieldErrors, field, p1, p2 string) {
	switch {
	case utf8.RuneCountInString(p1) < minPasswordLength:
		errs.add(field, fmt.Sprintf("This password is too short. It must contain at least %d characters.", minPasswordLength))
	case p1 != p2:
		errs.add(field, "The two password fields didn't match.")
	}
}

func (s *UserService) checkUsername(ctx context.Context, errs fieldErrors, username string) error {
	switch {
	case username == "":
		errs.add("username", "This field is required.")
	case utf8.RuneCountInString(username) > maxUsernameLength:
		errs.add("username", "Ensure this value has at most 150 characters.")
	case !usernamePattern.MatchString(username):
		errs.add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	case s.reserved(username):
		errs.add("username", "A user with that username already exists.")
	default:
		taken, err := s.users.ExistsByUsername(ctx, username)
		if err != nil {
			return err
		}
		if taken {
			errs.add("username", "A user with that username already exists.")
		}
	}
	return nil
}

// Register creates a local account.
func (s *UserService) Register(ctx context.Context, in Registration) (*data.User, error) {
	errs := fieldErrors{}
	username := strings.TrimSpace(in.Username)
	if err := s.checkUsername(ctx, errs, username); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(in.Email)
	validateEmail(errs, email)
	firstName, lastName := strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	validateNames(errs, firstName, lastName)
	validateNewPassword(errs, "password2", in.Password1, in.Password2)
	if err := errs.err(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password1)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &data.User{
		Username:     username,
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC().Truncate(time.Second),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks a username and password. Every failure is reported as
// ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*data.User, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return user, nil
}

// GetByID returns an account by ID.
func (s *UserService) GetByID(ctx context.Context, id int64) (*data.User, error) {
	user, err := s.users.GetByID(ctx, id)
	return user, notFound(err)
}

// GetByUsername returns an account by username.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*data.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	return user, notFound(err)
}

// loadSelf returns the account named username if it belongs to actor.
func (s *UserService) loadSelf(ctx context.Context, actor Principal, username string) (*data.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, notFound(err)
	}
	if !actor.Is(user) {
		return nil, ErrForbidden
	}
	return user, nil
}

// UpdateProfile saves the personal details of the actor's own account.
func (s *UserService) UpdateProfile(ctx context.Context, actor Principal, username string, in ProfileInput) (*data.User, error) {
	user, err := s.loadSelf(ctx, actor, username)
	if err != nil {
		return nil, err
	}
	errs := fieldErrors{}
	email := strings.TrimSpace(in.Email)
	validateEmail(errs, email)
	firstName, lastName := strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	validateNames(errs, firstName, lastName)
	if err := errs.err(); err != nil {
		return nil, err
	}

	user.FirstName = firstName
	user.LastName = lastName
	user.Email = email
	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

// ChangePassword replaces the password of the actor's own account after
// checking the old one.
func (s *UserService) ChangePassword(ctx context.Context, actor Principal, username string, in PasswordChange) error {
	user, err := s.loadSelf(ctx, actor, username)
	if err != nil {
		return err
	}
	errs := fieldErrors{}
	if err := auth.CheckPassword(user.PasswordHash, in.OldPassword); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			return err
		}
		errs.add("old_password", "Your old password was entered incorrectly. Please enter it again.")
	}
	validateNewPassword(errs, "new_password2", in.NewPassword1, in.NewPassword2)
	if err := errs.err(); err != nil {
		return err
	}

	hash, err := auth.HashPassword(in.NewPassword1)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return notFound(s.users.UpdatePassword(ctx, user.ID, hash))
}

var externalNameCleaner = regexp.MustCompile(`[^\w.@+-]`)

// ExternalIdentity is a verified identity from the OIDC provider.
type ExternalIdentity struct {
	Issuer            string
	Subject           string
	PreferredUsername string
	Email             string
	FirstName         string
	LastName          string
}

// Key identifies the identity across logins. Usernames and emails can be
// chosen by the provider's users, so only issuer and subject are trusted.
func (id ExternalIdentity) Key() string {
	return id.Issuer + "|" + id.Subject
}

// FindOrCreateExternal maps an identity from the OIDC provider to a local
// account, creating one without a password on first login. An identity is
// never bound to an existing account: when its preferred username is taken
// or reserved, the new account gets a numbered variant instead.
func (s *UserService) FindOrCreateExternal(ctx context.Context, id ExternalIdentity) (*data.User, error) {
	if strings.TrimSpace(id.Subject) == "" {
		return nil, errors.New("identity provider returned no subject")
	}
	key := id.Key()
	user, err := s.users.GetByExternalID(ctx, key)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, data.ErrNotFound) {
		return nil, err
	}

	username, err := s.freeExternalUsername(ctx, id)
	if err != nil {
		return nil, err
	}
	email := strings.TrimSpace(id.Email)
	if utf8.RuneCountInString(email) > maxEmailLength {
		email = ""
	}
	user = &data.User{
		Username:   username,
		FirstName:  truncateRunes(strings.TrimSpace(id.FirstName), maxNameLength),
		LastName:   truncateRunes(strings.TrimSpace(id.LastName), maxNameLength),
		Email:      email,
		ExternalID: &key,
		CreatedAt:  s.now().UTC().Truncate(time.Second),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// maxExternalNameAttempts bounds the numbered variants tried for one login.
const maxExternalNameAttempts = 100

func (s *UserService) freeExternalUsername(ctx context.Context, id ExternalIdentity) (string, error) {
	base := id.PreferredUsername
	if strings.TrimSpace(base) == "" {
		base = id.Email
	}
	base = externalNameCleaner.ReplaceAllString(strings.TrimSpace(base), "")
	if base == "" {
		base = "user"
	}

	for n := 1; n <= maxExternalNameAttempts; n++ {
		suffix := ""
		if n > 1 {
			suffix = fmt.Sprintf("-%d", n)
		}
		candidate := truncateRunes(base, maxUsernameLength-len(suffix)) + suffix
		if s.reserved(candidate) {
			continue
		}
		taken, err := s.users.ExistsByUsername(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free username for %q", base)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
