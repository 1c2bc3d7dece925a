package domain

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// Roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

var (
	emailRegexp      = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	personNameRegexp = regexp.MustCompile(`^[A-Za-z ]{2,}$`)
	collegeRegexp    = regexp.MustCompile(`^[A-Za-z &]{2,}$`)
	rollNumberRegexp = regexp.MustCompile(`^[0-9]{1,30}$`)
)

// User is a participant or administrator account.
// swagger:model User
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Salt         string    `json:"-"`
	RollNumber   string    `json:"rollNumber"`
	College      string    `json:"college"`
	Phone        string    `json:"phone,omitempty"`
	Department   string    `json:"department,omitempty"`
	Year         string    `json:"year,omitempty"`
	Role         string    `json:"role"`
	PID          string    `json:"pid"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// PublicProfile returns the fields other participants may see.
func (u *User) PublicProfile() *PublicProfile {
	return &PublicProfile{PID: u.PID, Name: u.Name, College: u.College}
}

// PublicProfile is what a team leader sees when checking a candidate PID.
// swagger:model PublicProfile
type PublicProfile struct {
	PID     string `json:"pid"`
	Name    string `json:"name"`
	College string `json:"college"`
}

// SignUpInput carries the fields required to create an account.
type SignUpInput struct {
	Name       string
	Email      string
	Password   string
	RollNumber string
	College    string
	Phone      string
	Department string
	Year       string
}

// Normalize trims whitespace and lower-cases the email.
func (in *SignUpInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.RollNumber = strings.TrimSpace(in.RollNumber)
	in.College = strings.TrimSpace(in.College)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Department = strings.TrimSpace(in.Department)
	in.Year = strings.TrimSpace(in.Year)
}

// Validate returns one message per invalid field.
func (in SignUpInput) Validate() []string {
	var errs []string
	if msg := validateName(in.Name); msg != "" {
		errs = append(errs, msg)
	}
	if !emailRegexp.MatchString(in.Email) {
		errs = append(errs, "invalid email format")
	}
	if len(in.Password) < MinPasswordLength {
		errs = append(errs, "password must be at least 6 characters")
	}
	if !rollNumberRegexp.MatchString(in.RollNumber) {
		errs = append(errs, "roll number must contain only digits (1-30)")
	}
	if msg := validateCollege(in.College); msg != "" {
		errs = append(errs, msg)
	}
	return errs
}

// ProfileUpdate holds the editable profile fields. Nil means unchanged.
type ProfileUpdate struct {
	Name       *string
	Phone      *string
	College    *string
	Department *string
	Year       *string
}

// Apply validates the update and copies the set fields onto u.
func (p ProfileUpdate) Apply(u *User) []string {
	var errs []string
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if msg := validateName(name); msg != "" {
			errs = append(errs, msg)
		} else {
			u.Name = name
		}
	}
	if p.College != nil {
		college := strings.TrimSpace(*p.College)
		if msg := validateCollege(college); msg != "" {
			errs = append(errs, msg)
		} else {
			u.College = college
		}
	}
	if p.Phone != nil {
		u.Phone = strings.TrimSpace(*p.Phone)
	}
	if p.Department != nil {
		u.Department = strings.TrimSpace(*p.Department)
	}
	if p.Year != nil {
		u.Year = strings.TrimSpace(*p.Year)
	}
	return errs
}

func validateName(name string) string {
	if !personNameRegexp.MatchString(name) {
		return "name must contain only letters and spaces (min 2)"
	}
	return ""
}

func validateCollege(college string) string {
	if !collegeRegexp.MatchString(college) {
		return "college must contain only letters, spaces and & (min 2)"
	}
	return ""
}

// TokenClaims is the identity carried by an access token.
type TokenClaims struct {
	UserID string
	Email  string
	Role   string
}

// PasswordHasher handles salt generation, hashing, and verification.
type PasswordHasher interface {
	GenerateSalt() (string, error)
	Hash(salt, password string) (hash string, err error)
	Compare(hash, salt, password string) error
}

// TokenIssuer issues access tokens for an authenticated user.
type TokenIssuer interface {
	Issue(claims TokenClaims, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*TokenClaims, error)
}

// UserRepository defines the interface for user storage.
type UserRepository interface {
	// Create inserts the user and assigns the next PID for the user's creation year.
	// A PID collision with a concurrent sign-up returns ErrDuplicatePID.
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByPID(ctx context.Context, pid string) (*User, error)
	ListByPIDs(ctx context.Context, pids []string) ([]*User, error)
	ListByRole(ctx context.Context, role string) ([]*User, error)
	CountByRole(ctx context.Context, role string) (int, error)
	UpdateProfile(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) error
}

// AuthService covers account creation, login and profile management.
type AuthService interface {
	SignUp(ctx context.Context, in SignUpInput) (user *User, token string, err error)
	Login(ctx context.Context, email, password string) (user *User, token string, err error)
	GetProfile(ctx context.Context, userID string) (*User, error)
	UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*User, error)
}
