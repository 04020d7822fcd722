package service

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/pochaneco/ai-Knowledge-api/internal/mailer"
	"github.com/pochaneco/ai-Knowledge-api/internal/model"
	jwtpkg "github.com/pochaneco/ai-Knowledge-api/pkg/jwt"
	"github.com/pochaneco/ai-Knowledge-api/pkg/token"
)

type AuthService struct {
	db          *gorm.DB
	tokens      *token.Service
	mailer      mailer.Mailer
	jwtSecret   string
	jwtExpire   int
	baseURL     string
	tokenMaxAge time.Duration
	autoVerify  bool
}

type AuthOptions struct {
	JWTSecret   string
	JWTExpire   int
	BaseURL     string
	TokenMaxAge time.Duration
	// AutoVerify marks new local accounts as verified immediately. Meant for
	// trusted environments where no mail relay is available.
	AutoVerify bool
}

func NewAuthService(db *gorm.DB, tokens *token.Service, m mailer.Mailer, opts AuthOptions) *AuthService {
	if opts.TokenMaxAge <= 0 {
		opts.TokenMaxAge = time.Hour
	}
	return &AuthService{
		db:          db,
		tokens:      tokens,
		mailer:      m,
		jwtSecret:   opts.JWTSecret,
		jwtExpire:   opts.JWTExpire,
		baseURL:     opts.BaseURL,
		tokenMaxAge: opts.TokenMaxAge,
		autoVerify:  opts.AutoVerify,
	}
}

// sendMail delivers best-effort. A failed send never fails the operation
// that triggered it.
func (s *AuthService) sendMail(to, subject, body string) {
	if err := s.mailer.Send(to, subject, body); err != nil {
		log.Printf("send mail: %v", err)
	}
}

// Register creates a local account. Username and email uniqueness is a
// single combined check, so the caller cannot tell which of the two
// collided. Unless auto-verify is on, the account starts unverified and a
// verification link is mailed out.
func (s *AuthService) Register(username, email, password string) (*model.User, error) {
	var existing model.User
	err := s.db.Where("username = ? OR email = ?", username, email).First(&existing).Error
	if err == nil {
		return nil, ErrDuplicateIdentity
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internal("register: lookup", err)
	}

	user := model.User{
		Username:      username,
		Email:         email,
		EmailVerified: s.autoVerify,
		IsActive:      true,
	}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, internal("register: hash password", err)
		}
		user.PasswordHash = string(hash)
	}

	var verifyToken string
	if !user.EmailVerified {
		verifyToken, err = s.tokens.Issue(email, token.PurposeEmailVerification)
		if err != nil {
			return nil, internal("register: issue token", err)
		}
		user.VerificationToken = verifyToken
	}

	if err := s.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateIdentity
		}
		return nil, internal("register: create user", err)
	}

	if verifyToken != "" {
		url := fmt.Sprintf("%s/auth/verify-email?token=%s", s.baseURL, verifyToken)
		subject, body := mailer.VerificationEmail(user.Username, url)
		s.sendMail(user.Email, subject, body)
	}
	return &user, nil
}

// VerifyEmail resolves a verification token and marks the account verified.
// The returned bool reports whether the account was already verified, which
// is treated as an idempotent success.
func (s *AuthService) VerifyEmail(tokenStr string) (*model.User, bool, error) {
	email, err := s.tokens.Verify(tokenStr, token.PurposeEmailVerification, s.tokenMaxAge)
	if err != nil {
		return nil, false, ErrInvalidToken
	}

	var user model.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrInvalidToken
		}
		return nil, false, internal("verify email: lookup", err)
	}
	if user.EmailVerified {
		return &user, true, nil
	}

	updates := map[string]interface{}{"email_verified": true, "verification_token": ""}
	if err := s.db.Model(&user).Updates(updates).Error; err != nil {
		return nil, false, internal("verify email: update", err)
	}
	user.EmailVerified = true
	user.VerificationToken = ""
	return &user, false, nil
}

// ResendVerification mails a fresh verification link. Like the password
// reset request it reports nothing to the caller, so the endpoint cannot be
// used to probe for registered or unverified addresses. Already-verified
// accounts are left alone.
func (s *AuthService) ResendVerification(email string) {
	var user model.User
	err := s.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("resend verification: lookup: %v", err)
		}
		return
	}
	if user.EmailVerified {
		return
	}

	verifyToken, err := s.tokens.Issue(user.Email, token.PurposeEmailVerification)
	if err != nil {
		log.Printf("resend verification: issue token: %v", err)
		return
	}
	if err := s.db.Model(&user).Update("verification_token", verifyToken).Error; err != nil {
		log.Printf("resend verification: update: %v", err)
		return
	}

	url := fmt.Sprintf("%s/auth/verify-email?token=%s", s.baseURL, verifyToken)
	subject, body := mailer.VerificationEmail(user.Username, url)
	s.sendMail(user.Email, subject, body)
}

// Authenticate looks up by username or email and checks the password. The
// same failure kind covers an unknown identifier and a wrong password so the
// response cannot be used to enumerate accounts. Verification and active
// status are only checked once the password is known to be correct.
func (s *AuthService) Authenticate(identifier, password string) (*model.User, error) {
	var user model.User
	err := s.db.Where("username = ? OR email = ?", identifier, identifier).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, internal("authenticate: lookup", err)
	}
	if user.PasswordHash == "" {
		return nil, ErrBadCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	return &user, nil
}

// Login authenticates and issues a session JWT.
func (s *AuthService) Login(identifier, password string) (*model.User, string, time.Time, error) {
	user, err := s.Authenticate(identifier, password)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	tokenStr, expireAt, err := jwtpkg.GenerateToken(s.jwtSecret, user.ID, user.Username, s.jwtExpire)
	if err != nil {
		return nil, "", time.Time{}, internal("login: generate token", err)
	}
	return user, tokenStr, expireAt, nil
}

// RequestPasswordReset always reports success so the endpoint cannot be used
// to probe for registered addresses. The mail only goes out when the address
// matches an account.
func (s *AuthService) RequestPasswordReset(email string) {
	var user model.User
	err := s.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("password reset: lookup: %v", err)
		}
		return
	}

	resetToken, err := s.tokens.Issue(user.Email, token.PurposePasswordReset)
	if err != nil {
		log.Printf("password reset: issue token: %v", err)
		return
	}
	url := fmt.Sprintf("%s/auth/reset-password?token=%s", s.baseURL, resetToken)
	subject, body := mailer.PasswordResetEmail(user.Username, url)
	s.sendMail(user.Email, subject, body)
}

// ResetPassword overwrites the password credential after resolving a reset
// token.
func (s *AuthService) ResetPassword(tokenStr, newPassword string) error {
	email, err := s.tokens.Verify(tokenStr, token.PurposePasswordReset, s.tokenMaxAge)
	if err != nil {
		return ErrInvalidToken
	}

	var user model.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidToken
		}
		return internal("reset password: lookup", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return internal("reset password: hash", err)
	}
	if err := s.db.Model(&user).Update("password_hash", string(hash)).Error; err != nil {
		return internal("reset password: update", err)
	}
	return nil
}

// LoginWithGoogle exchanges an already-validated Google identity for a local
// user record and a session JWT. An existing account with the same email is
// linked to the Google subject and marked verified; otherwise a fresh,
// verified account is created under a de-duplicated username.
func (s *AuthService) LoginWithGoogle(googleID, email, name string) (*model.User, string, time.Time, error) {
	user, err := s.findOrCreateGoogleUser(googleID, email, name)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	tokenStr, expireAt, err := jwtpkg.GenerateToken(s.jwtSecret, user.ID, user.Username, s.jwtExpire)
	if err != nil {
		return nil, "", time.Time{}, internal("google login: generate token", err)
	}
	return user, tokenStr, expireAt, nil
}

func (s *AuthService) findOrCreateGoogleUser(googleID, email, name string) (*model.User, error) {
	var user model.User
	err := s.db.Where("google_id = ?", googleID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internal("google login: lookup by id", err)
	}

	err = s.db.Where("email = ?", email).First(&user).Error
	if err == nil {
		updates := map[string]interface{}{"google_id": googleID, "email_verified": true}
		if err := s.db.Model(&user).Updates(updates).Error; err != nil {
			return nil, internal("google login: link account", err)
		}
		user.GoogleID = googleID
		user.EmailVerified = true
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internal("google login: lookup by email", err)
	}

	username, err := s.availableUsername(name, email)
	if err != nil {
		return nil, err
	}
	user = model.User{
		Username:      username,
		Email:         email,
		GoogleID:      googleID,
		EmailVerified: true,
		IsActive:      true,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, internal("google login: create user", err)
	}
	return &user, nil
}

func (s *AuthService) availableUsername(name, email string) (string, error) {
	base := name
	if base == "" {
		base, _, _ = strings.Cut(email, "@")
	}
	candidate := base
	for i := 1; ; i++ {
		var count int64
		if err := s.db.Model(&model.User{}).Where("username = ?", candidate).Count(&count).Error; err != nil {
			return "", internal("google login: username check", err)
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d", base, i)
	}
}

func (s *AuthService) GetUserByID(id uint) (*model.User, error) {
	var user model.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, internal("get user", err)
	}
	return &user, nil
}
