package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yungbote/coursemap-backend/internal/platform/apierr"
	"github.com/yungbote/coursemap-backend/internal/platform/logger"
	"github.com/yungbote/coursemap-backend/internal/platform/sendgrid"
	"github.com/yungbote/coursemap-backend/internal/repos"
	"github.com/yungbote/coursemap-backend/internal/types"
)

type JWTClaims struct {
	jwt.RegisteredClaims
}

type AuthConfig struct {
	JWTSecret   string
	AccessTTL   time.Duration
	LoginTTL    time.Duration
	AppBaseURL  string
	// Bypass returns the login token in the request response instead of
	// mailing it. Local development only; never enable in production.
	Bypass bool
}

// RequestLoginResult is empty unless bypass mode is on.
type RequestLoginResult struct {
	Token string `json:"token,omitempty"`
}

type VerifyLoginResult struct {
	AccessToken string      `json:"accessToken"`
	User        *types.User `json:"user"`
}

// AuthService implements passwordless login: a short-lived single-use
// token is mailed to the address, and redeeming it yields a JWT.
type AuthService interface {
	RequestLogin(ctx context.Context, email string) (*RequestLoginResult, error)
	VerifyLogin(ctx context.Context, token string) (*VerifyLoginResult, error)
	UserFromToken(ctx context.Context, tokenString string) (*types.User, error)
}

type authService struct {
	db        *gorm.DB
	log       *logger.Logger
	userRepo  repos.UserRepo
	tokenRepo repos.LoginTokenRepo
	mailer    sendgrid.Client
	cfg       AuthConfig
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	tokenRepo repos.LoginTokenRepo,
	mailer sendgrid.Client,
	cfg AuthConfig,
) AuthService {
	return &authService{
		db:        db,
		log:       log.With("service", "AuthService"),
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		mailer:    mailer,
		cfg:       cfg,
	}
}

func (as *authService) RequestLogin(ctx context.Context, email string) (*RequestLoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apierr.InvalidRequest(errors.New("invalid email address"))
	}

	user, err := as.userRepo.UpsertByEmail(ctx, nil, email)
	if err != nil {
		return nil, err
	}

	secret, err := randomSecret()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	token := &types.LoginToken{
		ID:         uuid.New(),
		UserID:     user.ID,
		SecretHash: string(hash),
		ExpiresAt:  time.Now().Add(as.cfg.LoginTTL),
	}
	if err := as.tokenRepo.Create(ctx, nil, token); err != nil {
		return nil, err
	}
	// Expired rows from earlier requests are dead weight; sweep them
	// opportunistically.
	if err := as.tokenRepo.DeleteExpired(ctx, nil, time.Now()); err != nil {
		as.log.Warn("Expired login token sweep failed", "error", err)
	}

	raw := fmt.Sprintf("%s.%s", token.ID, secret)
	if as.cfg.Bypass {
		as.log.Warn("Auth bypass enabled, returning login token in response", "user_id", user.ID.String())
		return &RequestLoginResult{Token: raw}, nil
	}

	if as.mailer == nil {
		return nil, errors.New("login email delivery is not configured")
	}
	link := fmt.Sprintf("%s/auth/verify?token=%s", strings.TrimRight(as.cfg.AppBaseURL, "/"), raw)
	_, err = as.mailer.Send(ctx, sendgrid.SendEmailRequest{
		To:      []sendgrid.EmailAddress{{Email: email}},
		Subject: "Your sign-in link",
		Text:    fmt.Sprintf("Sign in by opening this link (valid for %d minutes):\n\n%s\n", int(as.cfg.LoginTTL.Minutes()), link),
		HTML:    fmt.Sprintf(`<p>Sign in by opening this link (valid for %d minutes):</p><p><a href=%q>%s</a></p>`, int(as.cfg.LoginTTL.Minutes()), link, link),
	})
	if err != nil {
		return nil, fmt.Errorf("send login email: %w", err)
	}

	as.log.Info("Login link issued", "user_id", user.ID.String())
	return &RequestLoginResult{}, nil
}

func (as *authService) VerifyLogin(ctx context.Context, token string) (*VerifyLoginResult, error) {
	invalid := apierr.Unauthorized(errors.New("invalid or expired login token"))

	id, secret, ok := splitLoginToken(token)
	if !ok {
		return nil, invalid
	}

	var user *types.User
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := as.tokenRepo.GetByID(ctx, tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalid
			}
			return err
		}
		if time.Now().After(record.ExpiresAt) {
			return invalid
		}
		if bcrypt.CompareHashAndPassword([]byte(record.SecretHash), []byte(secret)) != nil {
			return invalid
		}
		consumed, err := as.tokenRepo.MarkConsumed(ctx, tx, record.ID, time.Now())
		if err != nil {
			return err
		}
		if !consumed {
			return invalid
		}
		user, err = as.userRepo.GetByID(ctx, tx, record.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}

	access, err := as.generateAccessToken(user)
	if err != nil {
		return nil, err
	}
	as.log.Info("Login verified", "user_id", user.ID.String())
	return &VerifyLoginResult{AccessToken: access, User: user}, nil
}

func (as *authService) UserFromToken(ctx context.Context, tokenString string) (*types.User, error) {
	invalid := apierr.Unauthorized(errors.New("invalid or expired token"))

	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(as.cfg.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, invalid
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok {
		return nil, invalid
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, invalid
	}
	user, err := as.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid
		}
		return nil, err
	}
	return user, nil
}

func (as *authService) generateAccessToken(user *types.User) (string, error) {
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(as.cfg.AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.cfg.JWTSecret))
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func splitLoginToken(token string) (uuid.UUID, string, bool) {
	parts := strings.SplitN(strings.TrimSpace(token), ".", 2)
	if len(parts) != 2 || parts[1] == "" {
		return uuid.Nil, "", false
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, "", false
	}
	return id, parts[1], true
}
