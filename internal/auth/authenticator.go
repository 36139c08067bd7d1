package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/coinflux/realtime/internal/ierr"
	"github.com/golang-jwt/jwt/v5"
)

const RoleAdmin = "admin"

type Claims struct {
	jwt.RegisteredClaims
	Role   string `json:"role,omitempty"`
	Active bool   `json:"active"`
}

// Identity is what the platform resolves a bearer token to. The fan-out
// core never sees the token itself, only this.
type Identity struct {
	UserID  string
	IsAdmin bool
	Active  bool
}

type Authenticator struct {
	secret    []byte
	apiKeys   []string
	jwtParser *jwt.Parser
}

func NewAuthenticator(secret string, apiKeys []string) *Authenticator {
	jwtParser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30*time.Second),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithAudience("realtime"),
	)

	return &Authenticator{
		secret:    []byte(secret),
		apiKeys:   apiKeys,
		jwtParser: jwtParser,
	}
}

func (a *Authenticator) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("unexpected signing method"))
	}
	return a.secret, nil
}

func (a *Authenticator) Authenticate(tokenString string) (*Identity, error) {
	if tokenString == "" {
		return nil, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("missing token"))
	}

	claims := Claims{}

	_, err := a.jwtParser.ParseWithClaims(tokenString, &claims, a.keyFunc)
	if err != nil {
		return nil, ierr.New(ierr.ErrorCodeUnauthenticated, err)
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("invalid subject claim"))
	}

	if !claims.Active {
		return nil, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("user is not active"))
	}

	return &Identity{
		UserID:  subject,
		IsAdmin: claims.Role == RoleAdmin,
		Active:  claims.Active,
	}, nil
}

func (a *Authenticator) AuthenticateAPIKey(apiKey string) error {
	for _, key := range a.apiKeys {
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
			return nil
		}
	}

	return ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("invalid api key"))
}
