package middleware

import (
	"net/http"
	"time"

	"auction-engine/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const userContextKey = "user"

// Claims are issued by the identity service.
type Claims struct {
	ID    string      `json:"id"`
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  domain.Role `json:"role"`
	jwt.RegisteredClaims
}

type Auth struct {
	secret     []byte
	cookieName string
}

func NewAuth(secret, cookieName string) *Auth {
	return &Auth{secret: []byte(secret), cookieName: cookieName}
}

func (a *Auth) config() echojwt.Config {
	return echojwt.Config{
		SigningKey:    a.secret,
		SigningMethod: jwt.SigningMethodHS256.Alg(),
		ContextKey:    userContextKey,
		TokenLookup:   "header:Authorization:Bearer ,cookie:" + a.cookieName,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(Claims)
		},
	}
}

// Required rejects requests without a valid token.
func (a *Auth) Required() echo.MiddlewareFunc {
	cfg := a.config()
	cfg.ErrorHandler = func(c echo.Context, err error) error {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Authentication required",
			"code":  "Unauthorized",
		})
	}
	return echojwt.WithConfig(cfg)
}

// Optional lets anonymous requests through; a valid token still sets the actor.
func (a *Auth) Optional() echo.MiddlewareFunc {
	cfg := a.config()
	cfg.ContinueOnIgnoredError = true
	cfg.ErrorHandler = func(c echo.Context, err error) error {
		return nil
	}
	return echojwt.WithConfig(cfg)
}

// ActorFrom returns the authenticated caller, or a zero Actor for anonymous requests.
func ActorFrom(c echo.Context) domain.Actor {
	token, ok := c.Get(userContextKey).(*jwt.Token)
	if !ok || !token.Valid {
		return domain.Actor{}
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return domain.Actor{}
	}
	return claims.Actor()
}

func (c *Claims) Actor() domain.Actor {
	role := c.Role
	if role == "" {
		role = domain.RoleUser
	}
	return domain.Actor{UserID: c.ID, Role: role}
}

// Authenticate validates a raw token, as sent on websocket query strings.
func (a *Auth) Authenticate(tokenString string) (domain.Actor, error) {
	if tokenString == "" {
		return domain.Actor{}, errors.Wrap(domain.ErrUnauthorized, "missing token")
	}
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.Wrap(domain.ErrUnauthorized, "invalid or expired token")
	}
	if claims.ID == "" {
		return domain.Actor{}, errors.Wrap(domain.ErrUnauthorized, "invalid token claims")
	}
	return claims.Actor(), nil
}

// IssueToken signs a token for the given user. Used by tooling and tests;
// production tokens come from the identity service.
func (a *Auth) IssueToken(user domain.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}
