package echoapi

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/quizly/backend/core"
)

const (
	contextCallerKey = "caller"
	bearerPrefix     = "Bearer "
)

// Claims represents the authorization claims transmitted via a JWT issued by the identity provider.
type Claims struct {
	Email           string `json:"email,omitempty"`
	Name            string `json:"name,omitempty"`
	AuthorizedParty string `json:"azp,omitempty"`
	jwt.RegisteredClaims
}

type tokenVerifier struct {
	key     interface{}
	methods []string
	parties map[string]struct{}
	opts    []jwt.ParserOption
}

func newTokenVerifier(conf core.AuthConfig) (*tokenVerifier, error) {
	v := new(tokenVerifier)
	switch {
	case conf.JWTPublicKey != "":
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(conf.JWTPublicKey))
		if err != nil {
			return nil, errors.Wrap(err, "parsing jwt public key")
		}
		v.key = key
		v.methods = []string{jwt.SigningMethodRS256.Alg()}
	case conf.JWTSecret != "":
		v.key = []byte(conf.JWTSecret)
		v.methods = []string{jwt.SigningMethodHS256.Alg()}
	default:
		return nil, errors.New("either a jwt public key or a jwt secret is required")
	}

	v.opts = []jwt.ParserOption{
		jwt.WithValidMethods(v.methods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(conf.Leeway),
	}
	if conf.Issuer != "" {
		v.opts = append(v.opts, jwt.WithIssuer(conf.Issuer))
	}
	if len(conf.AuthorizedParties) > 0 {
		v.parties = make(map[string]struct{}, len(conf.AuthorizedParties))
		for _, p := range conf.AuthorizedParties {
			v.parties[p] = struct{}{}
		}
	}
	return v, nil
}

func (v *tokenVerifier) verify(tokenString string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return v.key, nil
	}, v.opts...)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	if v.parties != nil {
		if _, ok := v.parties[claims.AuthorizedParty]; !ok {
			return nil, errors.Errorf("unauthorized party %q", claims.AuthorizedParty)
		}
	}
	return claims, nil
}

// newAuthMiddleware authenticates bearer tokens and stores the core.Caller in the context.
func newAuthMiddleware(conf core.AuthConfig) (echo.MiddlewareFunc, error) {
	verifier, err := newTokenVerifier(conf)
	if err != nil {
		return nil, err
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
			if len(auth) <= len(bearerPrefix) || !strings.EqualFold(auth[:len(bearerPrefix)], bearerPrefix) {
				return errMissingToken
			}
			token := strings.TrimSpace(auth[len(bearerPrefix):])

			claims, err := verifier.verify(token)
			if err != nil {
				return echo.NewHTTPError(errInvalidToken.Code, errInvalidToken.Message).SetInternal(err)
			}

			caller := core.Caller{ID: claims.Subject, Email: claims.Email, Name: claims.Name, Token: token}
			ctx.Set(contextCallerKey, caller)
			req := ctx.Request()
			ctx.SetRequest(req.WithContext(core.WithCaller(req.Context(), caller)))
			return next(ctx)
		}
	}, nil
}

func getContextCaller(ctx echo.Context) (core.Caller, error) {
	if caller, ok := ctx.Get(contextCallerKey).(core.Caller); ok {
		return caller, nil
	}
	return core.Caller{}, errMissingToken
}

// GenerateToken signs an HS256 token for userID. Used by tests and local tooling.
func GenerateToken(secret, userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}
