package echoapi

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/compass/core"
	"github.com/trezcool/compass/core/user"
)

const (
	contextClaimsKey = "userToken"
	contextUserKey   = "user"
	tokenAudience    = "dashboard"
)

var signingMethod = jwt.SigningMethodHS256

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	Email   string `json:"email,omitempty"`
	IsAdmin bool   `json:"is_admin,omitempty"`
}

func GetUserClaims(conf *core.Config, usr user.User) *Claims {
	now := time.Now()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(conf.Server.JWTExpirationDelta)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Email:   usr.Email,
		IsAdmin: usr.IsAdmin,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(signingMethod, claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func parseToken(conf *core.Config, raw string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(
		raw, claims,
		func(*jwt.Token) (interface{}, error) { return []byte(conf.SecretKey), nil },
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid || !claims.VerifyAudience(tokenAudience, true) {
		return nil, errUnauthorized
	}
	return claims, nil
}

// jwtMiddleware authenticates API requests carrying an "Authorization: Bearer <token>" header.
func jwtMiddleware(conf *core.Config) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup:  "header:" + echo.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(raw string, ctx echo.Context) (bool, error) {
			claims, err := parseToken(conf, raw)
			if err != nil {
				return false, nil
			}
			ctx.Set(contextClaimsKey, claims)
			return true, nil
		},
		ErrorHandler: func(error, echo.Context) error {
			return errUnauthorized
		},
	})
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if claims, ok := ctx.Get(contextClaimsKey).(*Claims); ok {
		return *claims, nil
	}
	return Claims{}, errUnauthorized
}

// getContextUser loads the operator the token was issued to. Deactivated or deleted operators are refused.
func getContextUser(ctx echo.Context, svc *user.Service) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}, err
	}
	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, errUnauthorized
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	if !usr.IsActive {
		return user.User{}, errAccountDeactivated
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

// contextOperator returns the operator behind the request, whether it came with a token or a session.
func contextOperator(ctx echo.Context) (user.User, bool) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, true
	}
	if claims, err := getContextClaims(ctx); err == nil {
		return user.User{ID: claims.Subject, Email: claims.Email}, true
	}
	return user.User{}, false
}
