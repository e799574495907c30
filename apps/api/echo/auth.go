package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/sigcolegio/backend/core"
	"github.com/sigcolegio/backend/core/user"
)

const (
	tokenContextKey = "userToken"
	userContextKey  = "user"
	tokenAudience   = "SIG Colegio"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt         int64  `json:"oriat,omitempty"`
	IdentificationNumber string `json:"identification_number,omitempty"`
	Email                string `json:"email,omitempty"`
	Role                 string `json:"role,omitempty"`
	SchoolID             string `json:"school_id,omitempty"`
}

// NewUserClaims returns the claims of usr. origIat keeps the original issue time on refresh.
func NewUserClaims(conf *core.Config, usr user.User, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt:         oriat,
		IdentificationNumber: usr.IdentificationNumber,
		Email:                usr.Email,
		Role:                 usr.Role,
		SchoolID:             usr.SchoolID.String,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

type authenticator struct {
	conf    *core.Config
	svc     *user.Service
	jwtConf middleware.JWTConfig
}

func newAuthenticator(conf *core.Config, svc *user.Service) *authenticator {
	return &authenticator{
		conf: conf,
		svc:  svc,
		jwtConf: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    tokenContextKey,
			Claims:        new(Claims),
		},
	}
}

func hasToken(ctx echo.Context) bool {
	return ctx.Request().Header.Get(echo.HeaderAuthorization) != ""
}

// required rejects requests without a valid token.
func (a *authenticator) required() echo.MiddlewareFunc {
	return middleware.JWTWithConfig(a.jwtConf)
}

// optional parses the token when one is sent.
func (a *authenticator) optional() echo.MiddlewareFunc {
	conf := a.jwtConf
	conf.Skipper = func(ctx echo.Context) bool { return !hasToken(ctx) }
	return middleware.JWTWithConfig(conf)
}

// records guards the records API: a token is required unless auth is turned off.
func (a *authenticator) records() echo.MiddlewareFunc {
	if a.conf.Server.RequireAuth {
		return a.required()
	}
	return a.optional()
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// principal returns the authenticated user id, or "" for anonymous requests.
func principal(ctx echo.Context) string {
	if claims, err := getContextClaims(ctx); err == nil {
		return claims.Subject
	}
	return ""
}

func (a *authenticator) contextUser(ctx echo.Context, clms ...Claims) (user.User, error) {
	if usr, ok := ctx.Get(userContextKey).(user.User); ok {
		return usr, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return user.User{}, err
		}
	}

	usr, err := a.svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if err == user.ErrNotFound {
			return user.User{}, errUnauthorized
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(userContextKey, usr)
	return usr, nil
}

func (a *authenticator) authenticate(ctx echo.Context, idNumber, pwd string) (user.User, string, error) {
	reqCtx := ctx.Request().Context()
	usr, err := a.svc.GetByIdentification(reqCtx, idNumber)
	if err != nil {
		if err == user.ErrNotFound {
			return user.User{}, "", errAuthenticationFailed
		}
		return user.User{}, "", errors.Wrap(err, "finding user by identification number")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return user.User{}, "", errAuthenticationFailed
	}
	if !usr.IsActive {
		return user.User{}, "", errAccountDeactivated
	}
	if usr, err = a.svc.SetLastLogin(reqCtx, usr); err != nil {
		return user.User{}, "", errors.Wrap(err, "setting lastLogin")
	}

	token, err := GenerateToken(a.conf, NewUserClaims(a.conf, usr))
	if err != nil {
		return user.User{}, "", err
	}
	return usr, token, nil
}

func (a *authenticator) refreshToken(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", err
	}

	usr, err := a.contextUser(ctx, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context user")
	}

	// check if user is still active
	if !usr.IsActive {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	return GenerateToken(a.conf, NewUserClaims(a.conf, usr, claims.OrigIssuedAt))
}
