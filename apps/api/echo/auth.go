package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/nocheto/libretas/core"
	"github.com/nocheto/libretas/core/school"
)

const (
	contextTokenKey = "userToken"
	contextUserKey  = "user"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64           `json:"oriat,omitempty"`
	Username     string          `json:"username,omitempty"`
	Role         school.RoleKind `json:"role,omitempty"`
}

// NewClaims returns the claims of usr. origIat is kept across token refreshes.
func NewClaims(conf *core.Config, usr school.User, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			Audience:  "Intranet",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Username:     usr.Username,
	}
	if usr.Role != nil {
		claims.Role = usr.Role.Kind()
	}
	return claims
}

func jwtConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	jc := jwtConfig(conf)
	token := jwt.NewWithClaims(jwt.GetSigningMethod(jc.SigningMethod), claims)

	ss, err := token.SignedString(jc.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextUser(ctx echo.Context) (school.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(school.User); ok {
		return usr, nil
	}
	return school.User{}, errUnauthorized
}

type authApi struct {
	conf     *core.Config
	users    school.Identity
	validate *validator.Validate
}

func registerAuthAPI(g *echo.Group, authMw, userMw echo.MiddlewareFunc, api authApi) {
	ag := g.Group("/auth")
	ag.POST("/login", api.login)
	ag.POST("/token-refresh", api.refreshToken, authMw, userMw)

	g.GET("/me", api.me, authMw, userMw)
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.users.UserByUsername(data.Username)
	if err != nil {
		if errors.Cause(err) == school.ErrUserNotFound {
			return errAuthenticationFailed
		}
		return errors.Wrap(err, "finding user by username")
	}
	if err = usr.CheckPassword(data.Password); err != nil {
		return errAuthenticationFailed
	}

	token, err := GenerateToken(api.conf, NewClaims(api.conf, usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(api.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return errRefreshExpired
	}

	token, err := GenerateToken(api.conf, NewClaims(api.conf, usr, claims.OrigIssuedAt))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *authApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, usr.Profile())
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}
