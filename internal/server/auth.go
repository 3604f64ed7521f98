package server

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/deepwander/deepwander/internal/runtime"
	"github.com/deepwander/deepwander/internal/store"
)

type AuthHandler struct {
	Store  *store.Store
	Secret []byte
}

func (a *AuthHandler) Register(g *echo.Group) {
	g.POST("/register", a.register)
	g.POST("/token", a.token)
	me := g.Group("/me")
	me.Use(runtime.EchoAuthMiddleware(a.Secret))
	me.GET("", a.me)
}

func (a *AuthHandler) register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username, email and password are required")
	}
	ctx := c.Request().Context()
	if taken, err := a.Store.UsernameExists(ctx, req.Username); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	} else if taken {
		return echo.NewHTTPError(http.StatusBadRequest, "username already registered")
	}
	if taken, err := a.Store.EmailExists(ctx, req.Email); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	} else if taken {
		return echo.NewHTTPError(http.StatusBadRequest, "email already registered")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	id, err := a.Store.CreateUser(ctx, req.Username, req.Email, string(hash))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"id": id, "username": req.Username, "email": req.Email})
}

// token exchanges form credentials for a bearer token.
func (a *AuthHandler) token(c echo.Context) error {
	username := c.FormValue("username")
	password := c.FormValue("password")
	if username == "" || password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}
	user, err := a.Store.GetUserByUsername(c.Request().Context(), username)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "incorrect username or password")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "incorrect username or password")
	}
	signed, err := runtime.SignJWT(strconv.FormatInt(user.ID, 10), a.Secret, 24*time.Hour)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	cookie := new(http.Cookie)
	cookie.Name = "auth"
	cookie.Value = signed
	cookie.Path = "/"
	cookie.HttpOnly = true
	cookie.SameSite = http.SameSiteLaxMode
	c.SetCookie(cookie)
	return c.JSON(http.StatusOK, TokenResponse{
		AccessToken: signed,
		TokenType:   "bearer",
		Username:    user.Username,
		Email:       user.Email,
		UserID:      user.ID,
	})
}

func (a *AuthHandler) me(c echo.Context) error {
	id, err := currentUserID(c)
	if err != nil {
		return err
	}
	user, err := a.Store.GetUserByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
	})
}

// currentUserID reads the authenticated user set by the JWT middleware.
func currentUserID(c echo.Context) (int64, error) {
	sub, _ := c.Get("user_id").(string)
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return id, nil
}
