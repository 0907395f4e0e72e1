package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// FakeUser is an account of the fake backend, with the student data it serves.
type FakeUser struct {
	ID       string
	Username string
	Email    string
	Role     string
	Password string // plain text; only the bcrypt hash is kept

	Courses []map[string]interface{}
	Results []map[string]interface{}
	Info    map[string]interface{}
	Photo   []byte
	// PhotoType is the Content-Type of Photo; when empty the photo is sent without one.
	PhotoType string

	pwdHash []byte
}

type fakeClaims struct {
	jwt.RegisteredClaims
	Role       string `json:"role"`
	Generation int    `json:"gen"`
}

// Backend is an in-process fake of the student REST backend.
type Backend struct {
	*httptest.Server

	mu          sync.Mutex
	secret      []byte
	generation  int
	users       map[string]*FakeUser // {id: user}
	resetTokens map[string]string    // {token: user id}
	calls       []string
}

// NewBackend starts a fake backend, closed with the test.
func NewBackend(t *testing.T, users ...FakeUser) *Backend {
	t.Helper()
	b := &Backend{
		secret:      []byte("backend-secret"),
		users:       make(map[string]*FakeUser),
		resetTokens: make(map[string]string),
	}
	for _, usr := range users {
		b.AddUser(t, usr)
	}

	app := echo.New()
	app.HideBanner = true
	app.Pre(b.recordCall)

	auth := app.Group("/api/v1/auth")
	auth.POST("/login", b.login)
	auth.POST("/register", b.register)
	auth.POST("/create-user", b.register, b.requireToken, b.requireAdmin)
	auth.GET("/", b.listUsers, b.requireToken, b.requireAdmin)
	auth.PUT("/update-user/:id", b.updateUser, b.requireToken, b.requireSelfOrAdmin)
	auth.POST("/change-password/:id", b.changePassword, b.requireToken, b.requireSelfOrAdmin)
	auth.POST("/assign-role/:id", b.assignRole, b.requireToken, b.requireAdmin)

	api := app.Group("/api")
	api.DELETE("/users/:id", b.deleteUser, b.requireToken, b.requireAdmin)
	api.GET("/courses/student/:id", b.courses, b.requireToken, b.requireSelfOrAdmin)
	api.GET("/final-exams/student/:id", b.results, b.requireToken, b.requireSelfOrAdmin)
	api.GET("/student-info/:id", b.info, b.requireToken, b.requireSelfOrAdmin)
	api.GET("/student-photo/:id", b.photo, b.requireToken, b.requireSelfOrAdmin)

	front := app.Group("/frontend/api")
	front.POST("/forgot-password/", b.forgotPassword)
	front.GET("/verify-token", b.verifyToken)
	front.POST("/reset-password", b.resetPassword)

	b.Server = httptest.NewServer(app)
	t.Cleanup(b.Server.Close)
	return b
}

// AddUser registers usr, hashing its password.
func (b *Backend) AddUser(t *testing.T, usr FakeUser) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(usr.Password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("AddUser() failed: %v", err)
	}
	usr.pwdHash = hash
	usr.Password = ""
	if usr.Role == "" {
		usr.Role = RoleStudent
	}

	b.mu.Lock()
	b.users[usr.ID] = &usr
	b.mu.Unlock()
}

// User returns a copy of the user id.
func (b *Backend) User(id string) (FakeUser, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	usr, ok := b.users[id]
	if !ok {
		return FakeUser{}, false
	}
	return *usr, true
}

// CheckPassword reports whether pwd is the current password of user id.
func (b *Backend) CheckPassword(id, pwd string) bool {
	usr, ok := b.User(id)
	return ok && bcrypt.CompareHashAndPassword(usr.pwdHash, []byte(pwd)) == nil
}

// Token issues a valid access token for user id.
func (b *Backend) Token(t *testing.T, id string) string {
	t.Helper()
	usr, ok := b.User(id)
	if !ok {
		t.Fatalf("Token() failed: unknown user %q", id)
	}
	token, err := b.issueToken(usr)
	if err != nil {
		t.Fatalf("Token() failed: %v", err)
	}
	return token
}

// RevokeTokens invalidates every token issued so far.
func (b *Backend) RevokeTokens() {
	b.mu.Lock()
	b.generation++
	b.mu.Unlock()
}

// ResetToken returns the last password reset token sent to user id.
func (b *Backend) ResetToken(id string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	for token, uid := range b.resetTokens {
		if uid == id {
			return token
		}
	}
	return ""
}

// Calls returns the "METHOD /path" of every request received.
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *Backend) issueToken(usr FakeUser) (string, error) {
	b.mu.Lock()
	gen := b.generation
	b.mu.Unlock()

	now := time.Now()
	claims := fakeClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   usr.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Role:       usr.Role,
		Generation: gen,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
}

// Middleware

func (b *Backend) recordCall(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		b.mu.Lock()
		b.calls = append(b.calls, ctx.Request().Method+" "+ctx.Request().URL.Path)
		b.mu.Unlock()
		return next(ctx)
	}
}

func (b *Backend) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		unauthorized := func() error {
			return ctx.JSON(http.StatusUnauthorized, echo.Map{"detail": "Could not validate credentials"})
		}

		header := ctx.Request().Header.Get(echo.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return unauthorized()
		}
		var claims fakeClaims
		_, err := jwt.ParseWithClaims(
			strings.TrimPrefix(header, "Bearer "),
			&claims,
			func(*jwt.Token) (interface{}, error) { return b.secret, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		)
		b.mu.Lock()
		gen := b.generation
		b.mu.Unlock()
		if err != nil || claims.Generation != gen {
			return unauthorized()
		}
		ctx.Set("claims", claims)
		return next(ctx)
	}
}

func (b *Backend) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if claims, ok := ctx.Get("claims").(fakeClaims); ok && claims.Role == RoleAdmin {
			return next(ctx)
		}
		return ctx.JSON(http.StatusForbidden, echo.Map{"detail": "Not enough permissions"})
	}
}

func (b *Backend) requireSelfOrAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if claims, ok := ctx.Get("claims").(fakeClaims); ok &&
			(claims.Role == RoleAdmin || claims.Subject == ctx.Param("id")) {
			return next(ctx)
		}
		return ctx.JSON(http.StatusForbidden, echo.Map{"detail": "Not enough permissions"})
	}
}

// Handlers

func (b *Backend) login(ctx echo.Context) error {
	uname, pwd := ctx.FormValue("username"), ctx.FormValue("password")

	var found *FakeUser
	b.mu.Lock()
	for _, usr := range b.users {
		if usr.Username == uname || usr.ID == uname {
			found = usr
			break
		}
	}
	b.mu.Unlock()

	if found == nil || bcrypt.CompareHashAndPassword(found.pwdHash, []byte(pwd)) != nil {
		return ctx.JSON(http.StatusUnauthorized, echo.Map{"detail": "Incorrect username or password"})
	}
	token, err := b.issueToken(*found)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"access_token": token,
		"token_type":   "bearer",
		"student_id":   found.ID,
		"email":        found.Email,
	})
}

type fakeNewUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (b *Backend) register(ctx echo.Context) error {
	var nu fakeNewUser
	if err := ctx.Bind(&nu); err != nil || nu.Username == "" || nu.Password == "" {
		return ctx.JSON(http.StatusUnprocessableEntity, echo.Map{"detail": []echo.Map{{"msg": "field required"}}})
	}

	b.mu.Lock()
	for _, usr := range b.users {
		if usr.Username == nu.Username {
			b.mu.Unlock()
			return ctx.JSON(http.StatusBadRequest, echo.Map{"message": "Username already registered"})
		}
	}
	b.mu.Unlock()

	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	usr := &FakeUser{ID: nu.Username, Username: nu.Username, Email: nu.Email, Role: nu.Role, pwdHash: hash}
	if usr.Role == "" {
		usr.Role = RoleStudent
	}
	b.mu.Lock()
	b.users[usr.ID] = usr
	b.mu.Unlock()
	return ctx.JSON(http.StatusCreated, userJSON(usr))
}

func userJSON(usr *FakeUser) echo.Map {
	return echo.Map{"id": usr.ID, "username": usr.Username, "email": usr.Email, "role": usr.Role}
}

func (b *Backend) listUsers(ctx echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	users := make([]echo.Map, 0, len(b.users))
	for _, usr := range b.users {
		users = append(users, userJSON(usr))
	}
	return ctx.JSON(http.StatusOK, users)
}

// withUser runs fn on the user of the :id param, under lock.
func (b *Backend) withUser(ctx echo.Context, fn func(usr *FakeUser) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	usr, ok := b.users[ctx.Param("id")]
	if !ok {
		return ctx.JSON(http.StatusNotFound, echo.Map{"detail": "User not found"})
	}
	return fn(usr)
}

func (b *Backend) updateUser(ctx echo.Context) error {
	var data struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := ctx.Bind(&data); err != nil {
		return ctx.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid body"})
	}
	return b.withUser(ctx, func(usr *FakeUser) error {
		if data.Username != "" {
			usr.Username = data.Username
		}
		if data.Email != "" {
			usr.Email = data.Email
		}
		return ctx.JSON(http.StatusOK, userJSON(usr))
	})
}

func (b *Backend) setPassword(usr *FakeUser, pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.MinCost)
	if err != nil {
		return err
	}
	usr.pwdHash = hash
	return nil
}

func (b *Backend) changePassword(ctx echo.Context) error {
	var data struct {
		NewPassword string `json:"new_password"`
	}
	if err := ctx.Bind(&data); err != nil || data.NewPassword == "" {
		return ctx.JSON(http.StatusBadRequest, echo.Map{"message": "New password is required"})
	}
	return b.withUser(ctx, func(usr *FakeUser) error {
		if err := b.setPassword(usr, data.NewPassword); err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, echo.Map{"message": "Password changed"})
	})
}

func (b *Backend) assignRole(ctx echo.Context) error {
	var data struct {
		Role string `json:"role"`
	}
	if err := ctx.Bind(&data); err != nil || data.Role == "" {
		return ctx.JSON(http.StatusBadRequest, echo.Map{"message": "Role is required"})
	}
	return b.withUser(ctx, func(usr *FakeUser) error {
		usr.Role = data.Role
		return ctx.JSON(http.StatusOK, userJSON(usr))
	})
}

func (b *Backend) deleteUser(ctx echo.Context) error {
	return b.withUser(ctx, func(usr *FakeUser) error {
		delete(b.users, usr.ID)
		return ctx.NoContent(http.StatusNoContent)
	})
}

func (b *Backend) courses(ctx echo.Context) error {
	return b.withUser(ctx, func(usr *FakeUser) error {
		return ctx.JSON(http.StatusOK, nonNil(usr.Courses))
	})
}

func (b *Backend) results(ctx echo.Context) error {
	return b.withUser(ctx, func(usr *FakeUser) error {
		return ctx.JSON(http.StatusOK, nonNil(usr.Results))
	})
}

func nonNil(rows []map[string]interface{}) []map[string]interface{} {
	if rows == nil {
		return []map[string]interface{}{}
	}
	return rows
}

func (b *Backend) info(ctx echo.Context) error {
	return b.withUser(ctx, func(usr *FakeUser) error {
		info := echo.Map{"student_id": usr.ID}
		for k, v := range usr.Info {
			info[k] = v
		}
		return ctx.JSON(http.StatusOK, info)
	})
}

func (b *Backend) photo(ctx echo.Context) error {
	return b.withUser(ctx, func(usr *FakeUser) error {
		if len(usr.Photo) == 0 {
			return ctx.JSON(http.StatusNotFound, echo.Map{"detail": "Photo not found"})
		}
		if usr.PhotoType == "" {
			ctx.Response().Header()[echo.HeaderContentType] = nil // no sniffing either
			ctx.Response().WriteHeader(http.StatusOK)
			_, err := ctx.Response().Write(usr.Photo)
			return err
		}
		return ctx.Blob(http.StatusOK, usr.PhotoType, usr.Photo)
	})
}

func (b *Backend) forgotPassword(ctx echo.Context) error {
	var data struct {
		StudentID string `json:"student_id"`
	}
	if err := ctx.Bind(&data); err != nil {
		return ctx.JSON(http.StatusBadRequest, echo.Map{"detail": "Invalid body"})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	usr, ok := b.users[data.StudentID]
	if !ok {
		return ctx.JSON(http.StatusNotFound, echo.Map{"detail": "Student not found"})
	}
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return err
	}
	b.resetTokens[hex.EncodeToString(buf)] = usr.ID
	return ctx.JSON(http.StatusOK, echo.Map{"success": true})
}

func (b *Backend) verifyToken(ctx echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	uid, ok := b.resetTokens[ctx.QueryParam("token")]
	if !ok {
		return ctx.JSON(http.StatusBadRequest, echo.Map{"valid": false, "message": "Invalid or expired token"})
	}
	return ctx.JSON(http.StatusOK, echo.Map{"valid": true, "email": b.users[uid].Email})
}

func (b *Backend) resetPassword(ctx echo.Context) error {
	var data struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := ctx.Bind(&data); err != nil {
		return ctx.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid body"})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	uid, ok := b.resetTokens[data.Token]
	if !ok {
		return ctx.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid or expired token"})
	}
	if err := b.setPassword(b.users[uid], data.NewPassword); err != nil {
		return err
	}
	delete(b.resetTokens, data.Token)
	return ctx.JSON(http.StatusOK, echo.Map{"success": true})
}
