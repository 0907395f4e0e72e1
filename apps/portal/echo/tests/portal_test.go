package tests

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studentportal/core/account"
	emailsvc "github.com/trezcool/studentportal/services/email"
	"github.com/trezcool/studentportal/tests"
)

type httpTest struct {
	name     string
	method   string
	path     string
	form     url.Values
	wantCode int
	wantLoc  string
	wantBody []string
}

func checkResponse(t *testing.T, tt httpTest, b *browser) {
	t.Helper()
	rec := b.do(tt.method, tt.path, tt.form)
	assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
	if tt.wantLoc != "" {
		assert.Equal(t, tt.wantLoc, rec.Header().Get(echo.HeaderLocation))
	}
	for _, want := range tt.wantBody {
		assert.Contains(t, rec.Body.String(), want)
	}
}

func Test_guard(t *testing.T) {
	a := setup(t)

	paths := []string{
		"/", "/courses", "/courses/pdf", "/results", "/results/pdf",
		"/profile", "/profile/photo", "/settings",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			checkResponse(t, httpTest{method: http.MethodGet, path: path, wantCode: http.StatusFound, wantLoc: "/login"}, a.browser(t))
		})
	}

	t.Run("settings forms", func(t *testing.T) {
		b := a.browser(t)
		for _, path := range []string{"/settings/password", "/settings/email"} {
			checkResponse(t, httpTest{
				method:   http.MethodPost,
				path:     path,
				form:     url.Values{"email": {"x@uni.test"}},
				wantCode: http.StatusFound,
				wantLoc:  "/login",
			}, b)
		}
	})

	// nothing reached the backend
	assert.Empty(t, a.backend.Calls())
}

func Test_publicPages(t *testing.T) {
	a := setup(t)

	tests := []httpTest{
		{name: "login", method: http.MethodGet, path: "/login", wantCode: http.StatusOK, wantBody: []string{"Welcome Back", `action="/login"`}},
		{name: "healthz", method: http.MethodGet, path: "/healthz", wantCode: http.StatusOK, wantBody: []string{"ok"}},
		{name: "static css", method: http.MethodGet, path: "/static/css/portal.css", wantCode: http.StatusOK, wantBody: []string{".sidebar"}},
		{name: "static avatar", method: http.MethodGet, path: "/static/img/default-avatar.svg", wantCode: http.StatusOK, wantBody: []string{"<svg"}},
		{name: "logout without session", method: http.MethodGet, path: "/logout", wantCode: http.StatusOK, wantBody: []string{"Signing you out...", `content="3;url=/login"`}},
		{name: "reset without token", method: http.MethodGet, path: "/reset-password", wantCode: http.StatusBadRequest, wantBody: []string{account.MsgNoResetToken}},
		{name: "reset with bad token", method: http.MethodGet, path: "/reset-password?token=nope", wantCode: http.StatusBadRequest, wantBody: []string{"Invalid or expired token"}},
		{name: "not found", method: http.MethodGet, path: "/nowhere", wantCode: http.StatusNotFound, wantBody: []string{"Not Found"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkResponse(t, tt, a.browser(t))
		})
	}
}

func Test_login(t *testing.T) {
	a := setup(t)

	tests := []httpTest{
		{
			name:     "blank username",
			form:     url.Values{"username": {"  "}, "password": {"x"}},
			wantCode: http.StatusBadRequest,
			wantBody: []string{"this field is required"},
		},
		{
			name:     "wrong password",
			form:     url.Values{"username": {"S001"}, "password": {"wrong"}},
			wantCode: http.StatusBadRequest,
			wantBody: []string{account.MsgLoginInvalidCreds},
		},
		{
			name:     "unknown user",
			form:     url.Values{"username": {"S999"}, "password": {"x"}},
			wantCode: http.StatusBadRequest,
			wantBody: []string{account.MsgLoginInvalidCreds},
		},
		{
			name:     "success",
			form:     url.Values{"username": {"S001"}, "password": {"Passw0rd!"}},
			wantCode: http.StatusFound,
			wantLoc:  "/",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method, tt.path = http.MethodPost, "/login"
			checkResponse(t, tt, a.browser(t))
		})
	}

	t.Run("password is not echoed", func(t *testing.T) {
		rec := a.browser(t).post("/login", url.Values{"username": {"S001"}, "password": {"s3cr3t-guess"}})
		assert.NotContains(t, rec.Body.String(), "s3cr3t-guess")
		assert.Contains(t, rec.Body.String(), `value="S001"`)
	})
}

func Test_signedIn(t *testing.T) {
	a := setup(t)
	b := a.browser(t)
	b.signIn(s001, "Passw0rd!")

	tests := []httpTest{
		{
			name:     "dashboard",
			path:     "/",
			wantCode: http.StatusOK,
			wantBody: []string{"Dashboard", "S001", "Summer 2024", "Across 2 term(s)", ">10<"},
		},
		{
			name:     "courses",
			path:     "/courses",
			wantCode: http.StatusOK,
			wantBody: []string{"Spring 2024", "Summer 2024", "CSE101", "Calculus", "Data Structures", "/courses/pdf"},
		},
		{
			name:     "results",
			path:     "/results",
			wantCode: http.StatusOK,
			wantBody: []string{"Spring 2024", "CSE101", "Real Grade Point"},
		},
		{
			name:     "profile",
			path:     "/profile",
			wantCode: http.StatusOK,
			wantBody: []string{"Ms. Jane Doe", "B24", "/profile/photo"},
		},
		{
			name:     "settings",
			path:     "/settings",
			wantCode: http.StatusOK,
			wantBody: []string{"Account Settings", "s001@uni.test"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodGet
			checkResponse(t, tt, b)
		})
	}

	t.Run("courses order", func(t *testing.T) {
		body := b.get("/courses").Body.String()
		assert.Less(t, strings.Index(body, "Spring 2024"), strings.Index(body, "Summer 2024"))
	})

	t.Run("photo falls back to the default avatar", func(t *testing.T) {
		rec := b.get("/profile/photo")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/svg+xml", rec.Header().Get(echo.HeaderContentType))
		assert.Len(t, a.logger.Entries("error"), 1)
	})
}

func Test_photo(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	tests := []struct {
		name     string
		usr      testutil.FakeUser
		wantType string
	}{
		{
			name:     "backend content type",
			usr:      testutil.FakeUser{ID: "S010", Username: "S010", Password: "Passw0rd!", Photo: []byte("jpeg-bytes"), PhotoType: "image/jpeg"},
			wantType: "image/jpeg",
		},
		{
			name:     "missing content type is detected",
			usr:      testutil.FakeUser{ID: "S011", Username: "S011", Password: "Passw0rd!", Photo: png},
			wantType: "image/png",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := setup(t)
			a.backend.AddUser(t, tt.usr)
			b := a.browser(t)
			b.signIn(tt.usr, "Passw0rd!")

			rec := b.get("/profile/photo")
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantType, rec.Header().Get(echo.HeaderContentType))
			assert.Equal(t, "private, max-age=300", rec.Header().Get("Cache-Control"))
			assert.Equal(t, tt.usr.Photo, rec.Body.Bytes())
		})
	}
}

func Test_pdfExport(t *testing.T) {
	a := setup(t)
	b := a.browser(t)
	b.signIn(s001, "Passw0rd!")

	tests := []struct {
		path     string
		filename string
	}{
		{path: "/courses/pdf", filename: "Enrolled_Courses_S001.pdf"},
		{path: "/results/pdf", filename: "Academic_Results_S001.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := b.get(tt.path)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))
			assert.Equal(t, `attachment; filename="`+tt.filename+`"`, rec.Header().Get(echo.HeaderContentDisposition))
			assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
		})
	}
}

func Test_forcedLogout(t *testing.T) {
	a := setup(t)
	b := a.browser(t)
	b.signIn(s001, "Passw0rd!")
	require.Equal(t, http.StatusOK, b.get("/courses").Code)

	a.backend.RevokeTokens()

	rec := b.get("/courses")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))

	// the session is gone: no further backend call
	calls := len(a.backend.Calls())
	rec = b.get("/results")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Len(t, a.backend.Calls(), calls)
}

func Test_logout(t *testing.T) {
	a := setup(t)
	b := a.browser(t)
	b.signIn(s001, "Passw0rd!")
	require.Equal(t, http.StatusOK, b.get("/").Code)

	rec := b.get("/logout")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Signing you out...")

	rec = b.get("/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))

	// clients do not share sessions
	other := a.browser(t)
	other.signIn(s002, "Passw0rd!")
	assert.Equal(t, http.StatusFound, b.get("/").Code)
	assert.Equal(t, http.StatusOK, other.get("/").Code)
}

func Test_forgotAndResetPassword(t *testing.T) {
	a := setup(t)
	b := a.browser(t)

	rec := b.post("/forgot-password", url.Values{"student_id": {"S999"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), account.MsgResetLinkError)

	rec = b.post("/forgot-password", url.Values{"student_id": {"S001"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), account.MsgResetLinkSent)

	token := a.backend.ResetToken("S001")
	require.NotEmpty(t, token)

	rec = b.get("/reset-password?token=" + token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "s001@uni.test")

	tests := []httpTest{
		{
			name:     "mismatch",
			form:     url.Values{"token": {token}, "password": {"N3wPassw0rd"}, "confirm_password": {"N3wPassw0rX"}},
			wantCode: http.StatusBadRequest,
			wantBody: []string{"Passwords do not match"},
		},
		{
			name:     "too short",
			form:     url.Values{"token": {token}, "password": {"abc"}, "confirm_password": {"abc"}},
			wantCode: http.StatusBadRequest,
			wantBody: []string{"Password must be at least 8 characters"},
		},
		{
			name:     "success",
			form:     url.Values{"token": {token}, "password": {"N3wPassw0rd"}, "confirm_password": {"N3wPassw0rd"}},
			wantCode: http.StatusOK,
			wantBody: []string{account.MsgPasswordReset, `action="/login"`},
		},
		{
			name:     "token used",
			form:     url.Values{"token": {token}, "password": {"N3wPassw0rd"}, "confirm_password": {"N3wPassw0rd"}},
			wantCode: http.StatusBadRequest,
			wantBody: []string{"Invalid or expired token"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method, tt.path = http.MethodPost, "/reset-password"
			checkResponse(t, tt, b)
		})
	}

	assert.True(t, a.backend.CheckPassword("S001", "N3wPassw0rd"))
	b.signIn(s001, "N3wPassw0rd")
}

func Test_settings(t *testing.T) {
	a := setup(t)
	b := a.browser(t)
	b.signIn(s001, "Passw0rd!")

	tests := []httpTest{
		{
			name:     "password mismatch",
			path:     "/settings/password",
			form:     url.Values{"password": {"N3wPassw0rd"}, "confirm_password": {"other"}},
			wantCode: http.StatusBadRequest,
			wantBody: []string{"Passwords do not match"},
		},
		{
			name:     "password too similar",
			path:     "/settings/password",
			form:     url.Values{"password": {"s001@uni.tes"}, "confirm_password": {"s001@uni.tes"}},
			wantCode: http.StatusBadRequest,
			wantBody: []string{"Password is too similar to your student ID or email"},
		},
		{
			name:     "password changed",
			path:     "/settings/password",
			form:     url.Values{"password": {"N3wPassw0rd"}, "confirm_password": {"N3wPassw0rd"}},
			wantCode: http.StatusOK,
			wantBody: []string{account.MsgPasswordChanged},
		},
		{
			name:     "invalid email",
			path:     "/settings/email",
			form:     url.Values{"email": {"not-an-email"}},
			wantCode: http.StatusBadRequest,
			wantBody: []string{"please enter a valid email address"},
		},
		{
			name:     "same email",
			path:     "/settings/email",
			form:     url.Values{"email": {"s001@uni.test"}},
			wantCode: http.StatusBadRequest,
			wantBody: []string{"New email must be different"},
		},
		{
			name:     "email changed",
			path:     "/settings/email",
			form:     url.Values{"email": {"jane@uni.test"}},
			wantCode: http.StatusOK,
			wantBody: []string{account.MsgEmailChanged, "jane@uni.test"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			checkResponse(t, tt, b)
		})
	}

	assert.True(t, a.backend.CheckPassword("S001", "N3wPassw0rd"))
	usr, _ := a.backend.User("S001")
	assert.Equal(t, "jane@uni.test", usr.Email)

	// password notice to the old address, then email notice to the old address
	sent := emailsvc.GetSentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, "s001@uni.test", sent[0].To[0].Address)
	assert.Equal(t, "s001@uni.test", sent[1].To[0].Address)

	// the new email is mirrored into the session
	assert.Contains(t, b.get("/settings").Body.String(), "jane@uni.test")
}

func Test_csrf(t *testing.T) {
	a := setupWithCSRF(t)
	b := a.browser(t)

	rec := b.post("/login", url.Values{"username": {"S001"}, "password": {"Passw0rd!"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = b.get("/login")
	require.Equal(t, http.StatusOK, rec.Code)
	ck, ok := b.cookies["portal_csrf"]
	require.True(t, ok)
	assert.Contains(t, rec.Body.String(), `name="csrf" value="`+ck.Value+`"`)

	rec = b.post("/login", url.Values{"username": {"S001"}, "password": {"Passw0rd!"}, "csrf": {"forged"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = b.post("/login", url.Values{"username": {"S001"}, "password": {"Passw0rd!"}, "csrf": {ck.Value}})
	assert.Equal(t, http.StatusFound, rec.Code)
}
