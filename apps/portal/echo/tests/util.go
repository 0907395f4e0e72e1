package tests

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	echoportal "github.com/trezcool/studentportal/apps/portal/echo"
	"github.com/trezcool/studentportal/core"
	"github.com/trezcool/studentportal/core/account"
	"github.com/trezcool/studentportal/core/student"
	backendsvc "github.com/trezcool/studentportal/services/backend"
	emailsvc "github.com/trezcool/studentportal/services/email"
	pdfsvc "github.com/trezcool/studentportal/services/pdf"
	inmemdb "github.com/trezcool/studentportal/storage/database/inmem"
	"github.com/trezcool/studentportal/tests"
)

var (
	s001 = testutil.FakeUser{
		ID:       "S001",
		Username: "S001",
		Email:    "s001@uni.test",
		Password: "Passw0rd!",
		Courses: []map[string]interface{}{
			{"module_code": "CSE101", "mod_name": "Programming", "mod_credit_hour": 3, "tra_term": 1, "tra_year": 2024},
			{"module_code": "MAT101", "mod_name": "Calculus", "mod_credit_hour": "4", "tra_term": 1, "tra_year": 2024},
			{"module_code": "CSE201", "mod_name": "Data Structures", "mod_credit_hour": 3, "tra_term": 2, "tra_year": 2024},
		},
		Results: []map[string]interface{}{
			{"module_code": "CSE101", "mod_name": "Programming", "letter_grade": "A", "grade_point": 4.0, "exm_exam_term": 1, "exm_exam_year": 2024},
		},
		Info: map[string]interface{}{"per_title": "Ms.", "per_name": "Jane Doe", "batchName": "B24"},
	}
	s002 = testutil.FakeUser{ID: "S002", Username: "S002", Email: "s002@uni.test", Password: "Passw0rd!"}
)

type app struct {
	server  *echoportal.Server
	backend *testutil.Backend
	logger  *testutil.Logger
}

func setup(t *testing.T) *app {
	t.Helper()
	return newApp(t, func(*core.Config) {})
}

func setupWithCSRF(t *testing.T) *app {
	t.Helper()
	return newApp(t, func(conf *core.Config) { conf.Server.DisableCSRF = false })
}

func newApp(t *testing.T, configure func(conf *core.Config)) *app {
	t.Helper()
	emailsvc.ResetSentMessages()

	backend := testutil.NewBackend(t, s001, s002)
	conf := testutil.Config(backend.URL)
	configure(conf)
	logger := testutil.NewLogger()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	account.RegisterValidators(validate, translator)

	client := backendsvc.NewClient(conf)

	server := echoportal.NewServer(echoportal.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Storage:    inmemdb.NewLocalStorage(),
		AccountSvc: account.NewService(client, emailsvc.NewConsoleServiceMock(conf, logger), logger),
		StudentSvc: student.NewService(client),
		Exporter:   pdfsvc.NewExporter(conf),
		Validate:   validate,
		Translator: translator,
	})
	return &app{server: server, backend: backend, logger: logger}
}

// browser sends requests to the portal, keeping the cookies it receives.
type browser struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

func (a *app) browser(t *testing.T) *browser {
	return &browser{t: t, handler: a.server, cookies: make(map[string]*http.Cookie)}
}

func (b *browser) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	}
	for _, ck := range b.cookies {
		req.AddCookie(ck)
	}

	rec := httptest.NewRecorder()
	b.handler.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		b.cookies[ck.Name] = ck
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(http.MethodGet, path, nil)
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	return b.do(http.MethodPost, path, form)
}

// signIn logs usr in through the login form.
func (b *browser) signIn(usr testutil.FakeUser, pwd string) {
	b.t.Helper()
	rec := b.post("/login", url.Values{"username": {usr.Username}, "password": {pwd}})
	if rec.Code != http.StatusFound || rec.Header().Get(echo.HeaderLocation) != "/" {
		b.t.Fatalf("signIn() failed: code = %v; body %s", rec.Code, rec.Body.String())
	}
}
