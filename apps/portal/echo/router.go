package echoportal

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/studentportal/core"
	"github.com/trezcool/studentportal/core/account"
	"github.com/trezcool/studentportal/core/student"
	pdfsvc "github.com/trezcool/studentportal/services/pdf"
)

type portal struct {
	conf       *core.Config
	logger     core.Logger
	accountSvc *account.Service
	studentSvc *student.Service
	exporter   *pdfsvc.Exporter
	validate   *validator.Validate
	translator ut.Translator
}

func registerRoutes(g *echo.Group, p *portal) {
	// public pages
	g.GET("/login", p.loginPage)
	g.POST("/login", p.login)
	g.POST("/forgot-password", p.forgotPassword)
	g.GET("/logout", p.logout)
	g.GET("/reset-password", p.resetPasswordPage)
	g.POST("/reset-password", p.resetPassword)

	// protected pages
	g.GET("/", p.guard(p.dashboard))
	g.GET("/courses", p.guard(p.courses))
	g.GET("/courses/pdf", p.guard(p.coursesPDF))
	g.GET("/results", p.guard(p.results))
	g.GET("/results/pdf", p.guard(p.resultsPDF))
	g.GET("/profile", p.guard(p.profile))
	g.GET("/profile/photo", p.guard(p.photo))
	g.GET("/settings", p.guard(p.settings))
	g.POST("/settings/password", p.guard(p.changePassword))
	g.POST("/settings/email", p.guard(p.changeEmail))
}
