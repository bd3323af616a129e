package webserver

import (
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v4"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/openretail/proshop/internal/app"
	"github.com/openretail/proshop/internal/identity"
)

// AppContextKey is the echo context key the application handle is stored
// under; handlers retrieve it through adminapi.GetAppContext.
const AppContextKey = "proshop_app"

var server *WebServer

// WebServer wraps the echo instance and the API route groups.
type WebServer struct {
	root *echo.Echo
	pub  *echo.Group
	api  *echo.Group
	app  app.AppContext
}

// Init builds the package server. Routes registered through ApiGET etc.
// attach to it, so Init must run before route registration.
func Init(appCtx app.AppContext) {
	server = NewWebServer(appCtx)
}

func NewWebServer(appCtx app.AppContext) *WebServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsoniterSerializer{}
	e.Validator = newValidator()

	e.Use(middleware.Recover())
	e.Use(zapLoggerMiddleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(AppContextKey, appCtx)
			return next(c)
		}
	})

	ws := &WebServer{root: e, app: appCtx}

	// public surface: login and checkout. Checkout stays reachable without a
	// valid session so the register keeps selling under session loss; the
	// sale recorder then attributes to the fallback identity.
	ws.pub = e.Group("/api/v1")

	ws.api = e.Group("/api/v1")
	ws.api.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(appCtx.Config().Web.JwtSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return &identity.Claims{}
		},
	}))

	return ws
}

// Listen starts the HTTP listener and blocks.
func Listen() error {
	cfg := server.app.Config().Web
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	zap.L().Info("web server listening", zap.String("addr", addr))
	return server.root.Start(addr)
}

// Shutdown stops the listener.
func Shutdown() error {
	return server.root.Close()
}

// Echo exposes the root instance (used by tests to drive requests directly).
func Echo() *echo.Echo {
	return server.root
}

func ApiGET(path string, h echo.HandlerFunc) {
	server.api.GET(path, h)
}

func ApiPOST(path string, h echo.HandlerFunc) {
	server.api.POST(path, h)
}

func ApiPUT(path string, h echo.HandlerFunc) {
	server.api.PUT(path, h)
}

func ApiDELETE(path string, h echo.HandlerFunc) {
	server.api.DELETE(path, h)
}

// PubPOST registers a route outside the session-token middleware.
func PubPOST(path string, h echo.HandlerFunc) {
	server.pub.POST(path, h)
}

func zapLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Status >= http.StatusInternalServerError {
				zap.L().Error("request",
					zap.String("method", v.Method),
					zap.String("uri", v.URI),
					zap.Int("status", v.Status),
					zap.Error(v.Error))
			} else {
				zap.L().Debug("request",
					zap.String("method", v.Method),
					zap.String("uri", v.URI),
					zap.Int("status", v.Status))
			}
			return nil
		},
	})
}
