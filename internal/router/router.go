package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"newsdesk/internal/auth"
	"newsdesk/internal/handler"
)

// Register wires routes and middleware. Every endpoint is open; the optional
// auth middleware only attaches the caller identity when a valid bearer token
// is present.
func Register(
	e *echo.Echo,
	jwtService *auth.JWTService,
	articleHandler *handler.ArticleHandler,
	tagHandler *handler.TagHandler,
	userHandler *handler.UserHandler,
	authHandler *handler.AuthHandler,
) {
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api", auth.Optional(jwtService))

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth routes
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.POST("/auth/logout", authHandler.Logout)

	// Article routes
	api.GET("/articles", articleHandler.List)
	api.POST("/articles", articleHandler.Create)
	api.GET("/articles/:id", articleHandler.Get)
	api.PUT("/articles/:id", articleHandler.Update)
	api.PATCH("/articles/:id", articleHandler.Patch)
	api.DELETE("/articles/:id", articleHandler.Delete)

	// Tag routes
	api.GET("/tags", tagHandler.List)
	api.POST("/tags", tagHandler.Create)

	// User routes
	api.GET("/users", userHandler.ListUsers)
	api.GET("/users/:id", userHandler.GetUser)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
