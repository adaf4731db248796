package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"

	"knowledge_platform/internal/api/handler"
	"knowledge_platform/internal/app/service"
	"knowledge_platform/internal/common/security"
	"knowledge_platform/internal/platform/config"
)

func NewRouter(
	authService *service.AuthService,
	userService *service.UserService,
	courseService *service.CourseService,
	uploadService *service.UploadService,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Verifies token, puts claims in context. Routes decide whether a valid
	// token is required via middleware.Authenticator.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	// Public health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Uploaded files are served statically under the upload prefix.
	fileServer := http.StripPrefix(config.AppConfig.UploadURLPrefix+"/",
		http.FileServer(http.Dir(config.AppConfig.UploadDir)))
	r.Get(config.AppConfig.UploadURLPrefix+"/*", fileServer.ServeHTTP)

	// API v1 Routes
	r.Route("/api/v1", func(v1 chi.Router) {
		authHandler := handler.NewAuthHandler(authService)
		v1.Route("/auth", authHandler.RegisterRoutes)

		userHandler := handler.NewUserHandler(userService)
		v1.Route("/users", userHandler.RegisterRoutes)

		courseHandler := handler.NewCourseHandler(courseService)
		v1.Route("/courses", courseHandler.RegisterRoutes)

		uploadHandler := handler.NewUploadHandler(uploadService)
		v1.Route("/uploads", uploadHandler.RegisterRoutes)
	})

	return r
}
