package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clipstream/accounts/internal/api/http/handler"
	"github.com/clipstream/accounts/internal/api/http/middleware"
	"github.com/clipstream/accounts/internal/logger"
	"github.com/clipstream/accounts/internal/model"
	"github.com/clipstream/accounts/internal/service"
)

// Router assembles the HTTP routes and middleware for the accounts API.
type Router struct {
	authService    *service.Auth
	contextManager model.ContextManager
	logger         *logger.Logger
}

// New creates new Router instance.
func New(
	authService *service.Auth,
	contextManager model.ContextManager,
	logger *logger.Logger,
) *Router {
	return &Router{
		authService:    authService,
		contextManager: contextManager,
		logger:         logger,
	}
}

// Register builds the chi handler. The session gate guards every route
// except register, login and refresh; refresh authenticates through the
// refresh token itself.
func (r *Router) Register() http.Handler {
	logging := middleware.NewLogging(r.logger)
	authenticate := middleware.NewAuthenticate(r.authService, r.contextManager, r.logger)
	account := handler.NewAccount(r.authService, r.contextManager, r.logger)

	root := chi.NewRouter()
	root.Use(logging.Handle)

	root.Route("/api/v1/users", func(api chi.Router) {
		api.Post("/register", account.Register)
		api.Post("/login", account.Login)
		api.Post("/refresh-token", account.Refresh)

		api.Group(func(guarded chi.Router) {
			guarded.Use(authenticate.Handle)

			guarded.Post("/logout", account.Logout)
			guarded.Post("/change-password", account.ChangePassword)
			guarded.Get("/current-user", account.CurrentUser)
			guarded.Patch("/update-account", account.UpdateProfile)
			guarded.Patch("/avatar", account.UpdateAvatar)
			guarded.Patch("/cover-image", account.UpdateCoverImage)
		})
	})

	return root
}
