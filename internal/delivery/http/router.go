package http

import (
	"log/slog"
	"net/http"

	"crewplanner/internal/delivery/http/controllers"
	"crewplanner/internal/delivery/http/middleware"
	"crewplanner/internal/domain"

	httpSwagger "github.com/swaggo/http-swagger"
)

// Controllers groups the handlers mounted by NewRouter.
type Controllers struct {
	Auth          *controllers.AuthController
	Event         *controllers.EventController
	Registration  *controllers.RegistrationController
	Position      *controllers.PositionController
	Qualification *controllers.QualificationController
	User          *controllers.UserController
}

// RouterConfig carries the cross-cutting pieces of the HTTP stack.
type RouterConfig struct {
	Verifier       domain.TokenVerifier
	Recorder       middleware.RequestRecorder
	MetricsHandler http.Handler
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter initializes the HTTP router with all application routes and
// wraps it in the metrics, CORS and logging middleware.
func NewRouter(c Controllers, cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(cfg.Verifier, cfg.Logger)

	// Auth
	mux.HandleFunc("POST /auth/login", c.Auth.Login)

	// Events
	mux.HandleFunc("GET /events", auth(c.Event.ListEvents))
	mux.HandleFunc("POST /events", auth(c.Event.CreateEvent))
	mux.HandleFunc("GET /events/{eventKey}", auth(c.Event.GetEvent))
	mux.HandleFunc("PATCH /events/{eventKey}", auth(c.Event.UpdateEvent))
	mux.HandleFunc("DELETE /events/{eventKey}", auth(c.Event.DeleteEvent))

	// Registrations; confirm and decline are authorized by the access key
	mux.HandleFunc("POST /events/{eventKey}/registrations", auth(c.Registration.AddRegistration))
	mux.HandleFunc("PUT /events/{eventKey}/registrations/{registrationKey}", auth(c.Registration.UpdateRegistration))
	mux.HandleFunc("DELETE /events/{eventKey}/registrations/{registrationKey}", auth(c.Registration.RemoveRegistration))
	mux.HandleFunc("POST /events/{eventKey}/registrations/{registrationKey}/confirm", c.Registration.Confirm)
	mux.HandleFunc("POST /events/{eventKey}/registrations/{registrationKey}/decline", c.Registration.Decline)

	// Catalog
	mux.HandleFunc("GET /positions", auth(c.Position.ListPositions))
	mux.HandleFunc("POST /positions", auth(c.Position.CreatePosition))
	mux.HandleFunc("PUT /positions/{positionKey}", auth(c.Position.UpdatePosition))
	mux.HandleFunc("DELETE /positions/{positionKey}", auth(c.Position.DeletePosition))
	mux.HandleFunc("GET /qualifications", auth(c.Qualification.ListQualifications))
	mux.HandleFunc("POST /qualifications", auth(c.Qualification.CreateQualification))

	// Users
	mux.HandleFunc("GET /users", auth(c.User.ListUsers))
	mux.HandleFunc("GET /users/{userKey}", auth(c.User.GetUser))

	// Ops
	if cfg.MetricsHandler != nil {
		mux.Handle("GET /metrics", cfg.MetricsHandler)
	}
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	var handler http.Handler = middleware.LoggingMiddleware(cfg.Logger, mux)
	handler = middleware.CORS(cfg.AllowedOrigins, handler)
	if cfg.Recorder != nil {
		handler = middleware.Metrics(cfg.Recorder, handler)
	}
	return handler
}
