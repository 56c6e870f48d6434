package v1

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/pkg/errors"

	"github.com/jamilsonokay/iam-ai-chatbot/internal/profile"
	"github.com/jamilsonokay/iam-ai-chatbot/plugin/vectorstore"
	"github.com/jamilsonokay/iam-ai-chatbot/server/agent"
	"github.com/jamilsonokay/iam-ai-chatbot/server/auth"
	"github.com/jamilsonokay/iam-ai-chatbot/store"
)

type APIV1Service struct {
	Secret  string
	Profile *profile.Profile
	Store   *store.Store
	Gateway *agent.Gateway
	// Orchestrator is nil when no model is configured.
	Orchestrator *agent.Orchestrator
	// VectorStore is nil when transcript search is disabled.
	VectorStore *vectorstore.Store

	authenticator *auth.Authenticator
	now           func() time.Time
}

func NewAPIV1Service(secret string, profile *profile.Profile, store *store.Store, gateway *agent.Gateway, orchestrator *agent.Orchestrator, vectorStore *vectorstore.Store) *APIV1Service {
	return &APIV1Service{
		Secret:        secret,
		Profile:       profile,
		Store:         store,
		Gateway:       gateway,
		Orchestrator:  orchestrator,
		VectorStore:   vectorStore,
		authenticator: auth.NewAuthenticator(secret),
		now:           time.Now,
	}
}

// RegisterRoutes mounts the API on e.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	e.Use(requestLogger)
	e.GET("/healthz", s.healthz)

	g := e.Group("/api")
	g.POST("/chat", s.handleChat)
	g.DELETE("/chat", s.deleteChat)
	g.GET("/chat/:id", s.getChat)
	g.GET("/history", s.listHistory)
	g.GET("/history/search", s.searchHistory)
	g.GET("/reservation", s.getReservation)
	g.PATCH("/reservation", s.completeReservationPayment)
}

func (s *APIV1Service) healthz(c *echo.Context) error {
	return c.String(http.StatusOK, "Service ready.")
}

func (s *APIV1Service) requireAuth(c *echo.Context) (*auth.User, error) {
	authHeader := c.Request().Header.Get("Authorization")
	cookieHeader := c.Request().Header.Get("Cookie")
	user, err := s.authenticator.Authenticate(c.Request().Context(), authHeader, cookieHeader)
	if err != nil || user == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	return user, nil
}

func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		start := time.Now()
		err := next(c)
		status := http.StatusOK
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			status = httpErr.Code
		} else if err != nil {
			status = http.StatusInternalServerError
		}
		slog.Info("request",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"status", status,
			"duration", time.Since(start),
		)
		return err
	}
}
