package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/philippgille/chromem-go"
	"github.com/pkg/errors"

	"github.com/jamilsonokay/iam-ai-chatbot/internal/profile"
	"github.com/jamilsonokay/iam-ai-chatbot/plugin/flightdata"
	"github.com/jamilsonokay/iam-ai-chatbot/plugin/llm"
	"github.com/jamilsonokay/iam-ai-chatbot/plugin/vectorstore"
	"github.com/jamilsonokay/iam-ai-chatbot/plugin/weather"
	"github.com/jamilsonokay/iam-ai-chatbot/server/agent"
	"github.com/jamilsonokay/iam-ai-chatbot/server/agent/booking"
	"github.com/jamilsonokay/iam-ai-chatbot/server/agent/tool"
	apiv1 "github.com/jamilsonokay/iam-ai-chatbot/server/router/api/v1"
	"github.com/jamilsonokay/iam-ai-chatbot/store"
)

type Server struct {
	Secret  string
	Profile *profile.Profile
	Store   *store.Store

	Executor     *tool.Executor
	Gateway      *agent.Gateway
	Orchestrator *agent.Orchestrator
	VectorStore  *vectorstore.Store

	echoServer *echo.Echo
	httpServer *http.Server
}

func NewServer(profile *profile.Profile, store *store.Store) (*Server, error) {
	s := &Server{
		Secret:  profile.Secret,
		Profile: profile,
		Store:   store,
	}

	if profile.EmbeddingModel != "" {
		embed, err := llm.NewOpenAICompatibleEmbedder(profile.AIBaseURL, profile.AIAPIKey, profile.EmbeddingModel)
		if err != nil {
			return nil, err
		}
		vs, err := vectorstore.New(profile.Data, chromem.EmbeddingFunc(embed))
		if err != nil {
			return nil, errors.Wrap(err, "failed to open vector store")
		}
		s.VectorStore = vs
	}

	var index agent.Indexer
	if s.VectorStore != nil {
		index = s.VectorStore
	}
	s.Gateway = agent.NewGateway(store, index)

	registry, err := booking.NewRegistry(booking.Dependencies{
		Store:   store,
		Weather: weather.NewClient(profile.OpenWeatherMapAPIKey, ""),
		Flights: flightdata.New(nil),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to build tool registry")
	}
	s.Executor = tool.NewExecutor(registry)

	if profile.IsAIConfigured() {
		model, err := llm.NewOpenAICompatible(profile.AIBaseURL, profile.AIAPIKey, profile.AIModel)
		if err != nil {
			return nil, err
		}
		s.Orchestrator = agent.NewOrchestrator(model, s.Executor, s.Gateway, profile.MaxSteps)
	} else {
		slog.Warn("AI chat is disabled, set an API key and model to enable it")
	}

	echoServer := echo.New()
	apiv1.NewAPIV1Service(s.Secret, profile, store, s.Gateway, s.Orchestrator, s.VectorStore).RegisterRoutes(echoServer)
	s.echoServer = echoServer
	s.httpServer = &http.Server{
		Handler:           echoServer,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Debug("server initialized", "mode", profile.Mode, "driver", profile.Driver, "search", s.VectorStore != nil)
	return s, nil
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	address := net.JoinHostPort(s.Profile.Addr, fmt.Sprintf("%d", s.Profile.Port))
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", address)
	}
	slog.Info("server listening", "address", listener.Addr().String())
	if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "failed to serve")
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	slog.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown http server", "err", err)
	}
	s.Gateway.Wait()
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", "err", err)
	}
	slog.Info("server stopped properly")
}
