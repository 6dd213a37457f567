package service

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/spf13/viper"

	"github.com/spindlework/a2ahost/pkg/auth"
	"github.com/spindlework/a2ahost/pkg/catalog"
	rpcerrors "github.com/spindlework/a2ahost/pkg/errors"
	"github.com/spindlework/a2ahost/pkg/stores"
	"github.com/spindlework/a2ahost/pkg/tasks"
	"github.com/spindlework/a2ahost/pkg/worker"
)

// WellKnownCardPath is where clients discover the agent card without
// knowing the configured endpoint prefix.
const WellKnownCardPath = "/.well-known/agent-card.json"

/*
Server is the HTTP face of the host.  It mounts both protocol bindings, the
JSON-RPC endpoint at the configured prefix and the REST routes under
{prefix}/v1, plus card discovery and health checks.  All protocol work is
delegated to the pipeline; the server owns only routing, auth and response
writing.
*/
type Server struct {
	app      *fiber.App
	pipeline *tasks.Pipeline
	store    *stores.TaskStore
	registry *catalog.Registry
	pool     *worker.Pool
	auth     *auth.Service
	prefix   string
}

type ServerOption func(*Server)

func NewServer(options ...ServerOption) (*Server, error) {
	srv := &Server{
		prefix: "/a2a",
		auth:   auth.NewService(),
	}

	if path := viper.GetString("server.path"); path != "" {
		srv.prefix = "/" + strings.Trim(path, "/")
	}

	for _, option := range options {
		option(srv)
	}

	if srv.pipeline == nil {
		log.Error("missing pipeline")
		return nil, rpcerrors.ErrMissingEngine{}
	}

	if srv.store == nil {
		log.Error("missing task store")
		return nil, rpcerrors.ErrMissingStorage{}
	}

	srv.app = fiber.New(fiber.Config{
		AppName:           "a2ahost",
		ServerHeader:      "A2A-Host",
		StreamRequestBody: true,
	})

	srv.routes()

	return srv, nil
}

func WithPipeline(pipeline *tasks.Pipeline) ServerOption {
	return func(srv *Server) {
		srv.pipeline = pipeline
	}
}

func WithTaskStore(store *stores.TaskStore) ServerOption {
	return func(srv *Server) {
		srv.store = store
	}
}

func WithRegistry(registry *catalog.Registry) ServerOption {
	return func(srv *Server) {
		srv.registry = registry
	}
}

func WithPool(pool *worker.Pool) ServerOption {
	return func(srv *Server) {
		srv.pool = pool
	}
}

func WithAuthService(service *auth.Service) ServerOption {
	return func(srv *Server) {
		srv.auth = service
	}
}

// App exposes the underlying fiber app, mainly for tests.
func (srv *Server) App() *fiber.App {
	return srv.app
}

func (srv *Server) routes() {
	streamPaths := map[string]bool{
		srv.prefix:                        true, // message/stream shares the rpc endpoint
		srv.prefix + "/v1/message:stream": true,
	}

	srv.app.Use(logger.New(logger.Config{
		// Streaming responses hold the connection open; logging them on
		// completion only adds noise at disconnect time.
		Next: func(ctx fiber.Ctx) bool {
			return streamPaths[ctx.Path()]
		},
	}))

	srv.app.Get("/livez", healthcheck.New())
	srv.app.Get("/readyz", healthcheck.New())

	srv.app.Use(auth.Middleware(
		srv.auth,
		viper.GetBool("server.requireAuth"),
		WellKnownCardPath,
		srv.prefix+"/v1/card",
		"/livez",
		"/readyz",
	))

	srv.app.Get(WellKnownCardPath, srv.handleCard)
	srv.app.Post(srv.prefix, srv.handleRPC)

	v1 := srv.prefix + "/v1"
	srv.app.Get(v1+"/card", srv.handleCard)
	srv.app.Post(v1+`/message\:send`, srv.handleRestSend)
	srv.app.Post(v1+`/message\:stream`, srv.handleRestStream)
	srv.app.Get(v1+"/tasks/:id", srv.handleRestTaskGet)
	srv.app.Post(v1+"/tasks/:id", srv.handleRestTaskPost)
	srv.app.Post(v1+"/tasks/:id/pushNotificationConfigs", srv.handleRestPushSet)
	srv.app.Get(v1+"/tasks/:id/pushNotificationConfigs", srv.handleRestPushGet)
	srv.app.Get(v1+"/tasks/:id/pushNotificationConfigs/:configId", srv.handleRestPushGet)
}

// Start listens on addr and blocks until the listener closes.
func (srv *Server) Start(addr string) error {
	log.Info("starting server", "addr", addr, "path", srv.prefix)

	return srv.app.Listen(addr, fiber.ListenConfig{
		DisableStartupMessage: true,
	})
}

/*
Shutdown stops accepting connections and gives in-flight turns up to the
configured window to finish.  The worker pool drains inside the same
deadline, so an agent mid-turn gets a chance to complete before the process
exits.
*/
func (srv *Server) Shutdown() error {
	seconds := viper.GetInt("server.shutdownTimeoutSeconds")

	if seconds <= 0 {
		seconds = 60
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(seconds)*time.Second)
	defer cancel()

	log.Info("streaming totals", "metrics", srv.pipeline.Engine().Hub().Metrics().Snapshot())

	if srv.pool != nil {
		srv.pool.Stop(ctx)
	}

	return srv.app.ShutdownWithContext(ctx)
}
