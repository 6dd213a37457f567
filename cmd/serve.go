package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spindlework/a2ahost/pkg/activity"
	"github.com/spindlework/a2ahost/pkg/catalog"
	"github.com/spindlework/a2ahost/pkg/service"
	"github.com/spindlework/a2ahost/pkg/stores"
	"github.com/spindlework/a2ahost/pkg/stores/memory"
	"github.com/spindlework/a2ahost/pkg/stores/s3"
	"github.com/spindlework/a2ahost/pkg/tasks"
	"github.com/spindlework/a2ahost/pkg/worker"
)

var (
	portFlag int
	hostFlag string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the A2A protocol host",
		Long:  longServe,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&portFlag, "port", "p", 3210, "Port to serve on")
	serveCmd.Flags().StringVarP(&hostFlag, "host", "H", "0.0.0.0", "Host address to bind to")
}

// echoAgent is the default registration so a fresh install answers turns
// out of the box.
type echoAgent struct{}

func (agent *echoAgent) OnTurn(ctx context.Context, turn *activity.TurnContext) error {
	return turn.SendText("echo: " + turn.Activity.Text)
}

func serve(ctx context.Context) error {
	storage, err := openStorage(ctx)

	if err != nil {
		return err
	}

	store, err := stores.NewTaskStore(stores.WithStorage(storage))

	if err != nil {
		return err
	}

	engine, err := tasks.NewEngine(tasks.WithStore(store))

	if err != nil {
		return err
	}

	registry := catalog.NewRegistry()
	registry.Register(catalog.Entry{Type: "echo", Agent: &echoAgent{}})

	pool, err := worker.NewPool(
		worker.WithLocator(registry),
		worker.WithWorkers(viper.GetInt("server.workerCount")),
		worker.WithQueueDepth(viper.GetInt("server.maxQueueDepth")),
	)

	if err != nil {
		return err
	}

	pool.Start()

	pipeline, err := tasks.NewPipeline(tasks.WithEngine(engine), tasks.WithPool(pool))

	if err != nil {
		return err
	}

	srv, err := service.NewServer(
		service.WithPipeline(pipeline),
		service.WithTaskStore(store),
		service.WithRegistry(registry),
		service.WithPool(pool),
	)

	if err != nil {
		return err
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		log.Info("shutting down")

		if err := srv.Shutdown(); err != nil {
			log.Error("shutdown failed", "error", err)
		}
	}()

	return srv.Start(fmt.Sprintf("%s:%d", hostFlag, portFlag))
}

// openStorage selects the task storage backend from server.store.
func openStorage(ctx context.Context) (stores.Storage, error) {
	switch backend := viper.GetString("server.store"); backend {
	case "s3":
		return s3.NewStore(ctx)
	case "", "memory":
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

var longServe = `
Serve the A2A protocol host.

The host exposes JSON-RPC at the configured endpoint path, the REST binding
under {path}/v1, the agent card at /.well-known/agent-card.json and health
probes at /livez and /readyz.

Examples:
  # Serve on the default port
  a2ahost serve

  # Bind to localhost only
  a2ahost serve --host 127.0.0.1 --port 8080
`
