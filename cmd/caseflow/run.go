package main

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dukex/caseflow/pkg/builtin"
	"github.com/dukex/caseflow/pkg/cmd"
	"github.com/dukex/caseflow/pkg/eventbus"
	"github.com/dukex/caseflow/pkg/events"
	"github.com/dukex/caseflow/pkg/log"
	"github.com/dukex/caseflow/pkg/otelhelper"
	"github.com/dukex/caseflow/pkg/receivers"
	"github.com/dukex/caseflow/pkg/receivers/queue"
	"github.com/dukex/caseflow/pkg/receivers/schedule"
	"github.com/dukex/caseflow/pkg/web"
	"github.com/dukex/caseflow/pkg/workflow"
	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultPort     = 9091
	shutdownTimeout = 10 * time.Second
)

func NewRunCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Port to run the API server on",
			Value:   defaultPort,
			Sources: cli.EnvVars("PORT"),
		},
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "Persistence URL (file://, postgres://, redis://); empty keeps everything in memory",
			Sources: cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (gochannel, kafka)",
			Value:   "gochannel",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma separated Kafka brokers",
			Value:   "localhost:9092",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.IntFlag{
			Name:    "max-executions",
			Usage:   "Executions kept in memory (0 keeps all)",
			Value:   10000,
			Sources: cli.EnvVars("MAX_EXECUTIONS"),
		},
		&cli.BoolFlag{
			Name:    "concurrent-rules",
			Usage:   "Run the rules matched by one event concurrently",
			Sources: cli.EnvVars("CONCURRENT_RULES"),
		},
		&cli.StringFlag{
			Name:    "queue-addr",
			Usage:   "Redis address of the event queue",
			Value:   "localhost:6379",
			Sources: cli.EnvVars("REDIS_QUEUE_ADDR"),
		},
		&cli.StringFlag{
			Name:    "queue-password",
			Usage:   "Redis password of the event queue",
			Sources: cli.EnvVars("REDIS_QUEUE_PASSWORD"),
		},
		&cli.IntFlag{
			Name:    "queue-db",
			Usage:   "Redis database of the event queue",
			Sources: cli.EnvVars("REDIS_QUEUE_DB"),
		},
		&cli.StringFlag{
			Name:    "queue-name",
			Usage:   "Redis list to read events from; empty disables the queue receiver",
			Sources: cli.EnvVars("REDIS_QUEUE_NAME"),
		},
		&cli.BoolFlag{
			Name:    "otel",
			Usage:   "Export traces over OTLP/HTTP",
			Sources: cli.EnvVars("OTEL_ENABLED"),
		},
	}

	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Start the engine with its HTTP API, event bus and receivers",
		Flags:   append(flags, definitionFlags()...),
		Action: func(ctx context.Context, command *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, command)
		},
	}
}

func run(ctx context.Context, command *cli.Command) error {
	logger := log.WithService("caseflow")

	logger.InfoContext(ctx, "Initializing Caseflow")

	var tracer trace.Tracer

	if command.Bool("otel") {
		t, shutdown, err := otelhelper.NewTracer(ctx, "caseflow")
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}

		defer func() {
			if err := shutdown(context.WithoutCancel(ctx)); err != nil {
				logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
			}
		}()

		tracer = t
	}

	store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	if store != nil {
		defer func() {
			if err := store.Close(context.WithoutCancel(ctx)); err != nil {
				logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
			}
		}()
	}

	pub, sub, err := cmd.NewChannel(command.String("event-bus"), logger, command.String("kafka-brokers"))
	if err != nil {
		return err
	}

	eventBus := eventbus.NewWatermillEventBus(logger, pub, sub)
	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	engine := workflow.NewEngine(logger, workflow.Options{
		Handlers:      cmd.NewHandlers(logger, pub),
		Persistence:   store,
		Publisher:     eventBus,
		Tracer:        tracer,
		Registerer:    registry,
		MaxExecutions: command.Int("max-executions"),
		Concurrent:    command.Bool("concurrent-rules"),
	})

	if command.Bool("builtin") {
		for _, tpl := range builtin.Templates() {
			engine.RegisterTemplate(tpl)
		}

		for _, rule := range builtin.Rules() {
			engine.RegisterRule(rule)
		}
	}

	err = engine.Load(ctx)
	if err != nil {
		return err
	}

	defs, err := loadDefinitions(command)
	if err != nil {
		return err
	}

	for _, warning := range defs.Warnings() {
		logger.WarnContext(ctx, "Definition warning", "warning", warning)
	}

	defs.Apply(engine)

	err = eventBus.Handle(events.TriggerReceivedEvent, engine.HandleTriggerReceived)
	if err != nil {
		return fmt.Errorf("failed to register trigger handler: %w", err)
	}

	err = eventBus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to event bus: %w", err)
	}

	callback := receivers.PublishTo(eventBus, "case_id")

	var active []receivers.Receiver

	defer func() {
		for _, r := range active {
			if err := r.Stop(context.WithoutCancel(ctx)); err != nil {
				logger.ErrorContext(ctx, "Failed to stop receiver", "error", err)
			}
		}
	}()

	if name := command.String("queue-name"); name != "" {
		r, err := queue.NewReceiver(logger, queue.Config{
			Addr:     command.String("queue-addr"),
			Password: command.String("queue-password"),
			DB:       command.Int("queue-db"),
			Queue:    name,
		})
		if err != nil {
			return err
		}

		if err := r.Start(ctx, callback); err != nil {
			return err
		}

		active = append(active, r)
	}

	if len(defs.Schedules) > 0 {
		r, err := schedule.NewReceiver(logger, defs.Schedules)
		if err != nil {
			return err
		}

		if err := r.Start(ctx, callback); err != nil {
			return err
		}

		active = append(active, r)
	}

	return serve(ctx, web.NewApp(logger, engine, registry), command.Int("port"))
}

func serve(ctx context.Context, app *fiber.App, port int) error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- app.Listen(":" + strconv.Itoa(port))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		return app.ShutdownWithContext(shutdownCtx)
	}
}
