// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/streadway/amqp"

	"github.com/inboxpilot/warmup-backend/internal/controller"
	"github.com/inboxpilot/warmup-backend/internal/db"
	"github.com/inboxpilot/warmup-backend/internal/handler"
	"github.com/inboxpilot/warmup-backend/internal/logging"
	"github.com/inboxpilot/warmup-backend/internal/model"
	"github.com/inboxpilot/warmup-backend/internal/provider"
	"github.com/inboxpilot/warmup-backend/internal/queue"
	"github.com/inboxpilot/warmup-backend/internal/repository"
	"github.com/inboxpilot/warmup-backend/internal/service"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		logging.Warn().Msg("no .env file found, relying on OS environment variables")
	}

	// Init DB
	db.Init()

	campaignRepo := &repository.CampaignRepository{DB: db.DB}
	emailRepo := &repository.EmailRepository{DB: db.DB}
	accountRepo := &repository.AccountRepository{DB: db.DB}

	prov := provider.NewSimulatedProvider()
	broker := service.NewTokenBroker(accountRepo, prov)
	dispatcher := &service.Dispatcher{
		Emails:    emailRepo,
		Campaigns: campaignRepo,
		Accounts:  accountRepo,
		Broker:    broker,
		Provider:  prov,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sink := buildSink(ctx, dispatcher)

	processor := &service.CampaignProcessor{
		Campaigns: campaignRepo,
		Emails:    emailRepo,
		Accounts:  accountRepo,
		Sink:      sink,
	}

	scheduler := service.NewScheduler(campaignRepo, processor)
	scheduler.Start(ctx)

	campaignController := &controller.CampaignController{Campaigns: campaignRepo}
	campaignHandler := &handler.CampaignHandler{
		Campaigns: campaignRepo,
		Metrics:   &service.MetricsAggregator{Emails: emailRepo},
	}

	r := chi.NewRouter()

	// Campaign routes
	r.Post("/campaigns", campaignController.CreateCampaign)
	r.Get("/campaigns", campaignController.ListCampaigns)
	r.Get("/campaigns/{id}", campaignController.GetCampaign)
	r.Post("/campaigns/{id}/start", campaignController.Transition(model.ActionStart))
	r.Post("/campaigns/{id}/pause", campaignController.Transition(model.ActionPause))
	r.Post("/campaigns/{id}/resume", campaignController.Transition(model.ActionResume))
	r.Post("/campaigns/{id}/stop", campaignController.Transition(model.ActionStop))
	r.Get("/campaigns/{id}/metrics", campaignHandler.GetCampaignMetricsHandler)

	srv := &http.Server{Addr: ":8080", Handler: r}
	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	scheduler.Stop()
	if err := srv.Shutdown(context.Background()); err != nil {
		logging.Error().Err(err).Msg("server shutdown failed")
	}
}

// buildSink picks the dispatch path: RabbitMQ when AMQP_URL is set (the
// worker binary consumes it), otherwise the in-process queue.
func buildSink(ctx context.Context, dispatcher *service.Dispatcher) service.DispatchSink {
	if url := os.Getenv("AMQP_URL"); url != "" {
		conn, err := amqp.Dial(url)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		sink, err := queue.NewAMQPSink(conn)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to set up dispatch queue")
		}
		logging.Info().Msg("dispatching through RabbitMQ")
		return sink
	}

	q := queue.NewInMemoryQueue()
	if err := queue.StartDispatchSubscriber(ctx, q, dispatcher); err != nil {
		logging.Fatal().Err(err).Msg("failed to start dispatch subscriber")
	}
	return &queue.Sink{Queue: q, Topic: queue.TopicDispatch}
}
