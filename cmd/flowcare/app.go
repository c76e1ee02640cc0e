package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/fardannozami/flowcare/internal/app/usecase"
	"github.com/fardannozami/flowcare/internal/config"
	"github.com/fardannozami/flowcare/internal/domain"
	"github.com/fardannozami/flowcare/internal/infra/mongodb"
	"github.com/fardannozami/flowcare/internal/infra/sqlite"
)

// app holds the store and every usecase wired against it.
type app struct {
	store     domain.Store
	predictor *usecase.PredictPeriodUsecase
	ledger    *usecase.CycleLedgerUsecase
	insights  *usecase.SymptomInsightUsecase
	scheduler *usecase.ScheduleRemindersUsecase
	handler   *usecase.HandleMessageUsecase
}

func newApp(store domain.Store, log *zap.Logger) *app {
	predictor := usecase.NewPredictPeriodUsecase(store)
	ledger := usecase.NewCycleLedgerUsecase(store, predictor, log)
	insights := usecase.NewSymptomInsightUsecase(store)
	scheduler := usecase.NewScheduleRemindersUsecase(predictor, store, log)
	return &app{
		store:     store,
		predictor: predictor,
		ledger:    ledger,
		insights:  insights,
		scheduler: scheduler,
		handler:   usecase.NewHandleMessageUsecase(ledger, predictor, insights, scheduler),
	}
}

// openStore connects the configured backend and makes sure its schema exists.
// Degraded setup steps are logged, not fatal.
func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (domain.Store, error) {
	var store domain.Store
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		store = sqlite.NewStore(db, log)
	case config.DriverMongo:
		client, err := mongodb.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		store = mongodb.NewStore(client, cfg.MongoDatabase, log)
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q (want sqlite or mongo)", cfg.StoreDriver)
	}

	report, err := store.EnsureSchema(ctx)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("prepare store: %w", err)
	}
	for _, step := range report.Degraded {
		log.Warn("store running without schema step", zap.String("step", step.Name), zap.Error(step.Err))
	}
	return store, nil
}

// withApp opens the store for the duration of one command. Every store call
// shares the configured timeout.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.StoreTimeout)
	defer cancel()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(ctx, newApp(store, logger))
}

func requireUser() error {
	if userID == "" {
		return fmt.Errorf("--user is required")
	}
	return nil
}
