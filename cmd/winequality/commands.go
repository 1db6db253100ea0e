package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"

	"github.com/mimir-aip/winequality/pkg/api"
	"github.com/mimir-aip/winequality/pkg/config"
	"github.com/mimir-aip/winequality/pkg/features"
	"github.com/mimir-aip/winequality/pkg/ingest"
	"github.com/mimir-aip/winequality/pkg/metadatastore"
	"github.com/mimir-aip/winequality/pkg/mlmodel"
	"github.com/mimir-aip/winequality/pkg/models"
	"github.com/mimir-aip/winequality/pkg/scheduler"
	"github.com/mimir-aip/winequality/pkg/storage"
)

// openStore opens the run registry, or returns nil when none is configured
func openStore(cfg *config.Config) (metadatastore.Store, error) {
	if cfg.RegistryPath == "" {
		return nil, nil
	}
	store, err := metadatastore.NewSQLiteStore(cfg.RegistryPath)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func newService(cfg *config.Config, store metadatastore.Store, logger *slog.Logger) (*mlmodel.Service, error) {
	return mlmodel.NewService(ingest.NewLoader(nil, logger), store, cfg.TrainingOptions(), logger)
}

func runTrain(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}
	svc, err := newService(cfg, store, logger)
	if err != nil {
		return err
	}

	bar := pb.New(svc.NumCandidates()).SetWriter(os.Stderr)
	bar.Set("prefix", "Selecting model ")
	bar.Start()
	svc.SetProgress(func(done, total int, result models.CandidateResult) {
		bar.Increment()
	})

	metrics, modelPath, err := svc.Train(ctx, cfg.DataSource(), "", "")
	bar.Finish()
	if err != nil {
		return err
	}

	logger.Info("model saved", "model_path", modelPath, "metrics_path", cfg.MetricsPath)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(metrics)
}

func runPredict(ctx context.Context, cfg *config.Config, cmd *predictCmd, logger *slog.Logger) error {
	model, err := mlmodel.Load(cfg.ModelPath)
	if err != nil {
		return err
	}

	source := models.DataSource{Type: config.InferSourceType(cmd.Input), Path: cmd.Input}
	raw, err := ingest.NewLoader(nil, logger).Load(ctx, source)
	if err != nil {
		return err
	}
	labels, err := mlmodel.Predict(model, raw)
	if err != nil {
		return err
	}
	return writePredictions(os.Stdout, labels, cmd.JSON)
}

func writePredictions(w io.Writer, labels []string, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(api.PredictResponse{Predictions: labels})
	}
	_, err := fmt.Fprintln(w, strings.Join(labels, "\n"))
	return err
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}
	svc, err := newService(cfg, store, logger)
	if err != nil {
		return err
	}
	cache, err := mlmodel.NewModelCache(cfg.CacheSize)
	if err != nil {
		return err
	}
	runner := mlmodel.NewRunner(svc, cfg.DataSource(), cache)

	sched, err := scheduler.NewService(runner, cfg.RetrainSchedule, logger)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	server := api.NewServer(runner, svc, cfg.Port, logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced to shutdown", "error", err)
	}
	logger.Info("server exited")
	return nil
}

func runEngineer(ctx context.Context, cfg *config.Config, output string, logger *slog.Logger) error {
	raw, err := ingest.NewLoader(nil, logger).Load(ctx, cfg.DataSource())
	if err != nil {
		return err
	}
	engineered, err := features.BuildFeatureMatrix(raw, raw.Has(models.ColQuality))
	if err != nil {
		return err
	}

	encode := func(w io.Writer) error { return ingest.WriteCSV(w, engineered, ',') }
	if strings.EqualFold(filepath.Ext(output), ".parquet") {
		encode = func(w io.Writer) error { return ingest.WriteParquet(w, engineered) }
	}
	if err := storage.WriteFile(output, encode); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	logger.Info("feature matrix written", "output", output, "rows", engineered.NumRows(), "columns", engineered.NumCols())
	return nil
}
