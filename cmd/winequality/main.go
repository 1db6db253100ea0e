// Command winequality trains, evaluates and serves the red wine quality classifier.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"

	"github.com/mimir-aip/winequality/pkg/config"
	"github.com/mimir-aip/winequality/pkg/logging"
	"github.com/mimir-aip/winequality/pkg/models"
)

const version = "v0.1.0"

type trainCmd struct {
	DataPath    string `arg:"--data-path" help:"training data file, URL or DSN"`
	ModelPath   string `arg:"--model-path" help:"where to write the model artifact"`
	MetricsPath string `arg:"--metrics-path" help:"where to write the metrics report"`
	Source      string `arg:"--source" help:"csv, json, xml, parquet, sql, http or s3 (inferred from the path when empty)"`
	Query       string `arg:"--query" help:"table name or SELECT statement for sql sources"`
}

type predictCmd struct {
	ModelPath string `arg:"--model-path" help:"model artifact to load"`
	Input     string `arg:"--input,required" help:"file of raw measurements to label"`
	JSON      bool   `arg:"--json" help:"print a JSON object instead of one label per line"`
}

type serveCmd struct {
	Port string `arg:"--port" help:"HTTP port"`
}

type engineerCmd struct {
	DataPath string `arg:"--data-path" help:"raw data file, URL or DSN"`
	Output   string `arg:"--output,required" help:"engineered table, parquet when the name ends in .parquet, CSV otherwise"`
}

type args struct {
	Config   string       `arg:"--config,env:WINE_CONFIG" help:"YAML configuration file"`
	Train    *trainCmd    `arg:"subcommand:train" help:"train and select the best model"`
	Predict  *predictCmd  `arg:"subcommand:predict" help:"label raw measurements with a saved model"`
	Serve    *serveCmd    `arg:"subcommand:serve" help:"serve predictions over HTTP and retrain on schedule"`
	Engineer *engineerCmd `arg:"subcommand:engineer" help:"write the engineered feature matrix"`
}

func (args) Version() string {
	return "winequality " + version
}

func (args) Description() string {
	return "Red wine quality classifier: feature engineering, model selection and serving."
}

func main() {
	var a args
	p := arg.MustParse(&a)
	if p.Subcommand() == nil {
		p.Fail("missing subcommand")
	}

	if err := run(a); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(a args) error {
	cfg, err := config.Load(a.Config)
	if err != nil {
		return err
	}
	applyOverrides(cfg, a)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case a.Train != nil:
		return runTrain(ctx, cfg, logger)
	case a.Predict != nil:
		return runPredict(ctx, cfg, a.Predict, logger)
	case a.Serve != nil:
		return runServe(ctx, cfg, logger)
	case a.Engineer != nil:
		return runEngineer(ctx, cfg, a.Engineer.Output, logger)
	}
	return nil
}

// applyOverrides lets command-line flags win over the file and the environment
func applyOverrides(cfg *config.Config, a args) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	switch {
	case a.Train != nil:
		set(&cfg.DataPath, a.Train.DataPath)
		set(&cfg.ModelPath, a.Train.ModelPath)
		set(&cfg.MetricsPath, a.Train.MetricsPath)
		set(&cfg.Query, a.Train.Query)
		if a.Train.Source != "" {
			cfg.SourceType = models.SourceType(a.Train.Source)
		} else if a.Train.DataPath != "" {
			cfg.SourceType = ""
		}
	case a.Predict != nil:
		set(&cfg.ModelPath, a.Predict.ModelPath)
	case a.Serve != nil:
		set(&cfg.Port, a.Serve.Port)
	case a.Engineer != nil:
		if a.Engineer.DataPath != "" {
			cfg.DataPath = a.Engineer.DataPath
			cfg.SourceType = ""
		}
	}
}
