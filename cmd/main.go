package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ivcurve"
	"ivcurve/config"
	"ivcurve/debug"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "ivcurve:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("ivcurve", pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: ivcurve [flags] request.(json|yaml)")
		fs.PrintDefaults()
	}
	v := viper.New()
	if err := config.BindFlags(fs, v); err != nil {
		return err
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected one request file, got %d", fs.NArg())
	}
	cfg, err := config.Load(v, v.GetString("config"))
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	req, err := ivcurve.Load(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("load request: %w", err)
	}
	log.Info("request loaded", zap.String("file", fs.Arg(0)), zap.Int("curves", len(req.Curves)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	analyzer := ivcurve.NewAnalyzer(
		ivcurve.WithLogger(log),
		ivcurve.WithWorkers(cfg.Workers),
		ivcurve.WithFitSettings(cfg.FitSettings()),
		ivcurve.WithReferenceArea(cfg.ReferenceArea),
		ivcurve.WithLevels(cfg.Levels),
		ivcurve.WithPoints(cfg.Points),
	)
	results, err := analyzer.Analyze(ctx, req)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if cfg.Output.File != "" {
		f, err := os.Create(cfg.Output.File)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if err := ivcurve.Export(out, cfg.Output.Format, results); err != nil {
		return fmt.Errorf("export results: %w", err)
	}

	var chart debug.Charts
	chart.Update(results)
	log.Info("analysis finished", zap.Int("ok", chart.Len()), zap.Int("failed", len(chart.Errors)))
	if cfg.Output.HTML != "" {
		if err := writeHTML(cfg.Output.HTML, &chart); err != nil {
			return err
		}
	}
	if cfg.Output.PNG != "" && chart.Len() > 0 {
		title := fmt.Sprintf("curve %d", chart.Index[0])
		if err := debug.SavePlot(chart.Analyses[0], title, cfg.Output.PNG); err != nil {
			return fmt.Errorf("save plot: %w", err)
		}
	}
	return nil
}

func writeHTML(filename string, chart *debug.Charts) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := chart.Render(f); err != nil {
		f.Close()
		return fmt.Errorf("render charts: %w", err)
	}
	return f.Close()
}

func newLogger(c config.Log) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Dev {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	// 结果写标准输出，日志写标准错误
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
