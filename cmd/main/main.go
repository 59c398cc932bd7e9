package main

import (
	"github.com/alecthomas/kingpin/v2"
	"github.com/maxbolgarin/contem"
	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/logze/v2"
	"github.com/maxbolgarin/revline/internal/app"
	"github.com/maxbolgarin/revline/internal/config"
)

var (
	Version, Branch, Commit, BuildDate string
)

var (
	configPath = kingpin.Flag("config", "path to config file, env only if empty").Short('c').Envar("REVLINE_CONFIG").String()
	projectID  = kingpin.Flag("project", "review open merge requests of the project once and exit").Short('p').String()
)

func main() {
	kingpin.Version(Version)
	kingpin.Parse()

	if *projectID != "" {
		var err error
		ctx := contem.New(contem.WithLogger(logze.DefaultPtr()), contem.Exit(&err))
		defer ctx.Shutdown()
		if err = runBatch(ctx); err != nil {
			logze.DefaultPtr().Error("cannot run batch review", "error", err)
		}
		return
	}

	contem.Start(runServer, logze.DefaultPtr())
}

func runServer(ctx contem.Context) error {
	revline, err := initApp(ctx)
	if err != nil {
		return err
	}
	if err := revline.StartWebhook(ctx); err != nil {
		return erro.Wrap(err, "start webhook")
	}
	return nil
}

func runBatch(ctx contem.Context) error {
	revline, err := initApp(ctx)
	if err != nil {
		return err
	}
	if err := revline.RunReview(ctx, *projectID); err != nil {
		return erro.Wrap(err, "run review")
	}
	return nil
}

func initApp(ctx contem.Context) (*app.Revline, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, erro.Wrap(err, "load config")
	}

	logCfg := logze.C().WithConsole()
	if cfg.Debug {
		logCfg = logCfg.WithLevel(logze.LevelDebug)
	}
	logze.Init(logCfg)
	logze.DefaultPtr().Info("starting revline", "version", Version, "branch", Branch, "commit", Commit, "build_date", BuildDate)

	revline, err := app.New(ctx, cfg)
	if err != nil {
		return nil, erro.Wrap(err, "new app")
	}
	return revline, nil
}
