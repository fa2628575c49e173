// Command lambda is the serverless entrypoint for the Daybook backend.
//
// It runs on AWS Lambda behind API Gateway (or a compatible proxy such as
// Vercel). Configuration comes entirely from environment variables; the
// application is initialized lazily on the first invocation and reused for
// the lifetime of the execution environment.
package main

import (
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	adapterlambda "github.com/daybook-app/daybook-backend/internal/adapter/lambda"
	"github.com/daybook-app/daybook-backend/internal/app"
	"github.com/daybook-app/daybook-backend/internal/bootstrap"
	"github.com/daybook-app/daybook-backend/internal/logger"
	"github.com/daybook-app/daybook-backend/pkg/config"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: "json",
		Output: "stdout",
	}
	if err := logger.Init(loggerCfg); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	initializer := bootstrap.New(bootstrap.Config{
		ConnectAttempts: cfg.Bootstrap.ConnectAttempts,
		ConnectTimeout:  cfg.Bootstrap.ConnectTimeout,
		BackoffBase:     cfg.Bootstrap.BackoffBase,
		BackoffMax:      cfg.Bootstrap.BackoffMax,
		FailureCooldown: cfg.Bootstrap.FailureCooldown,
	}, bootstrap.AppBuilder(cfg, app.Options{
		RequestLogging: false,
		Metrics:        cfg.Metrics.Enabled,
	}))

	h := adapterlambda.NewHandler(initializer, adapterlambda.Options{
		Production: cfg.IsProduction(),
	})

	logger.Info("Lambda handler ready", "environment", cfg.Environment)
	lambda.Start(h.Invoke)
}
