package bootstrap

import (
	"context"
	"fmt"

	"github.com/daybook-app/daybook-backend/internal/api"
	"github.com/daybook-app/daybook-backend/internal/app"
	"github.com/daybook-app/daybook-backend/pkg/config"
	"github.com/daybook-app/daybook-backend/pkg/store"
)

// AppBuilder returns the production BuildFunc: open the configured database
// and assemble the application around it.
//
// Failures are classified so Get can decide what to retry:
//   - invalid database config or a missing JWT secret is KindConfiguration
//   - failing to open or ping the database is KindDatabase
//   - anything that breaks after the database connected is KindConstruction
func AppBuilder(cfg *config.Config, opts app.Options) BuildFunc {
	return func(ctx context.Context) (*app.App, error) {
		if err := cfg.Database.Validate(); err != nil {
			return nil, NewConfigurationError(fmt.Errorf("database config: %w", err))
		}
		if len(cfg.API.GetJWTSecret()) < 32 {
			return nil, NewConfigurationError(
				fmt.Errorf("JWT secret must be at least 32 characters; set %s", api.EnvAPISecret))
		}

		st, err := store.NewContext(ctx, &cfg.Database)
		if err != nil {
			return nil, NewDatabaseError(err)
		}

		a, err := app.New(cfg.API, st, opts)
		if err != nil {
			_ = st.Close()
			return nil, NewConstructionError(err)
		}

		return a, nil
	}
}
