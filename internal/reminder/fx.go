package reminder

import (
	"context"

	"github.com/smallbiznis/meterbook/internal/config"
	"github.com/smallbiznis/meterbook/internal/reading/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("reminder",
	fx.Provide(func(svc domain.Service) CursorReader { return svc }),
	fx.Provide(New),
	fx.Invoke(StartScheduler),
)

func StartScheduler(lc fx.Lifecycle, cfg config.Config, sched *Scheduler) {
	if !cfg.Reminder.Enabled {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go sched.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
