package notify

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/storefront/internal/config"
)

var Module = fx.Provide(newNotifier)

type notifierParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newNotifier(p notifierParams) Notifier {
	if p.Config.SMTPAddress == "" {
		return NewLogNotifier(p.Logger)
	}
	return NewSMTPNotifier(p.Config.SMTPAddress, p.Config.SMTPUser, p.Config.SMTPPassword, p.Config.SMTPFrom, p.Logger)
}
