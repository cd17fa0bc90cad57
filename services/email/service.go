// Package emailsvc holds the core.EmailService implementations.
package emailsvc

import (
	"log"

	"github.com/pkg/errors"

	"github.com/nexussync/clubs/core"
)

// New returns the email service of the configured provider.
func New(conf *core.Config, std *log.Logger, logger core.Logger) (core.EmailService, error) {
	switch conf.Email.Provider {
	case "", "console":
		return NewConsoleService(conf, std, logger), nil
	case "sendgrid":
		return NewSendgridService(conf, logger), nil
	case "resend":
		return NewResendService(conf, logger), nil
	default:
		return nil, errors.Errorf("unknown email provider %q", conf.Email.Provider)
	}
}
