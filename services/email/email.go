package emailsvc

import (
	"net/mail"

	"github.com/pkg/errors"

	"github.com/quizly/backend/core"
)

// Waiter is implemented by services sending in the background.
type Waiter interface {
	Wait()
}

// Flush blocks until svc has no send in flight.
func Flush(svc core.EmailService) {
	if w, ok := svc.(Waiter); ok {
		w.Wait()
	}
}

// New returns the EmailService selected by conf.Email.Provider.
// sender is only used by the "service" provider.
func New(conf *core.Config, sender Sender, logger core.Logger) (core.EmailService, error) {
	switch conf.Email.Provider {
	case "", providerConsole:
		return NewConsoleService(conf, logger), nil
	case providerSendgrid:
		if conf.Email.SendgridAPIKey == "" {
			return nil, errors.New("email: sendgrid provider requires a sendgrid api key")
		}
		return NewSendgridService(conf, logger), nil
	case providerService:
		if sender == nil {
			return nil, errors.New("email: service provider requires the email service to be configured")
		}
		return NewUpstreamService(sender, conf, logger), nil
	}
	return nil, errors.Errorf("email: unknown provider %q", conf.Email.Provider)
}

func addressList(addrs []mail.Address) []string {
	if len(addrs) == 0 {
		return nil
	}
	list := make([]string, 0, len(addrs))
	for _, a := range addrs {
		list = append(list, a.String())
	}
	return list
}
