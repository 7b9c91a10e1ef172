package support

import (
	"net/mail"

	"github.com/go-playground/validator/v10"

	"github.com/quizly/backend/core"
)

type (
	// Feedback is sent from the dashboard by a signed-in user.
	Feedback struct {
		Message string `json:"message" validate:"required,max=5000"`
		Rating  int    `json:"rating" validate:"omitempty,min=1,max=5"`
	}

	// Contact is the public marketing contact form.
	Contact struct {
		Name    string `json:"name" validate:"required,max=100"`
		Email   string `json:"email" validate:"required,email"`
		Message string `json:"message" validate:"required,max=5000"`
	}

	Service struct {
		to     mail.Address
		mailer core.EmailService
	}
)

func (f *Feedback) Validate(validate *validator.Validate) error {
	f.Message = core.CleanString(f.Message)
	return validate.Struct(f)
}

func (c *Contact) Validate(validate *validator.Validate) error {
	c.Name = core.CleanString(c.Name)
	c.Email = core.CleanString(c.Email, true /* lower */)
	c.Message = core.CleanString(c.Message)
	return validate.Struct(c)
}

func NewService(mailer core.EmailService, conf *core.Config) *Service {
	return &Service{
		to:     mail.Address{Name: conf.AppName + " Support", Address: conf.SupportEmail},
		mailer: mailer,
	}
}

// SendFeedback forwards dashboard feedback to support. Delivery is best-effort.
func (svc *Service) SendFeedback(caller core.Caller, f Feedback) {
	name := caller.Name
	if name == "" {
		name = caller.Email
	}
	msg := &core.EmailMessage{
		To:           []mail.Address{svc.to},
		Subject:      "Dashboard feedback",
		Tag:          "feedback",
		TemplateName: "feedback",
		TemplateData: map[string]interface{}{
			"Name":    name,
			"Email":   caller.Email,
			"UserID":  caller.ID,
			"Rating":  f.Rating,
			"Message": f.Message,
		},
	}
	if caller.Email != "" {
		msg.ReplyTo = &mail.Address{Name: caller.Name, Address: caller.Email}
	}
	svc.mailer.SendMessages(msg)
}

// SendContact forwards a contact form message to support. Delivery is best-effort.
func (svc *Service) SendContact(c Contact) {
	svc.mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{svc.to},
		ReplyTo:      &mail.Address{Name: c.Name, Address: c.Email},
		Subject:      "Contact form: " + c.Name,
		Tag:          "contact",
		TemplateName: "contact",
		TemplateData: map[string]interface{}{
			"Name":    c.Name,
			"Email":   c.Email,
			"Message": c.Message,
		},
	})
}
