package emailsvc

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"

	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/compass/core"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"

	errBadRequest = errors.New("sendgrid refused the message")
)

type sendgridService struct {
	conf       *core.Config
	key        string
	from       *sgmail.Email
	subjPrefix string
	retrier    core.Retrier
	logger     core.Logger
}

var _ core.EmailService = (*sendgridService)(nil)

// NewSendgridService sends emails through the sendgrid API, retrying server failures.
func NewSendgridService(conf *core.Config, retrier core.Retrier, logger core.Logger) core.EmailService {
	from := conf.DefaultFromEmail()
	return &sendgridService{
		conf:       conf,
		key:        conf.SendgridApiKey,
		from:       sgmail.NewEmail(from.Name, from.Address),
		subjPrefix: "[" + conf.AppName + "] ",
		retrier:    retrier,
		logger:     logger,
	}
}

func (svc sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		go func() {
			if err := msg.Render(svc.conf); err != nil {
				svc.logger.Error(fmt.Sprintf("rendering email: %v", err), err)
				return
			}
			if msg.HasRecipients() && msg.HasContent() {
				if err := svc.send(context.Background(), *msg); err != nil {
					svc.logger.Error(fmt.Sprintf("sending email: %v", err), err)
				}
			}
		}()
	}
}

func (svc sendgridService) prepare(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject

	for _, to := range msg.To {
		p.AddTos(getSGEmail(to))
	}
	for _, cc := range msg.Cc {
		p.AddCCs(getSGEmail(cc))
	}
	for _, bcc := range msg.Bcc {
		p.AddBCCs(getSGEmail(bcc))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)

	m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	return m
}

func getSGEmail(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}

// send retries transport errors and 5xx answers; a 4xx answer is final.
func (svc sendgridService) send(ctx context.Context, msg core.EmailMessage) error {
	body := sgmail.GetRequestBody(svc.prepare(msg))
	return core.RetryDo(ctx, svc.retrier, "sending email", func(context.Context) error {
		req := sendgrid.GetRequest(svc.key, endpoint, host)
		req.Method = http.MethodPost
		req.Body = body

		res, err := sendgrid.API(req)
		switch {
		case err != nil:
			return err
		case res.StatusCode >= http.StatusInternalServerError:
			return errors.Errorf("sendgrid status: %d - body: %s", res.StatusCode, res.Body)
		case res.StatusCode >= http.StatusBadRequest:
			return core.Permanent(errors.Wrapf(errBadRequest, "status: %d - body: %s", res.StatusCode, res.Body))
		}
		return nil
	})
}
