package emailsvc

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/nexussync/clubs/core"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
	sendgridCategory = "campus-clubs"
)

type sendgridService struct {
	key             string
	host            string
	client          *rest.Client
	from            *sgmail.Email
	subjPrefix      string
	frontendBaseURL string
	timeout         time.Duration
	// retries on 429 and 5xx, backing off by retryWait times the attempt
	retries   int
	retryWait time.Duration
	logger    core.Logger
}

var _ core.EmailService = (*sendgridService)(nil) // interface compliance check

func NewSendgridService(conf *core.Config, logger core.Logger) *sendgridService {
	from := conf.DefaultFromEmail()
	return &sendgridService{
		key:             conf.Email.SendgridApiKey,
		host:            sendgridHost,
		client:          &rest.Client{HTTPClient: &http.Client{Timeout: 10 * time.Second}},
		from:            sgmail.NewEmail(from.Name, from.Address),
		subjPrefix:      "[" + conf.AppName + "] ",
		frontendBaseURL: conf.FrontendBaseURL,
		timeout:         30 * time.Second,
		retries:         2,
		retryWait:       time.Second,
		logger:          logger,
	}
}

// SendMessages renders the messages, then sends each one in the background.
func (svc *sendgridService) SendMessages(messages ...*core.EmailMessage) {
	bodies := make([][]byte, 0, len(messages))
	for _, msg := range messages {
		if err := msg.Render(svc.frontendBaseURL); err != nil {
			svc.logger.Error(fmt.Sprintf("rendering email: %v", err), err)
			continue
		}
		if msg.HasRecipients() && (msg.HasContent() || msg.HasAttachments()) {
			bodies = append(bodies, sgmail.GetRequestBody(svc.prepare(*msg)))
		}
	}
	if len(bodies) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), svc.timeout)
		defer cancel()
		for _, body := range bodies {
			if err := svc.send(ctx, body); err != nil {
				svc.logger.Error(fmt.Sprintf("sending email: %v", err), err)
			}
		}
	}()
}

// prepare maps msg to a single personalization; cc and bcc recipients see the same subject.
func (svc *sendgridService) prepare(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject
	p.AddTos(sgEmails(msg.To)...)
	p.AddCCs(sgEmails(msg.Cc)...)
	p.AddBCCs(sgEmails(msg.Bcc)...)

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)
	m.AddCategories(sendgridCategory)
	if msg.TemplateName != "" {
		m.AddCategories(msg.TemplateName)
	}

	if msg.TextContent != "" {
		m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	}
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	for _, at := range msg.Attachments {
		// Content is already base64 encoded
		m.AddAttachment(&sgmail.Attachment{
			Content:     at.Content.String(),
			Type:        at.ContentType,
			Filename:    at.Filename,
			Disposition: "attachment",
		})
	}
	return m
}

func (svc *sendgridService) send(ctx context.Context, body []byte) error {
	req := sendgrid.GetRequest(svc.key, sendgridEndpoint, svc.host)
	req.Method = rest.Post
	req.Body = body

	for attempt := 0; ; attempt++ {
		res, err := svc.client.SendWithContext(ctx, req)
		if err != nil {
			return errors.Wrap(err, "posting to sendgrid")
		}
		if res.StatusCode < http.StatusBadRequest {
			return nil
		}
		retryable := res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= http.StatusInternalServerError
		if !retryable || attempt >= svc.retries {
			return errors.Errorf("sendgrid status %d: %s", res.StatusCode, res.Body)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * svc.retryWait):
		}
	}
}

func sgEmails(addrs []mail.Address) []*sgmail.Email {
	out := make([]*sgmail.Email, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, sgmail.NewEmail(a.Name, a.Address))
	}
	return out
}
