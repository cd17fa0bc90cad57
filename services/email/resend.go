package emailsvc

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"
	"time"

	"github.com/resend/resend-go/v2"

	"github.com/nexussync/clubs/core"
)

// resend batches hold at most 100 emails
const resendBatchSize = 100

type resendService struct {
	client          *resend.Client
	from            string
	subjPrefix      string
	frontendBaseURL string
	timeout         time.Duration
	logger          core.Logger
}

var _ core.EmailService = (*resendService)(nil) // interface compliance check

func NewResendService(conf *core.Config, logger core.Logger) *resendService {
	from := conf.DefaultFromEmail()
	return &resendService{
		client:          resend.NewClient(conf.Email.ResendApiKey),
		from:            from.String(),
		subjPrefix:      "[" + conf.AppName + "] ",
		frontendBaseURL: conf.FrontendBaseURL,
		timeout:         30 * time.Second,
		logger:          logger,
	}
}

// SendMessages renders the messages and sends them in batches, in the background.
func (svc *resendService) SendMessages(messages ...*core.EmailMessage) {
	reqs := make([]*resend.SendEmailRequest, 0, len(messages))
	for _, msg := range messages {
		if err := msg.Render(svc.frontendBaseURL); err != nil {
			svc.logger.Error(fmt.Sprintf("rendering email: %v", err), err)
			continue
		}
		if msg.HasRecipients() && msg.HasContent() {
			reqs = append(reqs, svc.prepare(*msg))
		}
	}
	if len(reqs) == 0 {
		return
	}
	go svc.send(reqs)
}

func (svc *resendService) prepare(msg core.EmailMessage) *resend.SendEmailRequest {
	req := &resend.SendEmailRequest{
		From:    svc.from,
		To:      addresses(msg.To),
		Cc:      addresses(msg.Cc),
		Bcc:     addresses(msg.Bcc),
		Subject: svc.subjPrefix + msg.Subject,
		Text:    msg.TextContent,
		Html:    msg.HTMLContent,
	}
	for _, at := range msg.Attachments {
		// attachments are held base64 encoded; resend encodes them again
		content, err := base64.StdEncoding.DecodeString(at.Content.String())
		if err != nil {
			svc.logger.Warn(fmt.Sprintf("skipping attachment %s: %v", at.Filename, err))
			continue
		}
		req.Attachments = append(req.Attachments, &resend.Attachment{Content: content, Filename: at.Filename})
	}
	return req
}

func (svc *resendService) send(reqs []*resend.SendEmailRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), svc.timeout)
	defer cancel()

	if len(reqs) == 1 {
		if _, err := svc.client.Emails.SendWithContext(ctx, reqs[0]); err != nil {
			svc.logger.Error(fmt.Sprintf("sending email: %v", err), err)
		}
		return
	}
	for i := 0; i < len(reqs); i += resendBatchSize {
		end := i + resendBatchSize
		if end > len(reqs) {
			end = len(reqs)
		}
		if _, err := svc.client.Batch.SendWithContext(ctx, reqs[i:end]); err != nil {
			svc.logger.Error(fmt.Sprintf("sending email batch: %v", err), err)
		}
	}
}

func addresses(addrs []mail.Address) []string {
	if len(addrs) == 0 {
		return nil
	}
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.String())
	}
	return out
}
