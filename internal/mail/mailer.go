package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// Mailer sends transactional mail. Implementations must be safe for
// concurrent use.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// SES delivers through Amazon SES v2.
type SES struct {
	client    *sesv2.Client
	fromEmail string
	fromName  string
	log       *slog.Logger
}

// New returns an SES mailer, or a no-op one when fromEmail is unset so
// local environments work without AWS credentials.
func New(ctx context.Context, region, fromEmail, fromName string, log *slog.Logger) (Mailer, error) {
	if fromEmail == "" {
		log.Info("mail delivery disabled, no from address configured")
		return Disabled{Log: log}, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	log.Info("mail delivery enabled", "from", fromEmail, "region", region)
	return &SES{
		client:    sesv2.NewFromConfig(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
		log:       log,
	}, nil
}

func (s *SES) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	from := s.fromEmail
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(htmlBody)},
					Text: &types.Content{Data: aws.String(textBody)},
				},
			},
		},
	}
	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("ses send to %s: %w", to, err)
	}
	s.log.Info("email sent", "to", to, "subject", subject)
	return nil
}

// Disabled swallows sends and logs what would have gone out.
type Disabled struct{ Log *slog.Logger }

func (d Disabled) Send(_ context.Context, to, subject, _, _ string) error {
	d.Log.Info("email skipped, delivery disabled", "to", to, "subject", subject)
	return nil
}
