package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/Harvey-Wallace/BandSync-sub000/internal/domain"
)

// sesAPI is the slice of the SES client this transport uses.
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESTransport delivers mail through Amazon SES.
type SESTransport struct {
	client sesAPI
	sender string
}

var _ MailTransport = (*SESTransport)(nil)

func NewSESTransport(ctx context.Context, region, sender string) (*SESTransport, error) {
	if strings.TrimSpace(region) == "" {
		return nil, fmt.Errorf("aws region is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return newSESTransport(ses.NewFromConfig(awsCfg), sender)
}

func newSESTransport(client sesAPI, sender string) (*SESTransport, error) {
	if client == nil {
		return nil, fmt.Errorf("ses client is required")
	}
	if strings.TrimSpace(sender) == "" {
		return nil, fmt.Errorf("sender address is required")
	}

	return &SESTransport{client: client, sender: strings.TrimSpace(sender)}, nil
}

func (t *SESTransport) Name() string { return "ses" }

func (t *SESTransport) Send(ctx context.Context, recipient domain.Recipient, msg Message) error {
	if t == nil || t.client == nil {
		return fmt.Errorf("transport is not initialized")
	}
	if err := recipient.Validate(); err != nil {
		return &TransportError{
			Message:   "invalid recipient",
			Transient: false,
			Cause:     err,
		}
	}

	input := &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{recipient.Address},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(msg.Body)},
			},
		},
		Source: aws.String(t.sender),
	}

	if _, err := t.client.SendEmail(ctx, input); err != nil {
		return &TransportError{
			Message:   "ses send failed",
			Transient: isTransientSESError(err),
			Cause:     err,
		}
	}

	return nil
}

// Rejections and misconfigured identities will fail the same way on every
// retry; everything else (throttling, service blips) is worth another
// attempt on a later window evaluation.
func isTransientSESError(err error) bool {
	var rejected *types.MessageRejected
	if errors.As(err, &rejected) {
		return false
	}
	var missingDomain *types.MailFromDomainNotVerifiedException
	if errors.As(err, &missingDomain) {
		return false
	}
	var suppressed *types.AccountSendingPausedException
	if errors.As(err, &suppressed) {
		return false
	}
	var badConfigSet *types.ConfigurationSetDoesNotExistException
	if errors.As(err, &badConfigSet) {
		return false
	}
	return true
}
