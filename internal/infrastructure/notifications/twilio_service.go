package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/you/feedauth/domain"
)

// messageCreator is the slice of the Twilio API used to send SMS
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioServiceImpl implements domain.Notifier over Twilio SMS
type TwilioServiceImpl struct {
	api        messageCreator
	fromNumber string
}

// NewTwilioService creates a new Twilio notification service
func NewTwilioService(accountSID, authToken, fromNumber string) *TwilioServiceImpl {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioServiceImpl{
		api:        client.Api,
		fromNumber: fromNumber,
	}
}

// Send implements domain.Notifier. The subject is dropped; SMS carries only
// the body.
func (t *TwilioServiceImpl) Send(ctx context.Context, to domain.Recipient, _, body string) error {
	if to.Phone == "" {
		return errors.New("recipient has no phone number")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to.Phone)
	params.SetFrom(t.fromNumber)
	params.SetBody(body)

	if _, err := t.api.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}

	return nil
}

var _ domain.Notifier = (*TwilioServiceImpl)(nil)
