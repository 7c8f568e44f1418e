package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"fleetrent-backend/internal/logger"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// sendGridClient is the part of *sendgrid.Client the notifier needs.
type sendGridClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type emailNotifier struct {
	client    sendGridClient
	fromName  string
	fromEmail string
	to        []string
}

func NewEmailNotifier(apiKey, fromName, fromEmail string, to []string) AlertNotifier {
	return newEmailNotifier(sendgrid.NewSendClient(apiKey), fromName, fromEmail, to)
}

func newEmailNotifier(client sendGridClient, fromName, fromEmail string, to []string) *emailNotifier {
	return &emailNotifier{client: client, fromName: fromName, fromEmail: fromEmail, to: to}
}

func (s *emailNotifier) Notify(ctx context.Context, alert Alert) error {
	if len(s.to) == 0 {
		return errors.New("email notifier has no recipients")
	}
	from := mail.NewEmail(s.fromName, s.fromEmail)
	subject := fmt.Sprintf("[%s] %s", alert.AssetNumber, alert.Title)
	plainText, html := renderAlert(alert)

	var errs []error
	for _, addr := range s.to {
		message := mail.NewSingleEmail(from, subject, mail.NewEmail("", addr), plainText, html)

		logger.ExternalServiceCall("sendgrid", "send", "to", addr, "kind", alert.Kind)
		resp, err := s.client.SendWithContext(ctx, message)
		if err == nil && resp.StatusCode >= 400 {
			err = fmt.Errorf("sendgrid error: status %d, body: %s", resp.StatusCode, resp.Body)
		}
		logger.ExternalServiceResult("sendgrid", "send", err, "to", addr)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to send alert email to %s: %w", addr, err))
		}
	}
	return errors.Join(errs...)
}

func renderAlert(alert Alert) (string, string) {
	keys := make([]string, 0, len(alert.Attributes))
	for k := range alert.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var text, html strings.Builder
	fmt.Fprintf(&text, "%s\n\nEquipment: %s (id %d)\n", alert.Message, alert.AssetNumber, alert.EquipmentID)
	fmt.Fprintf(&html, "<html><body><h2>%s</h2><p>%s</p><ul>", alert.Title, alert.Message)
	fmt.Fprintf(&html, "<li><strong>equipment</strong>: %s (id %d)</li>", alert.AssetNumber, alert.EquipmentID)
	for _, k := range keys {
		fmt.Fprintf(&text, "%s: %s\n", k, alert.Attributes[k])
		fmt.Fprintf(&html, "<li><strong>%s</strong>: %s</li>", k, alert.Attributes[k])
	}
	html.WriteString("</ul></body></html>")
	return text.String(), html.String()
}
