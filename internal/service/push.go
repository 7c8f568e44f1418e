package service

import (
	"context"
	"fmt"
	"strconv"

	"fleetrent-backend/internal/logger"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type messagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type pushNotifier struct {
	client messagingClient
	topic  string
}

// NewPushNotifier publishes alerts to a Firebase Cloud Messaging topic that
// the yard apps subscribe to.
func NewPushNotifier(ctx context.Context, credentialsFile, topic string) (AlertNotifier, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase messaging: %w", err)
	}
	return newPushNotifier(client, topic), nil
}

func newPushNotifier(client messagingClient, topic string) *pushNotifier {
	return &pushNotifier{client: client, topic: topic}
}

func (p *pushNotifier) Notify(ctx context.Context, alert Alert) error {
	data := map[string]string{
		"kind":         string(alert.Kind),
		"equipment_id": strconv.FormatInt(alert.EquipmentID, 10),
		"asset_number": alert.AssetNumber,
	}
	if alert.ContractID != nil {
		data["contract_id"] = strconv.FormatInt(*alert.ContractID, 10)
	}
	for k, v := range alert.Attributes {
		data[k] = v
	}
	msg := &messaging.Message{
		Topic: p.topic,
		Notification: &messaging.Notification{
			Title: alert.Title,
			Body:  alert.Message,
		},
		Data: data,
	}

	logger.ExternalServiceCall("fcm", "send", "topic", p.topic, "kind", alert.Kind)
	id, err := p.client.Send(ctx, msg)
	logger.ExternalServiceResult("fcm", "send", err, "messageID", id)
	if err != nil {
		return fmt.Errorf("failed to push alert: %w", err)
	}
	return nil
}
