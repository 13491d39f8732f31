package services

import (
	"context"
	"fmt"
	"time"

	"food-rescue-backend/internal/config"
	"food-rescue-backend/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/certificate"
	"github.com/sideshow/apns2/payload"
)

const pushTimeout = 10 * time.Second

type profileLookup interface {
	GetByID(ctx context.Context, id string) (*models.UserProfile, error)
}

type pushFunc func(ctx context.Context, n *apns2.Notification) (*apns2.Response, error)

// PushNotifier tells donors about progress on their donations over APNs.
// A nil *PushNotifier sends nothing.
type PushNotifier struct {
	push  pushFunc
	topic string
	users profileLookup
}

// NewPushNotifier creates a new APNs notifier. It returns nil when no
// certificate is configured.
func NewPushNotifier(cfg config.APNSConfig, users profileLookup) (*PushNotifier, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	cert, err := certificate.FromP12File(cfg.CertFile, cfg.CertPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs certificate: %w", err)
	}

	client := apns2.NewClient(cert)
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &PushNotifier{
		push: func(ctx context.Context, n *apns2.Notification) (*apns2.Response, error) {
			return client.PushWithContext(ctx, n)
		},
		topic: cfg.Topic,
		users: users,
	}, nil
}

// DonationStatusChanged notifies the donor in the background.
func (n *PushNotifier) DonationStatusChanged(d *models.Donation) {
	if n == nil || d == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()
		if err := n.notifyDonor(ctx, d); err != nil {
			log.Error().Err(err).Str("donation_id", d.ID).Str("user_id", d.DonorID).Msg("Failed to send push notification")
		}
	}()
}

func (n *PushNotifier) notifyDonor(ctx context.Context, d *models.Donation) error {
	body, ok := statusMessage(d)
	if !ok {
		return nil
	}

	donor, err := n.users.GetByID(ctx, d.DonorID)
	if err != nil {
		return fmt.Errorf("failed to load donor profile: %w", err)
	}
	if donor.PushToken == nil || *donor.PushToken == "" {
		return nil
	}

	notification := &apns2.Notification{
		DeviceToken: *donor.PushToken,
		Topic:       n.topic,
		Payload: payload.NewPayload().
			AlertTitle(d.Title).
			AlertBody(body).
			Sound("default").
			Custom("donation_id", d.ID).
			Custom("status", d.Status.String()),
	}

	res, err := n.push(ctx, notification)
	if err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	if !res.Sent() {
		return fmt.Errorf("push rejected: %d %s", res.StatusCode, res.Reason)
	}

	log.Debug().Str("donation_id", d.ID).Str("user_id", d.DonorID).Str("status", d.Status.String()).Msg("Push notification sent")
	return nil
}

func statusMessage(d *models.Donation) (string, bool) {
	volunteer := "A volunteer"
	if d.VolunteerName != nil && *d.VolunteerName != "" {
		volunteer = *d.VolunteerName
	}
	switch d.Status {
	case models.StatusAccepted:
		return volunteer + " accepted your donation.", true
	case models.StatusInProgress:
		return volunteer + " is picking up your donation.", true
	case models.StatusDelivered:
		return volunteer + " delivered your donation.", true
	case models.StatusCompleted:
		recipient := "The recipient"
		if d.RecipientName != nil && *d.RecipientName != "" {
			recipient = *d.RecipientName
		}
		return recipient + " confirmed receiving your donation.", true
	case models.StatusPending:
		return "", false
	default:
		return "", false
	}
}
