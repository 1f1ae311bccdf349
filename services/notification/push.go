package notification

import (
	"context"
	"fmt"

	"soothe/models"

	"firebase.google.com/go/v4/messaging"
)

// PushSender is the subset of *messaging.Client used for delivery.
type PushSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// PushNotifier sends FCM pushes: the therapist hears about new requests, the
// customer about everything after that.
type PushNotifier struct {
	sender PushSender
	tokens DeviceTokenStore
}

func NewPushNotifier(sender PushSender, tokens DeviceTokenStore) *PushNotifier {
	return &PushNotifier{sender: sender, tokens: tokens}
}

func (n *PushNotifier) Notify(ctx context.Context, notice models.BookingNotice) error {
	recipient := notice.Recipient()
	token, err := n.tokens.Get(ctx, recipient)
	if err != nil {
		return err
	}
	title, body := pushText(notice)
	role := "customer"
	if notice.Kind == models.NoticeCreated {
		role = "therapist"
	}

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: map[string]string{
			"type":      "booking_" + string(notice.Kind),
			"bookingId": notice.BookingID,
			"status":    string(notice.Status),
			"role":      role,
		},
	}
	if notice.Kind == models.NoticeCreated {
		// The therapist has two minutes to answer; wake the device.
		msg.Android = &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "high_priority",
				Sound:     "default",
			},
		}
		msg.APNS = &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		}
	}

	if _, err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send FCM message to %s: %w", recipient, err)
	}
	return nil
}

func pushText(notice models.BookingNotice) (string, string) {
	price := notice.Price.StringFixed(2) + " " + notice.Currency
	switch notice.Kind {
	case models.NoticeCreated:
		return "New booking request", fmt.Sprintf("A customer requested a massage (%s). Respond within 2 minutes.", price)
	case models.NoticeAccepted:
		return "Booking accepted", "Your therapist accepted. We're processing your payment."
	case models.NoticeDeclined:
		return "Booking declined", "Your therapist can't make it this time. Please choose another therapist."
	case models.NoticeTimedOut:
		return "No response", "Your therapist didn't respond in time. Please try another therapist."
	case models.NoticeCancelled:
		return "Booking cancelled", "Your booking request was cancelled."
	case models.NoticeConfirmed:
		return "Booking confirmed", fmt.Sprintf("Payment of %s received. Your massage is booked!", price)
	case models.NoticePaymentFailed:
		return "Payment failed", "We couldn't charge your payment method, so the booking was not confirmed."
	}
	return "Booking update", "Your booking status is now " + string(notice.Status) + "."
}
