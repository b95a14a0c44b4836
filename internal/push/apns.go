package push

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"

	"github.com/boostcampwm2025/ios02-damago/internal/config"
)

const liveActivityPushType = apns2.EPushType("liveactivity")

// APNsGateway sends messages through the Apple Push Notification service
type APNsGateway struct {
	client   *apns2.Client
	bundleID string
	now      func() time.Time
}

// NewAPNsGateway creates a token authenticated APNs client
func NewAPNsGateway(cfg config.APNsConfig) (*APNsGateway, error) {
	key, err := token.AuthKeyFromFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs auth key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: key,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNsGateway{client: client, bundleID: cfg.BundleID, now: time.Now}, nil
}

// Send pushes msg and classifies the outcome
func (g *APNsGateway) Send(ctx context.Context, msg Message) error {
	res, err := g.client.PushWithContext(ctx, g.notification(msg))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return classify(res.StatusCode, res.Reason)
}

// notification builds the APNs request for msg
func (g *APNsGateway) notification(msg Message) *apns2.Notification {
	n := &apns2.Notification{
		DeviceToken: msg.Token,
		Priority:    apns2.PriorityHigh,
	}

	if msg.Kind == KindAlert {
		p := payload.NewPayload().AlertTitle(msg.Title).AlertBody(msg.Body).Sound("default")
		for k, v := range msg.Data {
			p.Custom(k, v)
		}
		n.Topic = g.bundleID
		n.PushType = apns2.PushTypeAlert
		n.Payload = p
		return n
	}

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = g.now()
	}
	aps := map[string]any{
		"timestamp":     ts.Unix(),
		"content-state": msg.ContentState,
		"alert": map[string]string{
			"title": msg.Title,
			"body":  msg.Body,
		},
	}
	if msg.Kind == KindLiveStart {
		aps["event"] = "start"
		aps["attributes"] = msg.Attributes
		aps["attributes-type"] = AttributesType
	} else {
		aps["event"] = "update"
	}

	n.Topic = g.bundleID + ".push-type.liveactivity"
	n.PushType = liveActivityPushType
	n.Payload = map[string]any{"aps": aps}
	return n
}

// classify maps an APNs response to nil, ErrTransient or ErrPermanent
func classify(status int, reason string) error {
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable:
		return fmt.Errorf("%w: apns %d %s", ErrTransient, status, reason)
	default:
		return fmt.Errorf("%w: apns %d %s", ErrPermanent, status, reason)
	}
}
