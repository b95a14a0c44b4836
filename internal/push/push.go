// Package push delivers alert and live-status notifications to devices.
package push

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// Kind is the style of a push message
type Kind string

const (
	KindAlert      Kind = "alert"
	KindLiveUpdate Kind = "live_update"
	KindLiveStart  Kind = "live_start"
)

// AttributesType names the live activity attributes struct on the device
const AttributesType = "DamagoAttributes"

var (
	// ErrTransient marks a failure worth retrying later
	ErrTransient = errors.New("transient push failure")
	// ErrPermanent marks a failure that retrying will not fix
	ErrPermanent = errors.New("permanent push failure")
)

// Message is one notification addressed to one device token
type Message struct {
	Kind         Kind
	Token        string
	Title        string
	Body         string
	Data         map[string]string
	ContentState map[string]any
	Attributes   map[string]any
	Timestamp    time.Time
}

// Gateway sends messages. Errors wrap ErrTransient or ErrPermanent.
type Gateway interface {
	Send(ctx context.Context, msg Message) error
}

// LogGateway only logs messages, for local runs without push credentials
type LogGateway struct{}

func (LogGateway) Send(_ context.Context, msg Message) error {
	log.Info().
		Str("kind", string(msg.Kind)).
		Str("title", msg.Title).
		Str("body", msg.Body).
		Msg("Push delivery skipped, gateway disabled")
	return nil
}
