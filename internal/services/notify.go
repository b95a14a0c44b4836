package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/boostcampwm2025/ios02-damago/internal/apperr"
	"github.com/boostcampwm2025/ios02-damago/internal/metrics"
	"github.com/boostcampwm2025/ios02-damago/internal/models"
	"github.com/boostcampwm2025/ios02-damago/internal/push"
	"github.com/boostcampwm2025/ios02-damago/internal/repository"
	"github.com/boostcampwm2025/ios02-damago/internal/scheduler"
)

// maxDeliveryRetries bounds how often one notification is rescheduled
const maxDeliveryRetries = 3

const (
	liveUpdateTitle  = "Pet status changed"
	liveUpdateBody   = "Your pet reacted!"
	liveStartTitle   = "Pet alert"
	liveStartDefault = "A new status has arrived!"
	remoteStartTitle = "Your pet came to see you!"
	remoteStartBody  = "A new activity has started."
)

// Outcome is the result of a best effort delivery
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Delivery tells a send whether it is a first attempt or a scheduled retry
type Delivery struct {
	IsRetry bool
	Attempt int
}

// retryDelay returns how long to wait before retry number attempt+1
func retryDelay(attempt int) time.Duration {
	switch attempt {
	case 0:
		return 10 * time.Second
	case 1:
		return time.Minute
	default:
		return 5 * time.Minute
	}
}

// NotifyService delivers alerts, live status updates and realtime events
type NotifyService struct {
	store   repository.Store
	gateway push.Gateway
	sched   scheduler.Scheduler
	hub     *WSHub
	now     func() time.Time
}

// NewNotifyService creates a new notification service. hub may be nil.
func NewNotifyService(store repository.Store, gateway push.Gateway, sched scheduler.Scheduler, hub *WSHub) *NotifyService {
	return &NotifyService{
		store:   store,
		gateway: gateway,
		sched:   sched,
		hub:     hub,
		now:     time.Now,
	}
}

// Publish forwards a realtime event to a connected account
func (s *NotifyService) Publish(accountID string, message WSMessage) {
	if message.Timestamp == 0 {
		message.Timestamp = s.now().UnixMilli()
	}
	s.hub.Publish(accountID, message)
}

func (s *NotifyService) account(ctx context.Context, id string) (*models.Account, error) {
	var account *models.Account
	err := s.store.View(ctx, func(ctx context.Context, tx repository.Tx) error {
		a, err := tx.GetAccount(ctx, id)
		account = a
		return err
	})
	return account, err
}

// SendPush delivers an alert to one account. Transient failures are
// rescheduled until the retry budget is spent.
func (s *NotifyService) SendPush(ctx context.Context, targetID, title, body string, data map[string]string, d Delivery) Outcome {
	logger := log.With().Str("target_account_id", targetID).Str("title", title).Bool("is_retry", d.IsRetry).Logger()

	target, err := s.account(ctx, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Warn().Msg("Push target not found")
			metrics.Deliveries.WithLabelValues(string(push.KindAlert), string(OutcomeSkipped)).Inc()
			return OutcomeSkipped
		}
		logger.Error().Err(err).Msg("Failed to load push target")
		metrics.Deliveries.WithLabelValues(string(push.KindAlert), string(OutcomeFailed)).Inc()
		return OutcomeFailed
	}

	token := deref(target.PushToken)
	if token == "" || !target.PushEnabled {
		logger.Debug().Msg("Push skipped, no token or disabled")
		metrics.Deliveries.WithLabelValues(string(push.KindAlert), string(OutcomeSkipped)).Inc()
		return OutcomeSkipped
	}

	err = s.gateway.Send(ctx, push.Message{
		Kind:  push.KindAlert,
		Token: token,
		Title: title,
		Body:  body,
		Data:  data,
	})
	if err == nil {
		logger.Info().Msg("Push sent")
		metrics.Deliveries.WithLabelValues(string(push.KindAlert), string(OutcomeSent)).Inc()
		return OutcomeSent
	}

	metrics.Deliveries.WithLabelValues(string(push.KindAlert), string(OutcomeFailed)).Inc()
	if errors.Is(err, push.ErrTransient) {
		logger.Warn().Err(err).Int("attempt", d.Attempt).Msg("Push failed, scheduling retry")
		s.EnqueueRetry(ctx, models.RetryPayload{
			Kind:            models.RetryKindPush,
			TargetAccountID: targetID,
			Title:           title,
			Body:            body,
			Data:            data,
			Attempt:         d.Attempt,
		})
	} else {
		logger.Error().Err(err).Msg("Push failed permanently")
	}
	return OutcomeFailed
}

// EnqueueRetry schedules a delayed redelivery. It reports false when the
// retry budget is spent or scheduling failed.
func (s *NotifyService) EnqueueRetry(ctx context.Context, p models.RetryPayload) bool {
	logger := log.With().Str("target_account_id", p.TargetAccountID).Str("kind", string(p.Kind)).Int("attempt", p.Attempt).Logger()

	if p.Attempt >= maxDeliveryRetries {
		logger.Warn().Msg("Retry budget exhausted, dropping notification")
		return false
	}

	fireAt := s.now().Add(retryDelay(p.Attempt))
	p.Attempt++
	id, err := s.sched.Schedule(ctx, scheduler.QueuePushRetry, p, fireAt)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to schedule retry")
		return false
	}

	metrics.RetriesScheduled.WithLabelValues(string(p.Kind)).Inc()
	logger.Info().Str("task_id", id).Time("fire_at", fireAt).Msg("Retry scheduled")
	return true
}

// UpdateLiveStatus refreshes the live status widget of one account. It
// tries an update style push first and falls back to a start style push.
func (s *NotifyService) UpdateLiveStatus(ctx context.Context, targetID string, contentState, attributes map[string]any, d Delivery) Outcome {
	logger := log.With().Str("target_account_id", targetID).Bool("is_retry", d.IsRetry).Logger()

	target, err := s.account(ctx, targetID)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to load live status target")
		return OutcomeFailed
	}
	if !target.LiveStatusEnabled {
		metrics.Deliveries.WithLabelValues(string(push.KindLiveUpdate), string(OutcomeSkipped)).Inc()
		return OutcomeSkipped
	}

	if token := deref(target.LiveUpdateToken); token != "" {
		err := s.gateway.Send(ctx, push.Message{
			Kind:         push.KindLiveUpdate,
			Token:        token,
			Title:        liveUpdateTitle,
			Body:         liveUpdateBody,
			ContentState: contentState,
			Timestamp:    s.now(),
		})
		if err == nil {
			metrics.Deliveries.WithLabelValues(string(push.KindLiveUpdate), string(OutcomeSent)).Inc()
			return OutcomeSent
		}
		metrics.Deliveries.WithLabelValues(string(push.KindLiveUpdate), string(OutcomeFailed)).Inc()
		logger.Warn().Err(err).Msg("Live status update failed, trying start")

		if errors.Is(err, push.ErrTransient) && !d.IsRetry {
			s.EnqueueRetry(ctx, models.RetryPayload{
				Kind:            models.RetryKindLiveUpdate,
				TargetAccountID: targetID,
				ContentState:    contentState,
				Attributes:      attributes,
				Attempt:         d.Attempt,
			})
		}
	}

	token := deref(target.LiveStartToken)
	if token == "" || len(attributes) == 0 {
		logger.Debug().Msg("No usable live status token")
		return OutcomeFailed
	}

	body, _ := contentState["statusMessage"].(string)
	if body == "" {
		body = liveStartDefault
	}
	err = s.gateway.Send(ctx, push.Message{
		Kind:         push.KindLiveStart,
		Token:        token,
		Title:        liveStartTitle,
		Body:         body,
		ContentState: contentState,
		Attributes:   attributes,
		Timestamp:    s.now(),
	})
	if err != nil {
		metrics.Deliveries.WithLabelValues(string(push.KindLiveStart), string(OutcomeFailed)).Inc()
		logger.Warn().Err(err).Msg("Live status start failed")
		return OutcomeFailed
	}
	metrics.Deliveries.WithLabelValues(string(push.KindLiveStart), string(OutcomeSent)).Inc()
	return OutcomeSent
}

// StartLiveStatus remotely starts the live status widget on a device
func (s *NotifyService) StartLiveStatus(ctx context.Context, targetID string, contentState, attributes map[string]any) error {
	if targetID == "" || len(contentState) == 0 || len(attributes) == 0 {
		return apperr.New(apperr.KindInvalidArgument, "target, content state and attributes are required")
	}

	target, err := s.account(ctx, targetID)
	if err != nil {
		return storeErr(notFoundAs(err, "account"), "load account")
	}
	token := deref(target.LiveStartToken)
	if token == "" || !target.LiveStatusEnabled {
		return apperr.New(apperr.KindInvalidArgument, "start token not found or live status disabled")
	}

	err = s.gateway.Send(ctx, push.Message{
		Kind:         push.KindLiveStart,
		Token:        token,
		Title:        remoteStartTitle,
		Body:         remoteStartBody,
		ContentState: contentState,
		Attributes:   attributes,
		Timestamp:    s.now(),
	})
	if err != nil {
		metrics.Deliveries.WithLabelValues(string(push.KindLiveStart), string(OutcomeFailed)).Inc()
		return apperr.Wrap(apperr.KindUnavailable, "failed to start live status", err)
	}
	metrics.Deliveries.WithLabelValues(string(push.KindLiveStart), string(OutcomeSent)).Inc()
	return nil
}

// HandleRetry redelivers a scheduled retry
func (s *NotifyService) HandleRetry(ctx context.Context, p models.RetryPayload) error {
	d := Delivery{IsRetry: true, Attempt: p.Attempt}
	switch p.Kind {
	case models.RetryKindPush:
		s.SendPush(ctx, p.TargetAccountID, p.Title, p.Body, p.Data, d)
	case models.RetryKindLiveUpdate:
		s.UpdateLiveStatus(ctx, p.TargetAccountID, p.ContentState, p.Attributes, d)
	default:
		return apperr.New(apperr.KindInvalidArgument, "unknown retry type "+string(p.Kind))
	}
	return nil
}

// HandleRetryTask adapts HandleRetry to the worker pool
func (s *NotifyService) HandleRetryTask(ctx context.Context, t *scheduler.Task) error {
	var p models.RetryPayload
	if err := t.Decode(&p); err != nil {
		return scheduler.Permanent(err)
	}
	if err := s.HandleRetry(ctx, p); err != nil {
		return scheduler.Permanent(err)
	}
	return nil
}
