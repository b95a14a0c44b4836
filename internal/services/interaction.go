package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/boostcampwm2025/ios02-damago/internal/apperr"
	"github.com/boostcampwm2025/ios02-damago/internal/catalog"
	"github.com/boostcampwm2025/ios02-damago/internal/config"
	"github.com/boostcampwm2025/ios02-damago/internal/metrics"
	"github.com/boostcampwm2025/ios02-damago/internal/models"
	"github.com/boostcampwm2025/ios02-damago/internal/repository"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// Reward is what a couple earns for completing one item
type Reward struct {
	Coins int64 `json:"coins"`
	Food  int64 `json:"food"`
}

var trackRewards = map[models.Track]Reward{
	models.TrackDailyQuestion: {Coins: 30, Food: 3},
	models.TrackBalanceGame:   {Coins: 20, Food: 2},
}

// trackPush holds the notification wording of a track
type trackPush struct {
	idKey         string
	doneTitle     string
	doneBody      string
	answeredTitle string
	answeredBody  string
}

var trackPushes = map[models.Track]trackPush{
	models.TrackDailyQuestion: {
		idKey:         "questionID",
		doneTitle:     "Today's question complete!",
		doneBody:      "%s answered too! Check out the results.",
		answeredTitle: "Your partner answered today's question!",
		answeredBody:  "%s left an answer! Answer to see the results.",
	},
	models.TrackBalanceGame: {
		idKey:         "gameID",
		doneTitle:     "Balance game complete!",
		doneBody:      "%s made a choice. Check out the results!",
		answeredTitle: "Your partner answered the balance game!",
		answeredBody:  "%s made a choice. Pick yours to see the results!",
	},
}

// InteractionService rotates the daily content of each couple
type InteractionService struct {
	store    repository.Store
	catalog  *catalog.Catalog
	notify   *NotifyService
	cooldown time.Duration
	now      func() time.Time
}

// NewInteractionService creates a new interaction service
func NewInteractionService(store repository.Store, cat *catalog.Catalog, notify *NotifyService, game config.GameConfig) *InteractionService {
	return &InteractionService{
		store:    store,
		catalog:  cat,
		notify:   notify,
		cooldown: game.Cooldown,
		now:      time.Now,
	}
}

// CurrentItem is the item a couple should answer now
type CurrentItem struct {
	Track          models.Track       `json:"track"`
	Item           models.ContentItem `json:"item"`
	FirstAnswer    *string            `json:"first_answer"`
	SecondAnswer   *string            `json:"second_answer"`
	MyAnswer       *string            `json:"my_answer"`
	PartnerAnswer  *string            `json:"partner_answer"`
	IsFirst        bool               `json:"is_first"`
	BothAnswered   bool               `json:"both_answered"`
	LastAnsweredAt *time.Time         `json:"last_answered_at"`
}

// SubmitResult is the merged answer state after a submission
type SubmitResult struct {
	Track         models.Track `json:"track"`
	ItemID        string       `json:"item_id"`
	MyAnswer      *string      `json:"my_answer"`
	PartnerAnswer *string      `json:"partner_answer"`
	IsFirst       bool         `json:"is_first"`
	BothAnswered  bool         `json:"both_answered"`
	CompletedNow  bool         `json:"completed_now"`
	Reward        *Reward      `json:"reward,omitempty"`
	Coins         int64        `json:"coins"`
	Food          int64        `json:"food"`
}

// HistoryItem is one completed item of a couple
type HistoryItem struct {
	Item          models.ContentItem `json:"item"`
	MyAnswer      *string            `json:"my_answer"`
	PartnerAnswer *string            `json:"partner_answer"`
	IsFirst       bool               `json:"is_first"`
	CompletedAt   *time.Time         `json:"completed_at"`
}

// memberOf loads an account, its couple and its role in the couple
func memberOf(ctx context.Context, tx repository.Tx, accountID string) (*models.Account, *models.Couple, models.Role, error) {
	account, err := tx.GetAccount(ctx, accountID)
	if err != nil {
		return nil, nil, 0, notFoundAs(err, "account")
	}
	if account.CoupleID == nil {
		return nil, nil, 0, apperr.New(apperr.KindNotFound, "couple not found")
	}
	couple, err := tx.GetCouple(ctx, *account.CoupleID)
	if err != nil {
		return nil, nil, 0, notFoundAs(err, "couple")
	}
	role, ok := couple.RoleOf(accountID)
	if !ok {
		return nil, nil, 0, apperr.New(apperr.KindForbidden, "account is not a member of its couple")
	}
	return account, couple, role, nil
}

func sides(a *models.Answer, role models.Role) (mine, partner *string) {
	if role == models.RoleFirst {
		return a.FirstAnswer, a.SecondAnswer
	}
	return a.SecondAnswer, a.FirstAnswer
}

// FetchCurrent returns the item the couple is on. A completed item stays
// current until the cooldown since its completion has passed.
func (s *InteractionService) FetchCurrent(ctx context.Context, accountID string, track models.Track) (*CurrentItem, error) {
	if !track.Valid() {
		return nil, apperr.New(apperr.KindInvalidArgument, "unknown track")
	}

	var cur *CurrentItem
	err := s.store.View(ctx, func(ctx context.Context, tx repository.Tx) error {
		_, couple, role, err := memberOf(ctx, tx, accountID)
		if err != nil {
			return err
		}

		stat := couple.Progress(track)
		seq := stat.TotalCompleted + 1
		if stat.TotalCompleted > 0 && stat.LastCompletedAt != nil && s.now().Sub(*stat.LastCompletedAt) < s.cooldown {
			seq = stat.TotalCompleted
		}
		item, ok := s.catalog.ItemAt(track, seq)
		if !ok {
			return apperr.New(apperr.KindNotFound, "no more content")
		}

		answer, err := tx.GetAnswer(ctx, couple.ID, track, item.ID)
		if errors.Is(err, repository.ErrNotFound) {
			answer = &models.Answer{CoupleID: couple.ID, Track: track, ItemID: item.ID}
		} else if err != nil {
			return err
		}

		mine, partner := sides(answer, role)
		cur = &CurrentItem{
			Track:          track,
			Item:           item,
			FirstAnswer:    answer.FirstAnswer,
			SecondAnswer:   answer.SecondAnswer,
			MyAnswer:       mine,
			PartnerAnswer:  partner,
			IsFirst:        role == models.RoleFirst,
			BothAnswered:   answer.BothAnswered,
			LastAnsweredAt: stat.LastCompletedAt,
		}
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "fetch current item")
	}
	return cur, nil
}

// SubmitAnswer records the caller's answer and completes the item once
// both members answered
func (s *InteractionService) SubmitAnswer(ctx context.Context, accountID string, track models.Track, itemID, answer string) (*SubmitResult, error) {
	if !track.Valid() {
		return nil, apperr.New(apperr.KindInvalidArgument, "unknown track")
	}
	answer = strings.TrimSpace(answer)
	if itemID == "" || answer == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "item id and answer are required")
	}
	if track == models.TrackBalanceGame && answer != "1" && answer != "2" {
		return nil, apperr.New(apperr.KindInvalidArgument, "choice must be 1 or 2")
	}

	var (
		res       *SubmitResult
		partnerID string
		nickname  string
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		account, couple, role, err := memberOf(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if _, ok := s.catalog.Item(track, itemID); !ok {
			return apperr.New(apperr.KindNotFound, "content not found")
		}

		rec, err := tx.GetAnswer(ctx, couple.ID, track, itemID)
		if errors.Is(err, repository.ErrNotFound) {
			rec = &models.Answer{CoupleID: couple.ID, Track: track, ItemID: itemID}
		} else if err != nil {
			return err
		}

		now := s.now()
		value := answer
		if role == models.RoleFirst {
			rec.FirstAnswer, rec.FirstAnsweredAt = &value, &now
		} else {
			rec.SecondAnswer, rec.SecondAnsweredAt = &value, &now
		}

		res = &SubmitResult{Track: track, ItemID: itemID, IsFirst: role == models.RoleFirst}
		if rec.FirstAnswer != nil && rec.SecondAnswer != nil && !rec.BothAnswered {
			reward := trackRewards[track]
			rec.BothAnswered = true
			rec.CompletedAt = &now

			stat := couple.Progress(track)
			stat.TotalCompleted++
			stat.LastCompletedAt = &now
			couple.Coins += reward.Coins
			couple.Food += reward.Food
			if err := tx.PutCouple(ctx, couple); err != nil {
				return err
			}
			res.CompletedNow = true
			res.Reward = &reward
		}
		if err := tx.PutAnswer(ctx, rec); err != nil {
			return err
		}

		res.MyAnswer, res.PartnerAnswer = sides(rec, role)
		res.BothAnswered = rec.BothAnswered
		res.Coins, res.Food = couple.Coins, couple.Food
		partnerID = couple.PartnerOf(accountID)
		nickname = deref(account.Nickname)
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "submit answer")
	}

	if res.CompletedNow {
		metrics.RewardsCredited.WithLabelValues(string(track)).Add(float64(res.Reward.Coins))
		log.Info().Str("account_id", accountID).Str("track", string(track)).Str("item_id", itemID).Msg("Item completed")
	}

	s.notifyPartner(ctx, partnerID, nickname, res)
	return res, nil
}

func (s *InteractionService) notifyPartner(ctx context.Context, partnerID, nickname string, res *SubmitResult) {
	if nickname == "" {
		nickname = "Your partner"
	}
	wording := trackPushes[res.Track]
	title, body := wording.answeredTitle, wording.answeredBody
	if res.CompletedNow {
		title, body = wording.doneTitle, wording.doneBody
	}

	data := map[string]string{"type": string(res.Track), wording.idKey: res.ItemID}
	s.notify.SendPush(ctx, partnerID, title, fmt.Sprintf(body, nickname), data, Delivery{})
	s.notify.Publish(partnerID, WSMessage{Type: EventAnswerUpdated, Data: data})
}

// History lists the completed items of a track, newest first
func (s *InteractionService) History(ctx context.Context, accountID string, track models.Track, limit int) ([]HistoryItem, error) {
	if !track.Valid() {
		return nil, apperr.New(apperr.KindInvalidArgument, "unknown track")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	var items []HistoryItem
	err := s.store.View(ctx, func(ctx context.Context, tx repository.Tx) error {
		_, couple, role, err := memberOf(ctx, tx, accountID)
		if err != nil {
			return err
		}
		answers, err := tx.ListCompletedAnswers(ctx, couple.ID, track, limit)
		if err != nil {
			return err
		}

		items = make([]HistoryItem, 0, len(answers))
		for _, a := range answers {
			item, ok := s.catalog.Item(track, a.ItemID)
			if !ok {
				item = models.ContentItem{ID: a.ItemID, Track: track}
			}
			mine, partner := sides(a, role)
			items = append(items, HistoryItem{
				Item:          item,
				MyAnswer:      mine,
				PartnerAnswer: partner,
				IsFirst:       role == models.RoleFirst,
				CompletedAt:   a.CompletedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "fetch history")
	}
	return items, nil
}
