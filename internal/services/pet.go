package services

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/boostcampwm2025/ios02-damago/internal/apperr"
	"github.com/boostcampwm2025/ios02-damago/internal/catalog"
	"github.com/boostcampwm2025/ios02-damago/internal/config"
	"github.com/boostcampwm2025/ios02-damago/internal/metrics"
	"github.com/boostcampwm2025/ios02-damago/internal/models"
	"github.com/boostcampwm2025/ios02-damago/internal/repository"
	"github.com/boostcampwm2025/ios02-damago/internal/scheduler"
)

const (
	fedMessage     = "Yum! That was delicious."
	hungryMessage  = "I'm hungry... feed me!"
	newbornMessage = "Nice to meet you! I was just born."
)

// PetService runs pet growth, hunger and the pet collection
type PetService struct {
	store   repository.Store
	catalog *catalog.Catalog
	notify  *NotifyService
	sched   scheduler.Scheduler
	game    config.GameConfig
	now     func() time.Time
	pick    func(n int) int
}

// NewPetService creates a new pet service
func NewPetService(store repository.Store, cat *catalog.Catalog, notify *NotifyService, sched scheduler.Scheduler, game config.GameConfig) *PetService {
	return &PetService{
		store:   store,
		catalog: cat,
		notify:  notify,
		sched:   sched,
		game:    game,
		now:     time.Now,
		pick:    rand.IntN,
	}
}

// FeedResult is the pet and couple state after feeding
type FeedResult struct {
	PetID       string `json:"pet_id"`
	Level       int    `json:"level"`
	Exp         int    `json:"exp"`
	RequiredExp int    `json:"required_exp"`
	Food        int64  `json:"food"`
	Coins       int64  `json:"coins"`
	Reward      int64  `json:"reward"`
	LeveledUp   bool   `json:"leveled_up"`
}

// DrawResult is the outcome of a pet draw
type DrawResult struct {
	PetID   string `json:"pet_id"`
	PetType string `json:"pet_type"`
	IsNew   bool   `json:"is_new"`
	Coins   int64  `json:"coins"`
	Food    int64  `json:"food"`
}

func newPet(coupleID, petType, name string, now time.Time) *models.Pet {
	return &models.Pet{
		ID:            models.PetID(coupleID, petType),
		CoupleID:      coupleID,
		Type:          petType,
		Name:          name,
		Level:         1,
		StatusMessage: newbornMessage,
		LastUpdatedAt: now,
		CreatedAt:     now,
	}
}

// contentState is the live status payload describing a pet
func contentState(p *models.Pet) map[string]any {
	state := map[string]any{
		"petType":       p.Type,
		"isHungry":      p.Hungry,
		"statusMessage": p.StatusMessage,
		"level":         p.Level,
		"currentExp":    p.Exp,
		"maxExp":        RequiredExp(p.Level),
	}
	if p.LastFedAt != nil {
		state["lastFedAt"] = models.FormatTime(*p.LastFedAt)
	}
	return state
}

func petAttributes(p *models.Pet) map[string]any {
	return map[string]any{"petName": p.Name}
}

// Feed spends one food on a pet and grows it
func (s *PetService) Feed(ctx context.Context, accountID, petID string) (*FeedResult, error) {
	if petID == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "pet id is required")
	}

	var (
		res       *FeedResult
		fed       *models.Pet
		partnerID string
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		pet, err := tx.GetPet(ctx, petID)
		if err != nil {
			return notFoundAs(err, "pet")
		}
		couple, err := tx.GetCouple(ctx, pet.CoupleID)
		if err != nil {
			return notFoundAs(err, "couple")
		}
		if !couple.IsMember(accountID) {
			return apperr.New(apperr.KindForbidden, "pet belongs to another couple")
		}
		if couple.Food <= 0 {
			return apperr.New(apperr.KindInsufficientResource, "not enough food")
		}

		now := s.now()
		g := ApplyExp(pet.Level, pet.Exp, s.game.FeedExp)
		couple.Food--
		couple.Coins += g.Reward

		pet.Level = g.Level
		pet.Exp = g.Exp
		pet.Hungry = false
		pet.StatusMessage = fedMessage
		pet.LastFedAt = &now
		pet.LastUpdatedAt = now

		if err := tx.PutCouple(ctx, couple); err != nil {
			return err
		}
		if err := tx.PutPet(ctx, pet); err != nil {
			return err
		}

		fed = pet
		partnerID = couple.PartnerOf(accountID)
		res = &FeedResult{
			PetID:       pet.ID,
			Level:       g.Level,
			Exp:         g.Exp,
			RequiredExp: RequiredExp(g.Level),
			Food:        couple.Food,
			Coins:       couple.Coins,
			Reward:      g.Reward,
			LeveledUp:   g.LevelsGained > 0,
		}
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "feed pet")
	}

	if res.Reward > 0 {
		metrics.RewardsCredited.WithLabelValues("level_up").Add(float64(res.Reward))
	}
	log.Info().
		Str("pet_id", petID).
		Str("account_id", accountID).
		Int("level", res.Level).
		Int64("reward", res.Reward).
		Msg("Pet fed")

	s.scheduleHunger(ctx, petID, *fed.LastFedAt)
	s.notify.UpdateLiveStatus(ctx, partnerID, contentState(fed), petAttributes(fed), Delivery{})
	s.notify.Publish(partnerID, WSMessage{Type: EventPetUpdated, Data: contentState(fed)})
	return res, nil
}

func (s *PetService) scheduleHunger(ctx context.Context, petID string, fedAt time.Time) {
	fireAt := fedAt.Add(s.game.HungerDelay)
	if _, err := s.sched.Schedule(ctx, scheduler.QueueHunger, models.HungerTask{PetID: petID}, fireAt); err != nil {
		log.Error().Err(err).Str("pet_id", petID).Msg("Failed to schedule hunger task")
	}
}

// ApplyHunger turns a pet hungry when its last feeding is old enough. It
// reports whether the pet changed; duplicate and stale tasks are no-ops.
func (s *PetService) ApplyHunger(ctx context.Context, petID string) (bool, error) {
	var (
		changed *models.Pet
		members []string
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		changed, members = nil, nil

		pet, err := tx.GetPet(ctx, petID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if pet.Hungry {
			return nil
		}

		now := s.now()
		if pet.LastFedAt != nil && now.Sub(*pet.LastFedAt) < s.game.HungerDelay-s.game.HungerSlack {
			return nil
		}

		pet.Hungry = true
		pet.StatusMessage = hungryMessage
		pet.LastUpdatedAt = now
		if err := tx.PutPet(ctx, pet); err != nil {
			return err
		}

		couple, err := tx.GetCouple(ctx, pet.CoupleID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if couple != nil {
			members = []string{couple.User1ID, couple.User2ID}
		}
		changed = pet
		return nil
	})
	if err != nil {
		return false, storeErr(err, "apply hunger")
	}
	if changed == nil {
		log.Debug().Str("pet_id", petID).Msg("Hunger task skipped")
		return false, nil
	}

	log.Info().Str("pet_id", petID).Msg("Pet became hungry")
	state := contentState(changed)
	for _, id := range members {
		s.notify.UpdateLiveStatus(ctx, id, state, nil, Delivery{})
		s.notify.Publish(id, WSMessage{Type: EventPetUpdated, Data: state})
	}
	return true, nil
}

// HandleHungerTask adapts ApplyHunger to the worker pool
func (s *PetService) HandleHungerTask(ctx context.Context, t *scheduler.Task) error {
	var p models.HungerTask
	if err := t.Decode(&p); err != nil || p.PetID == "" {
		return scheduler.Permanent(errors.Join(errors.New("invalid hunger task"), err))
	}
	_, err := s.ApplyHunger(ctx, p.PetID)
	return err
}

// SelectPet switches the active pet of the caller's couple and renames it.
// Selecting a type for the first time creates its pet.
func (s *PetService) SelectPet(ctx context.Context, accountID string, petType, name *string) (*models.Pet, error) {
	if petType == nil && name == nil {
		return nil, apperr.New(apperr.KindInvalidArgument, "pet type or name is required")
	}
	if petType != nil && !s.catalog.HasPetType(*petType) {
		return nil, apperr.New(apperr.KindInvalidArgument, "unknown pet type")
	}
	if name != nil && *name == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "pet name must not be empty")
	}

	var (
		selected  *models.Pet
		partnerID string
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		account, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return notFoundAs(err, "account")
		}
		if account.CoupleID == nil {
			return apperr.New(apperr.KindNotFound, "couple not found")
		}
		couple, err := tx.GetCouple(ctx, *account.CoupleID)
		if err != nil {
			return notFoundAs(err, "couple")
		}

		now := s.now()
		targetID := couple.ActivePetID
		if petType != nil {
			targetID = models.PetID(couple.ID, *petType)
		}

		pet, err := tx.GetPet(ctx, targetID)
		switch {
		case errors.Is(err, repository.ErrNotFound) && petType != nil:
			petName := *petType
			if name != nil {
				petName = *name
			}
			pet = newPet(couple.ID, *petType, petName, now)
		case err != nil:
			return notFoundAs(err, "pet")
		case name != nil:
			pet.Name = *name
			pet.LastUpdatedAt = now
		}
		if err := tx.PutPet(ctx, pet); err != nil {
			return err
		}

		if couple.ActivePetID != pet.ID {
			couple.ActivePetID = pet.ID
			if err := tx.PutCouple(ctx, couple); err != nil {
				return err
			}
			for _, id := range []string{couple.User1ID, couple.User2ID} {
				member, err := tx.GetAccount(ctx, id)
				if errors.Is(err, repository.ErrNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				member.ActivePetID = &pet.ID
				member.UpdatedAt = now
				if err := tx.PutAccount(ctx, member); err != nil {
					return err
				}
			}
		}

		selected = pet
		partnerID = couple.PartnerOf(accountID)
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "select pet")
	}

	s.notify.Publish(partnerID, WSMessage{Type: EventPetUpdated, Data: contentState(selected)})
	return selected, nil
}

// DrawPet spends coins on a random pet type. A type the couple already
// owns is converted into food.
func (s *PetService) DrawPet(ctx context.Context, accountID string) (*DrawResult, error) {
	types := s.catalog.PetTypes()
	petType := types[s.pick(len(types))]

	var res *DrawResult
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		account, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return notFoundAs(err, "account")
		}
		if account.CoupleID == nil {
			return apperr.New(apperr.KindNotFound, "couple not found")
		}
		couple, err := tx.GetCouple(ctx, *account.CoupleID)
		if err != nil {
			return notFoundAs(err, "couple")
		}
		if err := adjustCoins(couple, -s.game.DrawCost); err != nil {
			return err
		}

		res = &DrawResult{PetID: models.PetID(couple.ID, petType), PetType: petType}
		_, err = tx.GetPet(ctx, res.PetID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			if err := tx.PutPet(ctx, newPet(couple.ID, petType, petType, s.now())); err != nil {
				return err
			}
			res.IsNew = true
		case err != nil:
			return err
		default:
			couple.Food += s.game.DuplicateDrawFood
		}

		res.Coins, res.Food = couple.Coins, couple.Food
		return tx.PutCouple(ctx, couple)
	})
	if err != nil {
		return nil, storeErr(err, "draw pet")
	}

	log.Info().Str("account_id", accountID).Str("pet_type", petType).Bool("is_new", res.IsNew).Msg("Pet drawn")
	return res, nil
}
