package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/boostcampwm2025/ios02-damago/internal/apperr"
	"github.com/boostcampwm2025/ios02-damago/internal/models"
	"github.com/boostcampwm2025/ios02-damago/internal/repository"
)

const pokeTitle = "Poke!"

// UserService handles profiles, device tokens and partner pokes
type UserService struct {
	store  repository.Store
	pets   *PetService
	notify *NotifyService
	now    func() time.Time
}

// NewUserService creates a new user service
func NewUserService(store repository.Store, pets *PetService, notify *NotifyService) *UserService {
	return &UserService{
		store:  store,
		pets:   pets,
		notify: notify,
		now:    time.Now,
	}
}

// Info aggregates an account with its couple economy and active pet
type Info struct {
	AccountID         string      `json:"account_id"`
	PairingCode       string      `json:"pairing_code"`
	CoupleID          *string     `json:"couple_id"`
	PartnerID         *string     `json:"partner_id"`
	Nickname          *string     `json:"nickname"`
	AnniversaryDate   *time.Time  `json:"anniversary_date"`
	PushEnabled       bool        `json:"push_enabled"`
	LiveStatusEnabled bool        `json:"live_status_enabled"`
	Pet               *models.Pet `json:"pet"`
	Coins             int64       `json:"coins"`
	Food              int64       `json:"food"`
}

// ProfileUpdate lists the profile fields to change; nil fields are kept
type ProfileUpdate struct {
	Nickname          *string `json:"nickname"`
	AnniversaryDate   *string `json:"anniversary_date"`
	PushEnabled       *bool   `json:"push_enabled"`
	LiveStatusEnabled *bool   `json:"live_status_enabled"`
	PetName           *string `json:"pet_name"`
	PetType           *string `json:"pet_type"`
}

func (u ProfileUpdate) empty() bool {
	return u.Nickname == nil && u.AnniversaryDate == nil && u.PushEnabled == nil &&
		u.LiveStatusEnabled == nil && u.PetName == nil && u.PetType == nil
}

// TokenUpdate lists the device tokens to store; empty values are ignored
type TokenUpdate struct {
	PushToken       string `json:"push_token"`
	LiveStartToken  string `json:"live_start_token"`
	LiveUpdateToken string `json:"live_update_token"`
}

// parseDate accepts an ISO-8601 timestamp or a plain date
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, apperr.Wrap(apperr.KindInvalidArgument, "invalid date format, use ISO 8601", err)
	}
	return t, nil
}

// GetInfo returns the account with its active pet and couple balances
func (s *UserService) GetInfo(ctx context.Context, accountID string) (*Info, error) {
	var info *Info
	err := s.store.View(ctx, func(ctx context.Context, tx repository.Tx) error {
		account, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return notFoundAs(err, "account")
		}
		info = &Info{
			AccountID:         account.ID,
			PairingCode:       account.PairingCode,
			CoupleID:          account.CoupleID,
			PartnerID:         account.PartnerID,
			Nickname:          account.Nickname,
			AnniversaryDate:   account.AnniversaryDate,
			PushEnabled:       account.PushEnabled,
			LiveStatusEnabled: account.LiveStatusEnabled,
		}

		if account.ActivePetID != nil {
			pet, err := tx.GetPet(ctx, *account.ActivePetID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			info.Pet = pet
		}
		if account.CoupleID != nil {
			couple, err := tx.GetCouple(ctx, *account.CoupleID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			if couple != nil {
				info.Coins, info.Food = couple.Coins, couple.Food
			}
		}
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "get account info")
	}
	return info, nil
}

// UpdateProfile changes profile fields and notification toggles. The
// anniversary date is shared by the couple and both members.
func (s *UserService) UpdateProfile(ctx context.Context, accountID string, u ProfileUpdate) (*Info, error) {
	if u.empty() {
		return nil, apperr.New(apperr.KindInvalidArgument, "at least one field is required")
	}

	var anniversary *time.Time
	if u.AnniversaryDate != nil {
		t, err := parseDate(strings.TrimSpace(*u.AnniversaryDate))
		if err != nil {
			return nil, err
		}
		anniversary = &t
	}

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		account, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return notFoundAs(err, "account")
		}

		now := s.now()
		if u.Nickname != nil {
			account.Nickname = u.Nickname
		}
		if u.PushEnabled != nil {
			account.PushEnabled = *u.PushEnabled
		}
		if u.LiveStatusEnabled != nil {
			account.LiveStatusEnabled = *u.LiveStatusEnabled
		}
		account.UpdatedAt = now

		if anniversary != nil {
			account.AnniversaryDate = anniversary
			if err := s.shareAnniversary(ctx, tx, account, *anniversary, now); err != nil {
				return err
			}
		}
		return tx.PutAccount(ctx, account)
	})
	if err != nil {
		return nil, storeErr(err, "update profile")
	}

	if u.PetName != nil || u.PetType != nil {
		if _, err := s.pets.SelectPet(ctx, accountID, u.PetType, u.PetName); err != nil {
			return nil, err
		}
	}

	log.Info().Str("account_id", accountID).Msg("Profile updated")
	return s.GetInfo(ctx, accountID)
}

func (s *UserService) shareAnniversary(ctx context.Context, tx repository.Tx, account *models.Account, date, now time.Time) error {
	if account.CoupleID == nil {
		return nil
	}
	couple, err := tx.GetCouple(ctx, *account.CoupleID)
	if err != nil {
		return notFoundAs(err, "couple")
	}
	couple.AnniversaryDate = &date
	if err := tx.PutCouple(ctx, couple); err != nil {
		return err
	}

	partner, err := tx.GetAccount(ctx, couple.PartnerOf(account.ID))
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	partner.AnniversaryDate = &date
	partner.UpdatedAt = now
	return tx.PutAccount(ctx, partner)
}

// UpdateTokens stores the device tokens used for alerts and live status
func (s *UserService) UpdateTokens(ctx context.Context, accountID string, u TokenUpdate) error {
	if u.PushToken == "" && u.LiveStartToken == "" && u.LiveUpdateToken == "" {
		return apperr.New(apperr.KindInvalidArgument, "at least one token is required")
	}

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		account, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return notFoundAs(err, "account")
		}
		if u.PushToken != "" {
			account.PushToken = &u.PushToken
		}
		if u.LiveStartToken != "" {
			account.LiveStartToken = &u.LiveStartToken
		}
		if u.LiveUpdateToken != "" {
			account.LiveUpdateToken = &u.LiveUpdateToken
		}
		account.UpdatedAt = s.now()
		return tx.PutAccount(ctx, account)
	})
	return storeErr(err, "update tokens")
}

// ConnectionStatus reports whether the account belongs to a couple
func (s *UserService) ConnectionStatus(ctx context.Context, accountID string) (bool, error) {
	var connected bool
	err := s.store.View(ctx, func(ctx context.Context, tx repository.Tx) error {
		account, err := tx.GetAccount(ctx, accountID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		connected = account.CoupleID != nil
		return nil
	})
	if err != nil {
		return false, storeErr(err, "check connection")
	}
	return connected, nil
}

// Poke sends a push to the caller's partner
func (s *UserService) Poke(ctx context.Context, accountID, message string) (Outcome, error) {
	var account *models.Account
	err := s.store.View(ctx, func(ctx context.Context, tx repository.Tx) error {
		a, err := tx.GetAccount(ctx, accountID)
		account = a
		return notFoundAs(err, "account")
	})
	if err != nil {
		return OutcomeFailed, storeErr(err, "poke partner")
	}
	if account.PartnerID == nil {
		return OutcomeFailed, apperr.New(apperr.KindInvalidArgument, "account is not in a couple")
	}

	body := message
	if body == "" {
		nickname := deref(account.Nickname)
		if nickname == "" {
			nickname = "Your partner"
		}
		body = nickname + " poked you!"
	}

	partnerID := *account.PartnerID
	outcome := s.notify.SendPush(ctx, partnerID, pokeTitle, body, map[string]string{
		"type":    "poke",
		"fromUID": accountID,
		"message": message,
	}, Delivery{})
	s.notify.Publish(partnerID, WSMessage{Type: EventPoke, Message: body})
	return outcome, nil
}
