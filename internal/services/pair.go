package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/boostcampwm2025/ios02-damago/internal/apperr"
	"github.com/boostcampwm2025/ios02-damago/internal/catalog"
	"github.com/boostcampwm2025/ios02-damago/internal/config"
	"github.com/boostcampwm2025/ios02-damago/internal/models"
	"github.com/boostcampwm2025/ios02-damago/internal/repository"
)

const (
	codeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"
	codeLength   = 8
	codeAttempts = 10
)

// PairService handles accounts, pairing and the shared couple economy
type PairService struct {
	store        repository.Store
	catalog      *catalog.Catalog
	notify       *NotifyService
	startingFood int64
	now          func() time.Time
	newCode      func() (string, error)
}

// NewPairService creates a new pair service
func NewPairService(store repository.Store, cat *catalog.Catalog, notify *NotifyService, game config.GameConfig) *PairService {
	return &PairService{
		store:        store,
		catalog:      cat,
		notify:       notify,
		startingFood: game.StartingFood,
		now:          time.Now,
		newCode:      generateCode,
	}
}

// CodeInfo is the pairing code of an account
type CodeInfo struct {
	Code        string `json:"code"`
	PartnerCode string `json:"partner_code,omitempty"`
	Created     bool   `json:"created"`
}

// ConnectResult describes a couple after a connect call
type ConnectResult struct {
	CoupleID  string `json:"couple_id"`
	PartnerID string `json:"partner_id"`
	Created   bool   `json:"created"`
}

// generateCode returns a random pairing code
func generateCode() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	var b strings.Builder
	for i := 0; i < codeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random: %w", err)
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// IssuePairingCode returns the pairing code of an account, creating the
// account on first call
func (s *PairService) IssuePairingCode(ctx context.Context, accountID string) (*CodeInfo, error) {
	if accountID == "" {
		return nil, apperr.New(apperr.KindUnauthenticated, "account id required")
	}

	var info *CodeInfo
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		info = nil

		account, err := tx.GetAccount(ctx, accountID)
		if err == nil {
			info = &CodeInfo{Code: account.PairingCode}
			if account.PartnerID != nil {
				partner, err := tx.GetAccount(ctx, *account.PartnerID)
				if err != nil && !errors.Is(err, repository.ErrNotFound) {
					return err
				}
				if partner != nil {
					info.PartnerCode = partner.PairingCode
				}
			}
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		code, err := s.uniqueCode(ctx, tx)
		if err != nil {
			return err
		}
		now := s.now()
		info = &CodeInfo{Code: code, Created: true}
		return tx.PutAccount(ctx, &models.Account{
			ID:                accountID,
			PairingCode:       code,
			PushEnabled:       true,
			LiveStatusEnabled: true,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	})
	if err != nil {
		return nil, storeErr(err, "issue pairing code")
	}

	if info.Created {
		log.Info().Str("account_id", accountID).Msg("Account created")
	}
	return info, nil
}

func (s *PairService) uniqueCode(ctx context.Context, tx repository.Tx) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code, err := s.newCode()
		if err != nil {
			return "", err
		}
		_, err = tx.GetAccountByCode(ctx, code)
		if errors.Is(err, repository.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", apperr.New(apperr.KindUnavailable, "failed to generate a unique pairing code")
}

// Connect pairs an account with the owner of targetCode
func (s *PairService) Connect(ctx context.Context, accountID, targetCode string) (*ConnectResult, error) {
	code := strings.ToUpper(strings.TrimSpace(targetCode))
	if code == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "target code is required")
	}

	var res *ConnectResult
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		res = nil

		me, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return notFoundAs(err, "account")
		}
		partner, err := tx.GetAccountByCode(ctx, code)
		if err != nil {
			return notFoundAs(err, "pairing code")
		}

		if partner.ID == me.ID {
			return apperr.New(apperr.KindConflict, "cannot pair with yourself")
		}
		if deref(me.PartnerID) == partner.ID && deref(partner.PartnerID) == me.ID {
			res = &ConnectResult{CoupleID: deref(me.CoupleID), PartnerID: partner.ID}
			return nil
		}
		if me.PartnerID != nil {
			return apperr.New(apperr.KindConflict, "account is already paired")
		}
		if partner.PartnerID != nil {
			return apperr.New(apperr.KindConflict, "partner is already paired")
		}

		first, second := me, partner
		if partner.PairingCode < me.PairingCode {
			first, second = partner, me
		}
		coupleID := first.PairingCode + "_" + second.PairingCode

		_, err = tx.GetCouple(ctx, coupleID)
		if err == nil {
			res = &ConnectResult{CoupleID: coupleID, PartnerID: partner.ID}
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		now := s.now()
		starters := s.catalog.StarterPets()
		activePetID := models.PetID(coupleID, starters[0])

		for _, petType := range starters {
			if err := tx.PutPet(ctx, newPet(coupleID, petType, petType, now)); err != nil {
				return err
			}
		}
		if err := tx.PutCouple(ctx, &models.Couple{
			ID:          coupleID,
			User1ID:     first.ID,
			User2ID:     second.ID,
			Food:        s.startingFood,
			ActivePetID: activePetID,
			CreatedAt:   now,
		}); err != nil {
			return err
		}

		me.PartnerID, partner.PartnerID = &partner.ID, &me.ID
		for _, a := range []*models.Account{me, partner} {
			a.CoupleID = &coupleID
			a.ActivePetID = &activePetID
			a.UpdatedAt = now
			if err := tx.PutAccount(ctx, a); err != nil {
				return err
			}
		}

		res = &ConnectResult{CoupleID: coupleID, PartnerID: partner.ID, Created: true}
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "connect couple")
	}

	if res.Created {
		log.Info().Str("couple_id", res.CoupleID).Str("account_id", accountID).Str("partner_id", res.PartnerID).Msg("Couple created")
		s.notify.Publish(res.PartnerID, WSMessage{
			Type: EventPairCreated,
			Data: map[string]string{"couple_id": res.CoupleID, "partner_id": accountID},
		})
	}
	return res, nil
}

// AdjustCoins changes the coin balance of a couple and returns the new
// balance. A debit larger than the balance fails and changes nothing.
func (s *PairService) AdjustCoins(ctx context.Context, coupleID string, delta int64) (int64, error) {
	var balance int64
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		couple, err := tx.GetCouple(ctx, coupleID)
		if err != nil {
			return notFoundAs(err, "couple")
		}
		if err := adjustCoins(couple, delta); err != nil {
			return err
		}
		balance = couple.Coins
		return tx.PutCouple(ctx, couple)
	})
	if err != nil {
		return 0, storeErr(err, "adjust coins")
	}
	return balance, nil
}

func adjustCoins(couple *models.Couple, delta int64) error {
	if couple.Coins+delta < 0 {
		return apperr.New(apperr.KindInsufficientResource, "not enough coins")
	}
	couple.Coins += delta
	return nil
}

// Withdraw deletes an account together with its couple, pets and answers.
// The partner stays and loses every couple reference.
func (s *PairService) Withdraw(ctx context.Context, accountID string) error {
	var partnerID string
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		partnerID = ""

		account, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return notFoundAs(err, "account")
		}

		if account.PartnerID != nil {
			partner, err := tx.GetAccount(ctx, *account.PartnerID)
			switch {
			case err == nil:
				partner.ClearCouple()
				partner.UpdatedAt = s.now()
				if err := tx.PutAccount(ctx, partner); err != nil {
					return err
				}
				partnerID = partner.ID
			case !errors.Is(err, repository.ErrNotFound):
				return err
			}
		}

		if account.CoupleID != nil {
			if err := tx.DeleteCouple(ctx, *account.CoupleID); err != nil {
				return err
			}
		}
		return tx.DeleteAccount(ctx, accountID)
	})
	if err != nil {
		return storeErr(err, "withdraw account")
	}

	log.Info().Str("account_id", accountID).Msg("Account withdrawn")
	if partnerID != "" {
		s.notify.Publish(partnerID, WSMessage{Type: EventPairDeleted})
	}
	return nil
}
