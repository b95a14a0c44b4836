package handlers

import (
	"github.com/boostcampwm2025/ios02-damago/internal/models"
	"github.com/boostcampwm2025/ios02-damago/internal/services"
)

// PetResponse is the wire form of a pet
type PetResponse struct {
	ID            string  `json:"id"`
	Type          string  `json:"pet_type"`
	Name          string  `json:"pet_name"`
	Level         int     `json:"level"`
	CurrentExp    int     `json:"current_exp"`
	MaxExp        int     `json:"max_exp"`
	IsHungry      bool    `json:"is_hungry"`
	StatusMessage string  `json:"status_message"`
	LastFedAt     *string `json:"last_fed_at"`
	LastUpdatedAt string  `json:"last_updated_at"`
}

func newPetResponse(p *models.Pet) *PetResponse {
	if p == nil {
		return nil
	}
	return &PetResponse{
		ID:            p.ID,
		Type:          p.Type,
		Name:          p.Name,
		Level:         p.Level,
		CurrentExp:    p.Exp,
		MaxExp:        services.RequiredExp(p.Level),
		IsHungry:      p.Hungry,
		StatusMessage: p.StatusMessage,
		LastFedAt:     models.FormatTimePtr(p.LastFedAt),
		LastUpdatedAt: models.FormatTime(p.LastUpdatedAt),
	}
}

// InfoResponse is the wire form of an account overview
type InfoResponse struct {
	AccountID         string       `json:"account_id"`
	PairingCode       string       `json:"pairing_code"`
	CoupleID          *string      `json:"couple_id"`
	PartnerID         *string      `json:"partner_id"`
	Nickname          *string      `json:"nickname"`
	AnniversaryDate   *string      `json:"anniversary_date"`
	PushEnabled       bool         `json:"push_enabled"`
	LiveStatusEnabled bool         `json:"live_status_enabled"`
	Pet               *PetResponse `json:"pet_status"`
	TotalCoin         int64        `json:"total_coin"`
	Food              int64        `json:"food"`
}

func newInfoResponse(info *services.Info) InfoResponse {
	return InfoResponse{
		AccountID:         info.AccountID,
		PairingCode:       info.PairingCode,
		CoupleID:          info.CoupleID,
		PartnerID:         info.PartnerID,
		Nickname:          info.Nickname,
		AnniversaryDate:   models.FormatTimePtr(info.AnniversaryDate),
		PushEnabled:       info.PushEnabled,
		LiveStatusEnabled: info.LiveStatusEnabled,
		Pet:               newPetResponse(info.Pet),
		TotalCoin:         info.Coins,
		Food:              info.Food,
	}
}

// ItemResponse is the wire form of a content item
type ItemResponse struct {
	ID      string `json:"id"`
	Seq     int    `json:"seq"`
	Content string `json:"content"`
	Option1 string `json:"option1,omitempty"`
	Option2 string `json:"option2,omitempty"`
}

func newItemResponse(item models.ContentItem) ItemResponse {
	return ItemResponse{
		ID:      item.ID,
		Seq:     item.Seq,
		Content: item.Text,
		Option1: item.Option1,
		Option2: item.Option2,
	}
}

// CurrentResponse is the wire form of the current item of a track
type CurrentResponse struct {
	ItemResponse
	User1Answer    *string `json:"user1_answer"`
	User2Answer    *string `json:"user2_answer"`
	MyAnswer       *string `json:"my_answer"`
	PartnerAnswer  *string `json:"partner_answer"`
	IsUser1        bool    `json:"is_user1"`
	BothAnswered   bool    `json:"both_answered"`
	LastAnsweredAt *string `json:"last_answered_at"`
}

func newCurrentResponse(cur *services.CurrentItem) CurrentResponse {
	return CurrentResponse{
		ItemResponse:   newItemResponse(cur.Item),
		User1Answer:    cur.FirstAnswer,
		User2Answer:    cur.SecondAnswer,
		MyAnswer:       cur.MyAnswer,
		PartnerAnswer:  cur.PartnerAnswer,
		IsUser1:        cur.IsFirst,
		BothAnswered:   cur.BothAnswered,
		LastAnsweredAt: models.FormatTimePtr(cur.LastAnsweredAt),
	}
}

// HistoryResponse is the wire form of one completed item
type HistoryResponse struct {
	ItemResponse
	MyAnswer      *string `json:"my_answer"`
	PartnerAnswer *string `json:"partner_answer"`
	IsUser1       bool    `json:"is_user1"`
	CompletedAt   *string `json:"completed_at"`
}

func newHistoryResponse(items []services.HistoryItem) []HistoryResponse {
	out := make([]HistoryResponse, 0, len(items))
	for _, it := range items {
		out = append(out, HistoryResponse{
			ItemResponse:  newItemResponse(it.Item),
			MyAnswer:      it.MyAnswer,
			PartnerAnswer: it.PartnerAnswer,
			IsUser1:       it.IsFirst,
			CompletedAt:   models.FormatTimePtr(it.CompletedAt),
		})
	}
	return out
}
