package memstore

import "github.com/boostcampwm2025/ios02-damago/internal/models"

func ptr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneAccount(a *models.Account) *models.Account {
	c := *a
	c.PartnerID = ptr(a.PartnerID)
	c.CoupleID = ptr(a.CoupleID)
	c.ActivePetID = ptr(a.ActivePetID)
	c.Nickname = ptr(a.Nickname)
	c.AnniversaryDate = ptr(a.AnniversaryDate)
	c.PushToken = ptr(a.PushToken)
	c.LiveStartToken = ptr(a.LiveStartToken)
	c.LiveUpdateToken = ptr(a.LiveUpdateToken)
	return &c
}

func cloneCouple(c *models.Couple) *models.Couple {
	out := *c
	out.AnniversaryDate = ptr(c.AnniversaryDate)
	out.DailyQuestion.LastCompletedAt = ptr(c.DailyQuestion.LastCompletedAt)
	out.BalanceGame.LastCompletedAt = ptr(c.BalanceGame.LastCompletedAt)
	return &out
}

func clonePet(p *models.Pet) *models.Pet {
	out := *p
	out.LastFedAt = ptr(p.LastFedAt)
	return &out
}

func cloneAnswer(a *models.Answer) *models.Answer {
	out := *a
	out.FirstAnswer = ptr(a.FirstAnswer)
	out.FirstAnsweredAt = ptr(a.FirstAnsweredAt)
	out.SecondAnswer = ptr(a.SecondAnswer)
	out.SecondAnsweredAt = ptr(a.SecondAnsweredAt)
	out.CompletedAt = ptr(a.CompletedAt)
	return &out
}
