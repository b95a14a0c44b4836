package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/boostcampwm2025/ios02-damago/internal/apperr"
	"github.com/boostcampwm2025/ios02-damago/internal/models"
)

func TestFetchCurrentStartsAtFirstItem(t *testing.T) {
	h := newHarness(t)
	h.pair(t, "alice", "bob")

	cur, err := h.interact.FetchCurrent(context.Background(), "bob", models.TrackDailyQuestion)
	if err != nil {
		t.Fatalf("FetchCurrent: %v", err)
	}
	if cur.Item.ID != "dq-001" || cur.IsFirst || cur.BothAnswered || cur.MyAnswer != nil || cur.LastAnsweredAt != nil {
		t.Fatalf("unexpected current item: %+v", cur)
	}
}

func TestFetchCurrentRequiresCouple(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.pairs.IssuePairingCode(ctx, "alice"); err != nil {
		t.Fatalf("IssuePairingCode: %v", err)
	}
	_, err := h.interact.FetchCurrent(ctx, "alice", models.TrackDailyQuestion)
	assertKind(t, err, apperr.KindNotFound)

	_, err = h.interact.FetchCurrent(ctx, "alice", models.Track("quiz"))
	assertKind(t, err, apperr.KindInvalidArgument)
}

func TestSubmitAnswerCompletesOnSecondAnswer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	coupleID := h.pair(t, "alice", "bob")

	res, err := h.interact.SubmitAnswer(ctx, "alice", models.TrackDailyQuestion, "dq-001", "  this morning ")
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if res.CompletedNow || res.BothAnswered || deref(res.MyAnswer) != "this morning" || res.PartnerAnswer != nil || !res.IsFirst {
		t.Fatalf("unexpected first submission: %+v", res)
	}

	msgs := h.gateway.to("push-bob")
	if len(msgs) != 1 || msgs[0].Title != "Your partner answered today's question!" {
		t.Fatalf("unexpected partner push: %+v", msgs)
	}
	if msgs[0].Data["type"] != string(models.TrackDailyQuestion) || msgs[0].Data["questionID"] != "dq-001" {
		t.Fatalf("unexpected push data: %v", msgs[0].Data)
	}

	res, err = h.interact.SubmitAnswer(ctx, "bob", models.TrackDailyQuestion, "dq-001", "at lunch")
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if !res.CompletedNow || !res.BothAnswered || res.Reward == nil || res.Coins != 30 || res.Food != 13 {
		t.Fatalf("unexpected completion: %+v", res)
	}
	if deref(res.PartnerAnswer) != "this morning" {
		t.Fatalf("partner answer %v", res.PartnerAnswer)
	}
	if msgs := h.gateway.to("push-alice"); len(msgs) != 1 || msgs[0].Title != "Today's question complete!" {
		t.Fatalf("unexpected completion push: %+v", msgs)
	}

	c := h.couple(t, coupleID)
	if c.DailyQuestion.TotalCompleted != 1 || c.DailyQuestion.LastCompletedAt == nil || c.BalanceGame.TotalCompleted != 0 {
		t.Fatalf("unexpected progress: %+v", c)
	}

	// answering again after completion rewards nothing
	res, err = h.interact.SubmitAnswer(ctx, "bob", models.TrackDailyQuestion, "dq-001", "changed my mind")
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if res.CompletedNow || res.Coins != 30 {
		t.Fatalf("resubmission must not complete again: %+v", res)
	}
}

func TestCooldownRotation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.pair(t, "alice", "bob")

	for _, id := range []string{"alice", "bob"} {
		if _, err := h.interact.SubmitAnswer(ctx, id, models.TrackDailyQuestion, "dq-001", "yes"); err != nil {
			t.Fatalf("SubmitAnswer: %v", err)
		}
	}

	h.clock.Advance(11 * time.Hour)
	cur, err := h.interact.FetchCurrent(ctx, "alice", models.TrackDailyQuestion)
	if err != nil {
		t.Fatalf("FetchCurrent: %v", err)
	}
	if cur.Item.ID != "dq-001" || !cur.BothAnswered || deref(cur.PartnerAnswer) != "yes" {
		t.Fatalf("completed item must stay during cooldown: %+v", cur)
	}

	h.clock.Advance(time.Hour)
	cur, err = h.interact.FetchCurrent(ctx, "alice", models.TrackDailyQuestion)
	if err != nil {
		t.Fatalf("FetchCurrent: %v", err)
	}
	if cur.Item.ID != "dq-002" || cur.BothAnswered {
		t.Fatalf("expected the next item after cooldown: %+v", cur)
	}

	// tracks rotate independently
	cur, err = h.interact.FetchCurrent(ctx, "alice", models.TrackBalanceGame)
	if err != nil || cur.Item.ID != "bg-001" {
		t.Fatalf("balance game should start at bg-001: %+v %v", cur, err)
	}
}

func TestFetchCurrentRunsOutOfContent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	coupleID := h.pair(t, "alice", "bob")
	last := h.clock.Now().Add(-24 * time.Hour)
	h.setCouple(t, coupleID, func(c *models.Couple) {
		c.BalanceGame = models.ProgressStat{TotalCompleted: 2, LastCompletedAt: &last}
	})

	_, err := h.interact.FetchCurrent(ctx, "alice", models.TrackBalanceGame)
	assertKind(t, err, apperr.KindNotFound)
}

func TestConcurrentSubmitCompletesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	coupleID := h.pair(t, "alice", "bob")

	var wg sync.WaitGroup
	results := make([]*SubmitResult, 2)
	errs := make([]error, 2)
	for i, id := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			results[i], errs[i] = h.interact.SubmitAnswer(ctx, id, models.TrackBalanceGame, "bg-001", "2")
		}(i, id)
	}
	wg.Wait()

	completed := 0
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("SubmitAnswer %d: %v", i, errs[i])
		}
		if results[i].CompletedNow {
			completed++
		}
	}
	if completed != 1 {
		t.Fatalf("expected exactly one completion, got %d", completed)
	}

	c := h.couple(t, coupleID)
	if c.Coins != 20 || c.Food != 12 || c.BalanceGame.TotalCompleted != 1 {
		t.Fatalf("reward must be credited once: coins=%d food=%d total=%d", c.Coins, c.Food, c.BalanceGame.TotalCompleted)
	}
}

func TestSubmitAnswerValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.pair(t, "alice", "bob")

	tests := []struct {
		name   string
		track  models.Track
		item   string
		answer string
		kind   apperr.Kind
	}{
		{"unknown track", models.Track("quiz"), "dq-001", "x", apperr.KindInvalidArgument},
		{"missing item", models.TrackDailyQuestion, "", "x", apperr.KindInvalidArgument},
		{"blank answer", models.TrackDailyQuestion, "dq-001", "   ", apperr.KindInvalidArgument},
		{"bad choice", models.TrackBalanceGame, "bg-001", "3", apperr.KindInvalidArgument},
		{"unknown item", models.TrackDailyQuestion, "dq-999", "x", apperr.KindNotFound},
		{"item of other track", models.TrackBalanceGame, "dq-001", "1", apperr.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.interact.SubmitAnswer(ctx, "alice", tt.track, tt.item, tt.answer)
			assertKind(t, err, tt.kind)
		})
	}
}

func TestBalanceGamePushWording(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.pair(t, "alice", "bob")
	nick := "Mina"
	if _, err := h.users.UpdateProfile(ctx, "alice", ProfileUpdate{Nickname: &nick}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}

	if _, err := h.interact.SubmitAnswer(ctx, "alice", models.TrackBalanceGame, "bg-001", "1"); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	msgs := h.gateway.to("push-bob")
	if len(msgs) != 1 {
		t.Fatalf("expected one push, got %d", len(msgs))
	}
	if msgs[0].Title != "Your partner answered the balance game!" || msgs[0].Body != "Mina made a choice. Pick yours to see the results!" {
		t.Fatalf("unexpected wording: %q %q", msgs[0].Title, msgs[0].Body)
	}
	if msgs[0].Data["gameID"] != "bg-001" {
		t.Fatalf("unexpected data: %v", msgs[0].Data)
	}
}

func TestHistory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.pair(t, "alice", "bob")

	for _, item := range []string{"dq-001", "dq-002"} {
		for _, id := range []string{"alice", "bob"} {
			if _, err := h.interact.SubmitAnswer(ctx, id, models.TrackDailyQuestion, item, id+" on "+item); err != nil {
				t.Fatalf("SubmitAnswer: %v", err)
			}
		}
		h.clock.Advance(13 * time.Hour)
	}
	if _, err := h.interact.SubmitAnswer(ctx, "alice", models.TrackDailyQuestion, "dq-003", "pending"); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}

	items, err := h.interact.History(ctx, "bob", models.TrackDailyQuestion, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 completed items, got %d", len(items))
	}
	if items[0].Item.ID != "dq-002" || items[1].Item.ID != "dq-001" {
		t.Fatalf("history must be newest first: %s, %s", items[0].Item.ID, items[1].Item.ID)
	}
	if items[0].Item.Text == "" || items[0].IsFirst || deref(items[0].MyAnswer) != "bob on dq-002" || deref(items[0].PartnerAnswer) != "alice on dq-002" {
		t.Fatalf("unexpected history item: %+v", items[0])
	}

	items, err = h.interact.History(ctx, "bob", models.TrackDailyQuestion, 1)
	if err != nil || len(items) != 1 {
		t.Fatalf("limit not applied: %d %v", len(items), err)
	}
}
