package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/boostcampwm2025/ios02-damago/internal/apperr"
	"github.com/boostcampwm2025/ios02-damago/internal/models"
	"github.com/boostcampwm2025/ios02-damago/internal/repository"
)

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateCode()
		if err != nil {
			t.Fatalf("generateCode: %v", err)
		}
		if len(code) != codeLength {
			t.Fatalf("code %q has length %d", code, len(code))
		}
		for _, r := range code {
			if !strings.ContainsRune(codeAlphabet, r) {
				t.Fatalf("code %q contains %q", code, r)
			}
		}
	}
}

func TestIssuePairingCodeIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.pairs.IssuePairingCode(ctx, "alice")
	if err != nil {
		t.Fatalf("IssuePairingCode: %v", err)
	}
	if !first.Created || first.Code != "CODE0001" {
		t.Fatalf("unexpected first issue: %+v", first)
	}

	again, err := h.pairs.IssuePairingCode(ctx, "alice")
	if err != nil {
		t.Fatalf("IssuePairingCode: %v", err)
	}
	if again.Created || again.Code != first.Code {
		t.Fatalf("expected the stored code, got %+v", again)
	}

	a := h.account(t, "alice")
	if !a.PushEnabled || !a.LiveStatusEnabled {
		t.Fatalf("new accounts start with notifications on: %+v", a)
	}
}

func TestIssuePairingCodeRetriesCollisions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.pairs.IssuePairingCode(ctx, "alice"); err != nil {
		t.Fatalf("IssuePairingCode: %v", err)
	}

	codes := []string{"CODE0001", "CODE0001", "FRESH001"}
	h.pairs.newCode = func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}
	info, err := h.pairs.IssuePairingCode(ctx, "bob")
	if err != nil {
		t.Fatalf("IssuePairingCode: %v", err)
	}
	if info.Code != "FRESH001" {
		t.Fatalf("expected collision to be skipped, got %s", info.Code)
	}

	h.pairs.newCode = func() (string, error) { return "CODE0001", nil }
	_, err = h.pairs.IssuePairingCode(ctx, "carol")
	assertKind(t, err, apperr.KindUnavailable)
}

func TestIssuePairingCodeReturnsPartnerCode(t *testing.T) {
	h := newHarness(t)
	h.pair(t, "alice", "bob")

	info, err := h.pairs.IssuePairingCode(context.Background(), "alice")
	if err != nil {
		t.Fatalf("IssuePairingCode: %v", err)
	}
	if info.Code != "CODE0001" || info.PartnerCode != "CODE0002" {
		t.Fatalf("unexpected codes: %+v", info)
	}
}

func TestConnectCreatesCouple(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	coupleID := h.pair(t, "bob", "alice")
	if coupleID != "CODE0001_CODE0002" {
		t.Fatalf("unexpected couple id %s", coupleID)
	}

	c := h.couple(t, coupleID)
	if c.User1ID != "bob" || c.User2ID != "alice" {
		t.Fatalf("first member must own the smaller code: %+v", c)
	}
	if c.Coins != 0 || c.Food != testGame.StartingFood {
		t.Fatalf("unexpected economy: coins=%d food=%d", c.Coins, c.Food)
	}
	if c.ActivePetID != models.PetID(coupleID, "Bunny") {
		t.Fatalf("unexpected active pet %s", c.ActivePetID)
	}
	for _, petType := range h.catalog.StarterPets() {
		p := h.pet(t, models.PetID(coupleID, petType))
		if p.Level != 1 || p.Exp != 0 || p.Hungry {
			t.Fatalf("unexpected starter pet: %+v", p)
		}
	}

	alice, bob := h.account(t, "alice"), h.account(t, "bob")
	if deref(alice.PartnerID) != "bob" || deref(bob.PartnerID) != "alice" {
		t.Fatalf("partners must be symmetric: %v %v", alice.PartnerID, bob.PartnerID)
	}
	if deref(alice.CoupleID) != coupleID || deref(bob.ActivePetID) != c.ActivePetID {
		t.Fatalf("accounts not linked to couple")
	}

	res, err := h.pairs.Connect(ctx, "alice", "CODE0001")
	if err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if res.Created || res.CoupleID != coupleID {
		t.Fatalf("reconnect must be a no-op success: %+v", res)
	}
}

func TestConnectRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.pair(t, "alice", "bob")
	if _, err := h.pairs.IssuePairingCode(ctx, "carol"); err != nil {
		t.Fatalf("IssuePairingCode: %v", err)
	}
	if _, err := h.pairs.IssuePairingCode(ctx, "dave"); err != nil {
		t.Fatalf("IssuePairingCode: %v", err)
	}

	tests := []struct {
		name    string
		account string
		code    string
		kind    apperr.Kind
	}{
		{"empty code", "carol", " ", apperr.KindInvalidArgument},
		{"unknown code", "carol", "NOPE2345", apperr.KindNotFound},
		{"unknown account", "zed", "CODE0003", apperr.KindNotFound},
		{"self", "carol", "CODE0003", apperr.KindConflict},
		{"target paired", "carol", "CODE0001", apperr.KindConflict},
		{"caller paired", "alice", "CODE0004", apperr.KindConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.pairs.Connect(ctx, tt.account, tt.code)
			assertKind(t, err, tt.kind)
		})
	}
}

func TestConnectAcceptsLowercaseCode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for _, id := range []string{"alice", "bob"} {
		if _, err := h.pairs.IssuePairingCode(ctx, id); err != nil {
			t.Fatalf("IssuePairingCode: %v", err)
		}
	}
	if _, err := h.pairs.Connect(ctx, "alice", " code0002 "); err != nil {
		t.Fatalf("Connect: %v", err)
	}
}

func TestConcurrentMutualConnect(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for _, id := range []string{"alice", "bob"} {
		if _, err := h.pairs.IssuePairingCode(ctx, id); err != nil {
			t.Fatalf("IssuePairingCode: %v", err)
		}
	}

	var wg sync.WaitGroup
	results := make([]*ConnectResult, 2)
	errs := make([]error, 2)
	for i, call := range []struct{ account, code string }{{"alice", "CODE0002"}, {"bob", "CODE0001"}} {
		wg.Add(1)
		go func(i int, account, code string) {
			defer wg.Done()
			results[i], errs[i] = h.pairs.Connect(ctx, account, code)
		}(i, call.account, call.code)
	}
	wg.Wait()

	created := 0
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("Connect %d: %v", i, errs[i])
		}
		if results[i].CoupleID != "CODE0001_CODE0002" {
			t.Fatalf("unexpected couple %s", results[i].CoupleID)
		}
		if results[i].Created {
			created++
		}
	}
	if created != 1 {
		t.Fatalf("expected exactly one creation, got %d", created)
	}
}

func TestConcurrentConnectToSameTarget(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for _, id := range []string{"alice", "bob", "carol"} {
		if _, err := h.pairs.IssuePairingCode(ctx, id); err != nil {
			t.Fatalf("IssuePairingCode: %v", err)
		}
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, account := range []string{"bob", "carol"} {
		wg.Add(1)
		go func(i int, account string) {
			defer wg.Done()
			_, errs[i] = h.pairs.Connect(ctx, account, "CODE0001")
		}(i, account)
	}
	wg.Wait()

	ok, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperr.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != 1 {
		t.Fatalf("expected one success and one conflict, got %d and %d", ok, conflicts)
	}

	alice := h.account(t, "alice")
	partner := h.account(t, deref(alice.PartnerID))
	if deref(partner.PartnerID) != "alice" {
		t.Fatalf("partner link is not symmetric")
	}
}

func TestAdjustCoins(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	coupleID := h.pair(t, "alice", "bob")

	balance, err := h.pairs.AdjustCoins(ctx, coupleID, 50)
	if err != nil || balance != 50 {
		t.Fatalf("credit: balance=%d err=%v", balance, err)
	}

	_, err = h.pairs.AdjustCoins(ctx, coupleID, -51)
	assertKind(t, err, apperr.KindInsufficientResource)
	if c := h.couple(t, coupleID); c.Coins != 50 {
		t.Fatalf("failed debit must not change the balance, got %d", c.Coins)
	}

	balance, err = h.pairs.AdjustCoins(ctx, coupleID, -50)
	if err != nil || balance != 0 {
		t.Fatalf("debit: balance=%d err=%v", balance, err)
	}

	_, err = h.pairs.AdjustCoins(ctx, "missing", 10)
	assertKind(t, err, apperr.KindNotFound)
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	coupleID := h.pair(t, "alice", "bob")
	if _, err := h.pairs.AdjustCoins(ctx, coupleID, 100); err != nil {
		t.Fatalf("credit: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.pairs.AdjustCoins(ctx, coupleID, -30); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 3 {
		t.Fatalf("expected 3 debits to succeed, got %d", succeeded)
	}
	if c := h.couple(t, coupleID); c.Coins != 10 {
		t.Fatalf("expected 10 coins left, got %d", c.Coins)
	}
}

func TestWithdraw(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	coupleID := h.pair(t, "alice", "bob")
	if _, err := h.interact.SubmitAnswer(ctx, "alice", models.TrackDailyQuestion, "dq-001", "hi"); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}

	if err := h.pairs.Withdraw(ctx, "alice"); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}

	bob := h.account(t, "bob")
	if bob.PartnerID != nil || bob.CoupleID != nil || bob.ActivePetID != nil || bob.AnniversaryDate != nil {
		t.Fatalf("partner must lose couple references: %+v", bob)
	}

	err := h.store.View(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.GetAccount(ctx, "alice"); !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("account still present: %v", err)
		}
		if _, err := tx.GetCouple(ctx, coupleID); !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("couple still present: %v", err)
		}
		if pets, _ := tx.ListPets(ctx, coupleID); len(pets) != 0 {
			t.Errorf("pets still present: %d", len(pets))
		}
		if _, err := tx.GetAnswer(ctx, coupleID, models.TrackDailyQuestion, "dq-001"); !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("answer still present: %v", err)
		}
		if _, err := tx.GetAccountByCode(ctx, "CODE0001"); !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("pairing code still reserved: %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}

	// the remaining account can pair again
	if _, err := h.pairs.IssuePairingCode(ctx, "carol"); err != nil {
		t.Fatalf("IssuePairingCode: %v", err)
	}
	if _, err := h.pairs.Connect(ctx, "bob", "CODE0003"); err != nil {
		t.Fatalf("Connect after withdraw: %v", err)
	}
}

func TestWithdrawUnpairedAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.pairs.IssuePairingCode(ctx, "alice"); err != nil {
		t.Fatalf("IssuePairingCode: %v", err)
	}
	if err := h.pairs.Withdraw(ctx, "alice"); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	assertKind(t, h.pairs.Withdraw(ctx, "alice"), apperr.KindNotFound)
}
