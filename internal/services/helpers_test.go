package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/boostcampwm2025/ios02-damago/internal/apperr"
	"github.com/boostcampwm2025/ios02-damago/internal/catalog"
	"github.com/boostcampwm2025/ios02-damago/internal/config"
	"github.com/boostcampwm2025/ios02-damago/internal/models"
	"github.com/boostcampwm2025/ios02-damago/internal/push"
	"github.com/boostcampwm2025/ios02-damago/internal/repository"
	"github.com/boostcampwm2025/ios02-damago/internal/repository/memstore"
	"github.com/boostcampwm2025/ios02-damago/internal/scheduler"
)

var testGame = config.GameConfig{
	HungerDelay:       4 * time.Hour,
	HungerSlack:       5 * time.Second,
	FeedExp:           10,
	StartingFood:      10,
	Cooldown:          12 * time.Hour,
	DrawCost:          100,
	DuplicateDrawFood: 5,
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// fakeGateway records messages and returns queued errors in order
type fakeGateway struct {
	mu   sync.Mutex
	sent []push.Message
	errs []error
}

func (g *fakeGateway) Send(_ context.Context, msg push.Message) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, msg)
	if len(g.errs) == 0 {
		return nil
	}
	err := g.errs[0]
	g.errs = g.errs[1:]
	return err
}

func (g *fakeGateway) fail(errs ...error) {
	g.mu.Lock()
	g.errs = append(g.errs, errs...)
	g.mu.Unlock()
}

func (g *fakeGateway) messages() []push.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]push.Message(nil), g.sent...)
}

func (g *fakeGateway) to(token string) []push.Message {
	var out []push.Message
	for _, m := range g.messages() {
		if m.Token == token {
			out = append(out, m)
		}
	}
	return out
}

type harness struct {
	store    *memstore.Store
	catalog  *catalog.Catalog
	gateway  *fakeGateway
	queue    *scheduler.MemoryQueue
	clock    *clock
	notify   *NotifyService
	pairs    *PairService
	pets     *PetService
	interact *InteractionService
	users    *UserService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cat, err := catalog.Load(context.Background(), "../catalog/testdata/catalog.yaml", nil)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	h := &harness{
		store:   memstore.New(),
		catalog: cat,
		gateway: &fakeGateway{},
		queue:   scheduler.NewMemoryQueue(5),
		clock:   &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	h.notify = NewNotifyService(h.store, h.gateway, h.queue, nil)
	h.pairs = NewPairService(h.store, cat, h.notify, testGame)
	h.pets = NewPetService(h.store, cat, h.notify, h.queue, testGame)
	h.interact = NewInteractionService(h.store, cat, h.notify, testGame)
	h.users = NewUserService(h.store, h.pets, h.notify)

	h.notify.now = h.clock.Now
	h.pairs.now = h.clock.Now
	h.pets.now = h.clock.Now
	h.interact.now = h.clock.Now
	h.users.now = h.clock.Now

	var mu sync.Mutex
	n := 0
	h.pairs.newCode = func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("CODE%04d", n), nil
	}
	return h
}

// pair creates two accounts with device tokens and connects them. The
// first account owns the smaller code and becomes the first member.
func (h *harness) pair(t *testing.T, a, b string) string {
	t.Helper()
	ctx := context.Background()

	for _, id := range []string{a, b} {
		if _, err := h.pairs.IssuePairingCode(ctx, id); err != nil {
			t.Fatalf("IssuePairingCode(%s): %v", id, err)
		}
		if err := h.users.UpdateTokens(ctx, id, TokenUpdate{
			PushToken:       "push-" + id,
			LiveStartToken:  "start-" + id,
			LiveUpdateToken: "update-" + id,
		}); err != nil {
			t.Fatalf("UpdateTokens(%s): %v", id, err)
		}
	}

	info, err := h.pairs.IssuePairingCode(ctx, b)
	if err != nil {
		t.Fatalf("IssuePairingCode(%s): %v", b, err)
	}
	res, err := h.pairs.Connect(ctx, a, info.Code)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return res.CoupleID
}

func (h *harness) account(t *testing.T, id string) *models.Account {
	t.Helper()
	var a *models.Account
	err := h.store.View(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		var err error
		a, err = tx.GetAccount(ctx, id)
		return err
	})
	if err != nil {
		t.Fatalf("GetAccount(%s): %v", id, err)
	}
	return a
}

func (h *harness) couple(t *testing.T, id string) *models.Couple {
	t.Helper()
	var c *models.Couple
	err := h.store.View(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		var err error
		c, err = tx.GetCouple(ctx, id)
		return err
	})
	if err != nil {
		t.Fatalf("GetCouple(%s): %v", id, err)
	}
	return c
}

func (h *harness) pet(t *testing.T, id string) *models.Pet {
	t.Helper()
	var p *models.Pet
	err := h.store.View(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		var err error
		p, err = tx.GetPet(ctx, id)
		return err
	})
	if err != nil {
		t.Fatalf("GetPet(%s): %v", id, err)
	}
	return p
}

// setCouple applies fn to a stored couple
func (h *harness) setCouple(t *testing.T, id string, fn func(c *models.Couple)) {
	t.Helper()
	err := h.store.RunInTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		c, err := tx.GetCouple(ctx, id)
		if err != nil {
			return err
		}
		fn(c)
		return tx.PutCouple(ctx, c)
	})
	if err != nil {
		t.Fatalf("update couple: %v", err)
	}
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind != kind {
		t.Fatalf("expected %s error, got %v", kind, err)
	}
}
