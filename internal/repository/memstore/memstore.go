// Package memstore is an in-memory repository.Store with optimistic
// concurrency control. It backs tests and single-process local runs.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/boostcampwm2025/ios02-damago/internal/metrics"
	"github.com/boostcampwm2025/ios02-damago/internal/models"
	"github.com/boostcampwm2025/ios02-damago/internal/repository"
)

const defaultMaxAttempts = 25

var (
	errConflict = errors.New("memstore: read set changed before commit")
	errReadOnly = errors.New("memstore: write in read-only transaction")
)

type doc struct {
	version uint64
	value   any // nil marks a deleted document
}

// Store keeps documents in memory. Every transaction records the version of
// each document it reads and commits only if none of them changed.
type Store struct {
	mu          sync.Mutex
	seq         uint64
	docs        map[string]*doc
	maxAttempts int
}

// New creates an empty store
func New() *Store {
	return &Store{docs: make(map[string]*doc), maxAttempts: defaultMaxAttempts}
}

// RunInTx runs fn and commits its writes atomically, re-running on conflict
func (s *Store) RunInTx(ctx context.Context, fn repository.TxFunc) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		t := &tx{s: s, reads: map[string]uint64{}, writes: map[string]any{}}
		err := fn(ctx, t)
		if err == nil {
			err = s.commit(t)
		}
		if err == nil {
			return nil
		}
		if !errors.Is(err, errConflict) {
			return err
		}
		metrics.TxRetries.Inc()
		if attempt >= s.maxAttempts {
			return fmt.Errorf("%w: %v", repository.ErrConflict, err)
		}
	}
}

// View runs fn without the ability to write
func (s *Store) View(ctx context.Context, fn repository.TxFunc) error {
	return fn(ctx, &tx{s: s, reads: map[string]uint64{}, writes: map[string]any{}, readOnly: true})
}

func (s *Store) commit(t *tx) error {
	if len(t.writes) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, seen := range t.reads {
		if s.versionLocked(key) != seen {
			return errConflict
		}
	}
	for key, value := range t.writes {
		s.seq++
		s.docs[key] = &doc{version: s.seq, value: value}
	}
	return nil
}

func (s *Store) versionLocked(key string) uint64 {
	if d, ok := s.docs[key]; ok {
		return d.version
	}
	return 0
}

type tx struct {
	s        *Store
	reads    map[string]uint64
	writes   map[string]any
	readOnly bool
}

// get returns the value visible to the transaction, recording the read
func (t *tx) get(key string) any {
	if v, ok := t.writes[key]; ok {
		return v
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	d, ok := t.s.docs[key]
	if _, seen := t.reads[key]; !seen {
		if ok {
			t.reads[key] = d.version
		} else {
			t.reads[key] = 0
		}
	}
	if !ok {
		return nil
	}
	return d.value
}

// scan returns every live document under prefix, recording each read
func (t *tx) scan(prefix string) map[string]any {
	t.s.mu.Lock()
	out := make(map[string]any)
	for key, d := range t.s.docs {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if _, seen := t.reads[key]; !seen {
			t.reads[key] = d.version
		}
		if d.value != nil {
			out[key] = d.value
		}
	}
	t.s.mu.Unlock()

	for key, v := range t.writes {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if v == nil {
			delete(out, key)
		} else {
			out[key] = v
		}
	}
	return out
}

func (t *tx) put(key string, value any) error {
	if t.readOnly {
		return errReadOnly
	}
	t.writes[key] = value
	return nil
}

// touch bumps a collection marker so that concurrent scans of it conflict
func (t *tx) touch(key string) error {
	t.get(key)
	return t.put(key, struct{}{})
}

func accountKey(id string) string { return "accounts/" + id }
func codeKey(code string) string  { return "codes/" + code }
func coupleKey(id string) string  { return "couples/" + id }
func petKey(id string) string     { return "pets/" + id }
func petsMarker(coupleID string) string {
	return "markers/pets/" + coupleID
}
func answerPrefix(coupleID string) string { return "answers/" + coupleID + "/" }
func answerKey(coupleID string, track models.Track, itemID string) string {
	return answerPrefix(coupleID) + string(track) + "/" + itemID
}

func notFound(what string) error {
	return fmt.Errorf("%s not found: %w", what, repository.ErrNotFound)
}

func (t *tx) GetAccount(_ context.Context, id string) (*models.Account, error) {
	v, _ := t.get(accountKey(id)).(*models.Account)
	if v == nil {
		return nil, notFound("account")
	}
	return cloneAccount(v), nil
}

func (t *tx) GetAccountByCode(ctx context.Context, code string) (*models.Account, error) {
	id, _ := t.get(codeKey(code)).(string)
	if id == "" {
		return nil, notFound("account by code")
	}
	return t.GetAccount(ctx, id)
}

func (t *tx) PutAccount(ctx context.Context, a *models.Account) error {
	if owner, _ := t.get(codeKey(a.PairingCode)).(string); owner != "" && owner != a.ID {
		// same outcome as a unique index violation: retry with fresh reads
		return errConflict
	}
	if prev, _ := t.get(accountKey(a.ID)).(*models.Account); prev != nil && prev.PairingCode != a.PairingCode {
		if err := t.put(codeKey(prev.PairingCode), nil); err != nil {
			return err
		}
	}
	if err := t.put(codeKey(a.PairingCode), a.ID); err != nil {
		return err
	}
	return t.put(accountKey(a.ID), cloneAccount(a))
}

func (t *tx) DeleteAccount(_ context.Context, id string) error {
	prev, _ := t.get(accountKey(id)).(*models.Account)
	if prev == nil {
		return nil
	}
	if err := t.put(codeKey(prev.PairingCode), nil); err != nil {
		return err
	}
	return t.put(accountKey(id), nil)
}

func (t *tx) GetCouple(_ context.Context, id string) (*models.Couple, error) {
	v, _ := t.get(coupleKey(id)).(*models.Couple)
	if v == nil {
		return nil, notFound("couple")
	}
	return cloneCouple(v), nil
}

func (t *tx) PutCouple(_ context.Context, c *models.Couple) error {
	return t.put(coupleKey(c.ID), cloneCouple(c))
}

func (t *tx) DeleteCouple(ctx context.Context, id string) error {
	if err := t.DeleteAnswers(ctx, id); err != nil {
		return err
	}
	pets, err := t.ListPets(ctx, id)
	if err != nil {
		return err
	}
	for _, p := range pets {
		if err := t.DeletePet(ctx, p.ID); err != nil {
			return err
		}
	}
	return t.put(coupleKey(id), nil)
}

func (t *tx) GetPet(_ context.Context, id string) (*models.Pet, error) {
	v, _ := t.get(petKey(id)).(*models.Pet)
	if v == nil {
		return nil, notFound("pet")
	}
	return clonePet(v), nil
}

func (t *tx) PutPet(_ context.Context, p *models.Pet) error {
	if prev, _ := t.get(petKey(p.ID)).(*models.Pet); prev == nil {
		if err := t.touch(petsMarker(p.CoupleID)); err != nil {
			return err
		}
	}
	return t.put(petKey(p.ID), clonePet(p))
}

func (t *tx) ListPets(_ context.Context, coupleID string) ([]*models.Pet, error) {
	t.get(petsMarker(coupleID))
	var pets []*models.Pet
	for _, v := range t.scan("pets/") {
		if p := v.(*models.Pet); p.CoupleID == coupleID {
			pets = append(pets, clonePet(p))
		}
	}
	sort.Slice(pets, func(i, j int) bool {
		if !pets[i].CreatedAt.Equal(pets[j].CreatedAt) {
			return pets[i].CreatedAt.Before(pets[j].CreatedAt)
		}
		return pets[i].ID < pets[j].ID
	})
	return pets, nil
}

func (t *tx) DeletePet(_ context.Context, id string) error {
	prev, _ := t.get(petKey(id)).(*models.Pet)
	if prev == nil {
		return nil
	}
	if err := t.touch(petsMarker(prev.CoupleID)); err != nil {
		return err
	}
	return t.put(petKey(id), nil)
}

func (t *tx) GetAnswer(_ context.Context, coupleID string, track models.Track, itemID string) (*models.Answer, error) {
	v, _ := t.get(answerKey(coupleID, track, itemID)).(*models.Answer)
	if v == nil {
		return nil, notFound("answer")
	}
	return cloneAnswer(v), nil
}

func (t *tx) PutAnswer(_ context.Context, a *models.Answer) error {
	return t.put(answerKey(a.CoupleID, a.Track, a.ItemID), cloneAnswer(a))
}

func (t *tx) ListCompletedAnswers(_ context.Context, coupleID string, track models.Track, limit int) ([]*models.Answer, error) {
	var answers []*models.Answer
	for _, v := range t.scan(answerPrefix(coupleID)) {
		a := v.(*models.Answer)
		if a.Track == track && a.BothAnswered {
			answers = append(answers, cloneAnswer(a))
		}
	}
	sort.Slice(answers, func(i, j int) bool {
		ti, tj := answers[i].CompletedAt, answers[j].CompletedAt
		if ti == nil || tj == nil {
			return tj == nil && ti != nil
		}
		return ti.After(*tj)
	})
	if limit > 0 && len(answers) > limit {
		answers = answers[:limit]
	}
	return answers, nil
}

func (t *tx) DeleteAnswers(_ context.Context, coupleID string) error {
	for key := range t.scan(answerPrefix(coupleID)) {
		if err := t.put(key, nil); err != nil {
			return err
		}
	}
	return nil
}
