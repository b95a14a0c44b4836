// Package catalog holds the read-only interaction content and pet types.
package catalog

import (
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/boostcampwm2025/ios02-damago/internal/models"
)

// Catalog is the ordered content of every track plus the known pet types
type Catalog struct {
	items       map[models.Track][]models.ContentItem
	bySeq       map[models.Track]map[int]models.ContentItem
	byID        map[models.Track]map[string]models.ContentItem
	starterPets []string
	petTypes    []string
}

type document struct {
	DailyQuestions []models.ContentItem `yaml:"daily_questions"`
	BalanceGames   []models.ContentItem `yaml:"balance_games"`
	StarterPets    []string             `yaml:"starter_pets"`
	PetTypes       []string             `yaml:"pet_types"`
}

// Parse builds a catalog from its YAML form
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return New(doc.DailyQuestions, doc.BalanceGames, doc.StarterPets, doc.PetTypes)
}

// New validates and indexes catalog content
func New(questions, games []models.ContentItem, starterPets, petTypes []string) (*Catalog, error) {
	c := &Catalog{
		items: make(map[models.Track][]models.ContentItem),
		bySeq: make(map[models.Track]map[int]models.ContentItem),
		byID:  make(map[models.Track]map[string]models.ContentItem),
	}
	if err := c.addTrack(models.TrackDailyQuestion, questions); err != nil {
		return nil, err
	}
	if err := c.addTrack(models.TrackBalanceGame, games); err != nil {
		return nil, err
	}

	if len(starterPets) == 0 {
		return nil, errors.New("catalog: at least one starter pet type is required")
	}
	known := make(map[string]bool)
	for _, t := range append(append([]string{}, starterPets...), petTypes...) {
		if t == "" {
			return nil, errors.New("catalog: empty pet type")
		}
		if !known[t] {
			known[t] = true
			c.petTypes = append(c.petTypes, t)
		}
	}
	c.starterPets = append([]string(nil), starterPets...)
	return c, nil
}

func (c *Catalog) addTrack(track models.Track, items []models.ContentItem) error {
	c.bySeq[track] = make(map[int]models.ContentItem, len(items))
	c.byID[track] = make(map[string]models.ContentItem, len(items))

	sorted := append([]models.ContentItem(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Seq < sorted[j].Seq })

	for i := range sorted {
		item := &sorted[i]
		item.Track = track
		switch {
		case item.ID == "":
			return fmt.Errorf("catalog: %s item %d has no id", track, i)
		case item.Seq < 1:
			return fmt.Errorf("catalog: %s item %s has sequence %d, want >= 1", track, item.ID, item.Seq)
		case track == models.TrackBalanceGame && (item.Option1 == "" || item.Option2 == ""):
			return fmt.Errorf("catalog: balance game %s needs two options", item.ID)
		}
		if _, dup := c.byID[track][item.ID]; dup {
			return fmt.Errorf("catalog: duplicate %s id %s", track, item.ID)
		}
		if _, dup := c.bySeq[track][item.Seq]; dup {
			return fmt.Errorf("catalog: duplicate %s sequence %d", track, item.Seq)
		}
		c.byID[track][item.ID] = *item
		c.bySeq[track][item.Seq] = *item
	}
	c.items[track] = sorted
	return nil
}

// ItemAt returns the item of a track at a 1-based sequence index
func (c *Catalog) ItemAt(track models.Track, seq int) (models.ContentItem, bool) {
	item, ok := c.bySeq[track][seq]
	return item, ok
}

// Item returns the item of a track by id
func (c *Catalog) Item(track models.Track, id string) (models.ContentItem, bool) {
	item, ok := c.byID[track][id]
	return item, ok
}

// Len returns the number of items in a track
func (c *Catalog) Len(track models.Track) int {
	return len(c.items[track])
}

// StarterPets returns the pet types every new couple receives, active one first
func (c *Catalog) StarterPets() []string {
	return append([]string(nil), c.starterPets...)
}

// PetTypes returns every known pet type
func (c *Catalog) PetTypes() []string {
	return append([]string(nil), c.petTypes...)
}

// HasPetType reports whether t is a known pet type
func (c *Catalog) HasPetType(t string) bool {
	for _, known := range c.petTypes {
		if known == t {
			return true
		}
	}
	return false
}
