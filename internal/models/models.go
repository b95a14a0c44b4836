package models

import "time"

// Track identifies a daily interaction content track
type Track string

const (
	TrackDailyQuestion Track = "daily_question"
	TrackBalanceGame   Track = "balance_game"
)

// Valid reports whether t is a known track
func (t Track) Valid() bool {
	return t == TrackDailyQuestion || t == TrackBalanceGame
}

// Role is a member's position inside a couple
type Role int

const (
	RoleFirst Role = iota + 1
	RoleSecond
)

// Account represents an authenticated user of the app
type Account struct {
	ID                string     `json:"id"`
	PairingCode       string     `json:"pairing_code"`
	PartnerID         *string    `json:"partner_id,omitempty"`
	CoupleID          *string    `json:"couple_id,omitempty"`
	ActivePetID       *string    `json:"active_pet_id,omitempty"`
	Nickname          *string    `json:"nickname,omitempty"`
	AnniversaryDate   *time.Time `json:"anniversary_date,omitempty"`
	PushToken         *string    `json:"-"`
	LiveStartToken    *string    `json:"-"`
	LiveUpdateToken   *string    `json:"-"`
	PushEnabled       bool       `json:"push_enabled"`
	LiveStatusEnabled bool       `json:"live_status_enabled"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ClearCouple drops every field that points at a couple
func (a *Account) ClearCouple() {
	a.PartnerID = nil
	a.CoupleID = nil
	a.ActivePetID = nil
	a.AnniversaryDate = nil
}

// ProgressStat tracks how far a couple went through one content track
type ProgressStat struct {
	TotalCompleted  int        `json:"total_completed"`
	LastCompletedAt *time.Time `json:"last_completed_at,omitempty"`
}

// Couple represents two paired accounts and their shared economy
type Couple struct {
	ID              string       `json:"id"`
	User1ID         string       `json:"user1_id"`
	User2ID         string       `json:"user2_id"`
	Coins           int64        `json:"coins"`
	Food            int64        `json:"food"`
	ActivePetID     string       `json:"active_pet_id"`
	AnniversaryDate *time.Time   `json:"anniversary_date,omitempty"`
	DailyQuestion   ProgressStat `json:"daily_question"`
	BalanceGame     ProgressStat `json:"balance_game"`
	CreatedAt       time.Time    `json:"created_at"`
}

// IsMember reports whether accountID belongs to the couple
func (c *Couple) IsMember(accountID string) bool {
	return accountID != "" && (c.User1ID == accountID || c.User2ID == accountID)
}

// RoleOf returns the member role of accountID
func (c *Couple) RoleOf(accountID string) (Role, bool) {
	switch accountID {
	case c.User1ID:
		return RoleFirst, true
	case c.User2ID:
		return RoleSecond, true
	}
	return 0, false
}

// PartnerOf returns the other member of the couple
func (c *Couple) PartnerOf(accountID string) string {
	if c.User1ID == accountID {
		return c.User2ID
	}
	return c.User1ID
}

// Progress returns the stat for a track
func (c *Couple) Progress(track Track) *ProgressStat {
	if track == TrackBalanceGame {
		return &c.BalanceGame
	}
	return &c.DailyQuestion
}

// Pet represents a couple's shared pet
type Pet struct {
	ID            string     `json:"id"`
	CoupleID      string     `json:"couple_id"`
	Type          string     `json:"type"`
	Name          string     `json:"name"`
	Level         int        `json:"level"`
	Exp           int        `json:"exp"`
	Hungry        bool       `json:"hungry"`
	StatusMessage string     `json:"status_message"`
	LastFedAt     *time.Time `json:"last_fed_at,omitempty"`
	LastUpdatedAt time.Time  `json:"last_updated_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

// PetID derives the pet id for a couple and pet type
func PetID(coupleID, petType string) string {
	return coupleID + "_" + petType
}

// Answer holds both members' answers to one content item
type Answer struct {
	CoupleID         string     `json:"couple_id"`
	Track            Track      `json:"track"`
	ItemID           string     `json:"item_id"`
	FirstAnswer      *string    `json:"first_answer,omitempty"`
	FirstAnsweredAt  *time.Time `json:"first_answered_at,omitempty"`
	SecondAnswer     *string    `json:"second_answer,omitempty"`
	SecondAnsweredAt *time.Time `json:"second_answered_at,omitempty"`
	BothAnswered     bool       `json:"both_answered"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// Slot returns the answer written by the given role
func (a *Answer) Slot(role Role) *string {
	if role == RoleFirst {
		return a.FirstAnswer
	}
	return a.SecondAnswer
}

// ContentItem is one catalog entry of a track
type ContentItem struct {
	ID      string `json:"id" yaml:"id"`
	Track   Track  `json:"track" yaml:"-"`
	Seq     int    `json:"seq" yaml:"seq"`
	Text    string `json:"text" yaml:"text"`
	Option1 string `json:"option1,omitempty" yaml:"option1,omitempty"`
	Option2 string `json:"option2,omitempty" yaml:"option2,omitempty"`
}

// RetryKind identifies what a retry task redelivers
type RetryKind string

const (
	RetryKindPush       RetryKind = "push"
	RetryKindLiveUpdate RetryKind = "live_update"
)

// RetryPayload is the body of a delayed delivery retry task
type RetryPayload struct {
	Kind            RetryKind         `json:"type"`
	TargetAccountID string            `json:"target_account_id"`
	Title           string            `json:"title,omitempty"`
	Body            string            `json:"body,omitempty"`
	Data            map[string]string `json:"data,omitempty"`
	ContentState    map[string]any    `json:"content_state,omitempty"`
	Attributes      map[string]any    `json:"attributes,omitempty"`
	Attempt         int               `json:"retry_count"`
}

// HungerTask is the body of a delayed hunger transition task
type HungerTask struct {
	PetID string `json:"pet_id"`
}

// FormatTime renders t as ISO-8601 UTC with second precision and a Z suffix
func FormatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format("2006-01-02T15:04:05Z")
}

// FormatTimePtr is FormatTime for optional timestamps
func FormatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatTime(*t)
	return &s
}
