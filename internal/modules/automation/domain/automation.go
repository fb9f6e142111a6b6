package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	eventDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/event/domain"
	"github.com/samber/lo"
	"github.com/samber/oops"
	"gorm.io/gorm"
)

// Account owns automations and carries the subscription tier
type Account struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name      string    `gorm:"size:255" json:"name"`
	Plan      Plan      `gorm:"type:varchar(16);not null" json:"plan"`
	CreatedAt time.Time `json:"created_at"`
}

func (Account) TableName() string { return "accounts" }

// BeforeSave stores the plan in its canonical form
func (a *Account) BeforeSave(*gorm.DB) error {
	plan, err := ParsePlan(a.Plan.String())
	if err != nil {
		return oops.With("account_id", a.ID, "allowed", PlanNames()).Wrap(err)
	}
	a.Plan = plan
	return nil
}

// Integration links an account to the Instagram business account it manages
type Integration struct {
	ID                string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	AccountID         string     `gorm:"type:varchar(36);not null;index" json:"account_id"`
	PlatformAccountID string     `gorm:"size:64;not null;uniqueIndex" json:"platform_account_id"`
	Token             string     `gorm:"type:text;not null" json:"-"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func (Integration) TableName() string { return "integrations" }

// Automation is a keyword-triggered reply rule owned by one account
type Automation struct {
	ID        string        `gorm:"type:varchar(36);primaryKey" json:"id"`
	AccountID string        `gorm:"type:varchar(36);not null;index" json:"account_id"`
	Name      string        `gorm:"size:255" json:"name"`
	Active    bool          `gorm:"not null;index" json:"active"`
	CreatedAt time.Time     `gorm:"index" json:"created_at"`
	Keywords  []Keyword     `gorm:"foreignKey:AutomationID;constraint:OnDelete:CASCADE" json:"keywords"`
	Listener  *Listener     `gorm:"foreignKey:AutomationID;constraint:OnDelete:CASCADE" json:"listener,omitempty"`
	Triggers  []TriggerRule `gorm:"foreignKey:AutomationID;constraint:OnDelete:CASCADE" json:"triggers"`
	Posts     []Post        `gorm:"foreignKey:AutomationID;constraint:OnDelete:CASCADE" json:"posts"`
}

func (Automation) TableName() string { return "automations" }

func (a *Automation) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// HasTrigger reports whether the automation fires on the given channel.
func (a *Automation) HasTrigger(channel eventDomain.Channel) bool {
	return lo.ContainsBy(a.Triggers, func(t TriggerRule) bool {
		return t.Type == channel
	})
}

// MatchesText reports whether any keyword occurs in text, ignoring case.
func (a *Automation) MatchesText(text string) bool {
	lowered := strings.ToLower(text)
	return lo.ContainsBy(a.Keywords, func(k Keyword) bool {
		word := strings.ToLower(strings.TrimSpace(k.Word))
		return word != "" && strings.Contains(lowered, word)
	})
}

// AppliesToPost reports whether a comment on postID is in scope. Automations
// without linked posts apply to every post, and so does an unknown postID.
func (a *Automation) AppliesToPost(postID string) bool {
	if postID == "" || len(a.Posts) == 0 {
		return true
	}
	return lo.ContainsBy(a.Posts, func(p Post) bool {
		return p.PostID == postID
	})
}

type Keyword struct {
	ID           string `gorm:"type:varchar(36);primaryKey" json:"id"`
	AutomationID string `gorm:"type:varchar(36);not null;uniqueIndex:ux_keywords_automation_word" json:"automation_id"`
	Word         string `gorm:"size:255;not null;uniqueIndex:ux_keywords_automation_word" json:"word"`
}

func (Keyword) TableName() string { return "keywords" }

func (k *Keyword) BeforeCreate(*gorm.DB) error {
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	return nil
}

// Listener is the reply configuration of an automation
type Listener struct {
	ID            string       `gorm:"type:varchar(36);primaryKey" json:"id"`
	AutomationID  string       `gorm:"type:varchar(36);not null;uniqueIndex" json:"automation_id"`
	Kind          ListenerKind `gorm:"type:varchar(16);not null" json:"kind"`
	Prompt        string       `gorm:"type:text" json:"prompt"`
	FallbackReply string       `gorm:"type:text" json:"fallback_reply,omitempty"`
	DMCount       int64        `gorm:"not null" json:"dm_count"`
	CommentCount  int64        `gorm:"not null" json:"comment_count"`
}

func (Listener) TableName() string { return "listeners" }

func (l *Listener) BeforeSave(*gorm.DB) error {
	kind, err := ParseListenerKind(l.Kind.String())
	if err != nil {
		return oops.With("automation_id", l.AutomationID, "allowed", ListenerKindNames()).Wrap(err)
	}
	l.Kind = kind
	return nil
}

func (l *Listener) BeforeCreate(*gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// TriggerRule activates an automation on one channel
type TriggerRule struct {
	ID           string              `gorm:"type:varchar(36);primaryKey" json:"id"`
	AutomationID string              `gorm:"type:varchar(36);not null;uniqueIndex:ux_triggers_automation_type" json:"automation_id"`
	Type         eventDomain.Channel `gorm:"type:varchar(16);not null;uniqueIndex:ux_triggers_automation_type" json:"type"`
}

func (TriggerRule) TableName() string { return "trigger_rules" }

func (t *TriggerRule) BeforeSave(*gorm.DB) error {
	channel, err := eventDomain.ParseChannel(t.Type.String())
	if err != nil {
		return oops.With("automation_id", t.AutomationID, "allowed", eventDomain.ChannelNames()).Wrap(err)
	}
	t.Type = channel
	return nil
}

func (t *TriggerRule) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// Post is a platform media item an automation is restricted to
type Post struct {
	ID           string `gorm:"type:varchar(36);primaryKey" json:"id"`
	AutomationID string `gorm:"type:varchar(36);not null;index" json:"automation_id"`
	PostID       string `gorm:"size:64;not null;index" json:"post_id"`
}

func (Post) TableName() string { return "posts" }

func (p *Post) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Match is an automation aggregate together with the owning account's tier
// and platform token.
type Match struct {
	Automation Automation
	Plan       Plan
	Token      string
}

// Counters are the per-channel reply totals of a listener
type Counters struct {
	AutomationID string `json:"automation_id"`
	DMCount      int64  `json:"dm_count"`
	CommentCount int64  `json:"comment_count"`
}

// Candidates is every active automation of one account with its access data.
// The token is never serialized.
type Candidates struct {
	AccountID   string       `json:"account_id"`
	Plan        Plan         `json:"plan"`
	Token       string       `json:"-"`
	Automations []Automation `json:"automations"`
}

// Models lists the tables owned by the automation module.
func Models() []any {
	return []any{&Account{}, &Integration{}, &Automation{}, &Keyword{}, &Listener{}, &TriggerRule{}, &Post{}}
}
