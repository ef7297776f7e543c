package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx/types"
)

// Message roles accepted by the messages table.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleData      = "data"
)

func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAssistant, RoleSystem, RoleData:
		return true
	}
	return false
}

// StringList is a []string persisted as a JSON array in a TEXT column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("failed to decode string list: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*l = out
	return nil
}

type User struct {
	ID                   string     `db:"id" json:"id"`
	ExternalID           string     `db:"external_id" json:"external_id"`
	Email                *string    `db:"email" json:"email"`
	DisplayName          *string    `db:"display_name" json:"display_name"`
	ProfileImage         *string    `db:"profile_image" json:"profile_image"`
	Anonymous            bool       `db:"anonymous" json:"anonymous"`
	Premium              bool       `db:"premium" json:"premium"`
	MessageCount         int64      `db:"message_count" json:"message_count"`
	DailyMessageCount    int64      `db:"daily_message_count" json:"daily_message_count"`
	DailyReset           int64      `db:"daily_reset" json:"daily_reset"`
	DailyProMessageCount int64      `db:"daily_pro_message_count" json:"daily_pro_message_count"`
	DailyProReset        int64      `db:"daily_pro_reset" json:"daily_pro_reset"`
	LastActiveAt         int64      `db:"last_active_at" json:"last_active_at"`
	FavoriteModels       StringList `db:"favorite_models" json:"favorite_models"`
	SystemPrompt         *string    `db:"system_prompt" json:"system_prompt"`
	CreatedAt            int64      `db:"created_at" json:"created_at"`
}

// UserProfile carries the identity-provider fields synced into a user row.
type UserProfile struct {
	ExternalID   string
	Email        *string
	DisplayName  *string
	ProfileImage *string
	Anonymous    bool
}

type Project struct {
	ID        string `db:"id" json:"id"`
	UserID    string `db:"user_id" json:"user_id"`
	Name      string `db:"name" json:"name"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
}

type Chat struct {
	ID           string  `db:"id" json:"id"`
	UserID       string  `db:"user_id" json:"user_id"`
	ProjectID    *string `db:"project_id" json:"project_id"`
	Title        string  `db:"title" json:"title"`
	Model        string  `db:"model" json:"model"`
	SystemPrompt *string `db:"system_prompt" json:"system_prompt"`
	Public       bool    `db:"public" json:"public"`
	Pinned       bool    `db:"pinned" json:"pinned"`
	PinnedAt     *int64  `db:"pinned_at" json:"pinned_at"`
	CreatedAt    int64   `db:"created_at" json:"created_at"`
	UpdatedAt    *int64  `db:"updated_at" json:"updated_at"`
}

// LastActivity is updated_at when set, else created_at.
func (c Chat) LastActivity() int64 {
	if c.UpdatedAt != nil {
		return *c.UpdatedAt
	}
	return c.CreatedAt
}

type Message struct {
	ID             string         `db:"id" json:"id"`
	ChatID         string         `db:"chat_id" json:"chat_id"`
	UserID         *string        `db:"user_id" json:"user_id"`
	Role           string         `db:"role" json:"role"`
	Content        string         `db:"content" json:"content"`
	Parts          types.JSONText `db:"parts" json:"parts"`
	Attachments    types.JSONText `db:"attachments" json:"attachments"`
	MessageGroupID *string        `db:"message_group_id" json:"message_group_id"`
	Model          *string        `db:"model" json:"model"`
	CreatedAt      int64          `db:"created_at" json:"created_at"`
}

type UserKey struct {
	ID           string `db:"id" json:"id"`
	UserID       string `db:"user_id" json:"user_id"`
	Provider     string `db:"provider" json:"provider"`
	EncryptedKey string `db:"encrypted_key" json:"-"`
	IV           string `db:"iv" json:"-"`
	CreatedAt    int64  `db:"created_at" json:"created_at"`
	UpdatedAt    int64  `db:"updated_at" json:"updated_at"`
}

type UserPreferences struct {
	UserID                   string     `db:"user_id" json:"-"`
	Layout                   string     `db:"layout" json:"layout"`
	PromptSuggestions        bool       `db:"prompt_suggestions" json:"prompt_suggestions"`
	ShowToolInvocations      bool       `db:"show_tool_invocations" json:"show_tool_invocations"`
	ShowConversationPreviews bool       `db:"show_conversation_previews" json:"show_conversation_previews"`
	MultiModelEnabled        bool       `db:"multi_model_enabled" json:"multi_model_enabled"`
	HiddenModels             StringList `db:"hidden_models" json:"hidden_models"`
	UpdatedAt                int64      `db:"updated_at" json:"-"`
}

// DefaultPreferences is what a user sees before saving any preference.
func DefaultPreferences(userID string) UserPreferences {
	return UserPreferences{
		UserID:                   userID,
		Layout:                   "fullscreen",
		PromptSuggestions:        true,
		ShowToolInvocations:      true,
		ShowConversationPreviews: true,
		MultiModelEnabled:        false,
		HiddenModels:             StringList{},
	}
}

type Feedback struct {
	ID        string `db:"id" json:"id"`
	UserID    string `db:"user_id" json:"user_id"`
	Message   string `db:"message" json:"message"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
}

type Attachment struct {
	ID        string `db:"id" json:"id"`
	ChatID    string `db:"chat_id" json:"chat_id"`
	UserID    string `db:"user_id" json:"user_id"`
	StorageID string `db:"storage_id" json:"storage_id"`
	FileURL   string `db:"file_url" json:"file_url"`
	FileName  string `db:"file_name" json:"file_name"`
	FileType  string `db:"file_type" json:"file_type"`
	FileSize  int64  `db:"file_size" json:"file_size"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
}

// UsageKind selects which daily counter a usage operation touches.
type UsageKind int

const (
	UsageRegular UsageKind = iota
	UsagePro
	UsageAnonymous
)

func (k UsageKind) String() string {
	switch k {
	case UsagePro:
		return "pro"
	case UsageAnonymous:
		return "anonymous"
	default:
		return "regular"
	}
}

// UsageKey identifies one daily counter: a user id for the regular and pro
// kinds, a client-generated anonymous id for UsageAnonymous.
type UsageKey struct {
	Kind UsageKind
	ID   string
}

// UsageRecord is the raw stored counter. Reset is the UTC midnight (ms) of
// the day the count belongs to.
type UsageRecord struct {
	Count int64 `db:"daily_count"`
	Reset int64 `db:"daily_reset"`
}
