// Package contact persists phone-keyed contacts. The phone column carries a
// unique constraint; concurrent creators observe contract.ErrDuplicateKey.
package contact

import (
	"time"

	"github.com/uptrace/bun"
)

type Contact struct {
	bun.BaseModel `bun:"table:contacts,alias:c"`

	ID                    int64      `bun:"id,pk,autoincrement" json:"id"`
	Phone                 string     `bun:"phone,notnull,unique" json:"phone"`
	Name                  *string    `bun:"name" json:"name,omitempty"`
	Email                 *string    `bun:"email" json:"email,omitempty"`
	ChannelIdentity       int64      `bun:"waba_id,notnull" json:"waba_id"`
	StartDateConversation time.Time  `bun:"start_date_conversation,notnull,default:current_timestamp" json:"start_date_conversation"`
	LastDateConversation  *time.Time `bun:"last_date_conversation" json:"last_date_conversation,omitempty"`
	LeadGoal              string     `bun:"lead_goal,nullzero" json:"lead_goal,omitempty"`
}

// DisplayName returns the stored name or "".
func (c *Contact) DisplayName() string {
	if c == nil || c.Name == nil {
		return ""
	}
	return *c.Name
}

type NewContact struct {
	Phone           string
	Name            string
	ChannelIdentity int64
	LeadGoal        string
}
