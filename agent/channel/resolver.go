// Package channel resolves the messaging-provider account that served a
// conversation into a local account id.
package channel

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/fluxy-lead-intake/agent/contract"
)

// FallbackIdentity is stamped on contacts whose account could not be resolved.
const FallbackIdentity int64 = 1

var _ contractx.ChannelResolver = (*Resolver)(nil)

// Account is a WhatsApp Business account number known to the system.
type Account struct {
	bun.BaseModel `bun:"table:waba_accounts,alias:wa"`

	ID                 int64     `bun:"id,pk,autoincrement"`
	PhoneNumberID      string    `bun:"phone_number_id,notnull,unique"`
	DisplayPhoneNumber string    `bun:"display_phone_number,notnull"`
	CreatedAt          time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

type Resolver struct {
	db  bun.IDB
	now func() time.Time
}

func NewResolver(db bun.IDB) (*Resolver, error) {
	if db == nil {
		return nil, errors.New("channel resolver requires a database")
	}
	return &Resolver{db: db, now: time.Now}, nil
}

// Resolve never fails: any lookup problem degrades to FallbackIdentity.
func (r *Resolver) Resolve(ctx context.Context, meta contractx.ChannelMetadata) contractx.ChannelIdentity {
	id, err := r.findOrCreate(ctx, meta)
	if err == nil && id <= 0 {
		err = fmt.Errorf("%w: account id %d is not usable", contractx.ErrLookupDegraded, id)
	}
	if err != nil {
		log.Warn().
			Err(err).
			Str("phone_number_id", meta.PhoneNumberID).
			Int64("fallback_identity", FallbackIdentity).
			Msg("channel identity lookup degraded")
		return contractx.ChannelIdentity{ID: FallbackIdentity, Degraded: true, Err: err}
	}
	return contractx.ChannelIdentity{ID: id}
}

func (r *Resolver) findOrCreate(ctx context.Context, meta contractx.ChannelMetadata) (int64, error) {
	phoneNumberID := strings.TrimSpace(meta.PhoneNumberID)
	if phoneNumberID == "" {
		return 0, fmt.Errorf("%w: phone_number_id is empty", contractx.ErrLookupDegraded)
	}

	id, err := r.find(ctx, phoneNumberID)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: find account: %v", contractx.ErrLookupDegraded, err)
	}

	if _, err := r.insertQuery(phoneNumberID, meta.DisplayPhoneNumber).Exec(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: insert account: %v", contractx.ErrLookupDegraded, err)
	}

	// A concurrent insert may have won; read back whichever row exists.
	id, err = r.find(ctx, phoneNumberID)
	if err != nil {
		return 0, fmt.Errorf("%w: reload account: %v", contractx.ErrLookupDegraded, err)
	}
	return id, nil
}

func (r *Resolver) find(ctx context.Context, phoneNumberID string) (int64, error) {
	var acc Account
	if err := r.selectQuery(&acc, phoneNumberID).Scan(ctx); err != nil {
		return 0, err
	}
	return acc.ID, nil
}

func (r *Resolver) selectQuery(acc *Account, phoneNumberID string) *bun.SelectQuery {
	return r.db.NewSelect().
		Model(acc).
		Column("id").
		Where("phone_number_id = ?", phoneNumberID).
		Limit(1)
}

func (r *Resolver) insertQuery(phoneNumberID, displayPhoneNumber string) *bun.InsertQuery {
	acc := &Account{
		PhoneNumberID:      phoneNumberID,
		DisplayPhoneNumber: strings.TrimSpace(displayPhoneNumber),
		CreatedAt:          r.now().UTC(),
	}
	return r.db.NewInsert().
		Model(acc).
		On("CONFLICT (phone_number_id) DO NOTHING").
		Returning("NULL")
}

// Migrate creates the accounts table when missing.
func Migrate(ctx context.Context, db bun.IDB) error {
	if _, err := db.NewCreateTable().
		Model((*Account)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create waba_accounts: %w", err)
	}
	return nil
}
