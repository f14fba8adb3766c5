package contact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/fluxy-lead-intake/agent/contract"
	postgresx "github.com/tanpawarit/fluxy-lead-intake/pkg/postgres"
)

// StoreOption customizes Store.
type StoreOption func(*Store)

func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is the bun-backed contact repository.
type Store struct {
	db  bun.IDB
	now func() time.Time
}

func NewStore(db bun.IDB, opts ...StoreOption) (*Store, error) {
	if db == nil {
		return nil, errors.New("contact store requires a database")
	}
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *Store) FindByPhone(ctx context.Context, phone string) (*Contact, error) {
	var c Contact
	if err := s.findQuery(&c, phone).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: phone=%s", contractx.ErrContactNotFound, phone)
		}
		return nil, fmt.Errorf("find contact: %w", err)
	}
	return &c, nil
}

// Create inserts a new contact. A concurrent insert of the same phone yields
// contract.ErrDuplicateKey.
func (s *Store) Create(ctx context.Context, in NewContact) (*Contact, error) {
	c := s.newContact(in)
	if _, err := s.db.NewInsert().Model(c).Exec(ctx); err != nil {
		if postgresx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: phone=%s: %v", contractx.ErrDuplicateKey, c.Phone, err)
		}
		return nil, fmt.Errorf("insert contact: %w", err)
	}
	return c, nil
}

// Touch stamps the last conversation date and overwrites the lead goal. It
// returns the stamped time.
func (s *Store) Touch(ctx context.Context, phone, leadGoal string) (time.Time, error) {
	now := s.now().UTC()
	res, err := s.touchQuery(phone, leadGoal, now).Exec(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("touch contact: %w", err)
	}
	if err := requireRow(res, phone); err != nil {
		return time.Time{}, err
	}
	return now, nil
}

func (s *Store) UpdateName(ctx context.Context, phone, name string) error {
	res, err := s.db.NewUpdate().
		Model((*Contact)(nil)).
		Set("name = ?", strings.TrimSpace(name)).
		Where("phone = ?", phone).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update contact name: %w", err)
	}
	return requireRow(res, phone)
}

func (s *Store) newContact(in NewContact) *Contact {
	c := &Contact{
		Phone:                 in.Phone,
		ChannelIdentity:       in.ChannelIdentity,
		StartDateConversation: s.now().UTC(),
		LeadGoal:              in.LeadGoal,
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		c.Name = &name
	}
	return c
}

func (s *Store) findQuery(c *Contact, phone string) *bun.SelectQuery {
	return s.db.NewSelect().
		Model(c).
		Where("phone = ?", phone).
		Limit(1)
}

func (s *Store) touchQuery(phone, leadGoal string, now time.Time) *bun.UpdateQuery {
	return s.db.NewUpdate().
		Model((*Contact)(nil)).
		Set("last_date_conversation = ?", now).
		Set("lead_goal = ?", leadGoal).
		Where("phone = ?", phone)
}

func requireRow(res sql.Result, phone string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: phone=%s", contractx.ErrContactNotFound, phone)
	}
	return nil
}

// Migrate creates the contacts table, including the unique phone constraint.
func Migrate(ctx context.Context, db bun.IDB) error {
	if _, err := db.NewCreateTable().
		Model((*Contact)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create contacts: %w", err)
	}
	return nil
}
