// Package lead decides whether a phone-keyed contact is created or updated
// when a lead is registered.
package lead

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contactx "github.com/tanpawarit/fluxy-lead-intake/agent/contact"
	contractx "github.com/tanpawarit/fluxy-lead-intake/agent/contract"
)

// GoalNotInformed is the lead goal stored when a contact is first seen
// through a name-only registration.
const GoalNotInformed = "Objetivo não foi informado"

type ContactStore interface {
	FindByPhone(ctx context.Context, phone string) (*contactx.Contact, error)
	Create(ctx context.Context, in contactx.NewContact) (*contactx.Contact, error)
	Touch(ctx context.Context, phone, leadGoal string) (time.Time, error)
	UpdateName(ctx context.Context, phone, name string) error
}

var _ ContactStore = (*contactx.Store)(nil)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

type Outcome struct {
	Status  Status
	Contact *contactx.Contact
	Result  contractx.Result
}

type Orchestrator struct {
	contacts ContactStore
	channels contractx.ChannelResolver
}

func New(contacts ContactStore, channels contractx.ChannelResolver) (*Orchestrator, error) {
	if contacts == nil {
		return nil, errors.New("contact store is required")
	}
	if channels == nil {
		return nil, errors.New("channel resolver is required")
	}
	return &Orchestrator{contacts: contacts, channels: channels}, nil
}

// UpsertContact finds or creates the contact for phone and then always stamps
// the registration time and contextText as the current lead goal.
func (o *Orchestrator) UpsertContact(
	ctx context.Context,
	phone string,
	name string,
	meta contractx.ChannelMetadata,
	contextText string,
) Outcome {
	c, _, res, err := o.findOrCreate(ctx, phone, name, meta, contextText)
	if err != nil {
		return failure("upsert_contact", phone, err)
	}

	touchedAt, err := o.contacts.Touch(ctx, phone, contextText)
	if err != nil {
		return failure("upsert_contact", phone, err)
	}
	c.LastDateConversation = &touchedAt
	c.LeadGoal = contextText

	return success("upsert_contact", c, res)
}

// UpsertContactNameOnly captures a name. An existing contact only has its
// name replaced; its lead goal and last conversation date stay untouched.
func (o *Orchestrator) UpsertContactNameOnly(
	ctx context.Context,
	phone string,
	name string,
	meta contractx.ChannelMetadata,
) Outcome {
	c, created, res, err := o.findOrCreate(ctx, phone, name, meta, GoalNotInformed)
	if err != nil {
		return failure("upsert_contact_name", phone, err)
	}

	name = strings.TrimSpace(name)
	if !created && name != "" && c.DisplayName() != name {
		if err := o.contacts.UpdateName(ctx, phone, name); err != nil {
			return failure("upsert_contact_name", phone, err)
		}
		c.Name = &name
	}

	return success("upsert_contact_name", c, res)
}

func (o *Orchestrator) findOrCreate(
	ctx context.Context,
	phone string,
	name string,
	meta contractx.ChannelMetadata,
	goal string,
) (*contactx.Contact, bool, contractx.Result, error) {
	if strings.TrimSpace(phone) == "" {
		return nil, false, contractx.Result{}, fmt.Errorf("%w: phone is empty", contractx.ErrValidation)
	}

	res := contractx.Success()
	identity := o.channels.Resolve(ctx, meta)
	if identity.Degraded {
		res = res.Merge(contractx.Failure(contractx.KindLookupDegraded, identity.Err))
	}

	existing, err := o.contacts.FindByPhone(ctx, phone)
	if err == nil {
		return existing, false, res, nil
	}
	if !errors.Is(err, contractx.ErrContactNotFound) {
		return nil, false, res, err
	}

	created, err := o.contacts.Create(ctx, contactx.NewContact{
		Phone:           phone,
		Name:            name,
		ChannelIdentity: identity.ID,
		LeadGoal:        goal,
	})
	if err == nil {
		return created, true, res, nil
	}
	if !errors.Is(err, contractx.ErrDuplicateKey) {
		return nil, false, res, err
	}

	// Someone else created it first: continue on the update path.
	log.Debug().Str("phone", phone).Msg("contact creation raced, using existing row")
	existing, err = o.contacts.FindByPhone(ctx, phone)
	if err != nil {
		return nil, false, res, err
	}
	return existing, false, res.Merge(contractx.Failure(contractx.KindDuplicateKey, contractx.ErrDuplicateKey)), nil
}

func success(op string, c *contactx.Contact, res contractx.Result) Outcome {
	evt := log.Debug()
	if res.Kind == contractx.KindLookupDegraded {
		evt = log.Info()
	}
	evt.Str("op", op).
		Str("phone", c.Phone).
		Int64("contact_id", c.ID).
		Str("kind", string(res.Kind)).
		Msg("contact upserted")
	return Outcome{Status: StatusSuccess, Contact: c, Result: res}
}

func failure(op, phone string, err error) Outcome {
	kind := contractx.KindStorageFailure
	if errors.Is(err, contractx.ErrValidation) {
		kind = contractx.KindValidation
	} else if !errors.Is(err, contractx.ErrStorage) {
		err = fmt.Errorf("%w: %w", contractx.ErrStorage, err)
	}
	log.Error().Err(err).Str("op", op).Str("phone", phone).Str("kind", string(kind)).Msg("contact upsert failed")
	return Outcome{Status: StatusFailure, Result: contractx.Failure(kind, err)}
}
