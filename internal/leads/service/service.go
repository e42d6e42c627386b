// Package service orchestrates the lead intake pipeline: reference snapshot,
// validation, duplicate detection, persistence, and the best-effort messaging
// automation.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"crmleads_backend/internal/automation"
	"crmleads_backend/internal/leads/domain"
	"crmleads_backend/internal/leads/repository"
	"crmleads_backend/internal/leads/transport"
	leadvalidator "crmleads_backend/internal/leads/validator"
	"crmleads_backend/internal/normalize"
	"crmleads_backend/internal/refdata"
	"crmleads_backend/internal/whatsapp"
	"crmleads_backend/platform/apperr"
	"crmleads_backend/platform/logger"

	"github.com/google/uuid"
)

const msgValidationFailed = "validation failed"

// Service runs lead operations against the store and the automation trigger.
type Service struct {
	refs    *refdata.Repository
	leads   *repository.Repository
	trigger *automation.Trigger
	log     *logger.Logger
	now     func() time.Time
}

// New creates a lead service.
func New(refs *refdata.Repository, leads *repository.Repository, trigger *automation.Trigger, log *logger.Logger) *Service {
	return &Service{
		refs:    refs,
		leads:   leads,
		trigger: trigger,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Snapshot loads the request-scoped reference lookup. Callers build it once
// per request and pass it down; it is never cached across requests.
func (s *Service) Snapshot(ctx context.Context) (*refdata.Lookup, error) {
	return s.refs.Load(ctx)
}

// Create runs the intake pipeline for one payload: validate, flag duplicates,
// insert, then fire the messaging automation. A duplicate is stored with the
// duplicate status rather than rejected. Automation failures are logged and
// discarded here so they never reach the caller.
func (s *Service) Create(ctx context.Context, payload map[string]any, lookup *refdata.Lookup) (domain.Lead, error) {
	lead, ferrs := leadvalidator.ValidateCreate(payload, lookup, s.now())
	if len(ferrs) > 0 {
		return domain.Lead{}, apperr.Validation(msgValidationFailed).WithDetails(ferrs)
	}

	duplicate, err := s.leads.HasDuplicate(ctx, lead.Phone, lead.Email)
	if err != nil {
		// Fail open: a broken duplicate check must not block intake.
		s.log.DatabaseError("duplicate check", err)
		duplicate = false
	}
	if duplicate {
		lead.Status = domain.StatusDuplicate
	}

	stored, err := s.leads.Insert(ctx, lead)
	if err != nil {
		return domain.Lead{}, err
	}

	if err := s.trigger.FireOnCreate(ctx, stored, lookup); err != nil {
		s.log.AutomationEvent("failed", stored.ID.String(), err.Error())
	}

	return stored, nil
}

// List returns leads matching the resolved filters, newest first. Relational
// filter values resolve by id or name; an unresolvable value is a field error.
func (s *Service) List(ctx context.Context, req transport.ListLeadsRequest, lookup *refdata.Lookup) ([]domain.Lead, error) {
	var ferrs []leadvalidator.FieldError

	resolveName := func(field, value string, maps refdata.Maps) string {
		if strings.TrimSpace(value) == "" {
			return ""
		}
		id, ok := refdata.ResolveFilterID(value, maps)
		if !ok {
			ferrs = append(ferrs, leadvalidator.FieldError{Field: field, Message: field + " does not match any record"})
			return ""
		}
		return maps.NameOf(id)
	}

	filter := repository.ListFilter{
		Status:       resolveName("status", req.Status, lookup.Statuses),
		Owner:        resolveName("responsavel", req.Owner, lookup.Owners),
		Origin:       resolveName("origem", req.Origin, lookup.Origins),
		ContractType: resolveName("tipo_contrato", req.ContractType, lookup.ContractTypes),
		Phone:        normalize.Phone(req.Phone),
		EmailPrefix:  strings.TrimSpace(req.Email),
		Limit:        req.Limit,
	}
	if len(ferrs) > 0 {
		return nil, apperr.Validation(msgValidationFailed).WithDetails(ferrs)
	}

	return s.leads.List(ctx, filter)
}

// Update applies a partial update. Only fields present in the payload are
// touched; any field error discards the whole patch.
func (s *Service) Update(ctx context.Context, rawID string, payload map[string]any, lookup *refdata.Lookup) (domain.Lead, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return domain.Lead{}, apperr.BadRequest("invalid lead id")
	}

	patch, ferrs := leadvalidator.ValidateUpdate(payload, lookup)
	if len(ferrs) > 0 {
		return domain.Lead{}, apperr.Validation(msgValidationFailed).WithDetails(ferrs)
	}

	lead, err := s.leads.Update(ctx, id, patch)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	return lead, err
}

// Batch creates leads strictly in input order: entry N completes its duplicate
// check, insert, and automation before entry N+1 starts. One entry's failure
// never aborts the rest.
func (s *Service) Batch(ctx context.Context, payloads []map[string]any, lookup *refdata.Lookup) transport.BatchResult {
	result := transport.BatchResult{
		Success: make([]transport.BatchSuccess, 0, len(payloads)),
		Failed:  make([]transport.BatchFailure, 0),
	}

	for i, payload := range payloads {
		lead, err := s.Create(ctx, payload, lookup)
		if err != nil {
			failure := transport.BatchFailure{Index: i, Error: err.Error()}
			var ae *apperr.Error
			if errors.As(err, &ae) {
				failure.Error = ae.Message
				if details, ok := ae.Details.([]leadvalidator.FieldError); ok {
					failure.Details = details
				}
			}
			result.Failed = append(result.Failed, failure)
			continue
		}
		result.Success = append(result.Success, transport.BatchSuccess{Index: i, Lead: lead})
	}

	return result
}

// ManualSend dispatches caller-supplied messages to one chat. Unlike the
// create-time automation, dispatch failures here surface to the caller.
func (s *Service) ManualSend(ctx context.Context, req transport.ManualAutomationRequest) error {
	chatID := strings.TrimSpace(req.ChatID)
	if chatID == "" {
		digits := normalize.Phone(req.Phone)
		if digits == "" {
			return apperr.BadRequest("chat_id or telefone is required")
		}
		chatID = whatsapp.ChatID(digits)
	}

	return s.trigger.ManualSend(ctx, chatID, req.Messages)
}
