// Package transport defines the request and response shapes of the lead API.
// Lead create/update payloads are deliberately NOT declared here: they bind as
// map[string]any so the validator can report wrongly-typed fields instead of
// failing the bind.
package transport

import (
	"crmleads_backend/internal/leads/domain"
	leadvalidator "crmleads_backend/internal/leads/validator"
)

// ListLeadsRequest carries the query-string filters of the lead listing.
// Relational filters accept either a reference id or a display name.
type ListLeadsRequest struct {
	Status       string `form:"status" validate:"omitempty,max=100"`
	Owner        string `form:"responsavel" validate:"omitempty,max=100"`
	Origin       string `form:"origem" validate:"omitempty,max=100"`
	ContractType string `form:"tipo_contrato" validate:"omitempty,max=100"`
	Phone        string `form:"telefone" validate:"omitempty,max=32"`
	Email        string `form:"email" validate:"omitempty,max=320"`
	Limit        int    `form:"limit" validate:"omitempty,gte=1,lte=500"`
}

// ManualAutomationRequest dispatches caller-supplied messages to one chat.
// Either the raw gateway chat id or a phone number must be given.
type ManualAutomationRequest struct {
	ChatID   string   `json:"chat_id" validate:"omitempty,max=64"`
	Phone    string   `json:"telefone" validate:"omitempty,max=32"`
	Messages []string `json:"messages" validate:"required,min=1,dive,required"`
}

// BatchSuccess is one created lead, tied to its input position.
type BatchSuccess struct {
	Index int         `json:"index"`
	Lead  domain.Lead `json:"lead"`
}

// BatchFailure is one rejected entry, tied to its input position.
type BatchFailure struct {
	Index   int                        `json:"index"`
	Error   string                     `json:"error"`
	Details []leadvalidator.FieldError `json:"details,omitempty"`
}

// BatchResult pairs the ordered outcome lists of a batch creation. Indices in
// both lists refer to positions in the original input array.
type BatchResult struct {
	Success []BatchSuccess `json:"success"`
	Failed  []BatchFailure `json:"failed"`
}
