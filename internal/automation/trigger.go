package automation

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"crmleads_backend/internal/leads/domain"
	"crmleads_backend/internal/leads/repository"
	"crmleads_backend/internal/refdata"
	"crmleads_backend/internal/whatsapp"
	"crmleads_backend/platform/apperr"
	"crmleads_backend/platform/logger"
	"crmleads_backend/platform/phone"
)

// InteractionAutomaticMessage tags interaction-log rows written by the
// automatic trigger.
const InteractionAutomaticMessage = "mensagem_automatica"

// Trigger runs the post-creation messaging automation.
type Trigger struct {
	settings *SettingsRepository
	leads    *repository.Repository
	client   *whatsapp.Client
	log      *logger.Logger
	now      func() time.Time
}

// NewTrigger creates the automation trigger.
func NewTrigger(settings *SettingsRepository, leads *repository.Repository, client *whatsapp.Client, log *logger.Logger) *Trigger {
	return &Trigger{
		settings: settings,
		leads:    leads,
		client:   client,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// FireOnCreate runs the single-shot automation for a freshly created lead:
// load settings, pick the first active step by delay, render, dispatch, and
// record the side effect. A missing or disabled configuration is a logged
// no-op. Any returned error is for the caller to log and discard; automation
// must never fail the lead-creation response that triggered it.
func (t *Trigger) FireOnCreate(ctx context.Context, lead domain.Lead, lookup *refdata.Lookup) error {
	settings, err := t.settings.Load(ctx)
	if errors.Is(err, ErrNotConfigured) {
		t.log.AutomationEvent("skipped", lead.ID.String(), "settings missing")
		return nil
	}
	if err != nil {
		return err
	}
	if !settings.Enabled {
		t.log.AutomationEvent("skipped", lead.ID.String(), "automation disabled")
		return nil
	}

	step, ok := firstActiveStep(settings.MessageFlow)
	if !ok {
		t.log.AutomationEvent("skipped", lead.ID.String(), "no active step with message text")
		return nil
	}

	if lead.Phone == "" || settings.SessionID == "" {
		t.log.AutomationEvent("skipped", lead.ID.String(), "missing phone or session")
		return nil
	}

	if !phone.IsPlausible(lead.Phone) {
		t.log.Warn("lead phone looks implausible for dispatch", "lead_id", lead.ID.String(), "phone", lead.Phone)
	}

	message := ApplyTemplateVariables(step.Message, lead)
	endpoint := whatsapp.Endpoint{
		BaseURL:   settings.BaseURL,
		APIKey:    settings.APIKey,
		SessionID: settings.SessionID,
	}

	if err := t.client.SendMessage(ctx, endpoint, whatsapp.ChatID(lead.Phone), message); err != nil {
		return err
	}

	sentAt := t.now()
	if err := t.leads.InsertInteraction(ctx, lead.ID, InteractionAutomaticMessage, message, sentAt); err != nil {
		return err
	}

	return t.leads.ApplyAutomationResult(ctx, lead.ID, statusAfterSend(settings, lookup), sentAt)
}

// statusAfterSend resolves the configured post-send status, falling back to
// the default status; nil means only the timestamp is refreshed.
func statusAfterSend(settings Settings, lookup *refdata.Lookup) *string {
	statusID, ok := refdata.ResolveFilterID(settings.StatusOnSend, lookup.Statuses)
	if !ok {
		statusID = lookup.DefaultStatusID
	}
	if statusID == "" {
		return nil
	}

	name := lookup.Statuses.NameOf(statusID)
	if name == "" {
		return nil
	}
	return &name
}

// firstActiveStep filters the flow to active steps with message text and
// returns the one with the smallest delay. Ties keep flow order.
func firstActiveStep(flow []Step) (Step, bool) {
	active := make([]Step, 0, len(flow))
	for _, step := range flow {
		if step.Active && strings.TrimSpace(step.Message) != "" {
			active = append(active, step)
		}
	}
	if len(active) == 0 {
		return Step{}, false
	}

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].DelaySeconds < active[j].DelaySeconds
	})

	return active[0], true
}

// ManualSend dispatches a caller-supplied list of messages sequentially to
// one chat, stopping at the first failure. Unlike the automatic trigger,
// failures here are surfaced to the caller.
func (t *Trigger) ManualSend(ctx context.Context, chatID string, messages []string) error {
	settings, err := t.settings.Load(ctx)
	if errors.Is(err, ErrNotConfigured) {
		return apperr.BadRequest("automation settings not configured")
	}
	if err != nil {
		return apperr.Internal(err.Error())
	}
	if settings.SessionID == "" {
		return apperr.BadRequest("automation session is not configured")
	}

	endpoint := whatsapp.Endpoint{
		BaseURL:   settings.BaseURL,
		APIKey:    settings.APIKey,
		SessionID: settings.SessionID,
	}

	for _, message := range messages {
		if err := t.client.SendMessage(ctx, endpoint, chatID, message); err != nil {
			return apperr.Wrap(apperr.KindUpstream, err.Error(), err)
		}
	}

	return nil
}
