package automation

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"crmleads_backend/internal/leads/domain"
	"crmleads_backend/internal/leads/repository"
	"crmleads_backend/internal/refdata"
	"crmleads_backend/internal/whatsapp"
	"crmleads_backend/platform/apperr"
	"crmleads_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

var (
	statusNewID       = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	statusContactedID = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

func testLookup() *refdata.Lookup {
	return refdata.Build(
		[]refdata.Row{
			{ID: statusNewID, Name: "Novo", IsDefault: true},
			{ID: statusContactedID, Name: "Contatado"},
		},
		nil, nil, nil,
	)
}

func testLead() domain.Lead {
	return domain.Lead{
		ID:       uuid.New(),
		FullName: "Maria Souza",
		Phone:    "11999998888",
		Origin:   "Site",
		Owner:    "Ana Costa",
	}
}

func settingsRow(t *testing.T, config string) *pgxmock.Rows {
	t.Helper()
	return pgxmock.NewRows([]string{"config"}).AddRow([]byte(config))
}

func newTrigger(t *testing.T, mock pgxmock.PgxPoolIface) *Trigger {
	t.Helper()
	log := logger.New("development")
	return NewTrigger(NewSettingsRepository(mock), repository.New(mock), whatsapp.NewClient(log), log)
}

func TestFireOnCreate_DisabledIsNoOp(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	var dispatches atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dispatches.Add(1)
	}))
	defer server.Close()

	mock.ExpectQuery("FROM automation_settings").WillReturnRows(settingsRow(t,
		`{"enabled": false, "base_url": "`+server.URL+`", "session_id": "vendas",
		  "message_flow": [{"message": "Olá", "delay_seconds": 0, "active": true}]}`))

	trig := newTrigger(t, mock)
	if err := trig.FireOnCreate(context.Background(), testLead(), testLookup()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dispatches.Load() != 0 {
		t.Fatal("expected zero dispatches when disabled")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected no lead writes: %v", err)
	}
}

func TestFireOnCreate_MissingSettingsIsNoOp(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectQuery("FROM automation_settings").WillReturnError(pgx.ErrNoRows)

	trig := newTrigger(t, mock)
	if err := trig.FireOnCreate(context.Background(), testLead(), testLookup()); err != nil {
		t.Fatalf("expected missing settings to be a no-op, got: %v", err)
	}
}

func TestFireOnCreate_DispatchesFirstStepAndRecordsSideEffects(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
	}))
	defer server.Close()

	lead := testLead()

	mock.ExpectQuery("FROM automation_settings").WillReturnRows(settingsRow(t,
		`{"enabled": true, "base_url": "`+server.URL+`", "session_id": "vendas",
		  "status_on_send": "Contatado",
		  "message_flow": [
			{"message": "Mais tarde", "delay_seconds": 60, "active": true},
			{"message": "Olá {{primeiro_nome}}", "delay_seconds": 5, "active": true},
			{"message": "Inativa", "delay_seconds": 0, "active": false}
		  ]}`))
	mock.ExpectExec("INSERT INTO interactions").
		WithArgs(lead.ID, InteractionAutomaticMessage, "Olá Maria", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE leads").
		WithArgs(lead.ID, "Contatado", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	trig := newTrigger(t, mock)
	if err := trig.FireOnCreate(context.Background(), lead, testLookup()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(gotBody, "5511999998888@c.us") {
		t.Fatalf("expected chat id in dispatch body, got %q", gotBody)
	}
	if !strings.Contains(gotBody, "Olá Maria") {
		t.Fatalf("expected rendered lowest-delay step, got %q", gotBody)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestFireOnCreate_MissingPhoneSkips(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectQuery("FROM automation_settings").WillReturnRows(settingsRow(t,
		`{"enabled": true, "base_url": "http://gateway", "session_id": "vendas",
		  "message_flow": [{"message": "Olá", "delay_seconds": 0, "active": true}]}`))

	lead := testLead()
	lead.Phone = ""

	trig := newTrigger(t, mock)
	if err := trig.FireOnCreate(context.Background(), lead, testLookup()); err != nil {
		t.Fatalf("expected missing phone to be a no-op, got: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected no writes: %v", err)
	}
}

func TestStatusAfterSend_FallsBackToDefault(t *testing.T) {
	lookup := testLookup()

	status := statusAfterSend(Settings{StatusOnSend: "Inexistente"}, lookup)
	if status == nil || *status != "Novo" {
		t.Fatalf("expected default status fallback, got %v", status)
	}

	status = statusAfterSend(Settings{StatusOnSend: "contatado"}, lookup)
	if status == nil || *status != "Contatado" {
		t.Fatalf("expected configured status, got %v", status)
	}
}

func TestFirstActiveStep_OrdersByDelay(t *testing.T) {
	flow := []Step{
		{Message: "c", DelaySeconds: 30, Active: true},
		{Message: "  ", DelaySeconds: 0, Active: true},
		{Message: "a", DelaySeconds: 10, Active: true},
		{Message: "b", DelaySeconds: 5, Active: false},
	}

	step, ok := firstActiveStep(flow)
	if !ok || step.Message != "a" {
		t.Fatalf("expected step a, got %+v ok=%v", step, ok)
	}

	if _, ok := firstActiveStep(nil); ok {
		t.Fatal("expected empty flow to have no step")
	}
}

func TestManualSend_StopsAtFirstFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 2 {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("gateway offline"))
		}
	}))
	defer server.Close()

	mock.ExpectQuery("FROM automation_settings").WillReturnRows(settingsRow(t,
		`{"enabled": true, "base_url": "`+server.URL+`", "session_id": "vendas"}`))

	trig := newTrigger(t, mock)
	err = trig.ManualSend(context.Background(), "5511999998888@c.us", []string{"um", "dois", "três"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !apperr.Is(err, apperr.KindUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected dispatch to stop after failure, got %d calls", calls.Load())
	}
}
