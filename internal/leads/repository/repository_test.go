package repository

import (
	"context"
	"testing"
	"time"

	"crmleads_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { mock.Close() })
	return mock
}

func TestHasDuplicate_NoUsableFilterSkipsQuery(t *testing.T) {
	mock := newMock(t)

	dup, err := New(mock).HasDuplicate(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dup {
		t.Fatal("expected no duplicate without filter values")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected no query to run: %v", err)
	}
}

func TestHasDuplicate_MatchesPhone(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("11999998888", "").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	dup, err := New(mock).HasDuplicate(context.Background(), "11999998888", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dup {
		t.Fatal("expected duplicate to be detected")
	}
}

func TestHasDuplicate_EscapesEmailWildcards(t *testing.T) {
	mock := newMock(t)

	email := "maria_s@example.com"
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("", `maria\_s@example.com`).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	dup, err := New(mock).HasDuplicate(context.Background(), "", &email)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dup {
		t.Fatal("expected no duplicate")
	}
}

func TestUpdate_EmptyPatchFallsBackToGet(t *testing.T) {
	mock := newMock(t)
	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT id, nome_completo").
		WithArgs(id).
		WillReturnRows(leadRows(id, now))

	lead, err := New(mock).Update(context.Background(), id, domain.LeadPatch{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lead.ID != id {
		t.Fatalf("expected lead %s, got %s", id, lead.ID)
	}
}

func TestUpdate_BuildsSetClauseFromPatch(t *testing.T) {
	mock := newMock(t)
	id := uuid.New()
	now := time.Now().UTC()

	name := "Maria Souza"
	status := "Fechado"
	patch := domain.LeadPatch{
		FullName: &name,
		Status:   &status,
		Email:    domain.OptionalString{Set: true}, // clears the column
	}

	mock.ExpectQuery("UPDATE leads").
		WithArgs(name, (*string)(nil), status, id).
		WillReturnRows(leadRows(id, now))

	if _, err := New(mock).Update(context.Background(), id, patch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUpdate_MissingLeadReturnsErrNotFound(t *testing.T) {
	mock := newMock(t)
	id := uuid.New()

	name := "Maria Souza"
	mock.ExpectQuery("UPDATE leads").
		WithArgs(name, id).
		WillReturnRows(pgxmock.NewRows(leadColumnNames()))

	_, err := New(mock).Update(context.Background(), id, domain.LeadPatch{FullName: &name})
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func leadColumnNames() []string {
	return []string{
		"id", "nome_completo", "telefone", "email", "cidade", "regiao", "cep", "endereco", "estado",
		"origem", "tipo_contrato", "operadora_atual", "status", "responsavel",
		"proximo_contato", "observacoes", "data_criacao", "ultimo_contato", "arquivado",
	}
}

func leadRows(id uuid.UUID, now time.Time) *pgxmock.Rows {
	return pgxmock.NewRows(leadColumnNames()).AddRow(
		id, "Maria Souza", "11999998888", nil, nil, nil, nil, nil, nil,
		"Site", "Pessoa Física", nil, "Novo", "Ana Costa",
		nil, nil, now, now, false,
	)
}
