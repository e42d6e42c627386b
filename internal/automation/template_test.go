package automation

import (
	"testing"

	"crmleads_backend/internal/leads/domain"
)

func TestApplyTemplateVariables_FirstName(t *testing.T) {
	lead := domain.Lead{FullName: "Maria Souza"}
	got := ApplyTemplateVariables("Olá {{primeiro_nome}}", lead)
	if got != "Olá Maria" {
		t.Fatalf("expected %q, got %q", "Olá Maria", got)
	}
}

func TestApplyTemplateVariables_CaseInsensitiveAndSpaced(t *testing.T) {
	city := "Campinas"
	lead := domain.Lead{FullName: "Maria Souza", Origin: "Site", City: &city, Owner: "Ana Costa"}

	got := ApplyTemplateVariables("{{ NOME }} | {{Origem}} | {{ cidade}} | {{RESPONSAVEL}}", lead)
	want := "Maria Souza | Site | Campinas | Ana Costa"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestApplyTemplateVariables_MissingValuesRenderEmpty(t *testing.T) {
	got := ApplyTemplateVariables("cidade: {{cidade}}!", domain.Lead{})
	if got != "cidade: !" {
		t.Fatalf("expected empty render, got %q", got)
	}
}

func TestApplyTemplateVariables_UnknownPlaceholderUntouched(t *testing.T) {
	got := ApplyTemplateVariables("{{cupom}} para {{nome}}", domain.Lead{FullName: "Maria"})
	if got != "{{cupom}} para Maria" {
		t.Fatalf("expected unknown placeholder kept, got %q", got)
	}
}
