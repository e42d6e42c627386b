package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"crmleads_backend/platform/config"
	"crmleads_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
)

func newRouter(t *testing.T, mock pgxmock.PgxPoolIface, token string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{SetupToken: token}
	h := NewHandler(NewRepository(mock), cfg, logger.New("development"))

	engine := gin.New()
	engine.POST("/api/admin/bootstrap", h.Bootstrap)
	return engine
}

func post(engine *gin.Engine, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/admin/bootstrap", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(SetupTokenHeader, token)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

const validBody = `{"nome": "Ana Costa", "email": "ana@example.com", "senha": "segredo-forte"}`

func TestBootstrap_RejectsBadToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	engine := newRouter(t, mock, "expected-token")

	rec := post(engine, "wrong-token", validBody)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no store access expected before token check: %v", err)
	}
}

func TestBootstrap_RejectsWhenTokenUnconfigured(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	engine := newRouter(t, mock, "")

	rec := post(engine, "", validBody)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 when no token is configured, got %d", rec.Code)
	}
}

func TestBootstrap_RefusesOnceInitialized(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	engine := newRouter(t, mock, "expected-token")

	rec := post(engine, "expected-token", validBody)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestBootstrap_CreatesFirstUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	userID := uuid.New()
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("INSERT INTO users").
		WithArgs("Ana Costa", "ana@example.com", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(userID))

	engine := newRouter(t, mock, "expected-token")

	rec := post(engine, "expected-token", validBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), userID.String()) {
		t.Fatalf("expected user id in response, got %s", rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestBootstrap_ValidatesPayload(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	engine := newRouter(t, mock, "expected-token")

	rec := post(engine, "expected-token", `{"nome": "A", "email": "nope", "senha": "short"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
