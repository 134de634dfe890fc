package trials

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/lexxi/lexxi/internal/config"
	"github.com/lexxi/lexxi/internal/db/repositories"
)

func testConfig() *config.Config {
	return &config.Config{
		Listing: config.ListingConfig{
			PageSize:            10,
			PublicationWindow:   5,
			PublicationPageSize: 3,
		},
		Directory: config.DirectoryConfig{Schema: "three_hop"},
	}
}

// newTrialsRouter wires the trial handlers behind a stub auth middleware that
// injects user-1, so handler tests exercise team resolution without JWTs.
func newTrialsRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := testConfig()
	sqlxDB := sqlx.NewDb(db, "postgres")
	h := NewHandlers(
		cfg,
		repositories.NewTrialRepository(db),
		repositories.NewPublicationRepository(db),
		repositories.NewSubscriptionRepository(sqlxDB),
		repositories.NewDirectoryRepository(sqlxDB, cfg.Directory.Schema),
	)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", "user-1")
		c.Next()
	})
	r.GET("/api/v1/trials", h.SearchHandler())
	r.GET("/api/v1/trials/:id", h.DetailHandler())
	r.GET("/api/v1/trials/:id/publications", h.PublicationsHandler())
	r.GET("/api/v1/trials/:id/subscription", h.SubscriptionStatusHandler())
	r.POST("/api/v1/trials/:id/subscribe", h.SubscribeHandler())
	r.GET("/api/v1/states", h.ListStatesHandler())
	r.GET("/api/v1/states/:id/courthouses", h.ListCourthousesHandler())
	return r, mock
}

func trialCols() []string {
	return []string{"id", "case_number", "courthouse_id", "status", "plaintiff", "defendant", "created_at", "courthouse_name"}
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

type searchMeta struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
	Pages    int `json:"pages"`
}

// ---------------------------------------------------------------------------
// Search: facet gate
// ---------------------------------------------------------------------------

func TestSearch_GatedWithoutCourthouse(t *testing.T) {
	r, mock := newTrialsRouter(t)

	w := get(r, "/api/v1/trials?q=173")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Trials []json.RawMessage `json:"trials"`
		Meta   searchMeta        `json:"meta"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Trials) != 0 || resp.Meta.Total != 0 || resp.Meta.Pages != 0 {
		t.Errorf("gated search returned results: %+v", resp)
	}

	// The gate must short-circuit before any registry query.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("database was queried despite the facet gate: %v", err)
	}
}

func TestSearch_GatedWithEmptyQuery(t *testing.T) {
	r, mock := newTrialsRouter(t)

	w := get(r, "/api/v1/trials?courthouse_id=5")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Meta searchMeta `json:"meta"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Meta.Total != 0 {
		t.Errorf("total = %d, want 0", resp.Meta.Total)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("database was queried despite the facet gate: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Search: matched
// ---------------------------------------------------------------------------

// Mirrors the canonical flow: pick the Jalisco courthouse, type a case number
// fragment, land on a single match.
func TestSearch_CourthouseAndQuery(t *testing.T) {
	r, mock := newTrialsRouter(t)

	mock.ExpectQuery("SELECT COUNT.*FROM shared_trials").
		WithArgs(5, "%173%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT st.id.*FROM shared_trials st.*ORDER BY st.case_number ASC").
		WithArgs(5, "%173%", 10, 0).
		WillReturnRows(sqlmock.NewRows(trialCols()).
			AddRow("trial-1", "173/2024", 5, "activo", nil, nil, time.Now(), "Juzgado Primero Civil"))

	w := get(r, "/api/v1/trials?courthouse_id=5&q=173")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}
	var resp struct {
		Trials []struct {
			ID             string `json:"id"`
			CaseNumber     string `json:"case_number"`
			CourthouseName string `json:"courthouse_name"`
		} `json:"trials"`
		Meta searchMeta `json:"meta"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Trials) != 1 || resp.Trials[0].CaseNumber != "173/2024" {
		t.Errorf("unexpected trials: %+v", resp.Trials)
	}
	if resp.Meta.Total != 1 || resp.Meta.Pages != 1 {
		t.Errorf("meta = %+v, want total 1 pages 1", resp.Meta)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSearch_PaginationMeta(t *testing.T) {
	r, mock := newTrialsRouter(t)

	// 23 matches at 10 per page: page 3 covers rows 20-22 (offset 20).
	mock.ExpectQuery("SELECT COUNT.*FROM shared_trials").
		WithArgs(5, "%mercantil%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(23))
	mock.ExpectQuery("SELECT st.id.*FROM shared_trials st").
		WithArgs(5, "%mercantil%", 10, 20).
		WillReturnRows(sqlmock.NewRows(trialCols()).
			AddRow("trial-21", "801/2024 mercantil", 5, "activo", nil, nil, time.Now(), "Juzgado Primero Civil").
			AddRow("trial-22", "802/2024 mercantil", 5, "activo", nil, nil, time.Now(), "Juzgado Primero Civil").
			AddRow("trial-23", "803/2024 mercantil", 5, "concluido", nil, nil, time.Now(), "Juzgado Primero Civil"))

	w := get(r, "/api/v1/trials?courthouse_id=5&q=mercantil&page=3")

	var resp struct {
		Trials []json.RawMessage `json:"trials"`
		Meta   searchMeta        `json:"meta"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Trials) != 3 {
		t.Errorf("len(trials) = %d, want 3", len(resp.Trials))
	}
	if resp.Meta.Pages != 3 || resp.Meta.Total != 23 || resp.Meta.Page != 3 {
		t.Errorf("meta = %+v, want page 3 of 3, total 23", resp.Meta)
	}
}

func TestSearch_PageSizeClamped(t *testing.T) {
	r, mock := newTrialsRouter(t)

	// page_size=50 exceeds the cap and falls back to the default of 10.
	mock.ExpectQuery("SELECT COUNT.*FROM shared_trials").
		WithArgs(5, "%x%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT st.id.*FROM shared_trials st").
		WithArgs(5, "%x%", 10, 0).
		WillReturnRows(sqlmock.NewRows(trialCols()))

	w := get(r, "/api/v1/trials?courthouse_id=5&q=x&page_size=50")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Detail
// ---------------------------------------------------------------------------

func TestDetail_PartitionsParties(t *testing.T) {
	r, mock := newTrialsRouter(t)

	mock.ExpectQuery("SELECT st.id.*WHERE st.id").
		WithArgs("trial-1").
		WillReturnRows(sqlmock.NewRows(trialCols()).
			AddRow("trial-1", "173/2024", 5, "activo", nil, nil, time.Now(), "Juzgado Primero Civil"))
	mock.ExpectQuery("SELECT id, shared_trial_id, name, role.*FROM trial_entities").
		WithArgs("trial-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "shared_trial_id", "name", "role"}).
			AddRow("e1", "trial-1", "Constructora Azteca SA", 1).
			AddRow("e2", "trial-1", "Banco del Norte", 4).
			AddRow("e3", "trial-1", "Inmobiliaria del Valle", 4))

	w := get(r, "/api/v1/trials/trial-1")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}
	var resp struct {
		Trial struct {
			Plaintiff string `json:"plaintiff"`
			Defendant string `json:"defendant"`
		} `json:"trial"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Trial.Plaintiff != "Constructora Azteca SA" {
		t.Errorf("plaintiff = %q", resp.Trial.Plaintiff)
	}
	if resp.Trial.Defendant != "Banco del Norte, Inmobiliaria del Valle" {
		t.Errorf("defendant = %q", resp.Trial.Defendant)
	}
}

func TestDetail_FallsBackToDenormalizedNames(t *testing.T) {
	r, mock := newTrialsRouter(t)

	mock.ExpectQuery("SELECT st.id.*WHERE st.id").
		WithArgs("trial-2").
		WillReturnRows(sqlmock.NewRows(trialCols()).
			AddRow("trial-2", "88/2023", 5, "activo", "Maria Lopez", "Pedro Ruiz", time.Now(), "Juzgado Primero Civil"))
	mock.ExpectQuery("SELECT id, shared_trial_id, name, role.*FROM trial_entities").
		WithArgs("trial-2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "shared_trial_id", "name", "role"}))

	w := get(r, "/api/v1/trials/trial-2")

	var resp struct {
		Trial struct {
			Plaintiff string `json:"plaintiff"`
			Defendant string `json:"defendant"`
		} `json:"trial"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Trial.Plaintiff != "Maria Lopez" || resp.Trial.Defendant != "Pedro Ruiz" {
		t.Errorf("parties = %q / %q, want denormalized fallback", resp.Trial.Plaintiff, resp.Trial.Defendant)
	}
}

func TestDetail_NotFound(t *testing.T) {
	r, mock := newTrialsRouter(t)

	mock.ExpectQuery("SELECT st.id.*WHERE st.id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(trialCols()))

	w := get(r, "/api/v1/trials/missing")

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Publications window
// ---------------------------------------------------------------------------

func TestPublications_SecondPageOfWindow(t *testing.T) {
	r, mock := newTrialsRouter(t)

	mock.ExpectQuery("SELECT st.id.*WHERE st.id").
		WithArgs("trial-1").
		WillReturnRows(sqlmock.NewRows(trialCols()).
			AddRow("trial-1", "173/2024", 5, "activo", nil, nil, time.Now(), "Juzgado Primero Civil"))

	// Window of 5: page 2 at 3 per page holds the remaining 2.
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM \(.*FROM publications`).
		WithArgs("trial-1", 5).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectQuery("SELECT id, shared_trial_id.*FROM publications").
		WithArgs("trial-1", 5, 3, 3).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "shared_trial_id", "publication_date", "agreement_date",
			"summary", "status", "document_path", "created_at",
		}).
			AddRow("pub-4", "trial-1", nil, nil, "Acuerdo 4", nil, nil, time.Now()).
			AddRow("pub-5", "trial-1", nil, nil, "Acuerdo 5", nil, "docs/pub-5.pdf", time.Now()))

	w := get(r, "/api/v1/trials/trial-1/publications?page=2")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}
	var resp struct {
		Publications []struct {
			ID          string `json:"id"`
			HasDocument bool   `json:"has_document"`
		} `json:"publications"`
		Meta searchMeta `json:"meta"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Publications) != 2 {
		t.Fatalf("len(publications) = %d, want 2", len(resp.Publications))
	}
	if !resp.Publications[1].HasDocument || resp.Publications[0].HasDocument {
		t.Errorf("has_document flags wrong: %+v", resp.Publications)
	}
	if resp.Meta.Total != 5 || resp.Meta.Pages != 2 || resp.Meta.PageSize != 3 {
		t.Errorf("meta = %+v, want total 5, pages 2, page_size 3", resp.Meta)
	}
}

// ---------------------------------------------------------------------------
// Subscription
// ---------------------------------------------------------------------------

func teamContextRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"team_id", "organization_id"}).AddRow("team-1", "org-1")
}

func TestSubscriptionStatus(t *testing.T) {
	r, mock := newTrialsRouter(t)

	mock.ExpectQuery("FROM profiles p.*JOIN team_members tm.*JOIN teams t").
		WithArgs("user-1").
		WillReturnRows(teamContextRows())
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("team-1", "trial-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	w := get(r, "/api/v1/trials/trial-1/subscription")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}
	var resp struct {
		Subscribed bool `json:"subscribed"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Subscribed {
		t.Error("subscribed = false, want true")
	}
}

func TestSubscribe_CreatesRow(t *testing.T) {
	r, mock := newTrialsRouter(t)

	mock.ExpectQuery("FROM profiles p.*JOIN team_members tm.*JOIN teams t").
		WithArgs("user-1").
		WillReturnRows(teamContextRows())
	mock.ExpectQuery("SELECT st.id.*WHERE st.id").
		WithArgs("trial-1").
		WillReturnRows(sqlmock.NewRows(trialCols()).
			AddRow("trial-1", "173/2024", 5, "activo", nil, nil, time.Now(), "Juzgado Primero Civil"))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("team-1", "trial-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO org_trials.*ON CONFLICT").
		WithArgs(sqlmock.AnyArg(), "team-1", "trial-1", "user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/trials/trial-1/subscribe", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body: %s)", w.Code, w.Body.String())
	}
	var resp struct {
		Subscribed bool `json:"subscribed"`
		Created    bool `json:"created"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Subscribed || !resp.Created {
		t.Errorf("response = %+v, want subscribed+created", resp)
	}
}

func TestSubscribe_AlreadySubscribedIsIdempotent(t *testing.T) {
	r, mock := newTrialsRouter(t)

	mock.ExpectQuery("FROM profiles p.*JOIN team_members tm.*JOIN teams t").
		WithArgs("user-1").
		WillReturnRows(teamContextRows())
	mock.ExpectQuery("SELECT st.id.*WHERE st.id").
		WithArgs("trial-1").
		WillReturnRows(sqlmock.NewRows(trialCols()).
			AddRow("trial-1", "173/2024", 5, "activo", nil, nil, time.Now(), "Juzgado Primero Civil"))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("team-1", "trial-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/trials/trial-1/subscribe", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}
	var resp struct {
		Subscribed bool `json:"subscribed"`
		Created    bool `json:"created"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Subscribed || resp.Created {
		t.Errorf("response = %+v, want subscribed without created", resp)
	}
	// No INSERT may reach the database on the duplicate path.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSubscribe_NotProvisioned(t *testing.T) {
	r, mock := newTrialsRouter(t)

	// Missing team_members link: the joined lookup returns zero rows.
	mock.ExpectQuery("FROM profiles p.*JOIN team_members tm.*JOIN teams t").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"team_id", "organization_id"}))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/trials/trial-1/subscribe", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 (body: %s)", w.Code, w.Body.String())
	}
}

// ---------------------------------------------------------------------------
// Facet reference lookups
// ---------------------------------------------------------------------------

func TestListStates(t *testing.T) {
	r, mock := newTrialsRouter(t)

	mock.ExpectQuery("SELECT id, name FROM states").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(1, "Ciudad de Mexico").
			AddRow(2, "Jalisco"))

	w := get(r, "/api/v1/states")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		States []struct {
			Name string `json:"name"`
		} `json:"states"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.States) != 2 || resp.States[1].Name != "Jalisco" {
		t.Errorf("unexpected states: %+v", resp.States)
	}
}

func TestListCourthouses_ByState(t *testing.T) {
	r, mock := newTrialsRouter(t)

	mock.ExpectQuery("SELECT ch.id, ch.name, ch.city_id.*JOIN cities ci").
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "city_id"}).
			AddRow(5, "Juzgado Primero Civil", 10))

	w := get(r, "/api/v1/states/2/courthouses")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Courthouses []struct {
			ID int `json:"id"`
		} `json:"courthouses"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Courthouses) != 1 || resp.Courthouses[0].ID != 5 {
		t.Errorf("unexpected courthouses: %+v", resp.Courthouses)
	}
}

func TestListCourthouses_BadStateID(t *testing.T) {
	r, _ := newTrialsRouter(t)

	w := get(r, "/api/v1/states/abc/courthouses")

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
