package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valle1212i/admin-portal-sub000/internal/auth"
	"github.com/valle1212i/admin-portal-sub000/internal/config"
	"github.com/valle1212i/admin-portal-sub000/internal/domain"
	"github.com/valle1212i/admin-portal-sub000/internal/service/cases"
	"github.com/valle1212i/admin-portal-sub000/internal/service/ingest"
	"github.com/valle1212i/admin-portal-sub000/internal/service/packages"
	"github.com/valle1212i/admin-portal-sub000/internal/signature"
)

const testSecret = "webhook-test-secret"

// ---- in-memory fakes -------------------------------------------------------

type memSubmissions struct {
	mu    sync.Mutex
	byKey map[string]*domain.Submission
}

func (m *memSubmissions) InsertIfAbsent(_ context.Context, sub *domain.Submission) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byKey[sub.IdempotencyKey]; ok {
		return false, nil
	}
	cp := *sub
	m.byKey[sub.IdempotencyKey] = &cp
	return true, nil
}

func (m *memSubmissions) GetByID(_ context.Context, id string) (*domain.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byKey {
		if s.ID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ingest.ErrNotFound
}

func (m *memSubmissions) List(_ context.Context, _ ingest.ListFilter) (*ingest.ListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := []domain.Submission{}
	for _, s := range m.byKey {
		items = append(items, *s)
	}
	return &ingest.ListResult{Items: items, Total: len(items), Source: "submissions"}, nil
}

type memCases struct {
	mu        sync.Mutex
	bySession map[string]*domain.Case
	byID      map[string]*domain.Case
}

func newMemCases() *memCases {
	return &memCases{bySession: map[string]*domain.Case{}, byID: map[string]*domain.Case{}}
}

func (m *memCases) CreateIfAbsent(_ context.Context, c *domain.Case, msgs []domain.CaseMessage) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bySession[c.SessionID]; ok {
		return false, nil
	}
	cp := *c
	cp.Messages = append([]domain.CaseMessage(nil), msgs...)
	m.bySession[c.SessionID] = &cp
	m.byID[c.ID] = &cp
	return true, nil
}

func (m *memCases) GetByID(_ context.Context, id string) (*domain.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, cases.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCases) GetBySessionID(_ context.Context, sessionID string) (*domain.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.bySession[sessionID]
	if !ok {
		return nil, cases.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCases) AppendMessage(_ context.Context, caseID string, msg *domain.CaseMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[caseID]
	if !ok {
		return cases.ErrNotFound
	}
	c.Messages = append(c.Messages, *msg)
	if c.Status == domain.CaseClosed {
		c.Status = domain.CaseOpen
	}
	return nil
}

func (m *memCases) Assign(_ context.Context, caseID, newAdmin, assignedBy string) (*domain.AssignmentEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[caseID]
	if !ok {
		return nil, cases.ErrNotFound
	}
	ev := &domain.AssignmentEvent{
		CaseID:        caseID,
		PreviousAdmin: c.AssignedAdmin,
		NewAdmin:      newAdmin,
		AssignedBy:    assignedBy,
		Action:        cases.ClassifyAssignment(c.AssignedAdmin, newAdmin),
		CreatedAt:     time.Now().UTC(),
	}
	c.AssignedAdmin = newAdmin
	return ev, nil
}

func (m *memCases) AddNote(_ context.Context, note *domain.InternalNote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[note.CaseID]; !ok {
		return cases.ErrNotFound
	}
	return nil
}

func (m *memCases) Close(_ context.Context, id string) (*domain.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, cases.ErrNotFound
	}
	c.Status = domain.CaseClosed
	cp := *c
	return &cp, nil
}

func (m *memCases) List(_ context.Context, _ cases.ListFilter) ([]domain.Case, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Case{}
	for _, c := range m.byID {
		out = append(out, *c)
	}
	return out, len(out), nil
}

type memPackages struct {
	mu        sync.Mutex
	customers map[string]*domain.Customer
	requests  map[string]*domain.PackageChangeRequest
}

func (m *memPackages) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return nil, packages.ErrCustomerNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memPackages) CreateChangeRequest(_ context.Context, req *domain.PackageChangeRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *req
	m.requests[req.ID] = &cp
	return nil
}

func (m *memPackages) UpdateCustomerPackage(_ context.Context, customerID string, pkg domain.PackageTier, maxUsers int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[customerID]
	if !ok {
		return packages.ErrCustomerNotFound
	}
	c.Package = pkg
	c.MaxUsers = maxUsers
	return nil
}

func (m *memPackages) Resolve(_ context.Context, customerID, requestID string, status domain.ChangeRequestStatus, actor string, at time.Time) (*domain.PackageChangeRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[requestID]
	if !ok || req.CustomerID != customerID {
		return nil, packages.ErrRequestNotFound
	}
	if req.Status != domain.ChangePending {
		return nil, packages.ErrNotPending
	}
	req.Status = status
	req.ApprovedBy = actor
	req.ApprovedAt = &at
	cp := *req
	return &cp, nil
}

type nopPortal struct{}

func (nopPortal) PushPackageChange(context.Context, *domain.Customer, *domain.PackageChangeRequest) error {
	return nil
}

func (nopPortal) QueuedPackageChange(c *domain.Customer, req *domain.PackageChangeRequest) (*domain.OutboundMessage, error) {
	return &domain.OutboundMessage{Kind: domain.OutboundPortalSync}, nil
}

type memOutbox struct {
	mu     sync.Mutex
	queued []*domain.OutboundMessage
}

func (m *memOutbox) Enqueue(_ context.Context, msg *domain.OutboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued = append(m.queued, msg)
	return nil
}

func (m *memOutbox) ListByStatus(context.Context, domain.OutboundStatus, int) ([]domain.OutboundMessage, error) {
	return nil, nil
}

func (m *memOutbox) Retry(context.Context, string) error { return nil }

type memDeliveries struct {
	mu    sync.Mutex
	byKey map[string]*domain.WebhookDelivery
}

func (m *memDeliveries) Find(_ context.Context, key string) (*domain.WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.byKey[key]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, nil
}

func (m *memDeliveries) Record(_ context.Context, d *domain.WebhookDelivery) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byKey[d.IdempotencyKey]; ok {
		return false, nil
	}
	cp := *d
	m.byKey[d.IdempotencyKey] = &cp
	return true, nil
}

func (m *memDeliveries) SetResponse(_ context.Context, key string, status int, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.byKey[key]; ok {
		d.ResponseStatus = status
		d.ResponseBody = body
	}
	return nil
}

func (m *memDeliveries) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.byKey[key]; ok && d.ResponseStatus == 0 {
		delete(m.byKey, key)
	}
	return nil
}

// ---- fixture ----------------------------------------------------------------

type fixture struct {
	handler    http.Handler
	cases      *memCases
	packages   *memPackages
	outbox     *memOutbox
	deliveries *memDeliveries
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	caseRepo := newMemCases()
	pkgRepo := &memPackages{
		customers: map[string]*domain.Customer{
			"cust-1": {ID: "cust-1", Name: "Valles Bageri AB", Package: domain.PackageBas, MaxUsers: 5},
		},
		requests: map[string]*domain.PackageChangeRequest{},
	}
	outbox := &memOutbox{}
	deliveries := &memDeliveries{byKey: map[string]*domain.WebhookDelivery{}}

	h := NewHandlers(
		config.IngestConfig{WebhookSecret: testSecret, MaxBodyBytes: 1 << 20},
		signature.NewVerifier(testSecret),
		nil, // no rate limiter in tests
		ingest.NewService(&memSubmissions{byKey: map[string]*domain.Submission{}}),
		cases.NewService(caseRepo, nil),
		packages.NewService(pkgRepo, nopPortal{}, outbox, []string{"chef@valle.se"}),
		outbox,
		deliveries,
		nil, // no session auth
		[]string{"admin@valle.se"},
		nil, nil,
	)

	return &fixture{
		handler:    SetupRoutes(h, nil, []string{"*"}),
		cases:      caseRepo,
		packages:   pkgRepo,
		outbox:     outbox,
		deliveries: deliveries,
	}
}

func (f *fixture) ingest(t *testing.T, payload string, sign bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/ingest", bytes.NewReader([]byte(payload)))
	if sign {
		req.Header.Set("x-signature", signature.NewVerifier(testSecret).Sign([]byte(payload)))
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

// ---- ingest endpoint --------------------------------------------------------

func TestIngest_RejectsBadSignature(t *testing.T) {
	f := newFixture(t)

	rec := f.ingest(t, `{"idempotencyKey":"k1"}`, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Tampered body with a stale signature.
	payload := `{"idempotencyKey":"k1"}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/ingest", bytes.NewReader([]byte(payload+" ")))
	req.Header.Set("x-signature", signature.NewVerifier(testSecret).Sign([]byte(payload)))
	rec2 := httptest.NewRecorder()
	f.handler.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusUnauthorized, rec2.Code)
}

func TestIngest_RejectsInvalidPayloads(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusBadRequest, f.ingest(t, `{not json`, true).Code)
	assert.Equal(t, http.StatusBadRequest, f.ingest(t, `{"tenantId":"t1"}`, true).Code)
}

func TestIngest_AdsIsSilent(t *testing.T) {
	f := newFixture(t)

	rec := f.ingest(t, `{"idempotencyKey":"ads-1","tenantId":"t1","platform":"google","q1":"mål"}`, true)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestIngest_CaseScenario(t *testing.T) {
	f := newFixture(t)

	payload := `{"idempotencyKey":"abc123","sessionId":"s1","type":"case",
		"case":{"sessionId":"s1","customerId":"c1","topic":"Billing",
		"messages":[{"sender":"Support","message":" Hello "},{"sender":"bot","message":""}]}}`

	rec := f.ingest(t, payload, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotEmpty(t, resp.ID)

	// Exactly one sanitized message survived.
	c := f.cases.byID[resp.ID]
	require.NotNil(t, c)
	require.Len(t, c.Messages, 1)
	assert.Equal(t, domain.SenderAdmin, c.Messages[0].Sender)
	assert.Equal(t, "Hello", c.Messages[0].Message)

	// The admin notification rides the outbox.
	require.Len(t, f.outbox.queued, 1)
	assert.Equal(t, domain.OutboundAdminEmail, f.outbox.queued[0].Kind)

	// Re-submitting the identical payload replays the recorded response
	// and creates nothing new.
	rec2 := f.ingest(t, payload, true)
	assert.Equal(t, http.StatusOK, rec2.Code)
	assert.JSONEq(t, rec.Body.String(), rec2.Body.String())
	assert.Len(t, f.cases.byID, 1)
	assert.Len(t, f.outbox.queued, 1)
}

func TestIngest_CaseMissingFields(t *testing.T) {
	f := newFixture(t)

	rec := f.ingest(t, `{"idempotencyKey":"k2","type":"case","case":{"sessionId":"s1"}}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngest_DuplicateSessionAcksExistingCase(t *testing.T) {
	f := newFixture(t)

	rec := f.ingest(t, `{"idempotencyKey":"d1","type":"case",
		"case":{"sessionId":"s9","customerId":"c1","topic":"Billing"}}`, true)
	require.Equal(t, http.StatusOK, rec.Code)
	var first struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))

	// A fresh idempotency key for the same session bypasses the replay
	// and must still acknowledge with the persisted case's id.
	rec2 := f.ingest(t, `{"idempotencyKey":"d2","type":"case",
		"case":{"sessionId":"s9","customerId":"c1","topic":"Billing again"}}`, true)
	require.Equal(t, http.StatusOK, rec2.Code)
	var second struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &second))
	assert.Equal(t, first.ID, second.ID)
	require.NotNil(t, f.cases.byID[second.ID])

	// Nothing new was written and no second notification queued.
	assert.Len(t, f.cases.byID, 1)
	assert.Len(t, f.outbox.queued, 1)
}

func TestIngest_InFlightDuplicateConflicts(t *testing.T) {
	f := newFixture(t)

	// A claim without a response marks a delivery still processing.
	f.deliveries.byKey["busy"] = &domain.WebhookDelivery{
		IdempotencyKey: "busy",
		Category:       domain.CategoryCase,
		CreatedAt:      time.Now().UTC(),
	}

	rec := f.ingest(t, `{"idempotencyKey":"busy","type":"case",
		"case":{"sessionId":"s10","customerId":"c1","topic":"Billing"}}`, true)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, f.cases.byID)
}

func TestIngest_RejectedDeliveryReleasesClaim(t *testing.T) {
	f := newFixture(t)

	// Validation failure must not burn the key: the corrected retry runs.
	rec := f.ingest(t, `{"idempotencyKey":"r1","type":"case","case":{"sessionId":"s11"}}`, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec2 := f.ingest(t, `{"idempotencyKey":"r1","type":"case",
		"case":{"sessionId":"s11","customerId":"c1","topic":"Billing"}}`, true)
	assert.Equal(t, http.StatusOK, rec2.Code)
	assert.Len(t, f.cases.byID, 1)
}

func TestIngest_CaseResponse(t *testing.T) {
	f := newFixture(t)

	// Seed a closed case.
	rec := f.ingest(t, `{"idempotencyKey":"k-case","type":"case",
		"case":{"sessionId":"s2","customerId":"c1","topic":"Fråga","status":"stängd"}}`, true)
	require.Equal(t, http.StatusOK, rec.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec2 := f.ingest(t, `{"idempotencyKey":"k-resp","type":"case_response",
		"caseId":"`+created.ID+`","message":"är ni kvar?"}`, true)
	require.Equal(t, http.StatusOK, rec2.Code)

	// Reopened with the message present.
	c := f.cases.byID[created.ID]
	assert.Equal(t, domain.CaseOpen, c.Status)
	require.Len(t, c.Messages, 1)

	// Unknown case and blank message.
	assert.Equal(t, http.StatusNotFound,
		f.ingest(t, `{"idempotencyKey":"k3","type":"case_response","caseId":"missing","message":"x"}`, true).Code)
	assert.Equal(t, http.StatusBadRequest,
		f.ingest(t, `{"idempotencyKey":"k4","type":"case_response","caseId":"`+created.ID+`","message":"  "}`, true).Code)
}

func TestIngest_SubmissionAck(t *testing.T) {
	f := newFixture(t)

	rec := f.ingest(t, `{"idempotencyKey":"ai-1","source":"ai-studio","generationType":"image","prompt":"logotyp"}`, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success  bool   `json:"success"`
		ID       string `json:"id"`
		Category string `json:"category"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "ai-studio", resp.Category)
	assert.NotEmpty(t, resp.ID)
}

// ---- admin endpoints ---------------------------------------------------------

func TestListSubmissions_Envelope(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, `{"idempotencyKey":"a1","q1":"x"}`, true)

	rec := f.do(t, http.MethodGet, "/api/submissions?page=1&limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(1), resp["page"])
	assert.Equal(t, float64(10), resp["limit"])
	assert.Equal(t, float64(1), resp["total"])
	assert.Equal(t, "submissions", resp["source"])
}

func TestCaseAdminFlow(t *testing.T) {
	f := newFixture(t)
	rec := f.ingest(t, `{"idempotencyKey":"k1","type":"case",
		"case":{"sessionId":"s1","customerId":"c1","topic":"Billing"}}`, true)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = f.do(t, http.MethodPost, "/api/cases/"+created.ID+"/assign",
		`{"adminId":"admin-1","assignedBy":"chef@valle.se"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var ev domain.AssignmentEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ev))
	assert.Equal(t, domain.ActionAssigned, ev.Action)

	assert.Equal(t, http.StatusBadRequest,
		f.do(t, http.MethodPost, "/api/cases/"+created.ID+"/notes", `{"note":"  "}`).Code)
	assert.Equal(t, http.StatusCreated,
		f.do(t, http.MethodPost, "/api/cases/"+created.ID+"/notes", `{"note":"ring kunden"}`).Code)

	rec = f.do(t, http.MethodPost, "/api/cases/"+created.ID+"/close", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusNotFound,
		f.do(t, http.MethodGet, "/api/cases/missing", "").Code)
}

func TestChangePackage_AndApproval(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/customers/cust-1/change-package",
		`{"package":"premium","effectiveDate":"immediate","requestedBy":"admin@valle.se"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Request    domain.PackageChangeRequest `json:"request"`
		SyncStatus string                      `json:"syncStatus"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "synced", resp.SyncStatus)
	assert.Equal(t, domain.PackagePremium, f.packages.customers["cust-1"].Package)

	reqID := resp.Request.ID

	// Actor outside the allowlist: 403 and the request stays pending.
	rec = f.do(t, http.MethodPost, "/api/package-change/cust-1/"+reqID+"/approve",
		`{"actor":"intruder@evil.se"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, domain.ChangePending, f.packages.requests[reqID].Status)

	rec = f.do(t, http.MethodPost, "/api/package-change/cust-1/"+reqID+"/approve",
		`{"actor":"chef@valle.se"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// Second resolution conflicts.
	rec = f.do(t, http.MethodPost, "/api/package-change/cust-1/"+reqID+"/reject",
		`{"actor":"chef@valle.se"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	assert.Equal(t, http.StatusBadRequest,
		f.do(t, http.MethodPost, "/api/customers/cust-1/change-package",
			`{"package":"enterprise","requestedBy":"a@b.se"}`).Code)
	assert.Equal(t, http.StatusNotFound,
		f.do(t, http.MethodPost, "/api/customers/missing/change-package",
			`{"package":"premium","requestedBy":"a@b.se"}`).Code)
}

func TestParsePagination(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/submissions?page=0&limit=9999", nil)
	p := ParsePagination(r)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, maxPageSize, p.Limit)
	assert.Equal(t, 0, p.Offset)

	r = httptest.NewRequest(http.MethodGet, "/api/submissions?page=3&limit=20", nil)
	p = ParsePagination(r)
	assert.Equal(t, 40, p.Offset)
}

func TestParseTimeParam_DateOnlyRangeIsInclusive(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/submissions?from=2026-08-28&to=2026-08-28", nil)

	from := parseTimeParam(r, "from", false)
	to := parseTimeParam(r, "to", true)
	require.NotNil(t, from)
	require.NotNil(t, to)

	// A single-day range must cover the whole day on both ends.
	lateThatDay := time.Date(2026, 8, 28, 23, 59, 59, 0, time.UTC)
	assert.False(t, from.After(lateThatDay))
	assert.False(t, to.Before(lateThatDay))
	assert.True(t, to.Before(time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)))

	// Explicit timestamps pass through untouched.
	r = httptest.NewRequest(http.MethodGet, "/api/submissions?to=2026-08-28T12:00:00Z", nil)
	to = parseTimeParam(r, "to", true)
	require.NotNil(t, to)
	assert.Equal(t, time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC), to.UTC())
}

func TestAdminAPIRequiresSession(t *testing.T) {
	t.Setenv("DEV_MODE", "")
	t.Setenv("ENVIRONMENT", "")

	manager := auth.NewManager(config.AuthConfig{
		Enabled:        true,
		GoogleClientID: "client-id",
		CookieName:     "admin_session",
	}, "http://localhost:8080")

	caseRepo := newMemCases()
	deliveries := &memDeliveries{byKey: map[string]*domain.WebhookDelivery{}}
	h := NewHandlers(
		config.IngestConfig{WebhookSecret: testSecret, MaxBodyBytes: 1 << 20},
		signature.NewVerifier(testSecret),
		nil,
		ingest.NewService(&memSubmissions{byKey: map[string]*domain.Submission{}}),
		cases.NewService(caseRepo, nil),
		packages.NewService(&memPackages{}, nopPortal{}, &memOutbox{}, nil),
		&memOutbox{},
		deliveries,
		manager,
		nil,
		nil, nil,
	)
	handler := SetupRoutes(h, manager, []string{"*"})

	// No session cookie: the admin surface is closed.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cases", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// The webhook and health endpoints stay open.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
