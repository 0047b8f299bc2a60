package cases

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valle1212i/admin-portal-sub000/internal/domain"
)

// mockRepo is an in-memory case store. AppendMessage mirrors the real
// repository's atomicity: the message insert and the closed→open flip
// happen under one lock.
type mockRepo struct {
	mu          sync.Mutex
	bySession   map[string]*domain.Case
	byID        map[string]*domain.Case
	assignments map[string][]domain.AssignmentEvent
	notes       map[string][]domain.InternalNote
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		bySession:   make(map[string]*domain.Case),
		byID:        make(map[string]*domain.Case),
		assignments: make(map[string][]domain.AssignmentEvent),
		notes:       make(map[string][]domain.InternalNote),
	}
}

func (m *mockRepo) CreateIfAbsent(_ context.Context, c *domain.Case, msgs []domain.CaseMessage) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.bySession[c.SessionID]; exists {
		return false, nil
	}
	cp := *c
	cp.Messages = append([]domain.CaseMessage(nil), msgs...)
	m.bySession[c.SessionID] = &cp
	m.byID[c.ID] = &cp
	return true, nil
}

func (m *mockRepo) GetByID(_ context.Context, id string) (*domain.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockRepo) GetBySessionID(_ context.Context, sessionID string) (*domain.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.bySession[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockRepo) AppendMessage(_ context.Context, caseID string, msg *domain.CaseMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[caseID]
	if !ok {
		return ErrNotFound
	}
	c.Messages = append(c.Messages, *msg)
	if c.Status == domain.CaseClosed {
		c.Status = domain.CaseOpen
	}
	c.UpdatedAt = msg.CreatedAt
	return nil
}

func (m *mockRepo) Assign(_ context.Context, caseID, newAdmin, assignedBy string) (*domain.AssignmentEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[caseID]
	if !ok {
		return nil, ErrNotFound
	}
	ev := domain.AssignmentEvent{
		CaseID:        caseID,
		PreviousAdmin: c.AssignedAdmin,
		NewAdmin:      newAdmin,
		AssignedBy:    assignedBy,
		Action:        ClassifyAssignment(c.AssignedAdmin, newAdmin),
		CreatedAt:     time.Now().UTC(),
	}
	c.AssignedAdmin = newAdmin
	m.assignments[caseID] = append(m.assignments[caseID], ev)
	return &ev, nil
}

func (m *mockRepo) AddNote(_ context.Context, note *domain.InternalNote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[note.CaseID]; !ok {
		return ErrNotFound
	}
	m.notes[note.CaseID] = append(m.notes[note.CaseID], *note)
	return nil
}

func (m *mockRepo) Close(_ context.Context, id string) (*domain.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	c.Status = domain.CaseClosed
	cp := *c
	return &cp, nil
}

func (m *mockRepo) List(_ context.Context, f ListFilter) ([]domain.Case, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Case
	for _, c := range m.byID {
		if f.Status != "" && string(c.Status) != f.Status {
			continue
		}
		out = append(out, *c)
	}
	return out, len(out), nil
}

func validInput() CreateInput {
	return CreateInput{
		SessionID:  "s1",
		CustomerID: "c1",
		Topic:      "Billing",
	}
}

func TestCreate_RequiredFields(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	ctx := context.Background()

	for _, in := range []CreateInput{
		{CustomerID: "c1", Topic: "t"},
		{SessionID: "s1", Topic: "t"},
		{SessionID: "s1", CustomerID: "c1"},
		{SessionID: "  ", CustomerID: "c1", Topic: "t"},
	} {
		_, _, err := svc.Create(ctx, in)
		assert.ErrorIs(t, err, ErrMissingFields)
	}
}

func TestCreate_SanitizesMessageBatch(t *testing.T) {
	svc := NewService(newMockRepo(), nil)

	in := validInput()
	in.Messages = []RawMessage{
		{Sender: "Support", Message: " Hello "},
		{Sender: "bot", Message: "should be dropped"}, // unrecognized sender
		{Sender: "customer", Message: "   "},          // blank after trim
		{Sender: "KUND", Message: "Tack!"},
	}

	c, created, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, created)

	// Only the valid subset survives, in original relative order.
	require.Len(t, c.Messages, 2)
	assert.Equal(t, domain.SenderAdmin, c.Messages[0].Sender)
	assert.Equal(t, "Hello", c.Messages[0].Message)
	assert.Equal(t, domain.SenderCustomer, c.Messages[1].Sender)
	assert.Equal(t, "Tack!", c.Messages[1].Message)
}

func TestCreate_NormalizesLocaleStatus(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	ctx := context.Background()

	for raw, want := range map[string]domain.CaseStatus{
		"Stängd":   domain.CaseClosed,
		"PÅGÅENDE": domain.CaseInProgress,
		"väntar":   domain.CaseWaiting,
		"okänd":    domain.CaseNew,
		"":         domain.CaseNew,
	} {
		in := validInput()
		in.SessionID = "sess-" + raw
		in.Status = raw
		c, _, err := svc.Create(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, want, c.Status, "status %q", raw)
	}
}

func TestCreate_DuplicateSessionReturnsExistingCase(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	ctx := context.Background()

	first, created, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	assert.True(t, created)

	// The second delivery writes nothing and must answer with the id
	// that actually exists, never a fresh one.
	in := validInput()
	in.Topic = "Something else"
	second, created, err := svc.Create(ctx, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Billing", second.Topic)
}

func TestCreate_TruncatesLongDescription(t *testing.T) {
	svc := NewService(newMockRepo(), nil)

	in := validInput()
	in.Description = strings.Repeat("a", maxDescriptionLen+500)
	c, _, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Len(t, c.Description, maxDescriptionLen)
}

func TestAppend_BlankMessageRejected(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	_, err := svc.Append(context.Background(), "any", RawMessage{Message: "  \t "})
	assert.ErrorIs(t, err, ErrBlankMessage)
}

func TestAppend_UnknownCase(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	_, err := svc.Append(context.Background(), "missing", RawMessage{Message: "hej"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppend_AlwaysCustomerSender(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	c, _, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	// Whatever the portal claims, a case_response is customer-originated.
	msg, err := svc.Append(ctx, c.ID, RawMessage{Sender: "admin", Message: " Min fråga "})
	require.NoError(t, err)
	assert.Equal(t, domain.SenderCustomer, msg.Sender)
	assert.Equal(t, "Min fråga", msg.Message)
}

func TestAppend_ReopensClosedCase(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	c, _, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	_, err = svc.Close(ctx, c.ID)
	require.NoError(t, err)

	_, err = svc.Append(ctx, c.ID, RawMessage{Message: "är ni kvar?"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	// Both effects visible together: reopened and message present.
	assert.Equal(t, domain.CaseOpen, got.Status)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "är ni kvar?", got.Messages[0].Message)
}

func TestAssign_AuditTrail(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	c, _, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	ev, err := svc.Assign(ctx, c.ID, "admin-1", "boss@valle.se")
	require.NoError(t, err)
	assert.Equal(t, domain.ActionAssigned, ev.Action)
	assert.Empty(t, ev.PreviousAdmin)

	ev, err = svc.Assign(ctx, c.ID, "admin-2", "boss@valle.se")
	require.NoError(t, err)
	assert.Equal(t, domain.ActionReassigned, ev.Action)
	assert.Equal(t, "admin-1", ev.PreviousAdmin)

	ev, err = svc.Assign(ctx, c.ID, "", "boss@valle.se")
	require.NoError(t, err)
	assert.Equal(t, domain.ActionUnassigned, ev.Action)

	// Every change is on the audit trail.
	assert.Len(t, repo.assignments[c.ID], 3)

	// Assignment never mutates status.
	got, _ := svc.Get(ctx, c.ID)
	assert.Equal(t, domain.CaseNew, got.Status)
}

func TestAssign_RequiresActor(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	_, err := svc.Assign(context.Background(), "id", "admin-1", " ")
	assert.ErrorIs(t, err, ErrMissingAdmin)
}

func TestAddNote_NeverTouchesStatus(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	c, _, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.AddNote(ctx, c.ID, "  internal only  ")
	require.NoError(t, err)
	require.Len(t, repo.notes[c.ID], 1)
	assert.Equal(t, "internal only", repo.notes[c.ID][0].Note)

	_, err = svc.AddNote(ctx, c.ID, "   ")
	assert.ErrorIs(t, err, ErrBlankNote)
}

type failingArchiver struct{ calls int }

func (f *failingArchiver) ArchiveTranscript(context.Context, *domain.Case) error {
	f.calls++
	return errors.New("s3 unavailable")
}

func TestClose_ArchiveFailureDoesNotFailClose(t *testing.T) {
	arch := &failingArchiver{}
	repo := newMockRepo()
	svc := NewService(repo, arch)
	ctx := context.Background()

	c, _, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	closed, err := svc.Close(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CaseClosed, closed.Status)
	assert.Equal(t, 1, arch.calls)
}

func TestClassifyAssignment(t *testing.T) {
	assert.Equal(t, domain.ActionAssigned, ClassifyAssignment("", "a1"))
	assert.Equal(t, domain.ActionReassigned, ClassifyAssignment("a1", "a2"))
	assert.Equal(t, domain.ActionUnassigned, ClassifyAssignment("a1", ""))
}

func TestNormalizeSender_SynonymTable(t *testing.T) {
	for raw, want := range map[string]domain.Sender{
		"Support":   domain.SenderAdmin,
		"AGENT":     domain.SenderAdmin,
		"client":    domain.SenderCustomer,
		"kund":      domain.SenderCustomer,
		"automated": domain.SenderSystem,
	} {
		got, ok := domain.NormalizeSender(raw)
		require.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	_, ok := domain.NormalizeSender("bot")
	assert.False(t, ok)
}
