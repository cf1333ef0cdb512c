package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"antrean/queue-service/internal/models"
	"antrean/queue-service/internal/store"
)

type fakeStore struct {
	createCounter    func(ctx context.Context, input store.CreateCounterInput) (models.Counter, error)
	updateCounter    func(ctx context.Context, input store.UpdateCounterInput) (models.Counter, error)
	setCounterStatus func(ctx context.Context, id int64, status store.CounterStatusValue) error
	deleteCounter    func(ctx context.Context, id int64) error
	getCounter       func(ctx context.Context, id int64) (models.Counter, error)
	listCounters     func(ctx context.Context, page, limit int) ([]models.Counter, store.Pagination, error)
	currentCounters  func(ctx context.Context) ([]models.Counter, error)

	issueTicket   func(ctx context.Context, counterID int64) (models.Ticket, error)
	claimTicket   func(ctx context.Context) (models.Ticket, error)
	releaseTicket func(ctx context.Context, ticketID int64) (models.Ticket, error)
	callNext      func(ctx context.Context, counterID int64) (models.Ticket, bool, error)
	skipCurrent   func(ctx context.Context, counterID int64) (models.Ticket, bool, error)
	advanceTicket func(ctx context.Context, counterID int64) (models.Ticket, bool, error)
	resetCounters func(ctx context.Context, counterID *int64) error

	getTicket          func(ctx context.Context, id int64) (models.Ticket, error)
	listTickets        func(ctx context.Context, page, limit int, counterID *int64) ([]models.Ticket, store.Pagination, error)
	updateTicketStatus func(ctx context.Context, id int64, status models.Status) (models.Ticket, error)
	deleteTicket       func(ctx context.Context, id int64) error

	countTicketsByStatus func(ctx context.Context) (store.StatusCounts, error)
}

func (f *fakeStore) CreateCounter(ctx context.Context, input store.CreateCounterInput) (models.Counter, error) {
	return f.createCounter(ctx, input)
}

func (f *fakeStore) UpdateCounter(ctx context.Context, input store.UpdateCounterInput) (models.Counter, error) {
	return f.updateCounter(ctx, input)
}

func (f *fakeStore) SetCounterStatus(ctx context.Context, id int64, status store.CounterStatusValue) error {
	return f.setCounterStatus(ctx, id, status)
}

func (f *fakeStore) DeleteCounter(ctx context.Context, id int64) error {
	return f.deleteCounter(ctx, id)
}

func (f *fakeStore) GetCounter(ctx context.Context, id int64) (models.Counter, error) {
	return f.getCounter(ctx, id)
}

func (f *fakeStore) ListCounters(ctx context.Context, page, limit int) ([]models.Counter, store.Pagination, error) {
	return f.listCounters(ctx, page, limit)
}

func (f *fakeStore) CurrentCounters(ctx context.Context) ([]models.Counter, error) {
	return f.currentCounters(ctx)
}

func (f *fakeStore) IssueTicket(ctx context.Context, counterID int64) (models.Ticket, error) {
	return f.issueTicket(ctx, counterID)
}

func (f *fakeStore) ClaimTicket(ctx context.Context) (models.Ticket, error) {
	return f.claimTicket(ctx)
}

func (f *fakeStore) ReleaseTicket(ctx context.Context, ticketID int64) (models.Ticket, error) {
	return f.releaseTicket(ctx, ticketID)
}

func (f *fakeStore) CallNext(ctx context.Context, counterID int64) (models.Ticket, bool, error) {
	return f.callNext(ctx, counterID)
}

func (f *fakeStore) SkipCurrent(ctx context.Context, counterID int64) (models.Ticket, bool, error) {
	return f.skipCurrent(ctx, counterID)
}

func (f *fakeStore) AdvanceTicket(ctx context.Context, counterID int64) (models.Ticket, bool, error) {
	return f.advanceTicket(ctx, counterID)
}

func (f *fakeStore) ResetCounters(ctx context.Context, counterID *int64) error {
	return f.resetCounters(ctx, counterID)
}

func (f *fakeStore) GetTicket(ctx context.Context, id int64) (models.Ticket, error) {
	return f.getTicket(ctx, id)
}

func (f *fakeStore) ListTickets(ctx context.Context, page, limit int, counterID *int64) ([]models.Ticket, store.Pagination, error) {
	return f.listTickets(ctx, page, limit, counterID)
}

func (f *fakeStore) UpdateTicketStatus(ctx context.Context, id int64, status models.Status) (models.Ticket, error) {
	return f.updateTicketStatus(ctx, id, status)
}

func (f *fakeStore) DeleteTicket(ctx context.Context, id int64) error {
	return f.deleteTicket(ctx, id)
}

func (f *fakeStore) CountTicketsByStatus(ctx context.Context) (store.StatusCounts, error) {
	return f.countTicketsByStatus(ctx)
}

func doRequest(t *testing.T, h *Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) response {
	t.Helper()
	var resp response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return resp
}

func TestCreateQueue(t *testing.T) {
	var gotCounter int64
	h := NewHandler(&fakeStore{
		issueTicket: func(ctx context.Context, counterID int64) (models.Ticket, error) {
			gotCounter = counterID
			return models.Ticket{ID: 7, CounterID: counterID, Number: 3, Status: models.StatusWaiting, CreatedAt: time.Now()}, nil
		},
	}, nil)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/queues", `{"counter_id": 2}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
	if gotCounter != 2 {
		t.Fatalf("counter id = %d, want 2", gotCounter)
	}
	resp := decodeBody(t, rec)
	if !resp.Status {
		t.Fatalf("status = false, want true")
	}
}

func TestCreateQueueCounterFull(t *testing.T) {
	h := NewHandler(&fakeStore{
		issueTicket: func(ctx context.Context, counterID int64) (models.Ticket, error) {
			return models.Ticket{}, store.ErrCounterFull
		},
	}, nil)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/queues", `{"counter_id": 2}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	resp := decodeBody(t, rec)
	if resp.Status {
		t.Fatalf("status = true, want false")
	}
}

func TestCreateQueueBadCounterID(t *testing.T) {
	h := NewHandler(&fakeStore{}, nil)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/queues", `{"counter_id": 0}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestClaimQueue(t *testing.T) {
	h := NewHandler(&fakeStore{
		claimTicket: func(ctx context.Context) (models.Ticket, error) {
			return models.Ticket{ID: 1, CounterID: 3, Number: 1, Status: models.StatusWaiting}, nil
		},
	}, nil)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/queues/claim", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
}

func TestClaimQueueNoCounter(t *testing.T) {
	h := NewHandler(&fakeStore{
		claimTicket: func(ctx context.Context) (models.Ticket, error) {
			return models.Ticket{}, store.ErrCounterNotFound
		},
	}, nil)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/queues/claim", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestReleaseQueueInvalidTransition(t *testing.T) {
	h := NewHandler(&fakeStore{
		releaseTicket: func(ctx context.Context, ticketID int64) (models.Ticket, error) {
			return models.Ticket{}, store.ErrInvalidTransition
		},
	}, nil)

	rec := doRequest(t, h, http.MethodPatch, "/api/v1/queues/release/9", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestCallNextEmptyQueue(t *testing.T) {
	h := NewHandler(&fakeStore{
		callNext: func(ctx context.Context, counterID int64) (models.Ticket, bool, error) {
			return models.Ticket{}, false, nil
		},
	}, nil)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/queues/next/4", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	resp := decodeBody(t, rec)
	if !resp.Status {
		t.Fatalf("status = false, want true")
	}
	if resp.Data != nil {
		t.Fatalf("data = %v, want nil", resp.Data)
	}
}

func TestSkipQueue(t *testing.T) {
	h := NewHandler(&fakeStore{
		skipCurrent: func(ctx context.Context, counterID int64) (models.Ticket, bool, error) {
			return models.Ticket{ID: 12, CounterID: counterID, Number: 5, Status: models.StatusCalled}, true, nil
		},
	}, nil)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/queues/skip/4", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	resp := decodeBody(t, rec)
	if resp.Data == nil {
		t.Fatalf("data is nil, want called ticket")
	}
}

func TestQueueStatusUnknownValue(t *testing.T) {
	h := NewHandler(&fakeStore{}, nil)

	rec := doRequest(t, h, http.MethodPatch, "/api/v1/queues/3/status", `{"status": "banana"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestQueueStatusTransition(t *testing.T) {
	h := NewHandler(&fakeStore{
		updateTicketStatus: func(ctx context.Context, id int64, status models.Status) (models.Ticket, error) {
			if status != models.StatusDone {
				t.Fatalf("status = %q, want %q", status, models.StatusDone)
			}
			return models.Ticket{ID: id, Status: status}, nil
		},
	}, nil)

	rec := doRequest(t, h, http.MethodPatch, "/api/v1/queues/3/status", `{"status": "done"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestQueueMetrics(t *testing.T) {
	h := NewHandler(&fakeStore{
		countTicketsByStatus: func(ctx context.Context) (store.StatusCounts, error) {
			return store.StatusCounts{Waiting: 4, Called: 1, Done: 9}, nil
		},
	}, nil)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/queues/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Data store.StatusCounts `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Waiting != 4 || resp.Data.Called != 1 || resp.Data.Done != 9 {
		t.Fatalf("counts = %+v", resp.Data)
	}
}

func TestListQueuesPagination(t *testing.T) {
	var gotPage, gotLimit int
	var gotCounterID *int64
	h := NewHandler(&fakeStore{
		listTickets: func(ctx context.Context, page, limit int, counterID *int64) ([]models.Ticket, store.Pagination, error) {
			gotPage, gotLimit, gotCounterID = page, limit, counterID
			return []models.Ticket{}, store.NewPagination(0, page, limit), nil
		},
	}, nil)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/queues?page=3&limit=25&counter_id=6", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotPage != 3 || gotLimit != 25 {
		t.Fatalf("page/limit = %d/%d, want 3/25", gotPage, gotLimit)
	}
	if gotCounterID == nil || *gotCounterID != 6 {
		t.Fatalf("counter id = %v, want 6", gotCounterID)
	}
	resp := decodeBody(t, rec)
	if resp.Pagination == nil {
		t.Fatalf("pagination missing from list response")
	}
}

func TestListQueuesBadPage(t *testing.T) {
	h := NewHandler(&fakeStore{}, nil)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/queues?page=zero", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCreateCounter(t *testing.T) {
	h := NewHandler(&fakeStore{
		createCounter: func(ctx context.Context, input store.CreateCounterInput) (models.Counter, error) {
			if input.Name != "Loket A" || input.MaxQueue != 50 {
				t.Fatalf("input = %+v", input)
			}
			return models.Counter{ID: 1, Name: input.Name, MaxQueue: input.MaxQueue, IsActive: true}, nil
		},
	}, nil)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/counters", `{"name": "Loket A", "max_queue": 50}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
}

func TestCreateCounterValidation(t *testing.T) {
	h := NewHandler(&fakeStore{}, nil)

	cases := []struct {
		name string
		body string
	}{
		{"empty name", `{"name": "  ", "max_queue": 50}`},
		{"zero max queue", `{"name": "Loket A", "max_queue": 0}`},
		{"negative max queue", `{"name": "Loket A", "max_queue": -2}`},
		{"malformed json", `{"name": `},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, h, http.MethodPost, "/api/v1/counters", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestUpdateCounterNoFields(t *testing.T) {
	h := NewHandler(&fakeStore{}, nil)

	rec := doRequest(t, h, http.MethodPut, "/api/v1/counters/2", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCounterStatusValues(t *testing.T) {
	var got store.CounterStatusValue
	h := NewHandler(&fakeStore{
		setCounterStatus: func(ctx context.Context, id int64, status store.CounterStatusValue) error {
			got = status
			return nil
		},
	}, nil)

	rec := doRequest(t, h, http.MethodPatch, "/api/v1/counters/2/status", `{"status": "disable"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got != store.CounterDisable {
		t.Fatalf("status = %q, want %q", got, store.CounterDisable)
	}

	rec = doRequest(t, h, http.MethodPatch, "/api/v1/counters/2/status", `{"status": "paused"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCounterNext(t *testing.T) {
	h := NewHandler(&fakeStore{
		advanceTicket: func(ctx context.Context, counterID int64) (models.Ticket, bool, error) {
			return models.Ticket{ID: 8, CounterID: counterID, Number: 2, Status: models.StatusProcessing}, true, nil
		},
	}, nil)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/counters/5/next", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	resp := decodeBody(t, rec)
	if resp.Data == nil {
		t.Fatalf("data is nil, want processing ticket")
	}
}

func TestResetCountersTargeted(t *testing.T) {
	var got *int64
	h := NewHandler(&fakeStore{
		resetCounters: func(ctx context.Context, counterID *int64) error {
			got = counterID
			return nil
		},
	}, nil)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/counters/reset", `{"counter_id": 3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got == nil || *got != 3 {
		t.Fatalf("counter id = %v, want 3", got)
	}
}

func TestResetCountersNotFound(t *testing.T) {
	h := NewHandler(&fakeStore{
		resetCounters: func(ctx context.Context, counterID *int64) error {
			return store.ErrCounterNotFound
		},
	}, nil)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/counters/reset", `{"counter_id": 99}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestDeleteQueue(t *testing.T) {
	h := NewHandler(&fakeStore{
		deleteTicket: func(ctx context.Context, id int64) error {
			if id != 11 {
				t.Fatalf("id = %d, want 11", id)
			}
			return nil
		},
	}, nil)

	rec := doRequest(t, h, http.MethodDelete, "/api/v1/queues/11", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestBadResourceID(t *testing.T) {
	h := NewHandler(&fakeStore{}, nil)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/counters/abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := NewHandler(&fakeStore{}, nil)

	rec := doRequest(t, h, http.MethodDelete, "/api/v1/queues/metrics", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}
