package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"contas/internal/cache"
	"contas/internal/config"
	"contas/internal/core"
	"contas/internal/services"
	"contas/internal/storage"
	"contas/internal/stream"
)

// fakeDB is an in-memory stand-in for the SQLite repository. It backs the
// services, the hub and the read path at once so handler tests exercise the
// real wiring end to end.
type fakeDB struct {
	mu            sync.Mutex
	nextID        int
	transactions  map[string]core.Transaction
	plans         map[string]core.RecurringPlan
	categories    map[string]core.Category
	users         map[string]core.User
	notifications map[string]core.Notification
	maintenance   bool
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		transactions:  make(map[string]core.Transaction),
		plans:         make(map[string]core.RecurringPlan),
		categories:    make(map[string]core.Category),
		users:         make(map[string]core.User),
		notifications: make(map[string]core.Notification),
	}
}

func (f *fakeDB) id() string {
	f.nextID++
	return fmt.Sprintf("id-%d", f.nextID)
}

func (f *fakeDB) CreateTransaction(_ context.Context, t core.Transaction) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = f.id()
	t.CreatedAt = time.Now().UTC()
	f.transactions[t.ID] = t
	return t.ID, nil
}

func (f *fakeDB) UpdateTransaction(_ context.Context, id string, label *string, cents *int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.transactions[id]
	if !ok {
		return storage.ErrNotFound
	}
	if label != nil {
		t.Label = *label
	}
	if cents != nil {
		t.Amount = core.Money{Cents: *cents}
	}
	f.transactions[id] = t
	return nil
}

func (f *fakeDB) DeleteTransaction(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.transactions[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.transactions, id)
	return nil
}

func (f *fakeDB) ListTransactions(_ context.Context, ownerIDs []string) ([]core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Transaction
	for _, t := range f.transactions {
		for _, owner := range ownerIDs {
			if t.OwnerID == owner {
				out = append(out, t)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeDB) CreatePlan(_ context.Context, p core.RecurringPlan) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = f.id()
	f.plans[p.ID] = p
	return p.ID, nil
}

func (f *fakeDB) DeletePlan(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.plans[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.plans, id)
	return nil
}

func (f *fakeDB) GetPlan(_ context.Context, id string) (core.RecurringPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.plans[id]
	if !ok {
		return core.RecurringPlan{}, storage.ErrNotFound
	}
	return p, nil
}

func (f *fakeDB) ListPlans(_ context.Context, ownerIDs []string) ([]core.RecurringPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.RecurringPlan
	for _, p := range f.plans {
		for _, owner := range ownerIDs {
			if p.OwnerID == owner {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeDB) MarkInstallmentPaid(_ context.Context, planID string, number int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.plans[planID]
	if !ok {
		return false, storage.ErrNotFound
	}
	for i, inst := range p.Installments {
		if inst.Number == number {
			if inst.Paid {
				return false, nil
			}
			p.Installments[i].Paid = true
			f.plans[planID] = p
			return true, nil
		}
	}
	return false, storage.ErrNotFound
}

func (f *fakeDB) CreateCategory(_ context.Context, c core.Category) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = f.id()
	f.categories[c.ID] = c
	return c.ID, nil
}

func (f *fakeDB) UpdateCategory(_ context.Context, id string, c core.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.categories[id]; !ok {
		return storage.ErrNotFound
	}
	c.ID = id
	f.categories[id] = c
	return nil
}

func (f *fakeDB) DeleteCategory(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.categories[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.categories, id)
	return nil
}

func (f *fakeDB) ListCategories(_ context.Context, ownerID string) ([]core.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Category
	for _, c := range f.categories {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeDB) GetUser(_ context.Context, id string) (core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return core.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (f *fakeDB) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, storage.ErrNotFound
}

func (f *fakeDB) UpsertUser(_ context.Context, u core.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.users[u.ID]; ok {
		existing.Email = u.Email
		existing.Name = u.Name
		f.users[u.ID] = existing
		return nil
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeDB) LinkPartner(_ context.Context, userID, partnerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, okA := f.users[userID]
	b, okB := f.users[partnerID]
	if !okA || !okB {
		return storage.ErrNotFound
	}
	a.PartnerID = partnerID
	b.PartnerID = userID
	f.users[userID] = a
	f.users[partnerID] = b
	return nil
}

func (f *fakeDB) MaintenanceMode(_ context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maintenance, nil
}

func (f *fakeDB) SetMaintenanceMode(_ context.Context, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.maintenance = on
	return nil
}

func (f *fakeDB) CreateNotification(_ context.Context, n core.Notification) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n.ID = f.id()
	n.CreatedAt = time.Now().UTC()
	f.notifications[n.ID] = n
	return n.ID, nil
}

func (f *fakeDB) DeleteNotification(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.notifications[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.notifications, id)
	return nil
}

func (f *fakeDB) ListNotifications(_ context.Context) ([]core.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Notification
	for _, n := range f.notifications {
		out = append(out, n)
	}
	return out, nil
}

func newTestServer(t *testing.T) (http.Handler, *fakeDB) {
	t.Helper()
	db := newFakeDB()
	hub := stream.NewHub(db)
	srv := NewServer(Options{
		Config:    &config.Config{Port: "0"},
		Finance:   services.NewFinanceService(db, nil, hub),
		Admin:     services.NewAdminService(db),
		Users:     services.NewUserService(db),
		Reader:    db,
		Hub:       hub,
		Summaries: cache.NewSummaryCache(16, time.Minute),
	})
	t.Cleanup(srv.limiter.Stop)
	return srv.Handler(), db
}

func doJSON(t *testing.T, h http.Handler, method, target, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
		req.Header.Set("X-User-Email", userID+"@example.com")
		req.Header.Set("X-User-Name", "User "+userID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealthEndpointsOpen(t *testing.T) {
	h, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		if rec := doJSON(t, h, http.MethodGet, path, "", nil); rec.Code != http.StatusOK {
			t.Errorf("%s = %d, want 200", path, rec.Code)
		}
	}
}

func TestIdentityRequired(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/api/transactions", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestCreateAndListTransactions(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/transactions", "u1", createTransactionRequest{
		Label:  "Mercado",
		Amount: "49,90",
		Type:   "expense",
		Method: "pix",
		Date:   "2026-03-03",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/api/transactions", "u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	list := decodeBody[[]transactionJSON](t, rec)
	if len(list) != 1 {
		t.Fatalf("len = %d, want 1", len(list))
	}
	if list[0].Cents != 4990 {
		t.Errorf("amount_cents = %d, want 4990", list[0].Cents)
	}
	if list[0].Display != "R$ 49,90" {
		t.Errorf("amount = %q, want R$ 49,90", list[0].Display)
	}
}

func TestCreateTransactionRejectsBadAmount(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/transactions", "u1", createTransactionRequest{
		Label:  "Mercado",
		Amount: "abc",
		Type:   "expense",
		Date:   "2026-03-03",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	h, _ := newTestServer(t)

	doJSON(t, h, http.MethodPost, "/api/transactions", "u1", createTransactionRequest{
		Label: "Salário", Amount: "5000,00", Type: "income", Date: "2026-03-01",
	})
	doJSON(t, h, http.MethodPost, "/api/transactions", "u1", createTransactionRequest{
		Label: "Aluguel", Amount: "1.250,00", Type: "expense", Category: "Contas", Date: "2026-03-05",
	})
	// A different month must not leak into the summary.
	doJSON(t, h, http.MethodPost, "/api/transactions", "u1", createTransactionRequest{
		Label: "Mercado", Amount: "100,00", Type: "expense", Date: "2026-04-02",
	})

	rec := doJSON(t, h, http.MethodGet, "/api/summary?month=2026-03", "u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	sum := decodeBody[summaryJSON](t, rec)
	if sum.IncomeCents != 500000 {
		t.Errorf("income_cents = %d, want 500000", sum.IncomeCents)
	}
	if sum.ExpenseCents != 125000 {
		t.Errorf("expense_cents = %d, want 125000", sum.ExpenseCents)
	}
	if sum.BalanceCents != 375000 {
		t.Errorf("balance_cents = %d, want 375000", sum.BalanceCents)
	}
	if sum.Availability != 0.75 {
		t.Errorf("availability = %v, want 0.75", sum.Availability)
	}
	if len(sum.Transactions) != 2 {
		t.Errorf("transactions in month = %d, want 2", len(sum.Transactions))
	}
	if sum.MonthLabel != "Março 2026" {
		t.Errorf("month_label = %q, want Março 2026", sum.MonthLabel)
	}
}

func TestPayInstallmentFlow(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/plans", "u1", createPlanRequest{
		Title:            "Notebook",
		Kind:             "loan",
		TotalAmount:      "1200,00",
		InstallmentCount: 12,
		StartDate:        "2026-01-10",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create plan status = %d, body %s", rec.Code, rec.Body.String())
	}
	planID := decodeBody[map[string]string](t, rec)["id"]

	pay := func() *httptest.ResponseRecorder {
		return doJSON(t, h, http.MethodPost, "/api/plans/"+planID+"/pay", "u1",
			payInstallmentRequest{Number: 3, Month: "2026-03"})
	}
	if rec := pay(); rec.Code != http.StatusOK {
		t.Fatalf("pay status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/api/transactions?month=2026-03", "u1", nil)
	list := decodeBody[[]transactionJSON](t, rec)
	if len(list) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(list))
	}
	if list[0].Label != "Parcela 3 - Notebook" {
		t.Errorf("label = %q", list[0].Label)
	}
	if list[0].Cents != 10000 {
		t.Errorf("amount_cents = %d, want 10000", list[0].Cents)
	}
	if list[0].Date != "2026-03-15" {
		t.Errorf("date = %q, want 2026-03-15", list[0].Date)
	}

	// Paying again is a no-op, not an error, and records nothing new.
	if rec := pay(); rec.Code != http.StatusOK {
		t.Fatalf("second pay status = %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/api/transactions?month=2026-03", "u1", nil)
	if list := decodeBody[[]transactionJSON](t, rec); len(list) != 1 {
		t.Errorf("ledger entries after double pay = %d, want 1", len(list))
	}
}

func TestMaintenanceGate(t *testing.T) {
	h, db := newTestServer(t)
	db.users["boss"] = core.User{ID: "boss", Admin: true}

	rec := doJSON(t, h, http.MethodPut, "/api/admin/maintenance", "boss",
		setMaintenanceRequest{Enabled: true})
	if rec.Code != http.StatusOK {
		t.Fatalf("enable status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/api/transactions", "u1", createTransactionRequest{
		Label: "Mercado", Amount: "10,00", Type: "expense", Date: "2026-03-03",
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("regular user during maintenance = %d, want 503", rec.Code)
	}

	// The status read stays open so clients can render the banner.
	rec = doJSON(t, h, http.MethodGet, "/api/maintenance", "u1", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("maintenance status read = %d, want 200", rec.Code)
	}
	if status := decodeBody[map[string]bool](t, rec); !status["maintenance"] {
		t.Error("maintenance flag not reported")
	}

	// Admins keep working and can flip the switch back.
	rec = doJSON(t, h, http.MethodPost, "/api/transactions", "boss", createTransactionRequest{
		Label: "Teste", Amount: "1,00", Type: "expense", Date: "2026-03-03",
	})
	if rec.Code != http.StatusCreated {
		t.Errorf("admin during maintenance = %d, want 201", rec.Code)
	}
	rec = doJSON(t, h, http.MethodPut, "/api/admin/maintenance", "boss",
		setMaintenanceRequest{Enabled: false})
	if rec.Code != http.StatusOK {
		t.Errorf("disable status = %d", rec.Code)
	}
}

func TestAdminEndpointsRejectRegularUsers(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodPut, "/api/admin/maintenance", "u1",
		setMaintenanceRequest{Enabled: true})
	if rec.Code != http.StatusForbidden {
		t.Errorf("maintenance = %d, want 403", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/admin/notifications", "u1",
		broadcastRequest{Title: "Olá", Message: "teste", Type: "info"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("broadcast = %d, want 403", rec.Code)
	}
}

func TestBroadcastAndList(t *testing.T) {
	h, db := newTestServer(t)
	db.users["boss"] = core.User{ID: "boss", Name: "Bia", Admin: true}

	rec := doJSON(t, h, http.MethodPost, "/api/admin/notifications", "boss",
		broadcastRequest{Title: "Atualização", Message: "Novidades no app", Type: "update"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("broadcast status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/api/notifications", "u1", nil)
	list := decodeBody[[]notificationJSON](t, rec)
	if len(list) != 1 {
		t.Fatalf("notifications = %d, want 1", len(list))
	}
	if list[0].Author != "User boss" {
		t.Errorf("author = %q, want the admin's stored name", list[0].Author)
	}
}

func TestPartnerSharing(t *testing.T) {
	h, _ := newTestServer(t)

	doJSON(t, h, http.MethodPost, "/api/transactions", "u1", createTransactionRequest{
		Label: "Mercado", Amount: "80,00", Type: "expense", Date: "2026-03-03",
	})
	// u2 must have been seen once before the email lookup can find them.
	doJSON(t, h, http.MethodGet, "/api/me", "u2", nil)

	rec := doJSON(t, h, http.MethodPost, "/api/partner", "u2",
		linkPartnerRequest{Email: "u1@example.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("link status = %d, body %s", rec.Code, rec.Body.String())
	}

	for _, userID := range []string{"u1", "u2"} {
		rec = doJSON(t, h, http.MethodGet, "/api/transactions", userID, nil)
		if list := decodeBody[[]transactionJSON](t, rec); len(list) != 1 {
			t.Errorf("%s sees %d entries, want 1", userID, len(list))
		}
	}
}

func TestLinkPartnerUnknownEmail(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/partner", "u1",
		linkPartnerRequest{Email: "nobody@example.com"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestBuiltinCategoryConflict(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/categories", "u1",
		categoryRequest{Label: "Contas"})
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestListCategoriesIncludesBuiltins(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/categories", "u1",
		categoryRequest{Label: "Pets", Color: "#aa3355"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/api/categories", "u1", nil)
	list := decodeBody[[]categoryJSON](t, rec)
	builtins := len(core.BuiltinCategories())
	if len(list) != builtins+1 {
		t.Fatalf("categories = %d, want %d", len(list), builtins+1)
	}
	if !list[0].Builtin {
		t.Error("built-ins must lead the list")
	}
	if got := list[len(list)-1].Label; got != "Pets" {
		t.Errorf("last label = %q, want Pets", got)
	}
}

func TestEventsStreamDeliversSummary(t *testing.T) {
	h, _ := newTestServer(t)

	doJSON(t, h, http.MethodPost, "/api/transactions", "u1", createTransactionRequest{
		Label: "Salário", Amount: "3000,00", Type: "income", Date: "2026-03-01",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/events?month=2026-03", nil).WithContext(ctx)
	req.Header.Set("X-User-ID", "u1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	body := rec.Body.String()
	if !bytes.Contains([]byte(body), []byte("event: summary")) {
		t.Errorf("body missing summary event: %q", body)
	}
	if !bytes.Contains([]byte(body), []byte(`"income_cents":300000`)) {
		t.Errorf("body missing income figure: %q", body)
	}
}
