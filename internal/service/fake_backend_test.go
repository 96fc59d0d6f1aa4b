package service

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/noah-isme/backoffice-console/internal/apiclient"
	"github.com/noah-isme/backoffice-console/internal/models"
)

// marketplace is an in-memory stand-in for the backend REST API.
type marketplace struct {
	mu          sync.Mutex
	calls       []string
	products    []models.Product
	users       []models.User
	withdrawals []models.Withdrawal
	audit       []models.AuditLog
}

func newMarketplace() *marketplace {
	m := &marketplace{}
	for i := 0; i < 25; i++ {
		m.products = append(m.products, models.Product{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("Product %d", i), Price: 10, Status: models.StatusActive})
	}
	m.users = []models.User{
		{ID: "u1", Name: "Ana", Status: models.UserStatusActive, Credits: 10},
		{ID: "u2", Name: "Budi", Status: models.UserStatusActive, Credits: 5},
	}
	m.withdrawals = []models.Withdrawal{
		{ID: "w1", UserName: "Ana", Amount: 50, Status: models.WithdrawalPending},
		{ID: "w2", UserName: "Budi", Amount: 20, Status: models.WithdrawalPending},
	}
	m.audit = []models.AuditLog{{ID: "a1", Action: "login", Severity: models.SeverityInfo}}
	return m
}

func (m *marketplace) client(t *testing.T) *apiclient.Client {
	t.Helper()
	srv := httptest.NewServer(m)
	t.Cleanup(srv.Close)
	return apiclient.New(apiclient.Config{BaseURL: srv.URL})
}

func (m *marketplace) called(call string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == call {
			n++
		}
	}
	return n
}

func reply(w http.ResponseWriter, status int, data interface{}, pagination *models.Pagination) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": data, "pagination": pagination})
}

func paginate[T any](items []T, r *http.Request) ([]T, *models.Pagination) {
	page, limit := 1, 10
	fmt.Sscanf(r.URL.Query().Get("page"), "%d", &page)  //nolint:errcheck
	fmt.Sscanf(r.URL.Query().Get("limit"), "%d", &limit) //nolint:errcheck
	start := (page - 1) * limit
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-start)
	copy(out, items[start:end])
	pages := (len(items) + limit - 1) / limit
	if pages == 0 {
		pages = 1
	}
	return out, &models.Pagination{Page: page, PageSize: limit, TotalCount: len(items), TotalPages: pages}
}

func (m *marketplace) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, r.Method+" "+r.URL.Path)
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	switch {
	case parts[0] == "messages":
		var msg models.Message
		_ = json.NewDecoder(r.Body).Decode(&msg)
		reply(w, http.StatusCreated, models.MessageReceipt{ID: "m1", UserID: msg.UserID, Delivery: msg.Delivery}, nil)
	case len(parts) == 1 && r.Method == http.MethodGet:
		switch parts[0] {
		case "products":
			items, p := paginate(m.products, r)
			reply(w, http.StatusOK, items, p)
		case "users":
			items, p := paginate(m.users, r)
			reply(w, http.StatusOK, items, p)
		case "withdrawals":
			items, p := paginate(m.withdrawals, r)
			reply(w, http.StatusOK, items, p)
		case "audit-logs":
			items, p := paginate(m.audit, r)
			reply(w, http.StatusOK, items, p)
		default:
			reply(w, http.StatusOK, []interface{}{}, nil)
		}
	case len(parts) == 1 && r.Method == http.MethodPost && parts[0] == "products":
		var d models.ProductDraft
		_ = json.NewDecoder(r.Body).Decode(&d)
		p := models.Product{ID: "p-new", Name: d.Name, Category: d.Category, Price: d.Price, Status: models.StatusActive}
		m.products = append([]models.Product{p}, m.products...)
		reply(w, http.StatusCreated, p, nil)
	case len(parts) == 2 && r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	case len(parts) == 2 && r.Method == http.MethodPut && parts[0] == "withdrawals":
		var d models.WithdrawalDraft
		_ = json.NewDecoder(r.Body).Decode(&d)
		reply(w, http.StatusOK, models.Withdrawal{ID: parts[1], Method: d.Method, AccountDetails: d.AccountDetails, Status: models.WithdrawalPending}, nil)
	case len(parts) == 3 && parts[2] == "status":
		var change models.StatusChange
		_ = json.NewDecoder(r.Body).Decode(&change)
		switch parts[0] {
		case "products":
			reply(w, http.StatusOK, models.Product{ID: parts[1], Name: "patched", Status: change.Status}, nil)
		case "withdrawals":
			reply(w, http.StatusOK, models.Withdrawal{ID: parts[1], Status: change.Status, Note: change.Note}, nil)
		default:
			reply(w, http.StatusOK, models.User{ID: parts[1], Status: change.Status}, nil)
		}
	case len(parts) == 3 && parts[2] == "credits":
		var adj models.CreditAdjustment
		_ = json.NewDecoder(r.Body).Decode(&adj)
		for _, u := range m.users {
			if u.ID == parts[1] {
				if adj.Operation == models.CreditAdd {
					u.Credits += adj.Amount
				} else {
					u.Credits -= adj.Amount
				}
				reply(w, http.StatusOK, u, nil)
				return
			}
		}
		reply(w, http.StatusNotFound, nil, nil)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
