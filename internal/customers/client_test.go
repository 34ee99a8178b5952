package customers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/domain/customer"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	known := map[string]customer.Customer{
		"7": {ID: 7, Name: "Alice"},
		"8": {ID: 8, Name: "Bob"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /customers/{id}", func(w http.ResponseWriter, r *http.Request) {
		c, ok := known[r.PathValue("id")]
		if !ok {
			http.Error(w, "customer not found", http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(c)
	})
	mux.HandleFunc("POST /customers/batch", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			IDs []int64 `json:"ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		result := make(map[int64]customer.Customer)
		for _, c := range known {
			for _, id := range req.IDs {
				if c.ID == id {
					result[id] = c
				}
			}
		}
		json.NewEncoder(w).Encode(result)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_GetByID(t *testing.T) {
	srv := newTestServer(t)
	client := NewClient(srv.URL)

	c, err := client.GetByID(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if c.ID != 7 || c.Name != "Alice" {
		t.Fatalf("customer = %+v, want {7 Alice}", c)
	}
}

func TestClient_GetByID_NotFound(t *testing.T) {
	srv := newTestServer(t)
	client := NewClient(srv.URL)

	_, err := client.GetByID(context.Background(), 99)
	if !errors.Is(err, customer.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestClient_GetByID_ServerDown(t *testing.T) {
	srv := newTestServer(t)
	url := srv.URL
	srv.Close()

	client := NewClient(url)
	_, err := client.GetByID(context.Background(), 7)
	if err == nil {
		t.Fatal("expected transport error")
	}
	if errors.Is(err, customer.ErrNotFound) {
		t.Fatal("transport failure must not look like a lookup miss")
	}
}

func TestClient_GetByIDs_MissingIDsAbsent(t *testing.T) {
	srv := newTestServer(t)
	client := NewClient(srv.URL)

	result, err := client.GetByIDs(context.Background(), []int64{7, 8, 99})
	if err != nil {
		t.Fatalf("GetByIDs returned error: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("result size = %d, want 2", len(result))
	}
	if result[7].Name != "Alice" || result[8].Name != "Bob" {
		t.Fatalf("result = %+v, want Alice and Bob", result)
	}
	if _, ok := result[99]; ok {
		t.Fatal("unknown id present in result")
	}
}
