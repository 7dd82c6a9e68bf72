package missions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/narvanalabs/mission-console/internal/models"
	"github.com/narvanalabs/mission-console/internal/validation"
)

// fakeControlPlane serves an in-memory mission table.
type fakeControlPlane struct {
	missions map[string]models.Mission
	auth     []string
}

func newFakeControlPlane(t *testing.T) (*fakeControlPlane, *httptest.Server) {
	t.Helper()
	f := &fakeControlPlane{missions: map[string]models.Mission{
		"m-1": {ID: "m-1", Name: "morning sweep", Schedule: "0 9 * * *", Enabled: true},
	}}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			f.auth = append(f.auth, req.Header.Get("Authorization"))
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/api/missions", func(w http.ResponseWriter, r *http.Request) {
		list := make([]models.Mission, 0, len(f.missions))
		for _, m := range f.missions {
			list = append(list, m)
		}
		json.NewEncoder(w).Encode(list)
	})
	r.Post("/api/missions", func(w http.ResponseWriter, r *http.Request) {
		var req models.MissionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		m := models.Mission{ID: "m-2", Name: req.Name, Schedule: req.Schedule, Enabled: req.Enabled, DailyQuota: req.DailyQuota}
		f.missions[m.ID] = m
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(m)
	})
	r.Route("/api/missions/{id}", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			m, ok := f.missions[chi.URLParam(r, "id")]
			if !ok {
				http.NotFound(w, r)
				return
			}
			json.NewEncoder(w).Encode(m)
		})
		r.Put("/", func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "id")
			var req models.MissionRequest
			json.NewDecoder(r.Body).Decode(&req)
			m := models.Mission{ID: id, Name: req.Name, Schedule: req.Schedule, Enabled: req.Enabled}
			f.missions[id] = m
			json.NewEncoder(w).Encode(m)
		})
		r.Delete("/", func(w http.ResponseWriter, r *http.Request) {
			delete(f.missions, chi.URLParam(r, "id"))
			w.WriteHeader(http.StatusNoContent)
		})
	})
	r.Get("/api/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database unavailable", http.StatusInternalServerError)
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return f, server
}

func TestClientCRUD(t *testing.T) {
	fake, server := newFakeControlPlane(t)
	client := NewClient(server.URL + "/").WithToken("tok")
	ctx := context.Background()

	list, err := client.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Name != "morning sweep" {
		t.Fatalf("unexpected list %+v", list)
	}

	created, err := client.Create(ctx, &models.MissionRequest{Name: "evening", Schedule: "0 18 * * *", Enabled: true, DailyQuota: 40})
	if err != nil {
		t.Fatal(err)
	}
	if created.ID != "m-2" || created.DailyQuota != 40 {
		t.Fatalf("unexpected created mission %+v", created)
	}

	updated, err := client.Update(ctx, "m-2", &models.MissionRequest{Name: "evening", Schedule: "30 18 * * *"})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Schedule != "30 18 * * *" || updated.Enabled {
		t.Fatalf("unexpected updated mission %+v", updated)
	}

	got, err := client.Get(ctx, "m-2")
	if err != nil {
		t.Fatal(err)
	}
	if got.Schedule != "30 18 * * *" {
		t.Fatalf("Get returned %+v", got)
	}

	if err := client.Delete(ctx, "m-2"); err != nil {
		t.Fatal(err)
	}
	if _, err := client.Get(ctx, "m-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	for _, header := range fake.auth {
		if header != "Bearer tok" {
			t.Fatalf("request sent without bearer token: %q", header)
		}
	}
}

func TestClientStatusError(t *testing.T) {
	_, server := newFakeControlPlane(t)
	client := NewClient(server.URL)

	err := client.do(context.Background(), http.MethodGet, "/api/broken", nil, nil)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusInternalServerError || statusErr.Body != "database unavailable" {
		t.Fatalf("unexpected error %+v", statusErr)
	}
}

func TestClientPing(t *testing.T) {
	_, server := newFakeControlPlane(t)
	if err := NewClient(server.URL).Ping(context.Background()); err != nil {
		t.Fatal(err)
	}

	server.Close()
	if err := NewClient(server.URL).Ping(context.Background()); err == nil {
		t.Fatal("expected error from closed server")
	}
}

func TestClientRejectsInvalidRequest(t *testing.T) {
	fake, server := newFakeControlPlane(t)
	client := NewClient(server.URL)

	_, err := client.Create(context.Background(), &models.MissionRequest{Name: "bad", Schedule: "61 * * * *"})
	var validationErr *validation.ValidationError
	if !errors.As(err, &validationErr) || validationErr.Field != "schedule" {
		t.Fatalf("expected schedule validation error, got %v", err)
	}
	if len(fake.auth) != 0 {
		t.Fatalf("invalid request reached the control plane")
	}
}

func TestClientCloseKeepsClientUsable(t *testing.T) {
	_, server := newFakeControlPlane(t)
	client := NewClient(server.URL)

	if err := client.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := client.Close(); err != nil {
		t.Fatal(err)
	}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("ping after close: %v", err)
	}
}
