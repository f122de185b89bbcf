package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	client, err := NewClient(ClientConfig{
		BaseURL:   baseURL,
		APIKey:    "central-key-1234",
		RateLimit: -1,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestClient_GetMember(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/api/network/8056c2e21c000001/member/abcdef1234" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		json.NewEncoder(w).Encode(Member{
			NetworkID:   "8056c2e21c000001",
			NodeID:      "abcdef1234",
			Name:        "myhost",
			Description: "workstation",
			Config: map[string]interface{}{
				"authorized": true,
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	member, err := client.GetMember(context.Background(), "8056c2e21c000001", "abcdef1234")
	if err != nil {
		t.Fatalf("GetMember() error = %v", err)
	}

	if gotAuth != "bearer central-key-1234" {
		t.Errorf("Authorization header = %q, want %q", gotAuth, "bearer central-key-1234")
	}
	if member.Name != "myhost" {
		t.Errorf("member.Name = %q, want %q", member.Name, "myhost")
	}
	if authorized, _ := member.Config["authorized"].(bool); !authorized {
		t.Error("member.Config[authorized] should be true")
	}
}

func TestClient_UpdateMember(t *testing.T) {
	var gotBody Member
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		json.NewEncoder(w).Encode(gotBody)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	member := &Member{
		Name:   "myhost",
		Hidden: true,
		Config: map[string]interface{}{
			"authorized": true,
			"tags":       []interface{}{[]interface{}{float64(1001), float64(2001)}},
		},
	}

	updated, err := client.UpdateMember(context.Background(), "8056c2e21c000001", "abcdef1234", member)
	if err != nil {
		t.Fatalf("UpdateMember() error = %v", err)
	}

	if gotBody.Name != "myhost" || !gotBody.Hidden {
		t.Errorf("posted body = %+v, declared fields not sent verbatim", gotBody)
	}
	if authorized, _ := gotBody.Config["authorized"].(bool); !authorized {
		t.Error("posted config should carry authorized=true")
	}
	if updated.Name != "myhost" {
		t.Errorf("updated.Name = %q, want %q", updated.Name, "myhost")
	}
}

func TestClient_GetNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/network/8056c2e21c000001" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(Network{ID: "8056c2e21c000001", Description: "office"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	network, err := client.GetNetwork(context.Background(), "8056c2e21c000001")
	if err != nil {
		t.Fatalf("GetNetwork() error = %v", err)
	}
	if network.ID != "8056c2e21c000001" {
		t.Errorf("network.ID = %q", network.ID)
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ErrUnauthorized},
		{"not found", http.StatusNotFound, ErrNotFound},
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := newTestClient(t, server.URL)

			_, err := client.GetNetwork(context.Background(), "8056c2e21c000001")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("GetNetwork() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestClient_NoRetryByDefault(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.GetNetwork(context.Background(), "8056c2e21c000001")
	if err == nil {
		t.Fatal("GetNetwork() expected error for 500 response")
	}
	if attempts != 1 {
		t.Errorf("server saw %d attempts, want 1 (failures surface immediately)", attempts)
	}
}

func TestClient_RetryOnServerError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(Network{ID: "8056c2e21c000001"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	client.RetryAttempts = 3
	client.RetryWaitMin = 1
	client.RetryWaitMax = 1

	if _, err := client.GetNetwork(context.Background(), "8056c2e21c000001"); err != nil {
		t.Fatalf("GetNetwork() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("server saw %d attempts, want 3", attempts)
	}
}
