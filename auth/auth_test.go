package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newFakeProvider(t *testing.T, status int, body any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key in query: %s", r.URL.RawQuery)
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
}

func TestSignInSuccess(t *testing.T) {
	srv := newFakeProvider(t, http.StatusOK, map[string]any{
		"idToken":      "id-token",
		"refreshToken": "refresh-token",
		"localId":      "uid-1",
	})
	defer srv.Close()

	client := NewClientWithBaseURL("test-key", srv.URL)
	cred, err := client.SignIn(context.Background(), "a@b.c", "secret")
	if err != nil {
		t.Fatalf("SignIn() error: %v", err)
	}
	if cred.UID != "uid-1" || cred.IDToken != "id-token" || cred.RefreshToken != "refresh-token" {
		t.Errorf("unexpected credential: %+v", cred)
	}
}

func TestSignInProviderError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   string
	}{
		{name: "Bad credentials", status: http.StatusBadRequest, code: "INVALID_LOGIN_CREDENTIALS"},
		{name: "Unknown email", status: http.StatusBadRequest, code: "EMAIL_NOT_FOUND"},
		{name: "Duplicate email", status: http.StatusBadRequest, code: "EMAIL_EXISTS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFakeProvider(t, tt.status, map[string]any{
				"error": map[string]any{"message": tt.code},
			})
			defer srv.Close()

			client := NewClientWithBaseURL("test-key", srv.URL)
			_, err := client.SignIn(context.Background(), "a@b.c", "bad")
			var provErr *ProviderError
			if !errors.As(err, &provErr) {
				t.Fatalf("expected ProviderError, got %v", err)
			}
			if provErr.Code != tt.code {
				t.Errorf("Code = %q; want %q", provErr.Code, tt.code)
			}
		})
	}
}

func TestMissingAPIKey(t *testing.T) {
	client := NewClient("")
	if _, err := client.SignUp(context.Background(), "a@b.c", "secret"); !errors.Is(err, errMissingAPIKey) {
		t.Errorf("expected errMissingAPIKey, got %v", err)
	}
}
