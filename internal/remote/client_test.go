package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kinpoint/kinpoint/internal/secrets"
)

func setupClient(t *testing.T, handler http.Handler) (*Client, *secrets.Store) {
	t.Helper()

	store, err := secrets.Open(filepath.Join(t.TempDir(), "secrets.json"))
	if err != nil {
		t.Fatalf("failed to open secrets: %v", err)
	}

	if handler != nil {
		server := httptest.NewServer(handler)
		t.Cleanup(server.Close)
		if err := store.Set(secrets.KeyAPIURL, server.URL); err != nil {
			t.Fatalf("failed to set API URL: %v", err)
		}
	}

	return New(store, nil, nil), store
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": exp.Unix(),
		"id":  "u1",
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestIsSignedIn(t *testing.T) {
	client, store := setupClient(t, nil)

	if client.IsSignedIn() {
		t.Error("expected signed out with no token")
	}

	store.Set(secrets.KeySessionToken, signedToken(t, time.Now().Add(time.Hour)))
	if !client.IsSignedIn() {
		t.Error("expected signed in with valid token")
	}

	store.Set(secrets.KeySessionToken, signedToken(t, time.Now().Add(-time.Hour)))
	if client.IsSignedIn() {
		t.Error("expected signed out with expired token")
	}

	store.Set(secrets.KeySessionToken, "garbage")
	if client.IsSignedIn() {
		t.Error("expected signed out with malformed token")
	}
}

func TestSignIn(t *testing.T) {
	token := ""
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/collections/users/auth-with-password" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["identity"] != "a@x.com" {
			t.Errorf("unexpected identity %q", body["identity"])
		}

		json.NewEncoder(w).Encode(map[string]any{
			"token": token,
			"record": map[string]any{
				"id":    "u1",
				"email": "a@x.com",
			},
		})
	})

	client, store := setupClient(t, handler)
	token = signedToken(t, time.Now().Add(time.Hour))

	user, err := client.SignIn(context.Background(), "a@x.com", "hunter22")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if user.ID != "u1" {
		t.Errorf("expected user u1, got %q", user.ID)
	}

	if got, _ := store.Get(secrets.KeySessionToken); got != token {
		t.Error("expected session token to be persisted")
	}
	if got, _ := store.Get(secrets.KeyMyUserID); got != "u1" {
		t.Errorf("expected MY_USER_ID u1, got %q", got)
	}
	if !client.IsSignedIn() {
		t.Error("expected signed in after SignIn")
	}
}

func TestSignInBadCredentials(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"message": "Failed to authenticate."})
	})

	client, _ := setupClient(t, handler)

	_, err := client.SignIn(context.Background(), "a@x.com", "wrong")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *AuthError, got %v", err)
	}
}

func TestRegisterPasswordMismatchNeverHitsNetwork(t *testing.T) {
	requests := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	})

	client, _ := setupClient(t, handler)

	_, err := client.Register(context.Background(), NewUser{
		Email:           "a@x.com",
		Password:        "one",
		PasswordConfirm: "two",
	})

	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if requests != 0 {
		t.Errorf("expected zero requests, server saw %d", requests)
	}
}

func TestGetSyncData(t *testing.T) {
	after := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mobile/sync" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("after"); got != "2024-01-01T00:00:00Z" {
			t.Errorf("unexpected after param %q", got)
		}
		if r.Header.Get("Authorization") == "" {
			t.Error("expected Authorization header")
		}

		json.NewEncoder(w).Encode(map[string]any{
			"users": []map[string]any{{
				"id":        "u1",
				"email":     "a@x.com",
				"firstName": "ann",
				"lastName":  "lee",
				"isDeleted": false,
				"createdAt": "2024-01-01T00:00:00Z",
				"updatedAt": "2024-01-01T00:00:00Z",
			}},
			"families":      []any{},
			"familyMembers": []any{},
			"locations":     []any{},
		})
	})

	client, store := setupClient(t, handler)
	store.Set(secrets.KeySessionToken, signedToken(t, time.Now().Add(time.Hour)))

	data, err := client.GetSyncData(context.Background(), after)
	if err != nil {
		t.Fatalf("GetSyncData failed: %v", err)
	}
	if len(data.Users) != 1 || data.Users[0].ID != "u1" {
		t.Errorf("unexpected users: %+v", data.Users)
	}
	if data.Users[0].IsDeleted {
		t.Error("expected isDeleted false")
	}
}

func TestCreateLocationRequiresUserID(t *testing.T) {
	client, _ := setupClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	_, err := client.CreateLocation(context.Background(), 40.0, -111.9)
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestCreateFamilySendsGeneratedCode(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)

		if body["name"] != "lees" {
			t.Errorf("unexpected name %q", body["name"])
		}
		if len(body["code"]) != 32 {
			t.Errorf("expected 32 character join code, got %q", body["code"])
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"family": map[string]any{
				"id":        "f1",
				"name":      "lees",
				"createdBy": "u1",
				"createdAt": "2024-01-01T00:00:00Z",
				"updatedAt": "2024-01-01T00:00:00Z",
			},
			"familyMember": map[string]any{
				"id":        "fm1",
				"user":      "u1",
				"family":    "f1",
				"createdAt": "2024-01-01T00:00:00Z",
			},
		})
	})

	client, _ := setupClient(t, handler)

	res, err := client.CreateFamily(context.Background(), "lees")
	if err != nil {
		t.Fatalf("CreateFamily failed: %v", err)
	}
	if res.Family.ID != "f1" || res.FamilyMember.ID != "fm1" {
		t.Errorf("unexpected response: %+v", res)
	}
}

func TestMutatingCallCapturesRefreshedToken(t *testing.T) {
	refreshed := ""
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"token":  refreshed,
			"record": map[string]any{"id": "u1", "email": "a@x.com"},
		})
	})

	client, store := setupClient(t, handler)
	store.Set(secrets.KeySessionToken, signedToken(t, time.Now().Add(time.Minute)))
	refreshed = signedToken(t, time.Now().Add(2*time.Hour))

	if err := client.RefreshAuth(context.Background()); err != nil {
		t.Fatalf("RefreshAuth failed: %v", err)
	}

	if got, _ := store.Get(secrets.KeySessionToken); got != refreshed {
		t.Error("expected refreshed token to be persisted")
	}
}

func TestRefreshAuthWithoutSession(t *testing.T) {
	client, _ := setupClient(t, nil)

	err := client.RefreshAuth(context.Background())
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *AuthError, got %v", err)
	}
}

func TestFamilyMembers(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mobile/families/f1/members" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method %s", r.Method)
		}

		json.NewEncoder(w).Encode([]map[string]any{{
			"id":        "u1",
			"email":     "a@x.com",
			"firstName": "ann",
			"lastName":  "lee",
			"joinedAt":  "2024-01-01T00:00:00Z",
		}})
	})

	client, _ := setupClient(t, handler)

	members, err := client.FamilyMembers(context.Background(), "f1")
	if err != nil {
		t.Fatalf("FamilyMembers failed: %v", err)
	}
	if len(members) != 1 || members[0].ID != "u1" {
		t.Errorf("unexpected members: %+v", members)
	}
	if members[0].JoinedAt.IsZero() {
		t.Error("expected joinedAt to be decoded")
	}
}

func TestMemberLocations(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mobile/families/f1/members/locations" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		json.NewEncoder(w).Encode([]map[string]any{{
			"userId":      "u1",
			"firstName":   "ann",
			"lastName":    "lee",
			"coordinates": map[string]float64{"lat": 40.7, "lon": -74.0},
			"recordedAt":  "2024-01-01T00:00:00Z",
		}})
	})

	client, _ := setupClient(t, handler)

	locations, err := client.MemberLocations(context.Background(), "f1")
	if err != nil {
		t.Fatalf("MemberLocations failed: %v", err)
	}
	if len(locations) != 1 || locations[0].UserID != "u1" {
		t.Errorf("unexpected locations: %+v", locations)
	}
	if locations[0].Coordinates.Lat != 40.7 {
		t.Errorf("unexpected coordinates: %+v", locations[0].Coordinates)
	}
}

func TestInvitations(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mobile/invitations" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		json.NewEncoder(w).Encode([]map[string]any{{
			"id":         "i1",
			"familyName": "lees",
			"createdAt":  "2024-01-01T00:00:00Z",
		}})
	})

	client, _ := setupClient(t, handler)

	invitations, err := client.Invitations(context.Background())
	if err != nil {
		t.Fatalf("Invitations failed: %v", err)
	}
	if len(invitations) != 1 || invitations[0].FamilyName != "lees" {
		t.Errorf("unexpected invitations: %+v", invitations)
	}
}

func TestAcceptInvitation(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mobile/invitations/i1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Method != http.MethodPut {
			t.Errorf("unexpected method %s", r.Method)
		}

		json.NewEncoder(w).Encode(map[string]string{"familyId": "f1"})
	})

	client, _ := setupClient(t, handler)

	familyID, err := client.AcceptInvitation(context.Background(), "i1")
	if err != nil {
		t.Fatalf("AcceptInvitation failed: %v", err)
	}
	if familyID != "f1" {
		t.Errorf("expected family f1, got %q", familyID)
	}
}

func TestDeclineInvitation(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/collections/invitations/records/i1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Method != http.MethodDelete {
			t.Errorf("unexpected method %s", r.Method)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	client, _ := setupClient(t, handler)

	if err := client.DeclineInvitation(context.Background(), "i1"); err != nil {
		t.Fatalf("DeclineInvitation failed: %v", err)
	}
}

func TestUpdateMe(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/collections/users/records/u1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Method != http.MethodPatch {
			t.Errorf("unexpected method %s", r.Method)
		}

		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["firstName"] != "ann" {
			t.Errorf("expected lowercased first name, got %q", body["firstName"])
		}

		json.NewEncoder(w).Encode(map[string]any{
			"id":        "u1",
			"email":     "a@x.com",
			"firstName": "ann",
			"lastName":  "lee",
		})
	})

	client, store := setupClient(t, handler)
	store.Set(secrets.KeyMyUserID, "u1")

	updated, err := client.UpdateMe(context.Background(), UpdateProfile{FirstName: " Ann "})
	if err != nil {
		t.Fatalf("UpdateMe failed: %v", err)
	}
	if updated.FirstName != "ann" {
		t.Errorf("unexpected user: %+v", updated)
	}
}

func TestUpdateMeRequiresUserID(t *testing.T) {
	client, _ := setupClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	_, err := client.UpdateMe(context.Background(), UpdateProfile{FirstName: "ann"})
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestAvatarURL(t *testing.T) {
	client, store := setupClient(t, nil)
	store.Set(secrets.KeyAPIURL, "https://api.example.com")
	store.Set(secrets.KeyMyUserID, "u1")

	url, err := client.AvatarURL("pic.png")
	if err != nil {
		t.Fatalf("AvatarURL failed: %v", err)
	}
	if url != "https://api.example.com/api/files/users/u1/pic.png" {
		t.Errorf("unexpected avatar url %q", url)
	}
}

func TestBaseURLTrimsTrailingSlash(t *testing.T) {
	client, store := setupClient(t, nil)

	// A direct secret write bypasses SetBaseURL's normalization.
	store.Set(secrets.KeyAPIURL, "https://api.example.com/")
	store.Set(secrets.KeyMyUserID, "u1")

	if got := client.BaseURL(); got != "https://api.example.com" {
		t.Errorf("expected trimmed base URL, got %q", got)
	}

	url, err := client.AvatarURL("pic.png")
	if err != nil {
		t.Fatalf("AvatarURL failed: %v", err)
	}
	if url != "https://api.example.com/api/files/users/u1/pic.png" {
		t.Errorf("unexpected avatar url %q", url)
	}
}

func TestSignOutClearsLocalSession(t *testing.T) {
	requests := 0
	client, store := setupClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))

	store.Set(secrets.KeySessionToken, signedToken(t, time.Now().Add(time.Hour)))
	store.Set(secrets.KeyMyUserID, "u1")

	if err := client.SignOut(); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}

	if client.IsSignedIn() {
		t.Error("expected signed out")
	}
	if _, ok := store.Get(secrets.KeyMyUserID); ok {
		t.Error("expected MY_USER_ID to be cleared")
	}
	if requests != 0 {
		t.Error("SignOut must not call the remote")
	}
}
