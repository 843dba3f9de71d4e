package handlers

import (
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/haeun-dev/heartlink-backend/internal/domain"
)

func TestGetUser_FoundAndNotFound(t *testing.T) {
	r, _ := newAPI(t)
	uid := loginUser(t, r, "acct-1", "bob")

	w := doJSON(t, r, http.MethodGet, "/users/"+uid, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: %d %s", w.Code, w.Body.String())
	}
	u := decode[domain.User](t, w)
	if u.ID != uid || u.Handle != "bob" {
		t.Fatalf("unexpected user: %+v", u)
	}

	if w2 := doJSON(t, r, http.MethodGet, "/users/"+uuid.NewString(), nil, nil); w2.Code != http.StatusNotFound {
		t.Fatalf("unknown user: %d, want 404", w2.Code)
	}
	if w3 := doJSON(t, r, http.MethodGet, "/users/not-a-uuid", nil, nil); w3.Code != http.StatusBadRequest {
		t.Fatalf("invalid id: %d, want 400", w3.Code)
	}
}

func TestUpdateHandle_HTTP(t *testing.T) {
	r, _ := newAPI(t)
	uid := loginUser(t, r, "acct-1", "")

	w := doJSON(t, r, http.MethodPut, "/users/"+uid+"/handle", UpdateHandleRequest{Handle: "  bob  "}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("update handle: %d %s", w.Code, w.Body.String())
	}
	if u := decode[domain.User](t, w); u.Handle != "bob" {
		t.Fatalf("handle = %q, want trimmed", u.Handle)
	}

	// Empty handle is rejected by binding.
	if w2 := doJSON(t, r, http.MethodPut, "/users/"+uid+"/handle", map[string]string{"handle": ""}, nil); w2.Code != http.StatusBadRequest {
		t.Fatalf("empty handle: %d, want 400", w2.Code)
	}
	if w3 := doJSON(t, r, http.MethodPut, "/users/"+uuid.NewString()+"/handle", UpdateHandleRequest{Handle: "bob"}, nil); w3.Code != http.StatusNotFound {
		t.Fatalf("unknown user: %d, want 404", w3.Code)
	}
}

func TestUpdateSettings_HTTP(t *testing.T) {
	r, _ := newAPI(t)
	uid := loginUser(t, r, "acct-1", "bob")

	off := false
	w := doJSON(t, r, http.MethodPatch, "/users/"+uid+"/settings", UpdateSettingsRequest{PushEnabled: &off}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("update settings: %d %s", w.Code, w.Body.String())
	}
	u := decode[domain.User](t, w)
	if u.PushEnabled || !u.InAppEnabled {
		t.Fatalf("partial update touched the wrong flag: %+v", u)
	}

	// No flags at all is an error.
	w2 := doJSON(t, r, http.MethodPatch, "/users/"+uid+"/settings", UpdateSettingsRequest{}, nil)
	if w2.Code != http.StatusBadRequest {
		t.Fatalf("empty settings: %d, want 400", w2.Code)
	}
}
