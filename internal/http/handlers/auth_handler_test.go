package handlers

import (
	"net/http"
	"testing"
)

func TestLogin_CreateAndReuse(t *testing.T) {
	r, _ := newAPI(t)

	w := doJSON(t, r, http.MethodPost, "/auth/login", LoginRequest{AccountID: "acct-1", Name: "Bob"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}
	first := decode[LoginResponse](t, w)
	if !first.IsNewUser || first.User.Name != "Bob" {
		t.Fatalf("unexpected first login: %+v", first)
	}

	w2 := doJSON(t, r, http.MethodPost, "/auth/login", LoginRequest{AccountID: "acct-1", Name: "Robert"}, nil)
	again := decode[LoginResponse](t, w2)
	if again.IsNewUser || again.User.ID != first.User.ID {
		t.Fatalf("second login must reuse the row: %+v", again)
	}
	if again.User.Name != "Bob" {
		t.Fatalf("existing name must not be overwritten: %q", again.User.Name)
	}
}

func TestLogin_RequiresAccountID(t *testing.T) {
	r, _ := newAPI(t)

	w := doJSON(t, r, http.MethodPost, "/auth/login", map[string]string{"name": "Bob"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if resp := decode[ErrorResponse](t, w); resp.Code != ErrCodeBadRequest {
		t.Fatalf("code = %q", resp.Code)
	}
}

func TestDisconnect_RemovesAccount(t *testing.T) {
	r, _ := newAPI(t)
	uid := loginUser(t, r, "acct-1", "bob")

	w := doJSON(t, r, http.MethodPost, "/auth/disconnect", DisconnectRequest{AccountID: "acct-1"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("disconnect: %d %s", w.Code, w.Body.String())
	}
	if resp := decode[DisconnectResponse](t, w); !resp.Success {
		t.Fatalf("unexpected response: %+v", resp)
	}

	if w2 := doJSON(t, r, http.MethodGet, "/users/"+uid, nil, nil); w2.Code != http.StatusNotFound {
		t.Fatalf("user must be gone: %d", w2.Code)
	}

	// Identity providers retry disconnect callbacks; repeats must succeed.
	w3 := doJSON(t, r, http.MethodPost, "/auth/disconnect", DisconnectRequest{AccountID: "acct-1"}, nil)
	if w3.Code != http.StatusOK {
		t.Fatalf("repeat disconnect: %d", w3.Code)
	}
}
