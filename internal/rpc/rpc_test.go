package rpc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/mmynk/equisplit/internal/models"
)

type fakeAuth struct{}

func (fakeAuth) Login(_ context.Context, req *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error) {
	if req.Msg.Passphrase != "open sesame" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("bad passphrase"))
	}
	user := models.NewUser(req.Msg.UserID, "Alex")
	return connect.NewResponse(&LoginResponse{User: &user, Token: "tok"}), nil
}

func TestJSONCodec(t *testing.T) {
	codec := jsonCodec{}
	if codec.Name() != "json" {
		t.Errorf("Name() = %q, want json", codec.Name())
	}

	data, err := codec.Marshal(&GetExpenseRequest{ExpenseID: "e1"})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"expenseId":"e1"}` {
		t.Errorf("Marshal() = %s", data)
	}

	var empty ListUsersRequest
	if err := codec.Unmarshal(nil, &empty); err != nil {
		t.Errorf("Unmarshal(nil) error = %v", err)
	}
}

func TestAuthServiceRoundTrip(t *testing.T) {
	path, handler := NewAuthServiceHandler(fakeAuth{})
	if path != "/equisplit.v1.AuthService/" {
		t.Errorf("path = %q", path)
	}

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewAuthServiceClient(http.DefaultClient, server.URL)

	resp, err := client.Login(context.Background(), connect.NewRequest(&LoginRequest{
		UserID:     "1",
		Passphrase: "open sesame",
	}))
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.Msg.Token != "tok" || resp.Msg.User.ID != "1" {
		t.Errorf("Unexpected response: %+v", resp.Msg)
	}

	_, err = client.Login(context.Background(), connect.NewRequest(&LoginRequest{UserID: "1"}))
	if connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Errorf("Expected Unauthenticated, got %v", err)
	}
}

func TestUnknownProcedure(t *testing.T) {
	_, handler := NewAuthServiceHandler(fakeAuth{})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/equisplit.v1.AuthService/Logout", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
