package spicedb

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"

	v1pb "github.com/authzed/authzed-go/proto/authzed/api/v1"
	"google.golang.org/grpc"

	"warden/authn"
	"warden/authtest"
	"warden/authz"
)

type fakeClient struct {
	mu     sync.Mutex
	grants map[string]bool
	err    error
	last   *v1pb.CheckPermissionRequest
}

func (f *fakeClient) CheckPermission(_ context.Context, in *v1pb.CheckPermissionRequest, _ ...grpc.CallOption) (*v1pb.CheckPermissionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = in
	if f.err != nil {
		return nil, f.err
	}
	key := in.GetSubject().GetObject().GetObjectId() + "#" + in.GetPermission() + "@" + in.GetResource().GetObjectId()
	ship := v1pb.CheckPermissionResponse_PERMISSIONSHIP_NO_PERMISSION
	if f.grants[key] {
		ship = v1pb.CheckPermissionResponse_PERMISSIONSHIP_HAS_PERMISSION
	}
	return &v1pb.CheckPermissionResponse{Permissionship: ship}, nil
}

func newAuthorizer(client PermissionsClient) *Authorizer {
	return New(Config{
		ResourceType: "service",
		ResourceID:   "api",
		SubjectType:  "user",
	}, client, nil, nil)
}

func TestAuthorizer_Check(t *testing.T) {
	client := &fakeClient{grants: map[string]bool{"alice#read@api": true}}
	a := newAuthorizer(client)

	tests := []struct {
		name       string
		subject    string
		permission string
		resource   string
		want       bool
	}{
		{"granted on default resource", "alice", "read", "", true},
		{"denied permission", "alice", "write", "", false},
		{"denied subject", "bob", "read", "", false},
		{"explicit resource", "alice", "read", "other", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Check(context.Background(), tt.subject, tt.permission, tt.resource)
			if err != nil {
				t.Fatalf("Check failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Check = %v, want %v", got, tt.want)
			}
		})
	}

	if rt := client.last.GetResource().GetObjectType(); rt != "service" {
		t.Errorf("resource type = %q, want service", rt)
	}
	if st := client.last.GetSubject().GetObject().GetObjectType(); st != "user" {
		t.Errorf("subject type = %q, want user", st)
	}
}

func TestAuthorizer_CheckError(t *testing.T) {
	unavailable := errors.New("unavailable")
	a := newAuthorizer(&fakeClient{err: unavailable})

	ok, err := a.Check(context.Background(), "alice", "read", "")
	if !errors.Is(err, unavailable) {
		t.Errorf("err = %v, want wrapped unavailable", err)
	}
	if ok {
		t.Error("failed check must not grant")
	}
}

func TestPermission_ComposesWithCombinators(t *testing.T) {
	client := &fakeClient{grants: map[string]bool{
		"alice#read@api":  true,
		"alice#admin@api": false,
	}}
	a := newAuthorizer(client)

	read := Permission[authtest.Identity, authtest.Authenticator](a, "read", "")
	admin := Permission[authtest.Identity, authtest.Authenticator](a, "admin", "")
	policy := authz.And(read, authz.Not(admin))

	alice := authtest.Identity{Info: authn.LoginInfo{ProviderID: "basic", ProviderKey: "alice"}}
	ok, err := policy.IsAuthorized(context.Background(), alice, authtest.Authenticator{}, httptest.NewRequest("GET", "/", nil))
	if err != nil {
		t.Fatalf("IsAuthorized failed: %v", err)
	}
	if !ok {
		t.Error("read && !admin should grant alice")
	}
}

func TestNewClient_RequiresEndpoint(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Error("NewClient without endpoint succeeded")
	}
}

func TestNewClient_Close(t *testing.T) {
	client, err := NewClient(Config{Endpoint: "127.0.0.1:1", Insecure: true, Token: "secret"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	var _ PermissionsClient = client
	if err := client.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
