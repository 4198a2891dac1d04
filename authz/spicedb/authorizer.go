// Package spicedb checks permissions against a SpiceDB instance and exposes
// them as authz policies.
package spicedb

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	v1pb "github.com/authzed/authzed-go/proto/authzed/api/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"warden/authn"
	"warden/authz"
	"warden/observability/logging"
	"warden/observability/metrics"
)

// PermissionsClient is the part of the SpiceDB permissions API the
// authorizer uses. *Client satisfies it.
type PermissionsClient interface {
	CheckPermission(ctx context.Context, in *v1pb.CheckPermissionRequest, opts ...grpc.CallOption) (*v1pb.CheckPermissionResponse, error)
}

// Config holds SpiceDB authorizer configuration
type Config struct {
	// Endpoint is the SpiceDB gRPC endpoint
	Endpoint string

	// Insecure disables transport security
	Insecure bool

	// Token is the SpiceDB preshared key
	Token string

	// ResourceType is the SpiceDB resource type
	ResourceType string

	// ResourceID is the default resource ID
	ResourceID string

	// SubjectType is the SpiceDB subject type
	SubjectType string
}

// Authorizer implements permission checks using SpiceDB
type Authorizer struct {
	client       PermissionsClient
	resourceType string
	resourceID   string
	subjectType  string
	logger       *logging.Logger
	metrics      *metrics.Collector
}

// New creates a new SpiceDB authorizer; logger and collector may be nil
func New(config Config, client PermissionsClient, logger *logging.Logger, collector *metrics.Collector) *Authorizer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Authorizer{
		client:       client,
		resourceType: config.ResourceType,
		resourceID:   config.ResourceID,
		subjectType:  config.SubjectType,
		logger:       logger.WithModule("authz.spicedb"),
		metrics:      collector,
	}
}

// Client is a SpiceDB permissions client owning its gRPC connection
type Client struct {
	v1pb.PermissionsServiceClient
	conn *grpc.ClientConn
}

// Close releases the connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// NewClient connects to SpiceDB with bearer token authentication. The
// connection is established lazily on the first check.
func NewClient(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, errors.New("spicedb endpoint is required")
	}

	opts := []grpc.DialOption{
		grpc.WithPerRPCCredentials(bearerToken{token: config.Token, insecure: config.Insecure}),
	}
	if config.Insecure {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewClientTLSFromCert(nil, "")))
	}

	conn, err := grpc.NewClient(config.Endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SpiceDB client: %w", err)
	}
	return &Client{
		PermissionsServiceClient: v1pb.NewPermissionsServiceClient(conn),
		conn:                     conn,
	}, nil
}

// Check reports whether subject has permission on resource. An empty
// resource falls back to the configured default resource ID.
func (a *Authorizer) Check(ctx context.Context, subject, permission, resource string) (bool, error) {
	if resource == "" {
		resource = a.resourceID
	}

	req := &v1pb.CheckPermissionRequest{
		Resource: &v1pb.ObjectReference{
			ObjectType: a.resourceType,
			ObjectId:   resource,
		},
		Permission: permission,
		Subject: &v1pb.SubjectReference{
			Object: &v1pb.ObjectReference{
				ObjectType: a.subjectType,
				ObjectId:   subject,
			},
		},
	}

	resp, err := a.client.CheckPermission(ctx, req)
	if err != nil {
		a.logger.Error("Error checking permission with SpiceDB",
			logging.Err(err),
			"subject", subject,
			"resource", resource,
			"permission", permission,
		)
		return false, fmt.Errorf("failed to check permission %s on %s:%s: %w", permission, a.resourceType, resource, err)
	}

	allowed := resp.GetPermissionship() == v1pb.CheckPermissionResponse_PERMISSIONSHIP_HAS_PERMISSION
	a.metrics.RecordAuthorization(allowed)
	a.logger.Debug("Permission checked",
		"subject", subject,
		"resource", resource,
		"permission", permission,
		"allowed", allowed,
	)
	return allowed, nil
}

// Permission returns a policy granting identities that hold permission on
// resource. The identity's provider key is the SpiceDB subject ID.
func Permission[I authn.Identity, A authn.Authenticator](a *Authorizer, permission, resource string) authz.Authorization[I, A] {
	return authz.Func[I, A](func(ctx context.Context, identity I, _ A, _ *http.Request) (bool, error) {
		return a.Check(ctx, identity.LoginInfo().ProviderKey, permission, resource)
	})
}

// bearerToken attaches the preshared key to every call
type bearerToken struct {
	token    string
	insecure bool
}

func (b bearerToken) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + b.token}, nil
}

func (b bearerToken) RequireTransportSecurity() bool {
	return !b.insecure
}
