package authn

// LoginInfo identifies the linkage of an identity to one authentication
// provider. It is the join key between authenticators and identities.
type LoginInfo struct {
	// ProviderID is the ID of the provider that authenticated the identity
	ProviderID string `json:"providerID"`

	// ProviderKey is the unique key the provider uses for the identity
	ProviderKey string `json:"providerKey"`
}

// String returns the login info as "provider:key"
func (l LoginInfo) String() string {
	return l.ProviderID + ":" + l.ProviderKey
}

// IsZero reports whether both fields are empty
func (l LoginInfo) IsZero() bool {
	return l.ProviderID == "" && l.ProviderKey == ""
}

// Identity is the application's user or principal. The pipeline only ever
// looks identities up; it never constructs or mutates them.
type Identity interface {
	LoginInfo() LoginInfo
}
