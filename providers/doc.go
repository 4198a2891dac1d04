// Package providers groups the request providers shipped with warden. Each
// subpackage implements authn.RequestProvider for one stateless credential
// scheme.
package providers
