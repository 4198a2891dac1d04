// Package authz provides composable authorization policies evaluated for
// an authenticated identity and its authenticator.
package authz

import (
	"context"
	"errors"
	"net/http"

	"github.com/sourcegraph/conc"

	"warden/authn"
)

// Authorization decides whether an identity may access a request. An error
// means the decision could not be made, never a denial.
type Authorization[I authn.Identity, A authn.Authenticator] interface {
	IsAuthorized(ctx context.Context, identity I, authenticator A, r *http.Request) (bool, error)
}

// Func adapts an ordinary function to an Authorization
type Func[I authn.Identity, A authn.Authenticator] func(ctx context.Context, identity I, authenticator A, r *http.Request) (bool, error)

// IsAuthorized calls f
func (f Func[I, A]) IsAuthorized(ctx context.Context, identity I, authenticator A, r *http.Request) (bool, error) {
	return f(ctx, identity, authenticator, r)
}

// Allow returns a policy that grants every request
func Allow[I authn.Identity, A authn.Authenticator]() Authorization[I, A] {
	return Func[I, A](func(context.Context, I, A, *http.Request) (bool, error) {
		return true, nil
	})
}

// Deny returns a policy that rejects every request
func Deny[I authn.Identity, A authn.Authenticator]() Authorization[I, A] {
	return Func[I, A](func(context.Context, I, A, *http.Request) (bool, error) {
		return false, nil
	})
}

// Not negates p
func Not[I authn.Identity, A authn.Authenticator](p Authorization[I, A]) Authorization[I, A] {
	return Func[I, A](func(ctx context.Context, identity I, authenticator A, r *http.Request) (bool, error) {
		ok, err := p.IsAuthorized(ctx, identity, authenticator, r)
		if err != nil {
			return false, err
		}
		return !ok, nil
	})
}

// And grants when both policies grant. Both are evaluated concurrently.
func And[I authn.Identity, A authn.Authenticator](left, right Authorization[I, A]) Authorization[I, A] {
	return Func[I, A](func(ctx context.Context, identity I, authenticator A, r *http.Request) (bool, error) {
		l, rr, err := both(ctx, left, right, identity, authenticator, r)
		if err != nil {
			return false, err
		}
		return l && rr, nil
	})
}

// Or grants when either policy grants. Both are evaluated concurrently.
func Or[I authn.Identity, A authn.Authenticator](left, right Authorization[I, A]) Authorization[I, A] {
	return Func[I, A](func(ctx context.Context, identity I, authenticator A, r *http.Request) (bool, error) {
		l, rr, err := both(ctx, left, right, identity, authenticator, r)
		if err != nil {
			return false, err
		}
		return l || rr, nil
	})
}

// All grants when every policy grants; with no policies it grants
func All[I authn.Identity, A authn.Authenticator](policies ...Authorization[I, A]) Authorization[I, A] {
	result := Allow[I, A]()
	for i, p := range policies {
		if i == 0 {
			result = p
			continue
		}
		result = And(result, p)
	}
	return result
}

// Any grants when at least one policy grants; with no policies it denies
func Any[I authn.Identity, A authn.Authenticator](policies ...Authorization[I, A]) Authorization[I, A] {
	result := Deny[I, A]()
	for i, p := range policies {
		if i == 0 {
			result = p
			continue
		}
		result = Or(result, p)
	}
	return result
}

func both[I authn.Identity, A authn.Authenticator](
	ctx context.Context,
	left, right Authorization[I, A],
	identity I, authenticator A, r *http.Request,
) (bool, bool, error) {
	var (
		wg         conc.WaitGroup
		lok, rok   bool
		lerr, rerr error
	)
	wg.Go(func() { lok, lerr = left.IsAuthorized(ctx, identity, authenticator, r) })
	wg.Go(func() { rok, rerr = right.IsAuthorized(ctx, identity, authenticator, r) })
	wg.Wait()

	if err := errors.Join(lerr, rerr); err != nil {
		return false, false, err
	}
	return lok, rok, nil
}
