package auth

import (
	"context"
	"errors"
	"testing"
)

func TestCompositeAuthenticator(t *testing.T) {
	store := NewMemoryAPIKeyStore()
	store.AddRaw("k1", "good", "key-client")
	c := NewCompositeAuthenticator(
		NewAPIKeyAuthenticator(APIKeyConfig{}, store),
		NewJWTAuthenticator(JWTConfig{}, NewStaticKeyProvider(hmacKey)),
	)

	res, err := c.Authenticate(context.Background(), headers("X-API-Key", "good"))
	if err != nil || !res.Authenticated || res.Identity.Principal != "key-client" {
		t.Fatalf("api key path = %+v, %v", res, err)
	}

	res, _ = c.Authenticate(context.Background(), headers("X-API-Key", "bad"))
	if res.Authenticated || !errors.Is(res.Error, ErrInvalidCredentials) {
		t.Fatalf("bad key = %+v", res)
	}

	res, _ = c.Authenticate(context.Background(), headers())
	if res.Authenticated || !errors.Is(res.Error, ErrMissingCredentials) {
		t.Fatalf("no credentials = %+v", res)
	}
	if c.Supports(context.Background(), headers()) {
		t.Error("Supports should be false without credentials")
	}
}

func TestCompositeAuthenticator_FallsThrough(t *testing.T) {
	reject := NewAuthenticatorFunc("reject",
		func(context.Context, *AuthRequest) bool { return true },
		func(context.Context, *AuthRequest) (*AuthResult, error) {
			return AuthFailure(ErrInvalidCredentials, "reject"), nil
		})
	accept := NewAuthenticatorFunc("accept",
		func(context.Context, *AuthRequest) bool { return true },
		func(context.Context, *AuthRequest) (*AuthResult, error) {
			return AuthSuccess(&Identity{Principal: "p", Method: AuthMethodAPIKey}), nil
		})

	res, err := NewCompositeAuthenticator(reject, accept).Authenticate(context.Background(), headers())
	if err != nil || !res.Authenticated {
		t.Fatalf("result = %+v, %v", res, err)
	}
}

func TestCompositeAuthenticator_InternalError(t *testing.T) {
	boom := errors.New("boom")
	broken := NewAuthenticatorFunc("broken",
		func(context.Context, *AuthRequest) bool { return true },
		func(context.Context, *AuthRequest) (*AuthResult, error) { return nil, boom })

	if _, err := NewCompositeAuthenticator(broken).Authenticate(context.Background(), headers()); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}
