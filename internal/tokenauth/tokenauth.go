// Package tokenauth is the token registry (C6): issuance, listing,
// revocation, and validation of the opaque bearer tokens the admission
// controller checks on every Join.
package tokenauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/rit1708/waitingroom/internal/apperr"
	"github.com/rit1708/waitingroom/internal/metadata"
	"github.com/rit1708/waitingroom/internal/types"
)

const defaultExpiryDays = 15

// Registry is the token registry over a metadata store.
type Registry struct {
	mds metadata.Store
}

// New builds a Registry.
func New(mds metadata.Store) *Registry {
	return &Registry{mds: mds}
}

// Generated is returned only from Generate: the one time the secret is
// ever visible after creation.
type Generated struct {
	types.Token
	Secret string
}

// Generate issues a new token. expiresInDays <= 0 means "use the default
// 15-day expiry"; neverExpires overrides any expiresInDays to produce a
// token with no expiry at all.
func Generate(ctx context.Context, mds metadata.Store, name string, expiresInDays int, neverExpires bool) (*Generated, error) {
	secret, err := newSecret()
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "generate token secret", err)
	}

	var expiresAt *time.Time
	if !neverExpires {
		days := expiresInDays
		if days <= 0 {
			days = defaultExpiryDays
		}
		t := time.Now().UTC().Add(time.Duration(days) * 24 * time.Hour)
		expiresAt = &t
	}

	tok, err := mds.CreateToken(ctx, secret, name, expiresAt)
	if err != nil {
		return nil, apperr.Wrap(apperr.MetadataUnavailable, "create token", err)
	}
	return &Generated{Token: *tok, Secret: secret}, nil
}

// Generate is the Registry-bound convenience form of the package-level
// Generate function.
func (r *Registry) Generate(ctx context.Context, name string, expiresInDays int, neverExpires bool) (*Generated, error) {
	return Generate(ctx, r.mds, name, expiresInDays, neverExpires)
}

// List returns every token record with its secret cleared. isExpired is
// evaluated by the caller via Token.IsExpired.
func (r *Registry) List(ctx context.Context) ([]*types.Token, error) {
	toks, err := r.mds.ListTokens(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.MetadataUnavailable, "list tokens", err)
	}
	out := make([]*types.Token, len(toks))
	for i, t := range toks {
		cp := *t
		cp.Secret = ""
		out[i] = &cp
	}
	return out, nil
}

// Revoke flips isActive=false without deleting the record.
func (r *Registry) Revoke(ctx context.Context, id string) error {
	if err := r.mds.SetTokenActive(ctx, id, false); err != nil {
		return apperr.Wrap(apperr.MetadataUnavailable, "revoke token", err)
	}
	return nil
}

// Delete hard-deletes a token record.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if err := r.mds.DeleteToken(ctx, id); err != nil {
		return apperr.Wrap(apperr.MetadataUnavailable, "delete token", err)
	}
	return nil
}

// Validate looks up secret and, if active and unexpired, touches
// lastUsedAt and reports it valid. An active-but-expired token is
// flipped inactive as a side effect and reported invalid, per the
// lazy-expiry contract.
func (r *Registry) Validate(ctx context.Context, secret string) (bool, error) {
	tok, err := r.mds.GetTokenBySecret(ctx, secret)
	if err != nil {
		if errors.Is(err, metadata.ErrNotFound) {
			return false, nil
		}
		return false, apperr.Wrap(apperr.MetadataUnavailable, "validate token", err)
	}
	if !tok.IsActive {
		return false, nil
	}
	now := time.Now().UTC()
	if tok.IsExpired(now) {
		if err := r.mds.SetTokenActive(ctx, tok.ID, false); err != nil {
			return false, apperr.Wrap(apperr.MetadataUnavailable, "expire token", err)
		}
		return false, nil
	}
	if err := r.mds.TouchTokenLastUsed(ctx, tok.ID, now); err != nil {
		return false, apperr.Wrap(apperr.MetadataUnavailable, "touch token", err)
	}
	return true, nil
}

func newSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
