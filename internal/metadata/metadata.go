// Package metadata is the durable metadata store (MDS): domains, events,
// the append-only entry journal, and bearer tokens. The engine reads
// events by id, the token registry reads tokens by secret, and the
// admission controller checks a request's domain name against the
// domain recorded on the event it reads.
package metadata

import (
	"context"
	"time"

	"github.com/rit1708/waitingroom/internal/types"
)

// Store is the MDS contract. Every mutation of an Event stamps UpdatedAt;
// Domain and Event names are unique per their respective scopes (domain
// names globally, event names per (domain, name) pair).
type Store interface {
	CreateDomain(ctx context.Context, name string) (*types.Domain, error)
	GetDomainByName(ctx context.Context, name string) (*types.Domain, error)
	GetDomainByID(ctx context.Context, id string) (*types.Domain, error)
	ListDomains(ctx context.Context) ([]*types.Domain, error)

	CreateEvent(ctx context.Context, domain, name string, queueLimit, intervalSec int) (*types.Event, error)
	GetEvent(ctx context.Context, id string) (*types.Event, error)
	GetEventByDomainAndName(ctx context.Context, domain, name string) (*types.Event, error)
	ListEvents(ctx context.Context) ([]*types.Event, error)
	ListActiveEvents(ctx context.Context) ([]*types.Event, error)
	SetEventActive(ctx context.Context, id string, active bool) error

	InsertEntry(ctx context.Context, eventID, userID string, enteredAt time.Time) error
	ListRecentEntries(ctx context.Context, eventID string, limit int) ([]*types.Entry, error)

	CreateToken(ctx context.Context, secret, name string, expiresAt *time.Time) (*types.Token, error)
	GetTokenBySecret(ctx context.Context, secret string) (*types.Token, error)
	ListTokens(ctx context.Context) ([]*types.Token, error)
	SetTokenActive(ctx context.Context, id string, active bool) error
	TouchTokenLastUsed(ctx context.Context, id string, at time.Time) error
	DeleteToken(ctx context.Context, id string) error

	Ping(ctx context.Context) error
	Close() error
}
