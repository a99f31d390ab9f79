// Package router maps command keywords to handlers. Every outcome,
// including engine failures, comes back as a reply.
package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/josh-kwaku/civitas/internal/cache"
	"github.com/josh-kwaku/civitas/internal/causa"
	"github.com/josh-kwaku/civitas/internal/command"
	"github.com/josh-kwaku/civitas/internal/commissio"
	"github.com/josh-kwaku/civitas/internal/domain"
	"github.com/josh-kwaku/civitas/internal/ledger"
	"github.com/josh-kwaku/civitas/internal/logging"
	"github.com/josh-kwaku/civitas/internal/metrics"
	"github.com/josh-kwaku/civitas/internal/reply"
)

type Router struct {
	ledger       *ledger.Store
	causae       *causa.Engine
	commissiones *commissio.Engine
	listings     cache.Cache
	now          func() time.Time
}

type Option func(*Router)

// WithClock sets the clock that dates cached listings. Pass the engines'
// clock so a listing is never served past the day it was rendered on.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

func New(store *ledger.Store, causae *causa.Engine, commissiones *commissio.Engine, listings cache.Cache, opts ...Option) *Router {
	if listings == nil {
		listings = cache.NewMemory(0)
	}
	r := &Router{
		ledger:       store,
		causae:       causae,
		commissiones: commissiones,
		listings:     listings,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dispatch runs the command in body on behalf of from.
func (r *Router) Dispatch(ctx context.Context, from, body string) domain.Reply {
	kind, ok := command.Identify(body)
	if !ok {
		metrics.Commands.WithLabelValues("unknown", reply.CodeUnrecognized).Inc()
		logging.FromContext(ctx).Info("unrecognized command", "from", from)
		return reply.Unrecognized()
	}

	ctx = logging.WithAttrs(ctx, "command", string(kind))
	log := logging.FromContext(ctx)

	email, err := domain.NormalizeEmail(from)
	if err != nil {
		return r.fail(ctx, kind, fmt.Errorf("sender: %w", err))
	}

	cmd, err := command.Parse(body)
	if err != nil {
		return r.fail(ctx, kind, err)
	}

	out, err := r.run(ctx, email, cmd)
	if err != nil {
		return r.fail(ctx, kind, err)
	}

	metrics.Commands.WithLabelValues(string(kind), "ok").Inc()
	log.Info("command handled", "email", email)
	return out
}

func (r *Router) run(ctx context.Context, email string, cmd command.Command) (domain.Reply, error) {
	switch c := cmd.(type) {
	case command.Transfer:
		return r.transfer(ctx, email, c)
	case command.CreateCausa:
		return r.createCausa(ctx, email, c)
	case command.Vote:
		return r.vote(ctx, email, c)
	case command.Resolve:
		return r.resolve(ctx, email, c)
	case command.CreateCommissio:
		return r.createCommissio(ctx, email, c)
	case command.Accept:
		return r.accept(ctx, email, c)
	case command.Complete:
		return r.complete(ctx, email, c)
	case command.Balance:
		return r.balance(ctx, email)
	case command.Help:
		return reply.Help(), nil
	case command.ListCausae:
		return r.listCausae(ctx)
	case command.ListCommissiones:
		return r.listCommissiones(ctx)
	}
	return domain.Reply{}, fmt.Errorf("run: no handler for %s: %w", cmd.Kind(), domain.ErrMalformedCommand)
}

func (r *Router) fail(ctx context.Context, kind command.Kind, err error) domain.Reply {
	out := reply.Error(string(kind), err)
	metrics.Commands.WithLabelValues(string(kind), out.Code).Inc()
	logging.FromContext(ctx).Info("command rejected", "code", out.Code, "error", err)
	return out
}

func (r *Router) transfer(ctx context.Context, email string, cmd command.Transfer) (domain.Reply, error) {
	balance, err := r.ledger.Transfer(ctx, email, cmd.To, cmd.Amount)
	if err != nil {
		return domain.Reply{}, err
	}
	return reply.Transfer(cmd.To, cmd.Amount, balance), nil
}

func (r *Router) createCausa(ctx context.Context, email string, cmd command.CreateCausa) (domain.Reply, error) {
	c, err := r.causae.Create(ctx, causa.CreateParams{
		Creator:     email,
		Title:       cmd.Title,
		Options:     cmd.Options,
		ClosingDate: cmd.ClosingDate,
		MinWager:    cmd.MinWager,
	})
	if err != nil {
		return domain.Reply{}, err
	}
	r.invalidate(ctx, cache.KeyCausae)
	return reply.CausaCreated(c), nil
}

func (r *Router) vote(ctx context.Context, email string, cmd command.Vote) (domain.Reply, error) {
	c, err := r.causae.Vote(ctx, email, cmd.CausaID, cmd.OptionIndex, cmd.Wager)
	if err != nil {
		return domain.Reply{}, err
	}
	r.invalidate(ctx, cache.KeyCausae)
	return reply.Voted(c, cmd.OptionIndex, cmd.Wager), nil
}

func (r *Router) resolve(ctx context.Context, email string, cmd command.Resolve) (domain.Reply, error) {
	res, err := r.causae.Resolve(ctx, email, cmd.CausaID, cmd.WinningOption)
	if err != nil {
		return domain.Reply{}, err
	}
	r.invalidate(ctx, cache.KeyCausae)
	return reply.Resolved(res), nil
}

func (r *Router) createCommissio(ctx context.Context, email string, cmd command.CreateCommissio) (domain.Reply, error) {
	c, err := r.commissiones.Create(ctx, commissio.CreateParams{
		Creator: email,
		Title:   cmd.Title,
		Reward:  cmd.Reward,
		Expiry:  cmd.Expiry,
	})
	if err != nil {
		return domain.Reply{}, err
	}
	r.invalidate(ctx, cache.KeyCommissiones)

	balance, err := r.ledger.GetBalance(ctx, email)
	if err != nil {
		return domain.Reply{}, err
	}
	return reply.CommissioCreated(c, balance), nil
}

func (r *Router) accept(ctx context.Context, email string, cmd command.Accept) (domain.Reply, error) {
	c, err := r.commissiones.Accept(ctx, email, cmd.CommissioID)
	// Expiry is persisted even when Accept fails.
	r.invalidate(ctx, cache.KeyCommissiones)
	if err != nil {
		return domain.Reply{}, err
	}
	return reply.Accepted(c), nil
}

func (r *Router) complete(ctx context.Context, email string, cmd command.Complete) (domain.Reply, error) {
	reward, err := r.commissiones.Complete(ctx, email, cmd.CommissioID)
	if err != nil {
		return domain.Reply{}, err
	}
	r.invalidate(ctx, cache.KeyCommissiones)

	balance, err := r.ledger.GetBalance(ctx, email)
	if err != nil {
		return domain.Reply{}, err
	}
	return reply.Completed(cmd.CommissioID, reward, balance), nil
}

// balance creates the account on first contact so a new member sees 0.
func (r *Router) balance(ctx context.Context, email string) (domain.Reply, error) {
	if err := r.ledger.EnsureAccount(ctx, email); err != nil {
		return domain.Reply{}, err
	}
	bal, err := r.ledger.GetBalance(ctx, email)
	if err != nil {
		return domain.Reply{}, err
	}
	return reply.Balance(email, bal), nil
}

func (r *Router) listCausae(ctx context.Context) (domain.Reply, error) {
	return r.cachedListing(ctx, cache.KeyCausae, "Active causae", func() (domain.Reply, error) {
		list, err := r.causae.ListActive(ctx)
		if err != nil {
			return domain.Reply{}, err
		}
		return reply.CausaList(list), nil
	})
}

func (r *Router) listCommissiones(ctx context.Context) (domain.Reply, error) {
	return r.cachedListing(ctx, cache.KeyCommissiones, "Active commissiones", func() (domain.Reply, error) {
		list, err := r.commissiones.ListActive(ctx)
		if err != nil {
			return domain.Reply{}, err
		}
		return reply.CommissioList(list), nil
	})
}

// cachedListing serves the rendered body from the listing cache. Entries
// are stamped with the UTC day they were rendered on and only served on
// that day, since closing and expiry dates end at day boundaries. Cache
// failures are logged and fall through to a fresh render.
func (r *Router) cachedListing(ctx context.Context, key, subject string, render func() (domain.Reply, error)) (domain.Reply, error) {
	log := logging.FromContext(ctx)
	day := r.now().UTC().Format(time.DateOnly)

	stamped, hit, err := r.listings.Get(ctx, key)
	if err != nil {
		log.Warn("listing cache read failed", "key", key, "error", err)
	}
	if hit {
		if stamp, body, ok := strings.Cut(stamped, "\n"); ok && stamp == day {
			return domain.Reply{OK: true, Subject: subject, Body: body}, nil
		}
	}

	out, err := render()
	if err != nil {
		return domain.Reply{}, err
	}
	if err := r.listings.Set(ctx, key, day+"\n"+out.Body); err != nil {
		log.Warn("listing cache write failed", "key", key, "error", err)
	}
	return out, nil
}

func (r *Router) invalidate(ctx context.Context, keys ...string) {
	if err := r.listings.Invalidate(ctx, keys...); err != nil {
		logging.FromContext(ctx).Warn("listing cache invalidate failed", "keys", keys, "error", err)
	}
}
