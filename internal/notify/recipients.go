package notify

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/prnotify/internal/config"
	"github.com/prnotify/internal/github"
)

// IdentityLookup resolves a GitHub login to a user profile. Satisfied by the
// GitHub API client.
type IdentityLookup interface {
	GetUser(ctx context.Context, login string) (*github.User, error)
}

// RecipientSet is the resolved destination list for one notification. The
// owner, when resolvable, is always first; additional recipients follow in
// first-seen order with no duplicates.
type RecipientSet struct {
	OwnerEmail string
	Additional []string
}

// All returns every address, owner first.
func (s RecipientSet) All() []string {
	var all []string
	if s.OwnerEmail != "" {
		all = append(all, s.OwnerEmail)
	}
	return append(all, s.Additional...)
}

// Empty reports whether no address was resolved at all.
func (s RecipientSet) Empty() bool {
	return s.OwnerEmail == "" && len(s.Additional) == 0
}

// Resolver maps a PR's people to email addresses.
type Resolver struct {
	users IdentityLookup
	cfg   config.Notify
}

// NewResolver creates a recipient resolver.
func NewResolver(users IdentityLookup, cfg config.Notify) *Resolver {
	return &Resolver{users: users, cfg: cfg}
}

// Resolve builds the recipient set for a notification about ownerLogin's PR.
//
// The owner is always attempted first; a failed owner lookup is the single
// most important failure mode in the system (the primary recipient is
// unreachable), so it logs at error severity with a critical marker, but
// processing continues with the remaining recipients.
//
// When explicit is non-nil it overrides the gathering step entirely: exactly
// those logins (resolved and deduplicated against the owner) become the
// additional recipients. Otherwise, when the additional-recipients switch is
// on, assignees, requested reviewers, configured usernames, and configured
// literal addresses are gathered in that order. With the switch off only the
// owner slot is returned.
func (r *Resolver) Resolve(ctx context.Context, ownerLogin string, pr *github.PullRequest, explicit []string) RecipientSet {
	var set RecipientSet

	seen := make(map[string]bool)

	if ownerLogin != "" {
		if email, ok := r.lookupEmail(ctx, ownerLogin); ok {
			set.OwnerEmail = email
			seen[strings.ToLower(email)] = true
		} else {
			log.Error().
				Bool("critical", true).
				Str("login", ownerLogin).
				Msg("Cannot resolve PR owner's email address; primary recipient unreachable")
		}
	}

	add := func(email string) {
		key := strings.ToLower(email)
		if email == "" || seen[key] {
			return
		}
		seen[key] = true
		set.Additional = append(set.Additional, email)
	}

	if explicit != nil {
		for _, login := range explicit {
			if email, ok := r.lookupEmail(ctx, login); ok {
				add(email)
			}
		}
		return set
	}

	if !r.cfg.AdditionalRecipients {
		return set
	}

	var logins []string
	if pr != nil {
		for _, u := range pr.Assignees {
			logins = append(logins, u.Login)
		}
		for _, u := range pr.RequestedReviewers {
			logins = append(logins, u.Login)
		}
	}
	logins = append(logins, r.cfg.ExtraUsernames...)

	for _, login := range logins {
		if login == "" || login == ownerLogin {
			continue
		}
		if email, ok := r.lookupEmail(ctx, login); ok {
			add(email)
		}
	}

	for _, email := range r.cfg.ExtraEmails {
		add(email)
	}

	return set
}

// lookupEmail resolves a login to a public email. Individual failures are
// warnings; the recipient is simply omitted.
func (r *Resolver) lookupEmail(ctx context.Context, login string) (string, bool) {
	user, err := r.users.GetUser(ctx, login)
	if err != nil {
		log.Warn().Err(err).Str("login", login).Msg("Failed to resolve recipient email")
		return "", false
	}
	if user.Email == "" {
		log.Warn().Str("login", login).Msg("Recipient has no public email address")
		return "", false
	}
	return user.Email, true
}
