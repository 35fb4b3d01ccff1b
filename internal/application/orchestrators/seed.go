package orchestrators

import (
	"context"
	"log/slog"
	"strings"

	"sportify/internal/adapters/storage/docstore"
	"sportify/internal/domain/fault"
	"sportify/internal/domain/profile"
	"sportify/internal/domain/role"
)

// AccountCounter reports how many credential accounts exist.
type AccountCounter interface {
	Count(ctx context.Context) (int, error)
}

// SeedAdminDeps holds dependencies for SeedAdmin.
type SeedAdminDeps struct {
	Deps
	Identity IdentitySignUp
	Accounts AccountCounter
}

// ExecuteSeedAdmin creates the first admin account and its profile when no
// accounts exist yet.
// PRE: Database is migrated
// POST: Admin account and admin profile exist if count was 0; seeded reports whether anything was written
func ExecuteSeedAdmin(ctx context.Context, deps SeedAdminDeps, email, password string) (seeded bool, err error) {
	const op = "seed_admin"
	count, err := deps.Accounts.Count(ctx)
	if err != nil {
		return false, fault.Remote(op, err)
	}
	if count > 0 {
		return false, nil
	}

	sess, err := deps.Identity.SignUp(ctx, email, password)
	if err != nil {
		return false, err
	}
	p := profile.Profile{
		ID:           sess.Identity.ID,
		Email:        sess.Identity.Email,
		Role:         role.Admin,
		Name:         strings.SplitN(sess.Identity.Email, "@", 2)[0],
		RegisteredAt: deps.now(),
	}
	fields, err := docstore.Encode(p)
	if err != nil {
		return false, fault.Remote(op, err)
	}
	if err := deps.Store.Set(ctx, deps.Paths.Profiles(), p.ID, fields); err != nil {
		return false, fault.Remote(op, err)
	}

	slog.Info("auth_event", "event", "admin_seeded", "uid", p.ID, "email", p.Email)
	return true, nil
}
