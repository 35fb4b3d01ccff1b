package orchestrators

import (
	"context"
	"log/slog"
	"strings"

	"sportify/internal/application/session"
	"sportify/internal/domain/fault"
	"sportify/internal/domain/profile"
	"sportify/internal/domain/role"
)

// UpdateProfileDetailsInput carries the self-editable contact fields.
type UpdateProfileDetailsInput struct {
	Name        string
	PhoneNumber string
}

// ExecuteUpdateProfileDetails edits the caller's own name and phone number.
// PRE: caller is an authenticated player or coach
// POST: profile name and phoneNumber updated; returns the stored profile
func ExecuteUpdateProfileDetails(ctx context.Context, snap session.Snapshot, input UpdateProfileDetailsInput, deps Deps) (out profile.Profile, err error) {
	const op = "update_profile"
	defer func() { err = deps.finish(WorkflowUpdateProfile, Result{}, err) }()

	if err := snap.Require(role.FeatureEditProfile); err != nil {
		return profile.Profile{}, err
	}
	actor, _ := snap.Actor()
	name := strings.TrimSpace(input.Name)
	phone := strings.TrimSpace(input.PhoneNumber)
	if err := profile.ValidateDetails(name, phone); err != nil {
		return profile.Profile{}, fault.Validation(op, err)
	}
	if err := deps.Store.Update(ctx, deps.Paths.Profiles(), actor.UserID, map[string]any{
		"name":        name,
		"phoneNumber": phone,
	}); err != nil {
		return profile.Profile{}, storeError(op, "profile", err)
	}
	slog.Info("profile_event", "event", "profile_updated", "uid", actor.UserID)

	out = actor.Profile
	out.Name = name
	out.PhoneNumber = phone
	return out, nil
}

// AddAchievementInput is one entry for a player's record.
type AddAchievementInput struct {
	Title string
	Year  string
}

// ExecuteAddAchievement appends an achievement to the caller's profile.
// Achievements are read and written back whole, so concurrent appends from
// the same player resolve last-write-wins.
// PRE: caller is an authenticated player
// POST: achievement appended; returns the full list
func ExecuteAddAchievement(ctx context.Context, snap session.Snapshot, input AddAchievementInput, deps Deps) (out []profile.Achievement, err error) {
	const op = "add_achievement"
	defer func() { err = deps.finish(WorkflowAddAchievement, Result{}, err) }()

	if err := snap.Require(role.FeatureEditProfile); err != nil {
		return nil, err
	}
	if snap.Role() != role.Player {
		return nil, fault.Authorization(op, "Access Denied: only players record achievements")
	}
	actor, _ := snap.Actor()
	a := profile.Achievement{Title: strings.TrimSpace(input.Title), Year: strings.TrimSpace(input.Year)}
	if err := a.Validate(deps.now()); err != nil {
		return nil, fault.Validation(op, err)
	}

	current, err := getDoc[profile.Profile](ctx, deps.Store, deps.Paths.Profiles(), actor.UserID)
	if err != nil {
		return nil, storeError(op, "profile", err)
	}
	out = append(append([]profile.Achievement(nil), current.Achievements...), a)
	if err := deps.Store.Update(ctx, deps.Paths.Profiles(), actor.UserID, map[string]any{"achievements": out}); err != nil {
		return nil, storeError(op, "profile", err)
	}
	slog.Info("profile_event", "event", "achievement_added", "uid", actor.UserID, "count", len(out))
	return out, nil
}
