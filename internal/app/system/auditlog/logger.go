// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"

	activitystore "github.com/dalemusser/investwest/internal/app/store/activity"
	"github.com/dalemusser/investwest/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds activity logging configuration.
type Config struct {
	// Lifecycle controls logging for project events (decisions, closures, expiry).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Lifecycle string
	// Admin controls logging for group, invitation and membership events.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Admin string
}

// Logger records activities to the activity store and to structured logs.
type Logger struct {
	store  *activitystore.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new activity Logger.
func New(store *activitystore.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

func (l *Logger) setting(a models.Activity) string {
	var s string
	switch a.Subject.Kind {
	case models.SubjectProject:
		s = l.config.Lifecycle
	case models.SubjectGroup, models.SubjectUser:
		s = l.config.Admin
	}
	if s == "" {
		return "all"
	}
	return s
}

func (l *Logger) logToZap(a models.Activity) {
	fields := []zap.Field{
		zap.Bool("activity", true),
		zap.String("action", a.Action),
		zap.String("user_id", a.UserID.Hex()),
		zap.String("subject_kind", string(a.Subject.Kind)),
		zap.String("subject_id", a.Subject.ID.Hex()),
	}
	if a.IdempotencyKey != "" {
		fields = append(fields, zap.String("idempotency_key", a.IdempotencyKey))
	}
	l.zapLog.Info("activity", fields...)
}

// Record writes a according to configuration and returns the store error,
// if any. A nil Logger records nothing.
func (l *Logger) Record(ctx context.Context, a models.Activity) error {
	if l == nil {
		return nil
	}
	setting := l.setting(a)
	if setting == "off" {
		return nil
	}
	if setting == "all" || setting == "log" {
		l.logToZap(a)
	}
	if setting == "all" || setting == "db" {
		if _, err := l.store.Record(ctx, a); err != nil {
			l.zapLog.Error("failed to store activity",
				zap.Error(err),
				zap.String("action", a.Action),
			)
			return err
		}
	}
	return nil
}

// Log is Record for callers that treat the activity log as best effort.
func (l *Logger) Log(ctx context.Context, a models.Activity) {
	_ = l.Record(ctx, a)
}

// change builds an activity with before/after snapshots. Snapshot failures
// leave the side empty rather than dropping the entry.
func change(actorID primitive.ObjectID, action string, subject models.Subject, before, after any) models.Activity {
	a := models.Activity{UserID: actorID, Action: action, Subject: subject}
	if before != nil {
		a.Before, _ = models.Snapshot(before)
	}
	if after != nil {
		a.After, _ = models.Snapshot(after)
	}
	return a
}

// --- Project Events ---

// ProjectCreated logs a new draft project.
func (l *Logger) ProjectCreated(ctx context.Context, actorID primitive.ObjectID, p models.Project) {
	l.Log(ctx, change(actorID, activitystore.ActionProjectCreated,
		models.Subject{Kind: models.SubjectProject, ID: p.ID}, nil, p))
}

// ProjectEdited logs an issuer or admin edit of a project's descriptive fields.
func (l *Logger) ProjectEdited(ctx context.Context, actorID primitive.ObjectID, before, after models.Project) {
	l.Log(ctx, change(actorID, activitystore.ActionProjectEdited,
		models.Subject{Kind: models.SubjectProject, ID: after.ID}, before, after))
}

// --- Admin Events ---

// GroupUpdated logs a change to group properties or settings.
func (l *Logger) GroupUpdated(ctx context.Context, actorID primitive.ObjectID, before, after models.GroupProperties) {
	l.Log(ctx, change(actorID, activitystore.ActionGroupUpdated,
		models.Subject{Kind: models.SubjectGroup, ID: after.ID}, before, after))
}

// GroupStatusChanged logs a suspension or reactivation.
func (l *Logger) GroupStatusChanged(ctx context.Context, actorID primitive.ObjectID, before, after models.GroupProperties) {
	l.Log(ctx, change(actorID, activitystore.ActionGroupStatusChanged,
		models.Subject{Kind: models.SubjectGroup, ID: after.ID}, before, after))
}

// UserInvited logs an invitation sent by a group admin.
func (l *Logger) UserInvited(ctx context.Context, actorID primitive.ObjectID, inv models.InvitedUser) {
	l.Log(ctx, change(actorID, activitystore.ActionUserInvited,
		models.Subject{Kind: models.SubjectGroup, ID: inv.GroupID}, nil, inv))
}

// MemberRemoved logs a kick-out of an invited member.
func (l *Logger) MemberRemoved(ctx context.Context, actorID primitive.ObjectID, before, after models.InvitedUser) {
	l.Log(ctx, change(actorID, activitystore.ActionMemberRemoved,
		models.Subject{Kind: models.SubjectGroup, ID: after.GroupID}, before, after))
}

// JoinDecided logs an admin's answer to a join request.
func (l *Logger) JoinDecided(ctx context.Context, actorID primitive.ObjectID, req models.JoinRequest) {
	l.Log(ctx, change(actorID, activitystore.ActionJoinDecided,
		models.Subject{Kind: models.SubjectUser, ID: req.UserID}, nil, req))
}
