// Package coach implements the request handlers that read and update a
// caller's user document: profile creation, onboarding, scans, plan
// generation and feedback logging.
package coach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/claude/scanflow/internal/apperr"
	"github.com/claude/scanflow/internal/auth"
	"github.com/claude/scanflow/internal/document"
	"github.com/google/uuid"
)

// Onboarding status values. The transition is one-way.
const (
	StatusPendingDetails = "pending_details"
	StatusComplete       = "complete"
)

// Top-level list fields of the user document.
const (
	WorkoutLogs          = "workoutLogs"
	NutritionLogs        = "nutritionLogs"
	AIInteractionHistory = "aiInteractionHistory"
)

// protectedFields cannot be written through onboarding.
var protectedFields = map[string]bool{
	"uid":                true,
	"email":              true,
	"role":               true,
	"createdAt":          true,
	"onboardingStatus":   true,
	WorkoutLogs:          true,
	NutritionLogs:        true,
	AIInteractionHistory: true,
}

// Service handles requests against the caller's document.
type Service struct {
	docs document.Store
	log  *slog.Logger
	now  func() time.Time
}

// NewService creates a service over docs.
func NewService(docs document.Store, log *slog.Logger) *Service {
	return &Service{docs: docs, log: log, now: time.Now}
}

// StatusResult is the reply of handlers without a payload.
type StatusResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// CallerUID returns the uid bound to ctx or an unauthenticated error.
func CallerUID(ctx context.Context) (string, error) {
	c, ok := auth.CallerFromContext(ctx)
	if !ok {
		return "", apperr.New(apperr.Unauthenticated, "User must be logged in")
	}
	return c.UID, nil
}

// StoreError classifies a document store error for callers.
func StoreError(err error, op string) error {
	switch {
	case errors.Is(err, document.ErrNotFound):
		return apperr.Wrap(apperr.NotFound, err, "user profile not found")
	case errors.Is(err, document.ErrInvalidPath):
		return apperr.Wrap(apperr.InvalidArgument, err, "invalid field path")
	default:
		return apperr.Wrap(apperr.Internal, err, op)
	}
}

// ProfileInput carries the optional account details of a new user.
type ProfileInput struct {
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}

// CreateProfile creates the caller's initial document. An existing document
// is left untouched and reported with status "exists".
func (s *Service) CreateProfile(ctx context.Context, in ProfileInput) (*StatusResult, error) {
	c, ok := auth.CallerFromContext(ctx)
	if !ok {
		return nil, apperr.New(apperr.Unauthenticated, "User must be logged in")
	}

	name := in.DisplayName
	if name == "" {
		name = "New User"
	}
	var photo any
	if in.PhotoURL != "" {
		photo = in.PhotoURL
	}

	doc := document.Doc{
		"uid":                c.UID,
		"email":              c.Email,
		"displayName":        name,
		"photoURL":           photo,
		"createdAt":          document.ServerTimestamp,
		"onboardingStatus":   StatusPendingDetails,
		"role":               "user",
		"goals":              []any{},
		"digitalTwin":        map[string]any{},
		"trainingPlan":       map[string]any{},
		"nutritionPlan":      map[string]any{},
		WorkoutLogs:          []any{},
		NutritionLogs:        []any{},
		AIInteractionHistory: []any{},
	}

	err := s.docs.Create(ctx, c.UID, doc)
	if errors.Is(err, document.ErrExists) {
		return &StatusResult{Status: "exists", Message: "Profile already exists"}, nil
	}
	if err != nil {
		return nil, StoreError(err, "creating profile")
	}
	s.log.Info("user profile created", "uid", c.UID)
	return &StatusResult{Status: "success", Message: "Profile created"}, nil
}

// SubmitOnboarding merges the submitted profile fields into the caller's
// document and marks onboarding complete. Keys may be dot paths.
func (s *Service) SubmitOnboarding(ctx context.Context, fields map[string]any) (*StatusResult, error) {
	uid, err := CallerUID(ctx)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		top, _, _ := strings.Cut(k, document.PathSeparator)
		if protectedFields[top] {
			return nil, apperr.New(apperr.InvalidArgument, "field %q cannot be set during onboarding", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	updates := make([]document.Update, 0, len(keys)+2)
	for _, k := range keys {
		updates = append(updates, document.Set(k, fields[k]))
	}
	updates = append(updates,
		document.Set("onboardingStatus", StatusComplete),
		document.Set("updatedAt", document.ServerTimestamp),
	)

	if err := s.docs.Update(ctx, uid, updates...); err != nil {
		return nil, StoreError(err, "updating profile")
	}
	return &StatusResult{Status: "success", Message: "Profile updated"}, nil
}

// Profile returns the caller's document.
func (s *Service) Profile(ctx context.Context) (document.Doc, error) {
	uid, err := CallerUID(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := s.docs.Get(ctx, uid)
	if err != nil {
		return nil, StoreError(err, "loading profile")
	}
	return doc, nil
}

// LogKinds maps the short log names accepted by RecentLogs to document fields.
var LogKinds = map[string]string{
	"workout":   WorkoutLogs,
	"nutrition": NutritionLogs,
	"ai":        AIInteractionHistory,
}

// RecentLogs returns at most the last n entries of one of the caller's logs.
func (s *Service) RecentLogs(ctx context.Context, kind string, n int) ([]any, error) {
	field, ok := LogKinds[kind]
	if !ok {
		return nil, apperr.New(apperr.InvalidArgument, "unknown log kind %q", kind)
	}
	if n <= 0 {
		return nil, apperr.New(apperr.InvalidArgument, "limit must be positive")
	}
	doc, err := s.Profile(ctx)
	if err != nil {
		return nil, err
	}
	return document.Tail(doc, field, n), nil
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func newID(prefix string) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating id: %w", err)
	}
	return prefix + id.String(), nil
}
