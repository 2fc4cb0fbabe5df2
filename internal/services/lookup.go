package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/chirpline/backend/internal/models"
	"github.com/anonto42/chirpline/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func parseObjectID(raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return id, nil
}

// requireUser loads uid's profile and maps a missing row to notFound.
func requireUser(ctx context.Context, users repositories.UserRepository, uid string, notFound error) (*models.User, error) {
	user, err := users.GetUserByUID(ctx, uid)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, notFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// authorSet maps UIDs to display summaries. UIDs without a local profile
// resolve to a summary carrying only the UID.
type authorSet map[string]models.UserSummary

func loadAuthors(ctx context.Context, users repositories.UserRepository, uids []string) (authorSet, error) {
	found, err := users.GetUsersByUIDs(ctx, dedupe(uids))
	if err != nil {
		return nil, fmt.Errorf("load authors: %w", err)
	}
	set := make(authorSet, len(found))
	for i := range found {
		set[found[i].UID] = found[i].ToSummary()
	}
	return set, nil
}

func (a authorSet) get(uid string) models.UserSummary {
	if s, ok := a[uid]; ok {
		return s
	}
	return models.UserSummary{UID: uid}
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
