package repositories

import (
	"context"

	"github.com/anonto42/chirpline/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository defines the interface for follow data operations
type FollowRepository interface {
	ToggleFollow(ctx context.Context, followerUID, followingUID string) (bool, error)
	IsFollowing(ctx context.Context, followerUID, followingUID string) (bool, error)
	FollowerUIDs(ctx context.Context, uid string) ([]string, error)
	FollowingUIDs(ctx context.Context, uid string) ([]string, error)
}

// PostgresFollowRepository implements FollowRepository for PostgreSQL
type PostgresFollowRepository struct {
	db *gorm.DB
}

// NewPostgresFollowRepository creates a new PostgresFollowRepository
func NewPostgresFollowRepository(db *gorm.DB) *PostgresFollowRepository {
	return &PostgresFollowRepository{db: db}
}

// ToggleFollow removes the edge follower -> following if present and creates
// it otherwise. It reports whether the edge exists afterwards. Both follow
// sets are read from this one row, so they can never disagree.
func (r *PostgresFollowRepository) ToggleFollow(ctx context.Context, followerUID, followingUID string) (bool, error) {
	var following bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("follower_uid = ? AND following_uid = ?", followerUID, followingUID).Delete(&models.Follow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			following = false
			return nil
		}

		edge := models.Follow{FollowerUID: followerUID, FollowingUID: followingUID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&edge).Error; err != nil {
			return err
		}
		following = true
		return nil
	})
	return following, err
}

func (r *PostgresFollowRepository) IsFollowing(ctx context.Context, followerUID, followingUID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_uid = ? AND following_uid = ?", followerUID, followingUID).
		Count(&count).Error
	return count > 0, err
}

// FollowerUIDs lists who follows uid, oldest edge first.
func (r *PostgresFollowRepository) FollowerUIDs(ctx context.Context, uid string) ([]string, error) {
	return r.pluck(ctx, "follower_uid", "following_uid = ?", uid)
}

// FollowingUIDs lists whom uid follows, oldest edge first.
func (r *PostgresFollowRepository) FollowingUIDs(ctx context.Context, uid string) ([]string, error) {
	return r.pluck(ctx, "following_uid", "follower_uid = ?", uid)
}

func (r *PostgresFollowRepository) pluck(ctx context.Context, column, query, uid string) ([]string, error) {
	uids := []string{}
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where(query, uid).
		Order("created_at ASC").
		Pluck(column, &uids).Error
	if err != nil {
		return nil, err
	}
	return uids, nil
}
