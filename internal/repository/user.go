// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/search"

	"gorm.io/gorm"
)

// UserListFilter narrows the admin user listing.
type UserListFilter struct {
	State models.AccountState
	Query string
}

// UserRepository defines persistence operations for users.
//
// The lifecycle methods (Withdraw, Restore, Anonymize) are single guarded
// UPDATE statements. They report whether a row changed; a false result means
// the row was absent or not in the state the guard requires.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, id uint, name string, image *string) error
	UpdateRole(ctx context.Context, id uint, role models.Role) error
	List(ctx context.Context, filter UserListFilter, limit, offset int) ([]models.User, int64, error)
	CountByState(ctx context.Context) (map[models.AccountState]int64, error)

	Withdraw(ctx context.Context, id uint, at time.Time) (bool, error)
	Restore(ctx context.Context, id uint) (bool, error)
	FindExpired(ctx context.Context, cutoff time.Time, limit int) ([]uint, error)
	Anonymize(ctx context.Context, id uint, cutoff, at time.Time) (bool, error)
	ContentPostIDs(ctx context.Context, id uint) ([]uint, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	defer observability.TrackQuery("get", "users")()
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, lookupError(err, "User", id)
	}
	return &user, nil
}

// GetByEmail returns nil without error when no account uses email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("Email is already registered")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id uint, name string, image *string) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND state = ?", id, models.AccountActive).
		Updates(map[string]interface{}{"name": name, "image": image})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

func (r *userRepository) UpdateRole(ctx context.Context, id uint, role models.Role) error {
	if !role.Valid() {
		return models.NewValidationError(fmt.Sprintf("unknown role %q", role))
	}
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("role", role)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

func (r *userRepository) List(ctx context.Context, filter UserListFilter, limit, offset int) ([]models.User, int64, error) {
	defer observability.TrackQuery("list", "users")()

	q := r.db.WithContext(ctx).Model(&models.User{})
	if filter.State != "" {
		q = q.Where("state = ?", filter.State)
	}
	if filter.Query != "" {
		like := search.LikePattern(filter.Query)
		q = q.Where(`(LOWER(name) LIKE LOWER(?) ESCAPE '\' OR LOWER(email) LIKE LOWER(?) ESCAPE '\')`, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var users []models.User
	if err := q.Order("id ASC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return users, total, nil
}

func (r *userRepository) CountByState(ctx context.Context) (map[models.AccountState]int64, error) {
	var rows []struct {
		State models.AccountState
		Count int64
	}
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Select("state, COUNT(*) AS count").
		Group("state").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	counts := map[models.AccountState]int64{
		models.AccountActive:     0,
		models.AccountWithdrawn:  0,
		models.AccountAnonymized: 0,
	}
	for _, row := range rows {
		counts[row.State] = row.Count
	}
	return counts, nil
}

// Withdraw marks an active or already withdrawn account as withdrawn at the
// given instant. Anonymized accounts never match.
func (r *userRepository) Withdraw(ctx context.Context, id uint, at time.Time) (bool, error) {
	defer observability.TrackQuery("withdraw", "users")()
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND state IN ?", id, []models.AccountState{models.AccountActive, models.AccountWithdrawn}).
		Updates(map[string]interface{}{
			"state":        models.AccountWithdrawn,
			"withdrawn_at": at.UTC(),
		})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Restore reactivates a withdrawn account. Active and anonymized accounts
// never match.
func (r *userRepository) Restore(ctx context.Context, id uint) (bool, error) {
	defer observability.TrackQuery("restore", "users")()
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND state = ?", id, models.AccountWithdrawn).
		Updates(map[string]interface{}{
			"state":        models.AccountActive,
			"withdrawn_at": nil,
		})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// expiredScope matches withdrawn accounts past the cutoff whose personal data
// is still present.
func expiredScope(cutoff time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(
			`state = ? AND withdrawn_at IS NOT NULL AND withdrawn_at <= ? AND email NOT LIKE ? ESCAPE '\'`,
			models.AccountWithdrawn,
			cutoff.UTC(),
			search.EscapeLike(models.AnonymizedEmailPrefix)+"%",
		)
	}
}

func (r *userRepository) FindExpired(ctx context.Context, cutoff time.Time, limit int) ([]uint, error) {
	defer observability.TrackQuery("find_expired", "users")()
	var ids []uint
	q := r.db.WithContext(ctx).Model(&models.User{}).Scopes(expiredScope(cutoff)).Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

// AnonymizedEmail is the placeholder address written over a scrubbed account.
func AnonymizedEmail(id uint, at time.Time) string {
	return fmt.Sprintf("%s%d_%d@%s", models.AnonymizedEmailPrefix, id, at.UnixMilli(), models.AnonymizedEmailDomain)
}

// Anonymize scrubs the personal fields of one expired account. The UPDATE is
// guarded by the same predicate FindExpired uses, so a concurrent restore or a
// second sweep turns it into a no-op.
func (r *userRepository) Anonymize(ctx context.Context, id uint, cutoff, at time.Time) (bool, error) {
	defer observability.TrackQuery("anonymize", "users")()
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Scopes(expiredScope(cutoff)).
		Updates(map[string]interface{}{
			"name":       models.AnonymizedName,
			"email":      AnonymizedEmail(id, at),
			"passwd":     nil,
			"image":      nil,
			"state":      models.AccountAnonymized,
			"updated_at": at.UTC(),
		})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ContentPostIDs returns the posts that render the user's identity: the ones
// they wrote and the ones they commented on.
func (r *userRepository) ContentPostIDs(ctx context.Context, id uint) ([]uint, error) {
	defer observability.TrackQuery("content_post_ids", "posts")()
	commented := r.db.Model(&models.Comment{}).Select("post_id").Where("writer_id = ?", id)
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("writer_id = ?", id).
		Or("id IN (?)", commented).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}
