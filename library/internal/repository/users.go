package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/Astemirdum/solidarity-library/library/internal/errs"
	"github.com/Astemirdum/solidarity-library/library/internal/model"
)

var userColumns = []string{
	"id", "username", "email", "password_hash", "first_name", "last_name", "dni", "address", "phone",
	"role", "score", "is_active_member", "suspension_end_date", "created_at",
}

func (r *repository) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	q := `
insert into users (username, email, password_hash, first_name, last_name, dni, address, phone, role, score, is_active_member)
values (@username, @email, @password_hash, @first_name, @last_name, @dni, @address, @phone, @role, @score, @is_active_member)
returning id, created_at`
	args := pgx.NamedArgs{
		"username":         u.Username,
		"email":            u.Email,
		"password_hash":    u.PasswordHash,
		"first_name":       u.FirstName,
		"last_name":        u.LastName,
		"dni":              u.DNI,
		"address":          u.Address,
		"phone":            u.Phone,
		"role":             u.Role,
		"score":            u.Score,
		"is_active_member": u.IsActiveMember,
	}
	if err := r.db.QueryRow(ctx, q, args).Scan(&u.ID, &u.CreatedAt); err != nil {
		return model.User{}, uniqueViolation(err, errs.ErrDuplicateUser)
	}
	return u, nil
}

func (r *repository) CreateProfile(ctx context.Context, p model.UserProfile) (model.UserProfile, error) {
	q := `
insert into user_profiles (user_id, virtual_card_id, birth_date)
values (@user_id, @virtual_card_id, @birth_date)
returning id, registration_date`
	args := pgx.NamedArgs{
		"user_id":         p.UserID,
		"virtual_card_id": p.VirtualCardID,
		"birth_date":      p.BirthDate,
	}
	if err := r.db.QueryRow(ctx, q, args).Scan(&p.ID, &p.RegistrationDate); err != nil {
		return model.UserProfile{}, uniqueViolation(err, errs.New(errs.ErrConflict, "profile already exists"))
	}
	return p, nil
}

func (r *repository) GetUser(ctx context.Context, id int, lock bool) (model.User, error) {
	b := qb.Select(userColumns...).
		From(usersTableName).
		Where(sq.Eq{"id": id})
	return selectOne[model.User](ctx, r.db, forUpdate(b, lock, ""))
}

func (r *repository) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	b := qb.Select(userColumns...).
		From(usersTableName).
		Where(sq.Eq{"username": username})
	return selectOne[model.User](ctx, r.db, b)
}

// GetProfile reports newsletter_subscribed from the subscriber list: an active
// subscription linked to the user or to the user's email.
func (r *repository) GetProfile(ctx context.Context, userID int) (model.UserProfile, error) {
	b := qb.Select("p.id", "p.user_id", "p.virtual_card_id", "p.registration_date", "p.birth_date",
		fmt.Sprintf(`exists (select 1 from %s ns where ns.is_active and (ns.user_id = u.id or ns.email = lower(u.email))) as newsletter_subscribed`, subscribersTableName)).
		From(profilesTableName + " p").
		Join(fmt.Sprintf("%s u on u.id = p.user_id", usersTableName)).
		Where(sq.Eq{"p.user_id": userID})
	return selectOne[model.UserProfile](ctx, r.db, b)
}

func (r *repository) UpdateScore(ctx context.Context, userID int, score float64) error {
	n, err := exec(ctx, r.db, qb.Update(usersTableName).
		Set("score", score).
		Where(sq.Eq{"id": userID}))
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}
