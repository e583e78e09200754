package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/akili/shulenet/core"
	"github.com/akili/shulenet/core/user"
)

const userColumns = `"user".id, "user".school_id, "user".name, "user".email, "user".phone, "user".role, "user".photo, "user".approved, "user".status, "user".password_hash, "user".created_at, "user".last_login`

// searchable columns of the user list view
var userSearchColumns = []string{`"user".name`, `"user".email`, `"user".phone`}

type userRepository struct {
	db core.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db core.DB) *userRepository {
	return &userRepository{db: db}
}

type userRow struct {
	ID           int         `db:"id"`
	SchoolID     int         `db:"school_id"`
	Name         string      `db:"name"`
	Email        string      `db:"email"`
	Phone        null.String `db:"phone"`
	Role         string      `db:"role"`
	Photo        null.String `db:"photo"`
	Approved     bool        `db:"approved"`
	Status       string      `db:"status"`
	PasswordHash null.Bytes  `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func (r userRow) entity() user.User {
	return user.User{
		ID:           r.ID,
		SchoolID:     r.SchoolID,
		Name:         r.Name,
		Email:        r.Email,
		Phone:        r.Phone.String,
		Role:         r.Role,
		Photo:        r.Photo.String,
		Approved:     r.Approved,
		Status:       r.Status,
		PasswordHash: r.PasswordHash.Bytes,
		CreatedAt:    r.CreatedAt,
		LastLogin:    r.LastLogin.Time,
	}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	query := `SELECT EXISTS (SELECT 1 FROM "user" WHERE email = ?`
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]int, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			ids = append(ids, usr.ID)
		}
		inQuery, inArgs, err := sqlx.In(" AND id NOT IN (?)", ids)
		if err != nil {
			return errors.Wrap(err, "checking user uniqueness")
		}
		query += inQuery
		args = append(args, inArgs...)
	}
	query += ")"

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	query := repo.db.Rebind(
		`INSERT INTO "user" (school_id, name, email, phone, role, photo, approved, status, password_hash, created_at) ` +
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id")
	err := repo.db.QueryRowContext(ctx, query,
		usr.SchoolID, usr.Name, usr.Email, usr.Phone, usr.Role, usr.Photo,
		usr.Approved, usr.Status, usr.PasswordHash, usr.CreatedAt.UTC(),
	).Scan(&usr.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	var row userRow
	query := repo.db.Rebind(`SELECT ` + userColumns + ` FROM "user" WHERE "user".id = ?`)
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by ID")
	}
	return row.entity(), nil
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var row userRow
	query := repo.db.Rebind(`SELECT ` + userColumns + ` FROM "user" WHERE "user".email = ?`)
	if err := repo.db.GetContext(ctx, &row, query, email); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by email")
	}
	return row.entity(), nil
}

func (repo userRepository) GetUserDetails(ctx context.Context, id int) (user.Details, error) {
	var row struct {
		userRow
		SchoolName       null.String `db:"school_name"`
		PostsCount       int         `db:"posts_count"`
		ConnectionsCount int         `db:"connections_count"`
	}
	query := repo.db.Rebind(`SELECT ` + userColumns + `, school.name AS school_name, ` +
		`(SELECT COUNT(*) FROM post WHERE post.user_id = "user".id) AS posts_count, ` +
		`(SELECT COUNT(*) FROM connection WHERE connection.user_id = "user".id OR connection.peer_id = "user".id) AS connections_count ` +
		`FROM "user" LEFT JOIN school ON school.id = "user".school_id WHERE "user".id = ?`)
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return user.Details{}, repo.trapNoRowsErr(err, "finding user details")
	}
	return user.Details{
		User:             row.entity(),
		SchoolName:       row.SchoolName.String,
		PostsCount:       row.PostsCount,
		ConnectionsCount: row.ConnectionsCount,
	}, nil
}

func (repo userRepository) listQuery(params core.ListParams) *ListQuery {
	q := NewListQuery(`"user"`, userColumns).
		OrderBy(core.DBOrdering{Field: `"user".created_at`})
	if pred, ok := statusPredicate(params.Status); ok {
		q.Where(pred)
	}
	if params.Role != "" && params.Role != "all" {
		q.Where(`"user".role = ?`, params.Role)
	}
	if params.ParentID > 0 {
		q.Where(`"user".school_id = ?`, params.ParentID)
	}
	q.Search(params.Search, userSearchColumns...)
	return q
}

func (repo userRepository) FilterUsers(ctx context.Context, params core.ListParams, pageSize int) ([]user.User, core.Page, error) {
	q := repo.listQuery(params)

	countQuery, countArgs := q.CountQuery()
	var total int
	if err := repo.db.GetContext(ctx, &total, repo.db.Rebind(countQuery), countArgs...); err != nil {
		return nil, core.Page{}, errors.Wrap(err, "counting users")
	}

	page := core.NewPage(total, params.Page, pageSize)
	pageQuery, pageArgs := q.PageQuery(page)
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(pageQuery), pageArgs...); err != nil {
		return nil, core.Page{}, errors.Wrap(err, "querying users")
	}

	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.entity())
	}
	return users, page, nil
}

func (repo userRepository) ApproveUser(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`UPDATE "user" SET approved = TRUE WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "approving user")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo userRepository) SetUserStatus(ctx context.Context, id int, status string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`UPDATE "user" SET status = ? WHERE id = ?`), status, id)
	if err != nil {
		return errors.Wrap(err, "updating user status")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	query := repo.db.Rebind(`UPDATE "user" SET name = ?, email = ?, phone = ?, role = ?, photo = ? WHERE id = ?`)
	res, err := repo.db.ExecContext(ctx, query, usr.Name, usr.Email, usr.Phone, usr.Role, usr.Photo, usr.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUserByID(ctx, usr.ID)
}

func (repo userRepository) SetLastLogin(ctx context.Context, id int) error {
	_, err := repo.db.ExecContext(ctx,
		repo.db.Rebind(`UPDATE "user" SET last_login = ? WHERE id = ?`), time.Now().UTC(), id)
	return errors.Wrap(err, "setting last login")
}

// RejectUser deletes a pending user; approved users must be suspended or
// deleted instead.
func (repo userRepository) RejectUser(ctx context.Context, id int) error {
	usr, err := repo.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if usr.Approved {
		return core.NewValidationError(errors.New("only a pending user can be rejected"))
	}
	return repo.DeleteUser(ctx, id)
}

// DeleteUser removes the user and every dependent row in one transaction.
// Connections are cleared on both endpoints.
func (repo userRepository) DeleteUser(ctx context.Context, id int) error {
	if _, err := repo.GetUserByID(ctx, id); err != nil {
		return err
	}

	steps := []cleanupStep{
		{"deleting post likes",
			"DELETE FROM post_like WHERE post_id IN (SELECT id FROM post WHERE user_id = ?) OR user_id = ?",
			[]interface{}{id, id}},
		{"deleting post comments",
			"DELETE FROM post_comment WHERE post_id IN (SELECT id FROM post WHERE user_id = ?) OR user_id = ?",
			[]interface{}{id, id}},
		{"deleting posts", "DELETE FROM post WHERE user_id = ?", []interface{}{id}},
		{"deleting event RSVPs", "DELETE FROM event_rsvp WHERE user_id = ?", []interface{}{id}},
		{"deleting opportunity interests", "DELETE FROM opportunity_interest WHERE user_id = ?", []interface{}{id}},
		{"deleting connections", "DELETE FROM connection WHERE user_id = ? OR peer_id = ?", []interface{}{id, id}},
		{"deleting user", `DELETE FROM "user" WHERE id = ?`, []interface{}{id}},
	}
	return runSteps(ctx, repo.db, steps)
}
