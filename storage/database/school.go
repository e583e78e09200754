package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/akili/shulenet/core"
	"github.com/akili/shulenet/core/school"
)

const schoolColumns = "school.id, school.name, school.location, school.contact_email, school.phone, school.logo, school.approved, school.status, school.created_at"

// searchable columns of the school list view
var schoolSearchColumns = []string{"school.name", "school.location", "school.contact_email", "school.phone"}

type schoolRepository struct {
	db core.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db core.DB) *schoolRepository {
	return &schoolRepository{db: db}
}

type schoolRow struct {
	ID           int         `db:"id"`
	Name         string      `db:"name"`
	Location     string      `db:"location"`
	ContactEmail string      `db:"contact_email"`
	Phone        null.String `db:"phone"`
	Logo         null.String `db:"logo"`
	Approved     bool        `db:"approved"`
	Status       string      `db:"status"`
	CreatedAt    time.Time   `db:"created_at"`
}

func (r schoolRow) entity() school.School {
	return school.School{
		ID:           r.ID,
		Name:         r.Name,
		Location:     r.Location,
		ContactEmail: r.ContactEmail,
		Phone:        r.Phone.String,
		Logo:         r.Logo.String,
		Approved:     r.Approved,
		Status:       r.Status,
		CreatedAt:    r.CreatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to school.ErrNotFound
func (repo schoolRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return school.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo schoolRepository) CheckSchoolUniqueness(ctx context.Context, name, contactEmail string, excludedSchools ...school.School) error {
	query := "SELECT EXISTS (SELECT 1 FROM school WHERE (name = ? OR contact_email = ?)"
	args := []interface{}{name, contactEmail}
	if len(excludedSchools) > 0 {
		ids := make([]int, 0, len(excludedSchools))
		for _, sch := range excludedSchools {
			ids = append(ids, sch.ID)
		}
		inQuery, inArgs, err := sqlx.In(" AND id NOT IN (?)", ids)
		if err != nil {
			return errors.Wrap(err, "checking school uniqueness")
		}
		query += inQuery
		args = append(args, inArgs...)
	}
	query += ")"

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking school uniqueness")
	}
	if exists {
		return school.ErrSchoolExists
	}
	return nil
}

func (repo schoolRepository) CreateSchool(ctx context.Context, sch school.School) (school.School, error) {
	query := repo.db.Rebind(
		"INSERT INTO school (name, location, contact_email, phone, logo, approved, status, created_at) " +
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id")
	err := repo.db.QueryRowContext(ctx, query,
		sch.Name, sch.Location, sch.ContactEmail, sch.Phone, sch.Logo, sch.Approved, sch.Status, sch.CreatedAt.UTC(),
	).Scan(&sch.ID)
	if err != nil {
		return school.School{}, errors.Wrap(err, "inserting school")
	}
	return sch, nil
}

func (repo schoolRepository) GetSchoolByID(ctx context.Context, id int) (school.School, error) {
	var row schoolRow
	query := repo.db.Rebind("SELECT " + schoolColumns + " FROM school WHERE school.id = ?")
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return school.School{}, repo.trapNoRowsErr(err, "finding school by ID")
	}
	return row.entity(), nil
}

func (repo schoolRepository) GetSchoolDetails(ctx context.Context, id int) (school.Details, error) {
	var row struct {
		schoolRow
		UserCount  int `db:"user_count"`
		AdminCount int `db:"admin_count"`
	}
	query := repo.db.Rebind("SELECT " + schoolColumns + ", " +
		`(SELECT COUNT(*) FROM "user" WHERE "user".school_id = school.id) AS user_count, ` +
		`(SELECT COUNT(*) FROM "user" WHERE "user".school_id = school.id AND "user".role = ?) AS admin_count ` +
		"FROM school WHERE school.id = ?")
	if err := repo.db.GetContext(ctx, &row, query, "school_admin", id); err != nil {
		return school.Details{}, repo.trapNoRowsErr(err, "finding school details")
	}
	return school.Details{School: row.entity(), UserCount: row.UserCount, AdminCount: row.AdminCount}, nil
}

func (repo schoolRepository) listQuery(params core.ListParams) *ListQuery {
	q := NewListQuery("school", schoolColumns).
		OrderBy(core.DBOrdering{Field: "school.created_at"})
	if pred, ok := statusPredicate(params.Status); ok {
		q.Where(pred)
	}
	q.Search(params.Search, schoolSearchColumns...)
	return q
}

func (repo schoolRepository) FilterSchools(ctx context.Context, params core.ListParams, pageSize int) ([]school.School, core.Page, error) {
	q := repo.listQuery(params)

	countQuery, countArgs := q.CountQuery()
	var total int
	if err := repo.db.GetContext(ctx, &total, repo.db.Rebind(countQuery), countArgs...); err != nil {
		return nil, core.Page{}, errors.Wrap(err, "counting schools")
	}

	page := core.NewPage(total, params.Page, pageSize)
	pageQuery, pageArgs := q.PageQuery(page)
	var rows []schoolRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(pageQuery), pageArgs...); err != nil {
		return nil, core.Page{}, errors.Wrap(err, "querying schools")
	}

	schools := make([]school.School, 0, len(rows))
	for _, row := range rows {
		schools = append(schools, row.entity())
	}
	return schools, page, nil
}

// ApproveSchool flips the approval flag and approves the school's still-pending
// school_admin users in the same transaction.
func (repo schoolRepository) ApproveSchool(ctx context.Context, id int) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}

	res, err := tx.ExecContext(ctx, tx.Rebind("UPDATE school SET approved = TRUE WHERE id = ?"), id)
	if err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "approving school")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		_ = tx.Rollback()
		return school.ErrNotFound
	}

	_, err = tx.ExecContext(ctx,
		tx.Rebind(`UPDATE "user" SET approved = TRUE WHERE school_id = ? AND role = ? AND approved = FALSE`),
		id, "school_admin")
	if err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "approving school admins")
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func (repo schoolRepository) SetSchoolStatus(ctx context.Context, id int, status string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("UPDATE school SET status = ? WHERE id = ?"), status, id)
	if err != nil {
		return errors.Wrap(err, "updating school status")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return school.ErrNotFound
	}
	return nil
}

func (repo schoolRepository) UpdateSchool(ctx context.Context, sch school.School) (school.School, error) {
	query := repo.db.Rebind(
		"UPDATE school SET name = ?, location = ?, contact_email = ?, phone = ?, logo = ? WHERE id = ?")
	res, err := repo.db.ExecContext(ctx, query, sch.Name, sch.Location, sch.ContactEmail, sch.Phone, sch.Logo, sch.ID)
	if err != nil {
		return school.School{}, errors.Wrap(err, "updating school")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return school.School{}, school.ErrNotFound
	}
	return repo.GetSchoolByID(ctx, sch.ID)
}

// RejectSchool deletes a pending school with its not-yet-approved admins.
func (repo schoolRepository) RejectSchool(ctx context.Context, id int) error {
	sch, err := repo.GetSchoolByID(ctx, id)
	if err != nil {
		return err
	}
	if sch.Approved {
		return core.NewValidationError(errors.New("only a pending school can be rejected"))
	}

	steps := []cleanupStep{
		{"deleting pending school admins",
			`DELETE FROM "user" WHERE school_id = ? AND role = ? AND approved = FALSE`, []interface{}{id, "school_admin"}},
		{"deleting school", "DELETE FROM school WHERE id = ?", []interface{}{id}},
	}
	return runSteps(ctx, repo.db, steps)
}

// DeleteSchool removes the school and everything hanging off it as one atomic
// unit. The step order respects the foreign keys.
func (repo schoolRepository) DeleteSchool(ctx context.Context, id int) error {
	if _, err := repo.GetSchoolByID(ctx, id); err != nil {
		return err
	}

	steps := []cleanupStep{
		{"deleting post likes",
			`DELETE FROM post_like WHERE post_id IN (SELECT id FROM post WHERE user_id IN (SELECT id FROM "user" WHERE school_id = ?))
				OR user_id IN (SELECT id FROM "user" WHERE school_id = ?)`, []interface{}{id, id}},
		{"deleting post comments",
			`DELETE FROM post_comment WHERE post_id IN (SELECT id FROM post WHERE user_id IN (SELECT id FROM "user" WHERE school_id = ?))
				OR user_id IN (SELECT id FROM "user" WHERE school_id = ?)`, []interface{}{id, id}},
		{"deleting posts",
			`DELETE FROM post WHERE user_id IN (SELECT id FROM "user" WHERE school_id = ?)`, []interface{}{id}},
		{"deleting event RSVPs",
			`DELETE FROM event_rsvp WHERE event_id IN (SELECT id FROM event WHERE school_id = ?)
				OR user_id IN (SELECT id FROM "user" WHERE school_id = ?)`, []interface{}{id, id}},
		{"deleting events", "DELETE FROM event WHERE school_id = ?", []interface{}{id}},
		{"deleting opportunity interests",
			`DELETE FROM opportunity_interest WHERE opportunity_id IN (SELECT id FROM opportunity WHERE school_id = ?)
				OR user_id IN (SELECT id FROM "user" WHERE school_id = ?)`, []interface{}{id, id}},
		{"deleting opportunities", "DELETE FROM opportunity WHERE school_id = ?", []interface{}{id}},
		{"deleting connections",
			`DELETE FROM connection WHERE user_id IN (SELECT id FROM "user" WHERE school_id = ?)
				OR peer_id IN (SELECT id FROM "user" WHERE school_id = ?)`, []interface{}{id, id}},
		{"deleting users", `DELETE FROM "user" WHERE school_id = ?`, []interface{}{id}},
		{"deleting school", "DELETE FROM school WHERE id = ?", []interface{}{id}},
	}
	return runSteps(ctx, repo.db, steps)
}
