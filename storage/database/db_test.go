package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	"github.com/akili/shulenet/core"
	"github.com/akili/shulenet/core/user"
)

// recorderDB implements core.DB over recorded calls, so a repository can be
// exercised against any executor the interface admits.
type recorderDB struct {
	queries  []string
	args     [][]interface{}
	onGet    func(dest interface{}) error
	affected int64
}

var _ core.DB = (*recorderDB)(nil)

func (db *recorderDB) record(query string, args []interface{}) {
	db.queries = append(db.queries, query)
	db.args = append(db.args, args)
}

func (db *recorderDB) Rebind(query string) string { return query }

func (db *recorderDB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	db.record(query, args)
	return rowsAffected(db.affected), nil
}

func (db *recorderDB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	db.record(query, args)
	return nil
}

func (db *recorderDB) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	db.record(query, args)
	if db.onGet != nil {
		return db.onGet(dest)
	}
	return sql.ErrNoRows
}

func (db *recorderDB) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	db.record(query, args)
	return nil
}

func (db *recorderDB) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return nil, errors.New("recorder does not open transactions")
}

type rowsAffected int64

func (n rowsAffected) LastInsertId() (int64, error) { return 0, nil }
func (n rowsAffected) RowsAffected() (int64, error) { return int64(n), nil }

func Test_userRepository_runsThroughTheExecutor(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	db := &recorderDB{onGet: func(dest interface{}) error {
		row, ok := dest.(*userRow)
		if !ok {
			return errors.Errorf("unexpected destination %T", dest)
		}
		*row = userRow{
			ID:        7,
			SchoolID:  3,
			Name:      "Asha Juma",
			Email:     "asha@example.com",
			Phone:     null.StringFrom("+255700000001"),
			Role:      user.RoleTeacher,
			Approved:  true,
			Status:    user.StatusActive,
			CreatedAt: created,
		}
		return nil
	}}
	repo := NewUserRepository(db)

	usr, err := repo.GetUserByID(context.Background(), 7)
	assert.NoError(t, err)
	assert.Equal(t, "Asha Juma", usr.Name)
	assert.Equal(t, "+255700000001", usr.Phone)
	assert.Equal(t, created, usr.CreatedAt)

	assert.Len(t, db.queries, 1)
	assert.Contains(t, db.queries[0], `FROM "user"`)
	assert.Equal(t, []interface{}{7}, db.args[0])
}

func Test_userRepository_approveMissingUser(t *testing.T) {
	repo := NewUserRepository(&recorderDB{affected: 0})

	err := repo.ApproveUser(context.Background(), 404)
	assert.Equal(t, user.ErrNotFound, err)

	repo = NewUserRepository(&recorderDB{affected: 1})
	assert.NoError(t, repo.ApproveUser(context.Background(), 7))
}
