package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func withUserMock(t *testing.T, expect func(sqlmock.Sqlmock)) *UserRepository {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	expect(mock)
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sqlmock expectations: %v", err)
		}
		_ = conn.Close()
	})
	return NewUserRepository(conn)
}

func TestUserRepository_Create(t *testing.T) {
	insert := regexp.QuoteMeta(insertUserSQL)

	t.Run("returns the new id", func(t *testing.T) {
		repo := withUserMock(t, func(m sqlmock.Sqlmock) {
			m.ExpectExec(insert).WithArgs("operator", "hash").WillReturnResult(sqlmock.NewResult(42, 1))
		})
		id, err := repo.Create(context.Background(), "operator", "hash")
		if err != nil || id != 42 {
			t.Fatalf("Create = %d, %v; want 42", id, err)
		}
	})

	failures := map[string]struct {
		expect  func(sqlmock.Sqlmock)
		errPart string
	}{
		"duplicate username": {
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(insert).WithArgs("operator", "hash").
					WillReturnError(errors.New("UNIQUE constraint failed: users.username"))
			},
			errPart: `insert user "operator"`,
		},
		"no last insert id": {
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(insert).WithArgs("operator", "hash").
					WillReturnResult(sqlmock.NewErrorResult(errors.New("unsupported")))
			},
			errPart: "get last insert id",
		},
	}
	for name, tc := range failures {
		tc := tc
		t.Run(name, func(t *testing.T) {
			repo := withUserMock(t, tc.expect)
			id, err := repo.Create(context.Background(), "operator", "hash")
			if err == nil || !strings.Contains(err.Error(), tc.errPart) || id != 0 {
				t.Fatalf("Create = %d, %v; want error containing %q", id, err, tc.errPart)
			}
		})
	}
}

func TestUserRepository_GetByUsername(t *testing.T) {
	query := regexp.QuoteMeta(selectUserByUsernameSQL)
	ctx := context.Background()

	repo := withUserMock(t, func(m sqlmock.Sqlmock) {
		m.ExpectQuery(query).WithArgs("operator").
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash"}).AddRow(7, "operator", "hash"))
		m.ExpectQuery(query).WithArgs("ghost").WillReturnError(sql.ErrNoRows)
		m.ExpectQuery(query).WithArgs("operator").WillReturnError(errors.New("disk I/O error"))
	})

	u, err := repo.GetByUsername(ctx, "operator")
	if err != nil || u == nil || u.ID != 7 || u.PasswordHash != "hash" {
		t.Fatalf("found: user=%+v err=%v", u, err)
	}

	u, err = repo.GetByUsername(ctx, "ghost")
	if err != nil || u != nil {
		t.Fatalf("missing user should be (nil, nil), got %+v, %v", u, err)
	}

	u, err = repo.GetByUsername(ctx, "operator")
	if err == nil || !strings.Contains(err.Error(), "select user") || u != nil {
		t.Fatalf("query failure: user=%+v err=%v", u, err)
	}
}
