package pgstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/meetsync/MeetSync/pkg/metrics"
	"github.com/meetsync/MeetSync/pkg/models"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"
)

//go:embed migrations
var migrations embed.FS

const retries = 3

type Store struct {
	log *logrus.Entry
	db  *sqlx.DB
}

var (
	ErrManagerNotFound  = fmt.Errorf("manager not found")
	ErrEmployeeNotFound = fmt.Errorf("employee not found")
	ErrMeetingNotFound  = fmt.Errorf("meeting not found")

	// ErrConflict means another transaction changed the row between our read
	// and write. The whole operation is safe to retry.
	ErrConflict = fmt.Errorf("meeting was modified concurrently")
)

func NewStore(ctx context.Context, log *logrus.Logger, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &Store{
		log: log.WithField("component", "pgstore"),
		db:  db,
	}, nil
}

func (s *Store) Migrate(direction migrate.MigrationDirection) error {
	assetDir := func() func(string) ([]string, error) {
		return func(path string) ([]string, error) {
			dirEntry, er := migrations.ReadDir(path)
			if er != nil {
				return nil, er
			}
			entries := make([]string, 0)
			for _, e := range dirEntry {
				entries = append(entries, e.Name())
			}

			return entries, nil
		}
	}()
	asset := migrate.AssetMigrationSource{
		Asset:    migrations.ReadFile,
		AssetDir: assetDir,
		Dir:      "migrations",
	}
	_, err := migrate.Exec(s.db.DB, "postgres", asset, direction)
	return err
}

func observe(method string) func() {
	start := time.Now()
	return func() {
		metrics.PgDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}
}

func countErr(method string) {
	metrics.PgErrCount.WithLabelValues(method).Inc()
}

func (s *Store) GetManager(ctx context.Context, id int) (models.Manager, error) {
	defer observe("GetManager")()
	var manager models.Manager
	query := `
SELECT * FROM managers
WHERE id = $1;`
	var err error
	for i := 0; i < retries; i++ {
		err = s.db.GetContext(ctx, &manager, query, id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return models.Manager{}, ErrManagerNotFound
		case err != nil:
			continue
		}
		return manager, nil
	}
	countErr("GetManager")
	return models.Manager{}, fmt.Errorf("err getting manager %d: %w", id, err)
}

func (s *Store) GetEmployee(ctx context.Context, id int) (models.Employee, error) {
	defer observe("GetEmployee")()
	var employee models.Employee
	query := `
SELECT * FROM employees
WHERE id = $1;`
	var err error
	for i := 0; i < retries; i++ {
		err = s.db.GetContext(ctx, &employee, query, id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return models.Employee{}, ErrEmployeeNotFound
		case err != nil:
			continue
		}
		return employee, nil
	}
	countErr("GetEmployee")
	return models.Employee{}, fmt.Errorf("err getting employee %d: %w", id, err)
}

// EmployeesBelongingTo returns the subset of ids that are employees of the
// given manager. Callers compare lengths to spot foreign ids.
func (s *Store) EmployeesBelongingTo(ctx context.Context, managerID int, ids []int) ([]models.Employee, error) {
	defer observe("EmployeesBelongingTo")()
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
SELECT * FROM employees
WHERE manager_id = ? AND id IN (?);`, managerID, ids)
	if err != nil {
		return nil, fmt.Errorf("err building employees query: %w", err)
	}
	query = s.db.Rebind(query)
	var employees []models.Employee
	for i := 0; i < retries; i++ {
		if err = s.db.SelectContext(ctx, &employees, query, args...); err != nil {
			continue
		}
		return employees, nil
	}
	countErr("EmployeesBelongingTo")
	return nil, fmt.Errorf("err getting employees of manager %d: %w", managerID, err)
}

func (s *Store) MeetingEmployees(ctx context.Context, meetingID int) ([]models.Employee, error) {
	defer observe("MeetingEmployees")()
	query := `
SELECT e.* FROM employees e
JOIN employee_meetings em ON em.employee_id = e.id
WHERE em.meeting_id = $1
ORDER BY e.id;`
	var employees []models.Employee
	var err error
	for i := 0; i < retries; i++ {
		if err = s.db.SelectContext(ctx, &employees, query, meetingID); err != nil {
			continue
		}
		return employees, nil
	}
	countErr("MeetingEmployees")
	return nil, fmt.Errorf("err getting employees of meeting %d: %w", meetingID, err)
}

func (s *Store) CreateManager(ctx context.Context, manager models.Manager) (models.Manager, error) {
	defer observe("CreateManager")()
	var created models.Manager
	query := `
INSERT INTO managers (name, email, company_name, phone)
VALUES ($1, $2, $3, $4)
RETURNING *;`
	var err error
	for i := 0; i < retries; i++ {
		if err = s.db.GetContext(ctx, &created, query, manager.Name, manager.Email, manager.CompanyName, manager.Phone); err != nil {
			continue
		}
		return created, nil
	}
	countErr("CreateManager")
	return models.Manager{}, fmt.Errorf("err creating manager: %w", err)
}

func (s *Store) CreateEmployee(ctx context.Context, employee models.Employee) (models.Employee, error) {
	defer observe("CreateEmployee")()
	var created models.Employee
	query := `
INSERT INTO employees (name, email, position, department, phone, manager_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING *;`
	var err error
	for i := 0; i < retries; i++ {
		if err = s.db.GetContext(ctx, &created, query,
			employee.Name, employee.Email, employee.Position, employee.Department, employee.Phone, employee.ManagerID); err != nil {
			continue
		}
		return created, nil
	}
	countErr("CreateEmployee")
	return models.Employee{}, fmt.Errorf("err creating employee: %w", err)
}

func (s *Store) ResetTables(ctx context.Context, tables []string) error {
	_, err := s.db.ExecContext(ctx, `TRUNCATE TABLE `+strings.Join(tables, `, `)+` CASCADE`)
	if err != nil {
		return err
	}
	for _, table := range tables {
		if _, err = s.db.ExecContext(ctx, fmt.Sprintf(`ALTER SEQUENCE %s_id_seq RESTART`, table)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return s.db.QueryRowContext(ctx, query, args...)
}
