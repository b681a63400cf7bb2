package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/meetsync/MeetSync/pkg/models"
	"github.com/meetsync/MeetSync/pkg/schedule"
)

func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("err starting tx: %w", err)
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
			s.log.Warnf("err rolling back tx: %v", rerr)
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

const insertMeetingQuery = `
INSERT INTO meetings (title, description, date, duration, location, status,
                      created_by_id, created_by_role, manager_id,
                      client_name, client_email, client_phone)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING *;`

// CreateMeeting persists a manager-created meeting together with its
// participant links. The employee ownership check runs inside the same
// transaction, so a foreign id leaves no meeting row behind.
func (s *Store) CreateMeeting(ctx context.Context, meeting models.Meeting, employeeIDs []int) (models.Meeting, error) {
	defer observe("CreateMeeting")()
	var created models.Meeting
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &created, insertMeetingQuery,
			meeting.Title, meeting.Description, meeting.Date, meeting.Duration, meeting.Location, meeting.Status,
			meeting.CreatedByID, meeting.CreatedByRole, meeting.ManagerID,
			meeting.ClientName, meeting.ClientEmail, meeting.ClientPhone); err != nil {
			return fmt.Errorf("err inserting meeting: %w", err)
		}
		for _, employeeID := range employeeIDs {
			res, err := tx.ExecContext(ctx, `
INSERT INTO employee_meetings (employee_id, meeting_id)
SELECT id, $2 FROM employees
WHERE id = $1 AND manager_id = $3;`, employeeID, created.ID, created.ManagerID)
			if err != nil {
				return fmt.Errorf("err linking employee %d: %w", employeeID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("err linking employee %d: %w", employeeID, err)
			}
			if n != 1 {
				return models.NewValidationError("employee %d does not belong to manager %d", employeeID, created.ManagerID)
			}
		}
		return nil
	})
	if err != nil {
		countErr("CreateMeeting")
		return models.Meeting{}, err
	}
	return created, nil
}

// CreateMeetingRequest persists an employee-initiated meeting (no scheduled
// date yet) and its proposed dates in one transaction.
func (s *Store) CreateMeetingRequest(ctx context.Context, meeting models.Meeting, dates []time.Time) (models.Meeting, []models.ProposedDate, error) {
	defer observe("CreateMeetingRequest")()
	var created models.Meeting
	proposed := make([]models.ProposedDate, 0, len(dates))
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &created, insertMeetingQuery,
			meeting.Title, meeting.Description, nil, meeting.Duration, meeting.Location, models.StatusPending,
			meeting.CreatedByID, meeting.CreatedByRole, meeting.ManagerID,
			meeting.ClientName, meeting.ClientEmail, meeting.ClientPhone); err != nil {
			return fmt.Errorf("err inserting meeting request: %w", err)
		}
		query := `
INSERT INTO proposed_dates (meeting_id, date, status, proposed_by_id, proposed_by_role)
VALUES ($1, $2, $3, $4, $5)
RETURNING *;`
		for _, date := range dates {
			var row models.ProposedDate
			if err := tx.GetContext(ctx, &row, query,
				created.ID, schedule.NormalizeUTC(date), models.StatusPending, meeting.CreatedByID, meeting.CreatedByRole); err != nil {
				return fmt.Errorf("err inserting proposed date: %w", err)
			}
			proposed = append(proposed, row)
		}
		return nil
	})
	if err != nil {
		countErr("CreateMeetingRequest")
		return models.Meeting{}, nil, err
	}
	return created, proposed, nil
}

func (s *Store) GetMeeting(ctx context.Context, id int) (models.Meeting, error) {
	defer observe("GetMeeting")()
	var meeting models.Meeting
	query := `
SELECT * FROM meetings
WHERE id = $1;`
	var err error
	for i := 0; i < retries; i++ {
		err = s.db.GetContext(ctx, &meeting, query, id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return models.Meeting{}, ErrMeetingNotFound
		case err != nil:
			continue
		}
		return meeting, nil
	}
	countErr("GetMeeting")
	return models.Meeting{}, fmt.Errorf("err getting meeting %d: %w", id, err)
}

func (s *Store) ProposedDates(ctx context.Context, meetingID int) ([]models.ProposedDate, error) {
	defer observe("ProposedDates")()
	var dates []models.ProposedDate
	query := `
SELECT * FROM proposed_dates
WHERE meeting_id = $1
ORDER BY date;`
	var err error
	for i := 0; i < retries; i++ {
		if err = s.db.SelectContext(ctx, &dates, query, meetingID); err != nil {
			continue
		}
		return dates, nil
	}
	countErr("ProposedDates")
	return nil, fmt.Errorf("err getting proposed dates of meeting %d: %w", meetingID, err)
}

// UpdateMeetingStatus applies a validated transition with an optimistic check
// on the previously read status. A stale read surfaces as ErrConflict so the
// caller can re-validate and retry.
func (s *Store) UpdateMeetingStatus(ctx context.Context, id int, from, to models.Status, reason *string) (models.Meeting, error) {
	defer observe("UpdateMeetingStatus")()
	var updated models.Meeting
	query := `
UPDATE meetings
SET status           = $3,
    rejection_reason = $4,
    updated_at       = now()
WHERE id = $1 AND status = $2
RETURNING *;`
	err := s.db.GetContext(ctx, &updated, query, id, from, to, reason)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, gerr := s.GetMeeting(ctx, id); gerr != nil {
			return models.Meeting{}, gerr
		}
		return models.Meeting{}, ErrConflict
	case err != nil:
		countErr("UpdateMeetingStatus")
		return models.Meeting{}, fmt.Errorf("err updating status of meeting %d: %w", id, err)
	}
	return updated, nil
}

// SelectMeetingDate locks the meeting row, verifies the selected date is
// among the proposals and flips exactly one is_selected flag, all in one
// transaction.
func (s *Store) SelectMeetingDate(ctx context.Context, meetingID int, selected time.Time) (models.Meeting, []models.ProposedDate, error) {
	defer observe("SelectMeetingDate")()
	var updated models.Meeting
	var dates []models.ProposedDate
	selected = schedule.NormalizeUTC(selected)
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var meeting models.Meeting
		err := tx.GetContext(ctx, &meeting, `SELECT * FROM meetings WHERE id = $1 FOR UPDATE;`, meetingID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrMeetingNotFound
		case err != nil:
			return fmt.Errorf("err locking meeting %d: %w", meetingID, err)
		}
		var proposed []models.ProposedDate
		if err = tx.SelectContext(ctx, &proposed, `SELECT * FROM proposed_dates WHERE meeting_id = $1 ORDER BY date FOR UPDATE;`, meetingID); err != nil {
			return fmt.Errorf("err getting proposed dates of meeting %d: %w", meetingID, err)
		}
		if _, ok := schedule.MatchProposedDate(proposed, selected); !ok {
			return models.NewValidationError("selected date is not in the proposed dates")
		}
		if _, err = tx.ExecContext(ctx, `UPDATE proposed_dates SET is_selected = (date = $2) WHERE meeting_id = $1;`, meetingID, selected); err != nil {
			return fmt.Errorf("err selecting proposed date: %w", err)
		}
		if err = tx.GetContext(ctx, &updated, `UPDATE meetings SET date = $2, updated_at = now() WHERE id = $1 RETURNING *;`, meetingID, selected); err != nil {
			return fmt.Errorf("err setting date of meeting %d: %w", meetingID, err)
		}
		if err = tx.SelectContext(ctx, &dates, `SELECT * FROM proposed_dates WHERE meeting_id = $1 ORDER BY date;`, meetingID); err != nil {
			return fmt.Errorf("err rereading proposed dates of meeting %d: %w", meetingID, err)
		}
		return nil
	})
	if err != nil {
		countErr("SelectMeetingDate")
		return models.Meeting{}, nil, err
	}
	return updated, dates, nil
}

// ManagerMeetingsInRange is the coarse pre-filter for availability checks:
// scheduled meetings of the manager in {accepted, pending} whose interval
// could touch [from, to].
func (s *Store) ManagerMeetingsInRange(ctx context.Context, managerID int, from, to time.Time) ([]models.Meeting, error) {
	defer observe("ManagerMeetingsInRange")()
	var meetings []models.Meeting
	query := `
SELECT * FROM meetings
WHERE manager_id = $1
  AND status IN ('accepted', 'pending')
  AND date IS NOT NULL
  AND date <= $3
  AND date + duration * interval '1 minute' >= $2;`
	var err error
	for i := 0; i < retries; i++ {
		if err = s.db.SelectContext(ctx, &meetings, query, managerID, from, to); err != nil {
			continue
		}
		return meetings, nil
	}
	countErr("ManagerMeetingsInRange")
	return nil, fmt.Errorf("err getting meetings of manager %d: %w", managerID, err)
}

// ListMeetings returns one page of the actor's meetings plus the unpaginated
// total. Managers see their calendar; employees see meetings they created or
// are invited to.
func (s *Store) ListMeetings(ctx context.Context, actor models.Actor, filter models.MeetingFilter) ([]models.Meeting, int, error) {
	defer observe("ListMeetings")()
	where := ``
	args := []interface{}{}
	switch actor.Role {
	case models.RoleManager:
		args = append(args, actor.ID)
		where = `manager_id = $1`
	case models.RoleEmployee:
		args = append(args, actor.ID)
		where = `(created_by_id = $1 AND created_by_role = 'employee'
        OR id IN (SELECT meeting_id FROM employee_meetings WHERE employee_id = $1))`
	default:
		return nil, 0, models.NewValidationError("role %q cannot list meetings", actor.Role)
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		where += fmt.Sprintf(` AND date >= $%d`, len(args))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		where += fmt.Sprintf(` AND date <= $%d`, len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(` AND title ILIKE $%d`, len(args))
	}

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT count(*) FROM meetings WHERE `+where, args...); err != nil {
		countErr("ListMeetings")
		return nil, 0, fmt.Errorf("err counting meetings: %w", err)
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	query := fmt.Sprintf(`
SELECT * FROM meetings
WHERE %s
ORDER BY date DESC NULLS LAST, id DESC
LIMIT $%d OFFSET $%d;`, where, len(args)-1, len(args))
	var meetings []models.Meeting
	if err := s.db.SelectContext(ctx, &meetings, query, args...); err != nil {
		countErr("ListMeetings")
		return nil, 0, fmt.Errorf("err listing meetings: %w", err)
	}
	return meetings, total, nil
}
