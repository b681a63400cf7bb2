package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/meetsync/MeetSync/pkg/logger"
	"github.com/meetsync/MeetSync/pkg/models"
	"github.com/meetsync/MeetSync/pkg/pgstore"
	"github.com/meetsync/MeetSync/pkg/schedule"
	"github.com/meetsync/MeetSync/pkg/service"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	managers  map[int]models.Manager
	employees map[int]models.Employee
	meetings  map[int]models.Meeting
	proposed  map[int][]models.ProposedDate
	links     map[int][]int
	nextID    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		managers:  map[int]models.Manager{},
		employees: map[int]models.Employee{},
		meetings:  map[int]models.Meeting{},
		proposed:  map[int][]models.ProposedDate{},
		links:     map[int][]int{},
	}
}

func (f *fakeStore) GetManager(_ context.Context, id int) (models.Manager, error) {
	m, ok := f.managers[id]
	if !ok {
		return models.Manager{}, pgstore.ErrManagerNotFound
	}
	return m, nil
}

func (f *fakeStore) GetEmployee(_ context.Context, id int) (models.Employee, error) {
	e, ok := f.employees[id]
	if !ok {
		return models.Employee{}, pgstore.ErrEmployeeNotFound
	}
	return e, nil
}

func (f *fakeStore) EmployeesBelongingTo(_ context.Context, managerID int, ids []int) ([]models.Employee, error) {
	var result []models.Employee
	for _, id := range ids {
		if e, ok := f.employees[id]; ok && e.ManagerID == managerID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (f *fakeStore) MeetingEmployees(_ context.Context, meetingID int) ([]models.Employee, error) {
	var result []models.Employee
	for _, id := range f.links[meetingID] {
		result = append(result, f.employees[id])
	}
	return result, nil
}

func (f *fakeStore) CreateMeeting(_ context.Context, meeting models.Meeting, employeeIDs []int) (models.Meeting, error) {
	for _, id := range employeeIDs {
		e, ok := f.employees[id]
		if !ok || e.ManagerID != meeting.ManagerID {
			return models.Meeting{}, models.NewValidationError("employee %d does not belong to manager %d", id, meeting.ManagerID)
		}
	}
	f.nextID++
	meeting.ID = f.nextID
	meeting.CreatedAt = time.Now()
	meeting.UpdatedAt = meeting.CreatedAt
	f.meetings[meeting.ID] = meeting
	f.links[meeting.ID] = append([]int(nil), employeeIDs...)
	return meeting, nil
}

func (f *fakeStore) CreateMeetingRequest(_ context.Context, meeting models.Meeting, dates []time.Time) (models.Meeting, []models.ProposedDate, error) {
	f.nextID++
	meeting.ID = f.nextID
	meeting.Date = nil
	meeting.Status = models.StatusPending
	meeting.CreatedAt = time.Now()
	meeting.UpdatedAt = meeting.CreatedAt
	f.meetings[meeting.ID] = meeting
	for i, d := range dates {
		f.proposed[meeting.ID] = append(f.proposed[meeting.ID], models.ProposedDate{
			ID:             meeting.ID*100 + i,
			MeetingID:      meeting.ID,
			Date:           schedule.NormalizeUTC(d),
			Status:         models.StatusPending,
			ProposedByID:   meeting.CreatedByID,
			ProposedByRole: meeting.CreatedByRole,
		})
	}
	return meeting, f.proposed[meeting.ID], nil
}

func (f *fakeStore) GetMeeting(_ context.Context, id int) (models.Meeting, error) {
	m, ok := f.meetings[id]
	if !ok {
		return models.Meeting{}, pgstore.ErrMeetingNotFound
	}
	return m, nil
}

func (f *fakeStore) ProposedDates(_ context.Context, meetingID int) ([]models.ProposedDate, error) {
	return f.proposed[meetingID], nil
}

func (f *fakeStore) UpdateMeetingStatus(_ context.Context, id int, from, to models.Status, reason *string) (models.Meeting, error) {
	m, ok := f.meetings[id]
	if !ok {
		return models.Meeting{}, pgstore.ErrMeetingNotFound
	}
	if m.Status != from {
		return models.Meeting{}, pgstore.ErrConflict
	}
	m.Status = to
	m.RejectionReason = reason
	m.UpdatedAt = time.Now()
	f.meetings[id] = m
	return m, nil
}

func (f *fakeStore) SelectMeetingDate(_ context.Context, meetingID int, selected time.Time) (models.Meeting, []models.ProposedDate, error) {
	m, ok := f.meetings[meetingID]
	if !ok {
		return models.Meeting{}, nil, pgstore.ErrMeetingNotFound
	}
	proposed := f.proposed[meetingID]
	if _, found := schedule.MatchProposedDate(proposed, selected); !found {
		return models.Meeting{}, nil, models.NewValidationError("selected date is not in the proposed dates")
	}
	selected = schedule.NormalizeUTC(selected)
	for i := range proposed {
		proposed[i].IsSelected = schedule.NormalizeUTC(proposed[i].Date).Equal(selected)
	}
	f.proposed[meetingID] = proposed
	m.Date = &selected
	m.UpdatedAt = time.Now()
	f.meetings[meetingID] = m
	return m, proposed, nil
}

func (f *fakeStore) ManagerMeetingsInRange(_ context.Context, managerID int, from, to time.Time) ([]models.Meeting, error) {
	var result []models.Meeting
	for _, m := range f.meetings {
		if m.ManagerID != managerID || m.Date == nil {
			continue
		}
		if m.Status != models.StatusAccepted && m.Status != models.StatusPending {
			continue
		}
		end := m.Date.Add(time.Duration(m.Duration) * time.Minute)
		if !m.Date.After(to) && !end.Before(from) {
			result = append(result, m)
		}
	}
	return result, nil
}

func (f *fakeStore) ListMeetings(_ context.Context, actor models.Actor, filter models.MeetingFilter) ([]models.Meeting, int, error) {
	var result []models.Meeting
	for _, m := range f.meetings {
		switch actor.Role {
		case models.RoleManager:
			if m.ManagerID != actor.ID {
				continue
			}
		case models.RoleEmployee:
			linked := false
			for _, id := range f.links[m.ID] {
				if id == actor.ID {
					linked = true
				}
			}
			if !(m.CreatedByID == actor.ID && m.CreatedByRole == models.RoleEmployee) && !linked {
				continue
			}
		}
		if filter.Status != nil && m.Status != *filter.Status {
			continue
		}
		result = append(result, m)
	}
	return result, len(result), nil
}

type notification struct {
	recipient string
	kind      string
}

type fakeNotifier struct {
	sent []notification
	fail bool
}

func (n *fakeNotifier) NotifyMeetingCreated(_ context.Context, recipient, _ string, _ []time.Time, _ *string, _ string) error {
	if n.fail {
		return fmt.Errorf("smtp down")
	}
	n.sent = append(n.sent, notification{recipient: recipient, kind: "created"})
	return nil
}

func (n *fakeNotifier) NotifyStatusChanged(_ context.Context, recipient, _ string, _ models.Status, _ *string) error {
	if n.fail {
		return fmt.Errorf("smtp down")
	}
	n.sent = append(n.sent, notification{recipient: recipient, kind: "status"})
	return nil
}

func newService(t *testing.T) (*service.MeetingService, *fakeStore, *fakeNotifier) {
	t.Helper()
	store := newFakeStore()
	pos := "sales"
	store.managers[1] = models.Manager{ID: 1, Name: "Olga", Email: "olga@acme.test", CompanyName: "Acme"}
	store.managers[2] = models.Manager{ID: 2, Name: "Boris", Email: "boris@other.test", CompanyName: "Other"}
	store.employees[5] = models.Employee{ID: 5, Name: "Ivan", Email: "ivan@acme.test", Position: &pos, ManagerID: 1}
	store.employees[6] = models.Employee{ID: 6, Name: "Petr", Email: "petr@other.test", ManagerID: 2}
	notifier := &fakeNotifier{}
	return service.NewMeetingService(logger.NewLogger(), store, notifier), store, notifier
}

func managerPayload() models.CreateMeetingRequest {
	return models.CreateMeetingRequest{
		Title:    "Quarterly review",
		Date:     time.Now().Add(48 * time.Hour).UTC(),
		Duration: 60,
		Client:   models.ClientInfo{Name: "Globex", Email: "cto@globex.test"},
	}
}

func employeePayload(dates ...time.Time) models.RequestMeetingRequest {
	if len(dates) == 0 {
		dates = []time.Time{
			time.Now().Add(24 * time.Hour).UTC(),
			time.Now().Add(48 * time.Hour).UTC(),
			time.Now().Add(72 * time.Hour).UTC(),
		}
	}
	return models.RequestMeetingRequest{
		Title:         "Intro call",
		Duration:      30,
		Client:        models.ClientInfo{Name: "Initech", Email: "ceo@initech.test"},
		ProposedDates: dates,
	}
}

func TestCreateByManager(t *testing.T) {
	ctx := context.Background()
	svc, store, notifier := newService(t)

	req := managerPayload()
	req.EmployeeIDs = []int{5}
	view, err := svc.CreateByManager(ctx, 1, req)
	require.NoError(t, err)
	require.Equal(t, models.StatusAccepted, view.Status)
	require.NotNil(t, view.Date)
	require.Len(t, view.Employees, 1)
	require.True(t, view.Notified)
	require.Equal(t, []notification{{recipient: "ivan@acme.test", kind: "created"}}, notifier.sent)
	require.Len(t, store.meetings, 1)
}

func TestCreateByManagerForeignEmployee(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(t)

	req := managerPayload()
	req.EmployeeIDs = []int{5, 6} // 6 belongs to another manager
	_, err := svc.CreateByManager(ctx, 1, req)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Reason, "6")
	require.Empty(t, store.meetings, "nothing may be persisted on validation failure")
}

func TestCreateByManagerBadDuration(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	for _, duration := range []int{0, -10, 481} {
		req := managerPayload()
		req.Duration = duration
		_, err := svc.CreateByManager(ctx, 1, req)
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr, "duration %d", duration)
	}
}

func TestCreateByManagerMissingDate(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(t)

	req := managerPayload()
	req.Date = time.Time{}
	_, err := svc.CreateByManager(ctx, 1, req)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Reason, "date")
	require.Empty(t, store.meetings, "a meeting must not be booked without a date")
}

func TestCreateMeetingBadTitle(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(t)

	long := strings.Repeat("x", 101)
	for _, title := range []string{"", "Hi", long} {
		req := managerPayload()
		req.Title = title
		_, err := svc.CreateByManager(ctx, 1, req)
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr, "title %q", title)

		employeeReq := employeePayload()
		employeeReq.Title = title
		_, err = svc.CreateByEmployee(ctx, 5, employeeReq)
		require.ErrorAs(t, err, &verr, "title %q", title)
	}
	require.Empty(t, store.meetings)
}

func TestCreateByEmployee(t *testing.T) {
	ctx := context.Background()
	svc, store, notifier := newService(t)

	view, err := svc.CreateByEmployee(ctx, 5, employeePayload())
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, view.Status)
	require.Nil(t, view.Date, "no schedule until the manager selects a date")
	require.Len(t, view.ProposedDates, 3)
	require.NotNil(t, view.Manager)
	require.Equal(t, 1, view.Manager.ID)
	require.Equal(t, []notification{{recipient: "olga@acme.test", kind: "created"}}, notifier.sent)
	require.Len(t, store.proposed[view.ID], 3)
}

func TestCreateByEmployeeBadDates(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(t)

	past := time.Now().Add(-time.Hour)
	dup := time.Now().Add(24 * time.Hour).UTC()
	six := make([]time.Time, 6)
	for i := range six {
		six[i] = time.Now().Add(time.Duration(i+1) * time.Hour)
	}
	bad := [][]time.Time{{}, {past}, {dup, dup}, six}
	for i, dates := range bad {
		req := employeePayload()
		req.ProposedDates = dates
		_, err := svc.CreateByEmployee(ctx, 5, req)
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr, "case %d", i)
	}
	require.Empty(t, store.meetings)
}

func TestUpdateStatusOwningManagerAcceptsRequest(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	// employee files the request, the owning manager (not the creator)
	// accepts it
	view, err := svc.CreateByEmployee(ctx, 5, employeePayload())
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, models.Actor{ID: 1, Role: models.RoleManager}, view.ID,
		models.UpdateStatusRequest{Status: "accepted"})
	require.NoError(t, err)
	require.Equal(t, models.StatusAccepted, updated.Status)

	// terminal targets have no self-loop
	_, err = svc.UpdateStatus(ctx, models.Actor{ID: 1, Role: models.RoleManager}, view.ID,
		models.UpdateStatusRequest{Status: "accepted"})
	var terr *models.TransitionError
	require.ErrorAs(t, err, &terr)
}

func TestUpdateStatusRejectRequiresReason(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	view, err := svc.CreateByEmployee(ctx, 5, employeePayload())
	require.NoError(t, err)
	manager := models.Actor{ID: 1, Role: models.RoleManager}

	_, err = svc.UpdateStatus(ctx, manager, view.ID, models.UpdateStatusRequest{Status: "rejected"})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)

	reason := "client unavailable that week"
	updated, err := svc.UpdateStatus(ctx, manager, view.ID, models.UpdateStatusRequest{Status: "rejected", Reason: &reason})
	require.NoError(t, err)
	require.Equal(t, models.StatusRejected, updated.Status)
	require.NotNil(t, updated.RejectionReason)
	require.Equal(t, reason, *updated.RejectionReason)
}

func TestUpdateStatusClearsReasonOutsideRejection(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	view, err := svc.CreateByManager(ctx, 1, managerPayload())
	require.NoError(t, err)

	reason := "should be ignored"
	updated, err := svc.UpdateStatus(ctx, models.Actor{ID: 1, Role: models.RoleManager}, view.ID,
		models.UpdateStatusRequest{Status: "cancelled", Reason: &reason})
	require.NoError(t, err)
	require.Equal(t, models.StatusCancelled, updated.Status)
	require.Nil(t, updated.RejectionReason)
}

func TestUpdateStatusForeignManager(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	view, err := svc.CreateByManager(ctx, 1, managerPayload())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, models.Actor{ID: 2, Role: models.RoleManager}, view.ID,
		models.UpdateStatusRequest{Status: "cancelled"})
	require.ErrorIs(t, err, models.ErrPermissionDenied)
}

func TestUpdateStatusNotifierFailureIsSoft(t *testing.T) {
	ctx := context.Background()
	svc, _, notifier := newService(t)

	req := managerPayload()
	req.EmployeeIDs = []int{5}
	notifier.fail = true
	view, err := svc.CreateByManager(ctx, 1, req)
	require.NoError(t, err, "notification failure must not fail the operation")
	require.False(t, view.Notified)

	updated, err := svc.UpdateStatus(ctx, models.Actor{ID: 1, Role: models.RoleManager}, view.ID,
		models.UpdateStatusRequest{Status: "cancelled"})
	require.NoError(t, err)
	require.Equal(t, models.StatusCancelled, updated.Status)
	require.False(t, updated.Notified)
}

func TestEmployeeCancel(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	view, err := svc.CreateByEmployee(ctx, 5, employeePayload())
	require.NoError(t, err)
	employee := models.Actor{ID: 5, Role: models.RoleEmployee}

	cancelled, err := svc.Cancel(ctx, employee, view.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusCancelled, cancelled.Status)

	_, err = svc.Cancel(ctx, employee, view.ID)
	var terr *models.TransitionError
	require.ErrorAs(t, err, &terr)
}

func TestEmployeeCancelRestrictions(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	// employee cannot accept
	request, err := svc.CreateByEmployee(ctx, 5, employeePayload())
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, models.Actor{ID: 5, Role: models.RoleEmployee}, request.ID,
		models.UpdateStatusRequest{Status: "accepted"})
	require.ErrorIs(t, err, models.ErrPermissionDenied)

	// employee cannot cancel a meeting the manager created
	booked, err := svc.CreateByManager(ctx, 1, managerPayload())
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, models.Actor{ID: 5, Role: models.RoleEmployee}, booked.ID)
	require.ErrorIs(t, err, models.ErrPermissionDenied)
}

func TestEmployeeCannotCancelAcceptedRequest(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	request, err := svc.CreateByEmployee(ctx, 5, employeePayload())
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, models.Actor{ID: 1, Role: models.RoleManager}, request.ID,
		models.UpdateStatusRequest{Status: "accepted"})
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, models.Actor{ID: 5, Role: models.RoleEmployee}, request.ID)
	var terr *models.TransitionError
	require.ErrorAs(t, err, &terr)
}

func TestSelectDate(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(t)

	dates := []time.Time{
		time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second),
		time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second),
	}
	view, err := svc.CreateByEmployee(ctx, 5, employeePayload(dates...))
	require.NoError(t, err)

	t.Run("wrong manager", func(t *testing.T) {
		_, err := svc.SelectDate(ctx, 2, view.ID, dates[0])
		require.ErrorIs(t, err, models.ErrPermissionDenied)
	})

	t.Run("date not among proposals", func(t *testing.T) {
		_, err := svc.SelectDate(ctx, 1, view.ID, dates[0].Add(time.Minute))
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("valid selection", func(t *testing.T) {
		updated, err := svc.SelectDate(ctx, 1, view.ID, dates[1])
		require.NoError(t, err)
		require.NotNil(t, updated.Date)
		require.True(t, updated.Date.Equal(dates[1]))

		selected := 0
		for _, p := range store.proposed[view.ID] {
			if p.IsSelected {
				selected++
			}
		}
		require.Equal(t, 1, selected, "exactly one winner among siblings")
	})
}

func TestCheckAvailability(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(t)

	start := time.Date(2030, 6, 10, 10, 0, 0, 0, time.UTC)
	store.nextID++
	store.meetings[store.nextID] = models.Meeting{
		ID: store.nextID, ManagerID: 1, Date: &start, Duration: 30, Status: models.StatusAccepted,
	}

	result, err := svc.CheckAvailability(ctx, 1, start.Add(-15*time.Minute)) // 09:45 rounds to 09:30
	require.NoError(t, err)
	require.Equal(t, models.AvailabilityAvailable, result.Status)

	result, err = svc.CheckAvailability(ctx, 1, start)
	require.NoError(t, err)
	require.Equal(t, models.AvailabilityUnavailable, result.Status)
	require.Empty(t, result.AvailableSlots)

	_, err = svc.CheckAvailability(ctx, 99, start)
	require.ErrorIs(t, err, pgstore.ErrManagerNotFound)
}

func TestListMeetingsValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)
	actor := models.Actor{ID: 1, Role: models.RoleManager}

	_, err := svc.ListMeetings(ctx, actor, models.MeetingFilter{Page: 0, Limit: 10})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = svc.ListMeetings(ctx, actor, models.MeetingFilter{Page: 1, Limit: 101})
	require.ErrorAs(t, err, &verr)

	list, err := svc.ListMeetings(ctx, actor, models.MeetingFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 0, list.Total)
	require.NotNil(t, list.Items)
}

func TestUpdateStatusConflict(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(t)

	view, err := svc.CreateByEmployee(ctx, 5, employeePayload())
	require.NoError(t, err)

	// another transaction wins the race after our read
	m := store.meetings[view.ID]
	loaded, err := store.GetMeeting(ctx, view.ID)
	require.NoError(t, err)
	m.Status = models.StatusCancelled
	store.meetings[view.ID] = m

	_, err = store.UpdateMeetingStatus(ctx, view.ID, loaded.Status, models.StatusAccepted, nil)
	require.ErrorIs(t, err, pgstore.ErrConflict)
	require.False(t, errors.Is(err, pgstore.ErrMeetingNotFound))
}
