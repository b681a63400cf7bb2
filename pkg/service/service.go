package service

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/meetsync/MeetSync/pkg/models"
	"github.com/meetsync/MeetSync/pkg/schedule"
	"github.com/sirupsen/logrus"
)

// Notifier delivers meeting notifications. Calls are advisory: a failed
// notification never fails the operation that triggered it.
type Notifier interface {
	NotifyMeetingCreated(ctx context.Context, recipient, title string, dates []time.Time, location *string, actorName string) error
	NotifyStatusChanged(ctx context.Context, recipient, title string, status models.Status, reason *string) error
}

type Store interface {
	GetManager(ctx context.Context, id int) (models.Manager, error)
	GetEmployee(ctx context.Context, id int) (models.Employee, error)
	EmployeesBelongingTo(ctx context.Context, managerID int, ids []int) ([]models.Employee, error)
	MeetingEmployees(ctx context.Context, meetingID int) ([]models.Employee, error)
	CreateMeeting(ctx context.Context, meeting models.Meeting, employeeIDs []int) (models.Meeting, error)
	CreateMeetingRequest(ctx context.Context, meeting models.Meeting, dates []time.Time) (models.Meeting, []models.ProposedDate, error)
	GetMeeting(ctx context.Context, id int) (models.Meeting, error)
	ProposedDates(ctx context.Context, meetingID int) ([]models.ProposedDate, error)
	UpdateMeetingStatus(ctx context.Context, id int, from, to models.Status, reason *string) (models.Meeting, error)
	SelectMeetingDate(ctx context.Context, meetingID int, selected time.Time) (models.Meeting, []models.ProposedDate, error)
	ManagerMeetingsInRange(ctx context.Context, managerID int, from, to time.Time) ([]models.Meeting, error)
	ListMeetings(ctx context.Context, actor models.Actor, filter models.MeetingFilter) ([]models.Meeting, int, error)
}

// MeetingService drives the meeting lifecycle: creation by either role,
// status transitions, date selection and availability checks.
type MeetingService struct {
	log      *logrus.Entry
	store    Store
	notifier Notifier
}

func NewMeetingService(log *logrus.Logger, store Store, notifier Notifier) *MeetingService {
	s := MeetingService{
		log:      log.WithField("component", "service"),
		store:    store,
		notifier: notifier,
	}
	return &s
}

func validateTitle(title string) error {
	if l := utf8.RuneCountInString(title); l < models.MinTitleLen || l > models.MaxTitleLen {
		return models.NewValidationError("title must be between %d and %d characters, got %d", models.MinTitleLen, models.MaxTitleLen, l)
	}
	return nil
}

func validateClient(client models.ClientInfo) error {
	if client.Name == "" {
		return models.NewValidationError("client name is required")
	}
	if client.Email == "" {
		return models.NewValidationError("client email is required")
	}
	return nil
}

// CreateByManager books a meeting directly: it starts accepted and may
// attach employees, all of whom must belong to the manager.
func (s *MeetingService) CreateByManager(ctx context.Context, managerID int, req models.CreateMeetingRequest) (models.MeetingView, error) {
	if err := validateTitle(req.Title); err != nil {
		return models.MeetingView{}, err
	}
	if req.Date.IsZero() {
		return models.MeetingView{}, models.NewValidationError("a meeting date is required")
	}
	if err := schedule.ValidateDuration(req.Duration); err != nil {
		return models.MeetingView{}, err
	}
	if err := validateClient(req.Client); err != nil {
		return models.MeetingView{}, err
	}
	manager, err := s.store.GetManager(ctx, managerID)
	if err != nil {
		return models.MeetingView{}, fmt.Errorf("err getting manager (id %d) from store: %w", managerID, err)
	}
	employees, err := s.store.EmployeesBelongingTo(ctx, managerID, req.EmployeeIDs)
	if err != nil {
		return models.MeetingView{}, fmt.Errorf("err checking employees of manager %d: %w", managerID, err)
	}
	if len(employees) != len(uniqueIDs(req.EmployeeIDs)) {
		return models.MeetingView{}, models.NewValidationError(
			"employees %v do not belong to manager %d", missingIDs(req.EmployeeIDs, employees), managerID)
	}

	date := schedule.NormalizeUTC(req.Date)
	meeting := models.Meeting{
		Title:         req.Title,
		Description:   req.Description,
		Date:          &date,
		Duration:      req.Duration,
		Location:      req.Location,
		Status:        models.StatusAccepted,
		CreatedByID:   managerID,
		CreatedByRole: models.RoleManager,
		ManagerID:     managerID,
		ClientName:    req.Client.Name,
		ClientEmail:   req.Client.Email,
		ClientPhone:   req.Client.Phone,
	}
	created, err := s.store.CreateMeeting(ctx, meeting, uniqueIDs(req.EmployeeIDs))
	if err != nil {
		return models.MeetingView{}, fmt.Errorf("err creating meeting: %w", err)
	}

	notified := true
	for _, employee := range employees {
		if nerr := s.notifier.NotifyMeetingCreated(ctx, employee.Email, created.Title, []time.Time{date}, created.Location, manager.Name); nerr != nil {
			s.log.Errorf("err notifying employee %d: %v", employee.ID, nerr)
			notified = false
		}
	}

	view := meetingView(created)
	view.Employees = summaries(employees)
	view.Notified = notified
	return view, nil
}

// CreateByEmployee files a meeting request: pending, unscheduled, owned by
// the employee's manager, with 1..5 proposed dates attached atomically.
func (s *MeetingService) CreateByEmployee(ctx context.Context, employeeID int, req models.RequestMeetingRequest) (models.MeetingView, error) {
	if err := validateTitle(req.Title); err != nil {
		return models.MeetingView{}, err
	}
	if err := schedule.ValidateDuration(req.Duration); err != nil {
		return models.MeetingView{}, err
	}
	if err := validateClient(req.Client); err != nil {
		return models.MeetingView{}, err
	}
	if err := schedule.ValidateProposedDates(req.ProposedDates, time.Now()); err != nil {
		return models.MeetingView{}, err
	}
	employee, err := s.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return models.MeetingView{}, fmt.Errorf("err getting employee (id %d) from store: %w", employeeID, err)
	}
	manager, err := s.store.GetManager(ctx, employee.ManagerID)
	if err != nil {
		return models.MeetingView{}, fmt.Errorf("err getting manager (id %d) from store: %w", employee.ManagerID, err)
	}

	meeting := models.Meeting{
		Title:         req.Title,
		Description:   req.Description,
		Duration:      req.Duration,
		Location:      req.Location,
		Status:        models.StatusPending,
		CreatedByID:   employeeID,
		CreatedByRole: models.RoleEmployee,
		ManagerID:     employee.ManagerID,
		ClientName:    req.Client.Name,
		ClientEmail:   req.Client.Email,
		ClientPhone:   req.Client.Phone,
	}
	created, proposed, err := s.store.CreateMeetingRequest(ctx, meeting, req.ProposedDates)
	if err != nil {
		return models.MeetingView{}, fmt.Errorf("err creating meeting request: %w", err)
	}

	notified := true
	if nerr := s.notifier.NotifyMeetingCreated(ctx, manager.Email, created.Title, datesOf(proposed), created.Location, employee.Name); nerr != nil {
		s.log.Errorf("err notifying manager %d: %v", manager.ID, nerr)
		notified = false
	}

	view := meetingView(created)
	managerSummary := manager.Summary()
	view.Manager = &managerSummary
	view.ProposedDates = dateViews(proposed)
	view.Notified = notified
	return view, nil
}

// UpdateStatus drives the state machine. The owning manager authorizes
// accept/reject/cancel on any meeting in their calendar; an employee may only
// cancel a still-pending request they created themselves.
func (s *MeetingService) UpdateStatus(ctx context.Context, actor models.Actor, meetingID int, req models.UpdateStatusRequest) (models.MeetingView, error) {
	newStatus, err := models.ParseStatus(req.Status)
	if err != nil {
		return models.MeetingView{}, err
	}
	meeting, err := s.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return models.MeetingView{}, fmt.Errorf("err getting meeting (id %d) from store: %w", meetingID, err)
	}
	if err = authorizeTransition(actor, meeting, newStatus); err != nil {
		return models.MeetingView{}, err
	}
	if err = schedule.ValidateTransition(meeting.Status, newStatus); err != nil {
		return models.MeetingView{}, err
	}
	var reason *string
	if newStatus == models.StatusRejected {
		if req.Reason == nil || *req.Reason == "" {
			return models.MeetingView{}, models.NewValidationError("a reason is required to reject a meeting")
		}
		reason = req.Reason
	}
	updated, err := s.store.UpdateMeetingStatus(ctx, meetingID, meeting.Status, newStatus, reason)
	if err != nil {
		return models.MeetingView{}, fmt.Errorf("err updating status of meeting %d: %w", meetingID, err)
	}

	employees, err := s.store.MeetingEmployees(ctx, meetingID)
	if err != nil {
		return models.MeetingView{}, fmt.Errorf("err getting employees of meeting %d: %w", meetingID, err)
	}
	notified := true
	for _, employee := range employees {
		if nerr := s.notifier.NotifyStatusChanged(ctx, employee.Email, updated.Title, updated.Status, updated.RejectionReason); nerr != nil {
			s.log.Errorf("err notifying employee %d: %v", employee.ID, nerr)
			notified = false
		}
	}

	view := meetingView(updated)
	if actor.Role == models.RoleManager {
		view.Employees = summaries(employees)
	}
	view.Notified = notified
	return view, nil
}

func authorizeTransition(actor models.Actor, meeting models.Meeting, newStatus models.Status) error {
	switch actor.Role {
	case models.RoleManager:
		if meeting.ManagerID != actor.ID {
			return models.ErrPermissionDenied
		}
		return nil
	case models.RoleEmployee:
		if newStatus != models.StatusCancelled ||
			meeting.CreatedByID != actor.ID || meeting.CreatedByRole != models.RoleEmployee {
			return models.ErrPermissionDenied
		}
		if meeting.Status != models.StatusPending {
			return &models.TransitionError{From: meeting.Status, To: newStatus}
		}
		return nil
	default:
		return models.ErrPermissionDenied
	}
}

// Cancel is a soft delete: a status transition to cancelled.
func (s *MeetingService) Cancel(ctx context.Context, actor models.Actor, meetingID int) (models.MeetingView, error) {
	return s.UpdateStatus(ctx, actor, meetingID, models.UpdateStatusRequest{Status: string(models.StatusCancelled)})
}

// SelectDate picks one of the proposed dates as the meeting's schedule.
func (s *MeetingService) SelectDate(ctx context.Context, managerID, meetingID int, selected time.Time) (models.MeetingView, error) {
	meeting, err := s.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return models.MeetingView{}, fmt.Errorf("err getting meeting (id %d) from store: %w", meetingID, err)
	}
	if meeting.ManagerID != managerID {
		return models.MeetingView{}, models.ErrPermissionDenied
	}
	manager, err := s.store.GetManager(ctx, managerID)
	if err != nil {
		return models.MeetingView{}, fmt.Errorf("err getting manager (id %d) from store: %w", managerID, err)
	}
	updated, proposed, err := s.store.SelectMeetingDate(ctx, meetingID, selected)
	if err != nil {
		return models.MeetingView{}, fmt.Errorf("err selecting date of meeting %d: %w", meetingID, err)
	}

	employees, err := s.store.MeetingEmployees(ctx, meetingID)
	if err != nil {
		return models.MeetingView{}, fmt.Errorf("err getting employees of meeting %d: %w", meetingID, err)
	}
	notified := true
	for _, employee := range employees {
		if nerr := s.notifier.NotifyMeetingCreated(ctx, employee.Email, updated.Title, []time.Time{schedule.NormalizeUTC(selected)}, updated.Location, manager.Name); nerr != nil {
			s.log.Errorf("err notifying employee %d: %v", employee.ID, nerr)
			notified = false
		}
	}

	view := meetingView(updated)
	view.Employees = summaries(employees)
	view.ProposedDates = dateViews(proposed)
	view.Notified = notified
	return view, nil
}

// CheckAvailability answers for one 30-minute granule only.
func (s *MeetingService) CheckAvailability(ctx context.Context, managerID int, at time.Time) (models.AvailabilityResult, error) {
	if _, err := s.store.GetManager(ctx, managerID); err != nil {
		return models.AvailabilityResult{}, fmt.Errorf("err getting manager (id %d) from store: %w", managerID, err)
	}
	at = schedule.NormalizeUTC(at)
	slotStart := schedule.RoundToSlot(at)
	meetings, err := s.store.ManagerMeetingsInRange(ctx, managerID, slotStart, slotStart.Add(schedule.SlotLength))
	if err != nil {
		return models.AvailabilityResult{}, fmt.Errorf("err getting meetings of manager %d: %w", managerID, err)
	}
	status := models.AvailabilityAvailable
	if !schedule.SlotAvailable(slotStart, meetings) {
		status = models.AvailabilityUnavailable
	}
	return models.AvailabilityResult{
		Date:           at.Format("2006-01-02"),
		Time:           at.Format("15:04"),
		Status:         status,
		AvailableSlots: map[string]string{},
	}, nil
}

// GetMeeting returns one meeting with the role-appropriate detail.
func (s *MeetingService) GetMeeting(ctx context.Context, actor models.Actor, meetingID int) (models.MeetingView, error) {
	meeting, err := s.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return models.MeetingView{}, fmt.Errorf("err getting meeting (id %d) from store: %w", meetingID, err)
	}
	employees, err := s.store.MeetingEmployees(ctx, meetingID)
	if err != nil {
		return models.MeetingView{}, fmt.Errorf("err getting employees of meeting %d: %w", meetingID, err)
	}
	view := meetingView(meeting)
	view.Notified = true
	switch actor.Role {
	case models.RoleManager:
		if meeting.ManagerID != actor.ID {
			return models.MeetingView{}, models.ErrPermissionDenied
		}
		view.Employees = summaries(employees)
		proposed, perr := s.store.ProposedDates(ctx, meetingID)
		if perr != nil {
			return models.MeetingView{}, fmt.Errorf("err getting proposed dates of meeting %d: %w", meetingID, perr)
		}
		view.ProposedDates = dateViews(proposed)
	case models.RoleEmployee:
		invited := false
		for _, e := range employees {
			if e.ID == actor.ID {
				invited = true
			}
		}
		creator := meeting.CreatedByID == actor.ID && meeting.CreatedByRole == models.RoleEmployee
		if !invited && !creator {
			return models.MeetingView{}, models.ErrPermissionDenied
		}
		manager, merr := s.store.GetManager(ctx, meeting.ManagerID)
		if merr != nil {
			return models.MeetingView{}, fmt.Errorf("err getting manager (id %d) from store: %w", meeting.ManagerID, merr)
		}
		managerSummary := manager.Summary()
		view.Manager = &managerSummary
		if creator {
			proposed, perr := s.store.ProposedDates(ctx, meetingID)
			if perr != nil {
				return models.MeetingView{}, fmt.Errorf("err getting proposed dates of meeting %d: %w", meetingID, perr)
			}
			view.ProposedDates = dateViews(proposed)
		}
	default:
		return models.MeetingView{}, models.ErrPermissionDenied
	}
	return view, nil
}

// ListMeetings returns one page of the actor's meetings.
func (s *MeetingService) ListMeetings(ctx context.Context, actor models.Actor, filter models.MeetingFilter) (models.MeetingList, error) {
	if filter.Page < 1 {
		return models.MeetingList{}, models.NewValidationError("page must be >= 1, got %d", filter.Page)
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		return models.MeetingList{}, models.NewValidationError("limit must be between 1 and 100, got %d", filter.Limit)
	}
	meetings, total, err := s.store.ListMeetings(ctx, actor, filter)
	if err != nil {
		return models.MeetingList{}, fmt.Errorf("err listing meetings: %w", err)
	}
	items := make([]models.MeetingView, 0, len(meetings))
	for _, meeting := range meetings {
		view := meetingView(meeting)
		view.Notified = true
		switch actor.Role {
		case models.RoleManager:
			employees, eerr := s.store.MeetingEmployees(ctx, meeting.ID)
			if eerr != nil {
				return models.MeetingList{}, fmt.Errorf("err getting employees of meeting %d: %w", meeting.ID, eerr)
			}
			view.Employees = summaries(employees)
		case models.RoleEmployee:
			manager, merr := s.store.GetManager(ctx, meeting.ManagerID)
			if merr != nil {
				return models.MeetingList{}, fmt.Errorf("err getting manager (id %d) from store: %w", meeting.ManagerID, merr)
			}
			managerSummary := manager.Summary()
			view.Manager = &managerSummary
			if meeting.CreatedByID == actor.ID && meeting.CreatedByRole == models.RoleEmployee {
				proposed, perr := s.store.ProposedDates(ctx, meeting.ID)
				if perr != nil {
					return models.MeetingList{}, fmt.Errorf("err getting proposed dates of meeting %d: %w", meeting.ID, perr)
				}
				view.ProposedDates = dateViews(proposed)
			}
		}
		items = append(items, view)
	}
	return models.MeetingList{
		Items: items,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func meetingView(m models.Meeting) models.MeetingView {
	return models.MeetingView{
		ID:              m.ID,
		Title:           m.Title,
		Description:     m.Description,
		Date:            m.Date,
		Duration:        m.Duration,
		Location:        m.Location,
		Status:          m.Status,
		RejectionReason: m.RejectionReason,
		CreatedByRole:   m.CreatedByRole,
		Client: models.ClientInfo{
			Name:  m.ClientName,
			Email: m.ClientEmail,
			Phone: m.ClientPhone,
		},
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func summaries(employees []models.Employee) []models.EmployeeSummary {
	result := make([]models.EmployeeSummary, 0, len(employees))
	for _, e := range employees {
		result = append(result, e.Summary())
	}
	return result
}

func dateViews(proposed []models.ProposedDate) []models.ProposedDateView {
	result := make([]models.ProposedDateView, 0, len(proposed))
	for _, p := range proposed {
		result = append(result, models.ProposedDateView{Date: p.Date, IsSelected: p.IsSelected})
	}
	return result
}

func datesOf(proposed []models.ProposedDate) []time.Time {
	result := make([]time.Time, 0, len(proposed))
	for _, p := range proposed {
		result = append(result, p.Date)
	}
	return result
}

func uniqueIDs(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	result := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

func missingIDs(requested []int, found []models.Employee) []int {
	known := make(map[int]struct{}, len(found))
	for _, e := range found {
		known[e.ID] = struct{}{}
	}
	missing := make([]int, 0)
	for _, id := range uniqueIDs(requested) {
		if _, ok := known[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
