package models

import (
	"strings"
	"time"
)

// Status is the meeting lifecycle state. Every state except pending is
// terminal; the allowed transitions live in pkg/schedule.
type Status string

const (
	StatusPending   Status = `pending`
	StatusAccepted  Status = `accepted`
	StatusRejected  Status = `rejected`
	StatusCancelled Status = `cancelled`
)

// ParseStatus canonicalizes case-insensitive input to the lowercase enum.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusAccepted, StatusRejected, StatusCancelled:
		return st, nil
	default:
		return "", NewValidationError("unknown meeting status %q", s)
	}
}

const (
	// MinDuration and MaxDuration bound a meeting's length in minutes.
	MinDuration = 1
	MaxDuration = 480

	// MinTitleLen and MaxTitleLen bound a meeting's title in characters.
	MinTitleLen = 3
	MaxTitleLen = 100

	// MaxProposedDates caps how many candidate dates an employee may submit.
	MaxProposedDates = 5
)

type Meeting struct {
	ID              int        `json:"id" db:"id"`
	Title           string     `json:"title" db:"title"`
	Description     *string    `json:"description" db:"description"`
	Date            *time.Time `json:"date" db:"date"`
	Duration        int        `json:"duration" db:"duration"`
	Location        *string    `json:"location" db:"location"`
	Status          Status     `json:"status" db:"status"`
	RejectionReason *string    `json:"rejectionReason" db:"rejection_reason"`
	CreatedByID     int        `json:"createdByID" db:"created_by_id"`
	CreatedByRole   Role       `json:"createdByRole" db:"created_by_role"`
	ManagerID       int        `json:"managerID" db:"manager_id"`
	ClientName      string     `json:"clientName" db:"client_name"`
	ClientEmail     string     `json:"clientEmail" db:"client_email"`
	ClientPhone     *string    `json:"clientPhone" db:"client_phone"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time  `json:"updatedAt" db:"updated_at"`
}

type ProposedDate struct {
	ID             int       `json:"id" db:"id"`
	MeetingID      int       `json:"meetingID" db:"meeting_id"`
	Date           time.Time `json:"date" db:"date"`
	Status         Status    `json:"status" db:"status"`
	ProposedByID   int       `json:"proposedByID" db:"proposed_by_id"`
	ProposedByRole Role      `json:"proposedByRole" db:"proposed_by_role"`
	IsSelected     bool      `json:"isSelected" db:"is_selected"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

// ClientInfo describes the external client attached to a meeting. Clients are
// not system users.
type ClientInfo struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone,omitempty"`
}

type CreateMeetingRequest struct {
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Date        time.Time  `json:"date"`
	Duration    int        `json:"duration"`
	Location    *string    `json:"location"`
	Client      ClientInfo `json:"client"`
	EmployeeIDs []int      `json:"employeeIDs"`
}

type RequestMeetingRequest struct {
	Title         string      `json:"title"`
	Description   *string     `json:"description"`
	Duration      int         `json:"duration"`
	Location      *string     `json:"location"`
	Client        ClientInfo  `json:"client"`
	ProposedDates []time.Time `json:"proposedDates"`
}

type UpdateStatusRequest struct {
	Status string  `json:"status"`
	Reason *string `json:"reason,omitempty"`
}

type SelectDateRequest struct {
	Date time.Time `json:"date"`
}

type MeetingFilter struct {
	Status   *Status
	DateFrom *time.Time
	DateTo   *time.Time
	Search   string
	Page     int
	Limit    int
}

type EmployeeSummary struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Position   *string `json:"position,omitempty"`
	Department *string `json:"department,omitempty"`
}

type ManagerSummary struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	CompanyName string `json:"companyName"`
}

type ProposedDateView struct {
	Date       time.Time `json:"date"`
	IsSelected bool      `json:"isSelected"`
}

// MeetingView is the public shape of a meeting. Manager callers get the
// employee list, employee callers get the manager summary, and an employee
// looking at their own request also gets the proposed dates.
type MeetingView struct {
	ID              int                `json:"id"`
	Title           string             `json:"title"`
	Description     *string            `json:"description"`
	Date            *time.Time         `json:"date"`
	Duration        int                `json:"duration"`
	Location        *string            `json:"location"`
	Status          Status             `json:"status"`
	RejectionReason *string            `json:"rejectionReason"`
	CreatedByRole   Role               `json:"createdByRole"`
	Client          ClientInfo         `json:"client"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
	Employees       []EmployeeSummary  `json:"employees,omitempty"`
	Manager         *ManagerSummary    `json:"manager,omitempty"`
	ProposedDates   []ProposedDateView `json:"proposedDates,omitempty"`
	Notified        bool               `json:"notified"`
}

type MeetingList struct {
	Items []MeetingView `json:"items"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

type AvailabilityResult struct {
	Date   string `json:"date"`
	Time   string `json:"time"`
	Status string `json:"status"`
	// AvailableSlots is reserved for a future free/busy map and is always
	// empty in the current design.
	AvailableSlots map[string]string `json:"availableSlots"`
}

const (
	AvailabilityAvailable   = `available`
	AvailabilityUnavailable = `unavailable`
)
