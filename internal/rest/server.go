package rest

import (
	"context"
	"crypto/rsa"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/meetsync/MeetSync/pkg/models"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type App interface {
	CreateByManager(ctx context.Context, managerID int, req models.CreateMeetingRequest) (models.MeetingView, error)
	CreateByEmployee(ctx context.Context, employeeID int, req models.RequestMeetingRequest) (models.MeetingView, error)
	UpdateStatus(ctx context.Context, actor models.Actor, meetingID int, req models.UpdateStatusRequest) (models.MeetingView, error)
	Cancel(ctx context.Context, actor models.Actor, meetingID int) (models.MeetingView, error)
	SelectDate(ctx context.Context, managerID, meetingID int, selected time.Time) (models.MeetingView, error)
	CheckAvailability(ctx context.Context, managerID int, at time.Time) (models.AvailabilityResult, error)
	GetMeeting(ctx context.Context, actor models.Actor, meetingID int) (models.MeetingView, error)
	ListMeetings(ctx context.Context, actor models.Actor, filter models.MeetingFilter) (models.MeetingList, error)
}

type Server struct {
	log       *logrus.Entry
	app       App
	address   string
	version   string
	publicKey *rsa.PublicKey
	server    *http.Server
}

// NewServer builds the HTTP front. publicKey verifies bearer tokens; a nil
// key switches the auth middleware to trusted identity headers, local
// development only.
func NewServer(log *logrus.Logger, app App, address, version string, publicKey *rsa.PublicKey) *Server {
	s := Server{
		log:       log.WithField("component", "rest"),
		app:       app,
		address:   address,
		version:   version,
		publicKey: publicKey,
	}
	return &s
}

func (s *Server) Run(ctx context.Context) error {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.httpMetrics)
	r.Get("/version", s.versionHandler)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			r.Use(s.auth)
			r.Post("/meetings", s.createMeetingHandler)
			r.Post("/meetings/requests", s.requestMeetingHandler)
			r.Get("/meetings", s.listMeetingsHandler)
			r.Get("/meetings/{id}", s.getMeetingHandler)
			r.Patch("/meetings/{id}/status", s.updateStatusHandler)
			r.Delete("/meetings/{id}", s.cancelMeetingHandler)
			r.Post("/meetings/{id}/date", s.selectDateHandler)
			r.Get("/managers/{id}/availability", s.availabilityHandler)
		})
	})

	s.server = &http.Server{Addr: s.address, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.log.Warnf("err during shutdown: %v", err)
		}
	}()
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
