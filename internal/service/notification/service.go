// Package notification turns domain events into messages for patients.
package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/dentalclinic-api/internal/email"
	"github.com/jwalitptl/dentalclinic-api/internal/model"
	"github.com/jwalitptl/dentalclinic-api/pkg/listquery"
)

// Channels the service consumes.
var Channels = []string{model.EventAppointmentCreated, model.EventAppointmentUpdated}

type NoticeReader interface {
	Notice(ctx context.Context, id int64) (*model.AppointmentNotice, error)
}

type Service struct {
	appointments NoticeReader
	sender       email.Sender
	logger       zerolog.Logger
}

func NewService(appointments NoticeReader, sender email.Sender, logger zerolog.Logger) *Service {
	return &Service{appointments: appointments, sender: sender, logger: logger}
}

// HandleEvent sends an appointment confirmation when an appointment is
// created or rescheduled. Patients without an email are skipped.
func (s *Service) HandleEvent(ctx context.Context, channel string, payload []byte) error {
	var event model.EntityEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("decode %s event: %w", channel, err)
	}

	var subject string
	switch channel {
	case model.EventAppointmentCreated:
		subject = "Cita registrada"
	case model.EventAppointmentUpdated:
		subject = "Cita actualizada"
	default:
		return nil
	}

	notice, err := s.appointments.Notice(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("load appointment %d: %w", event.ID, err)
	}
	if notice.PatientEmail == nil || *notice.PatientEmail == "" {
		s.logger.Debug().Int64("appointment_id", event.ID).Msg("patient has no email, skipping notice")
		return nil
	}

	msg := email.Message{
		To:      *notice.PatientEmail,
		Subject: subject,
		Text:    body(notice),
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		return err
	}

	s.logger.Info().
		Int64("appointment_id", event.ID).
		Str("event", channel).
		Msg("appointment notice sent")
	return nil
}

func body(n *model.AppointmentNotice) string {
	return fmt.Sprintf(
		"Hola %s,\n\nSu cita con %s es el %s a las %s.\n\nClinica Dental",
		n.PatientName, n.DoctorName, n.Date.Format(listquery.DateLayout), n.StartTime,
	)
}
