package service

import (
	"fmt"
	"log"
	"time"

	"consultorio/internal/auth"
	"consultorio/internal/entities"
)

// Notifier dispatches patient/doctor messages after a state transition. The
// transition never waits on it and never fails because of it.
type Notifier interface {
	BookingConfirmed(slot entities.Slot)
	SlotMoved(slot entities.Slot)
}

// SenderService composes and dispatches the booking notifications over
// WhatsApp and email. Every send runs in its own goroutine so one channel's
// failure cannot block or suppress the other.
type SenderService struct {
	clinicName  string
	doctorPhone string
	siteBaseURL string
	location    *time.Location
	tokens      *auth.RescheduleTokens
}

func NewSenderService(clinicName, doctorPhone, siteBaseURL, timezone string, tokens *auth.RescheduleTokens) *SenderService {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		log.Printf("WARNING: unknown timezone %q, falling back to UTC: %v", timezone, err)
		loc = time.UTC
	}
	return &SenderService{
		clinicName:  clinicName,
		doctorPhone: doctorPhone,
		siteBaseURL: siteBaseURL,
		location:    loc,
		tokens:      tokens,
	}
}

func (s *SenderService) BookingConfirmed(slot entities.Slot) {
	when := slot.Start.In(s.location).Format("02 Jan 2006 15:04 MST")

	rescheduleLink := ""
	if token, err := s.tokens.Issue(slot.ID); err == nil {
		rescheduleLink = fmt.Sprintf("%s/reschedule?token=%s", s.siteBaseURL, token)
	} else {
		log.Printf("ALERT: could not issue reschedule token for slot %s: %v", slot.ID, err)
	}

	subject := fmt.Sprintf("Your %s appointment is confirmed - %s", s.clinicName, when)
	plainBody := fmt.Sprintf(
		"Hello %s,\n\nYour consultation at %s is confirmed.\n\n"+
			"Date: %s\n\n"+
			"If you need to move your appointment, use this link (valid once):\n%s\n\n"+
			"Thank you for choosing %s.",
		slot.Metadata.Name, s.clinicName, when, rescheduleLink, s.clinicName,
	)
	htmlBody := fmt.Sprintf(
		"<p>Hello %s,</p><p>Your consultation at %s is confirmed for <strong>%s</strong>.</p>"+
			"<p>If you need to move your appointment, use <a href=%q>this link</a> (valid once).</p>",
		slot.Metadata.Name, s.clinicName, when, rescheduleLink,
	)

	patientMsg := fmt.Sprintf("%s: your appointment is confirmed for %s. Details and a reschedule link were sent to your email.",
		s.clinicName, slot.Start.In(s.location).Format("02/01 15:04"))
	doctorMsg := fmt.Sprintf("New confirmed appointment: %s on %s.\nSymptoms: %s",
		slot.Metadata.Name, when, slot.Metadata.Symptoms)

	go func() {
		if err := SendEmailWithSendGrid(slot.Metadata.Email, slot.Metadata.Name, subject, plainBody, htmlBody); err != nil {
			log.Printf("ALERT (async): confirmation email for slot %s failed: %v", slot.ID, err)
		}
	}()
	go func() {
		if err := SendWhatsApp(slot.Metadata.Phone, patientMsg); err != nil {
			log.Printf("ALERT (async): confirmation message for slot %s failed: %v", slot.ID, err)
		}
	}()
	if s.doctorPhone != "" {
		go func() {
			if err := SendWhatsApp(s.doctorPhone, doctorMsg); err != nil {
				log.Printf("ALERT (async): doctor notice for slot %s failed: %v", slot.ID, err)
			}
		}()
	}
}

// SlotMoved tells the patient their appointment was moved. The doctor moved
// it in the calendar, so only the patient is messaged.
func (s *SenderService) SlotMoved(slot entities.Slot) {
	when := slot.Start.In(s.location).Format("02 Jan 2006 15:04 MST")

	subject := fmt.Sprintf("Your %s appointment was moved - new time %s", s.clinicName, when)
	plainBody := fmt.Sprintf(
		"Hello %s,\n\nYour consultation at %s has been moved.\n\nNew date: %s\n\n"+
			"If the new time does not work for you, please contact the clinic.",
		slot.Metadata.Name, s.clinicName, when,
	)
	htmlBody := fmt.Sprintf(
		"<p>Hello %s,</p><p>Your consultation at %s has been moved to <strong>%s</strong>.</p>",
		slot.Metadata.Name, s.clinicName, when,
	)
	patientMsg := fmt.Sprintf("%s: your appointment was moved to %s. Details in your email.",
		s.clinicName, slot.Start.In(s.location).Format("02/01 15:04"))

	go func() {
		if err := SendEmailWithSendGrid(slot.Metadata.Email, slot.Metadata.Name, subject, plainBody, htmlBody); err != nil {
			log.Printf("ALERT (async): move email for slot %s failed: %v", slot.ID, err)
		}
	}()
	go func() {
		if err := SendWhatsApp(slot.Metadata.Phone, patientMsg); err != nil {
			log.Printf("ALERT (async): move message for slot %s failed: %v", slot.ID, err)
		}
	}()
}
