package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/medisched/elastic-clinic-scheduling/internal/scheduling"
)

const dateLayout = "2006-01-02"

type CreateAvailabilityRequest struct {
	DoctorID        string  `json:"doctor_id"`
	Discipline      string  `json:"discipline"`
	Session         *string `json:"session,omitempty"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	SlotDuration    int     `json:"slot_duration,omitempty"`
	CapacityPerSlot int     `json:"capacity_per_slot,omitempty"`
	TotalCapacity   int     `json:"total_capacity,omitempty"`
	RecurrenceDays  string  `json:"recurrence_days"`
	RecurrenceStart string  `json:"recurrence_start"`
	RecurrenceEnd   string  `json:"recurrence_end"`
}

type AvailabilityResponse struct {
	ID              uuid.UUID `json:"id"`
	DoctorID        uuid.UUID `json:"doctor_id"`
	Discipline      string    `json:"discipline"`
	Session         *string   `json:"session,omitempty"`
	StartTime       string    `json:"start_time"`
	EndTime         string    `json:"end_time"`
	SlotDuration    int       `json:"slot_duration,omitempty"`
	CapacityPerSlot int       `json:"capacity_per_slot,omitempty"`
	TotalCapacity   int       `json:"total_capacity,omitempty"`
	RecurrenceDays  string    `json:"recurrence_days"`
	RecurrenceStart string    `json:"recurrence_start"`
	RecurrenceEnd   string    `json:"recurrence_end"`
	SlotsCreated    int       `json:"slots_created"`
}

type DaySlotResponse struct {
	SlotID         *uuid.UUID `json:"slot_id,omitempty"`
	StartTime      string     `json:"start_time"`
	EndTime        string     `json:"end_time"`
	Capacity       int        `json:"capacity"`
	BookedCount    int        `json:"booked_count"`
	AvailableSeats int        `json:"available_seats"`
	IsFull         bool       `json:"is_full"`
}

type DaySlotsResponse struct {
	DoctorID   uuid.UUID         `json:"doctor_id"`
	Date       string            `json:"date"`
	Discipline string            `json:"discipline"`
	Slots      []DaySlotResponse `json:"slots"`
}

type BookWaveRequest struct {
	PatientID string `json:"patient_id"`
	SlotID    string `json:"slot_id"`
	Date      string `json:"date"`
}

type BookStreamRequest struct {
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`
	Date      string `json:"date"`
}

type AppointmentResponse struct {
	ID               uuid.UUID  `json:"id"`
	PatientID        uuid.UUID  `json:"patient_id"`
	DoctorID         uuid.UUID  `json:"doctor_id"`
	AvailabilityID   uuid.UUID  `json:"availability_id"`
	Date             string     `json:"date"`
	StartTime        string     `json:"start_time"`
	EndTime          string     `json:"end_time"`
	Status           string     `json:"status"`
	CancelledBy      *string    `json:"cancelled_by,omitempty"`
	CancellationDate *time.Time `json:"cancellation_date,omitempty"`
	PatientName      string     `json:"patient_name,omitempty"`
	DoctorName       string     `json:"doctor_name,omitempty"`
}

type ShiftAllRequest struct {
	Date         string `json:"date"`
	ShiftMinutes int    `json:"shift_minutes"`
}

type ShiftSelectedRequest struct {
	AppointmentIDs []string `json:"appointment_ids"`
	ShiftMinutes   int      `json:"shift_minutes"`
}

type ShiftedAppointmentResponse struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	PatientName   string    `json:"patient_name,omitempty"`
	Date          string    `json:"date"`
	OldStart      string    `json:"old_start"`
	OldEnd        string    `json:"old_end"`
	NewStart      string    `json:"new_start"`
	NewEnd        string    `json:"new_end"`
}

type ShiftFailureResponse struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	Reason        string    `json:"reason"`
}

type RescheduleResponse struct {
	DoctorID         uuid.UUID                    `json:"doctor_id"`
	TotalRequested   int                          `json:"total_requested"`
	TotalRescheduled int                          `json:"total_rescheduled"`
	TotalFailed      int                          `json:"total_failed"`
	Rescheduled      []ShiftedAppointmentResponse `json:"rescheduled"`
	Failed           []ShiftFailureResponse       `json:"failed,omitempty"`
}

type ElasticSessionRequest struct {
	AvailabilityID   string  `json:"availability_id"`
	SessionDate      string  `json:"session_date"`
	NewStartTime     *string `json:"new_start_time,omitempty"`
	NewEndTime       *string `json:"new_end_time,omitempty"`
	NewTotalCapacity *int    `json:"new_total_capacity,omitempty"`
}

type ExpandResponse struct {
	DoctorID         uuid.UUID `json:"doctor_id"`
	AvailabilityID   uuid.UUID `json:"availability_id"`
	SessionDate      string    `json:"session_date"`
	OriginalStart    string    `json:"original_start"`
	OriginalEnd      string    `json:"original_end"`
	NewStart         string    `json:"new_start"`
	NewEnd           string    `json:"new_end"`
	SlotsAdded       int       `json:"slots_added,omitempty"`
	OriginalCapacity int       `json:"original_capacity,omitempty"`
	NewCapacity      int       `json:"new_capacity,omitempty"`
	AvailableSeats   int       `json:"available_seats,omitempty"`
}

type RelocatedAppointmentResponse struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	PatientName   string    `json:"patient_name,omitempty"`
	OldDate       string    `json:"old_date"`
	OldStart      string    `json:"old_start"`
	OldEnd        string    `json:"old_end"`
	NewDate       string    `json:"new_date"`
	NewStart      string    `json:"new_start"`
	NewEnd        string    `json:"new_end"`
	Tier          string    `json:"tier"`
}

type CancelledAppointmentResponse struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	PatientName   string    `json:"patient_name,omitempty"`
	Date          string    `json:"date"`
	StartTime     string    `json:"start_time"`
	EndTime       string    `json:"end_time"`
	Reason        string    `json:"reason"`
}

type ShrinkResponse struct {
	DoctorID           uuid.UUID                      `json:"doctor_id"`
	AvailabilityID     uuid.UUID                      `json:"availability_id"`
	Discipline         string                         `json:"discipline"`
	SessionDate        string                         `json:"session_date"`
	OriginalStart      string                         `json:"original_start"`
	OriginalEnd        string                         `json:"original_end"`
	NewStart           string                         `json:"new_start"`
	NewEnd             string                         `json:"new_end"`
	OriginalCapacity   int                            `json:"original_capacity,omitempty"`
	NewCapacity        int                            `json:"new_capacity,omitempty"`
	SlotsRemoved       int                            `json:"slots_removed,omitempty"`
	TotalAffected      int                            `json:"total_affected"`
	RelocatedNewWindow int                            `json:"relocated_new_window"`
	RelocatedSameDay   int                            `json:"relocated_same_day"`
	RelocatedNextWeek  int                            `json:"relocated_next_week"`
	Cancelled          int                            `json:"cancelled"`
	Rescheduled        []RelocatedAppointmentResponse `json:"rescheduled_appointments"`
	CancelledDetails   []CancelledAppointmentResponse `json:"cancelled_appointments"`
}

func fmtDate(t time.Time) string {
	return t.Format(dateLayout)
}

func toAppointmentResponse(a *scheduling.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:               a.ID,
		PatientID:        a.PatientID,
		DoctorID:         a.DoctorID,
		AvailabilityID:   a.AvailabilityID,
		Date:             fmtDate(a.Date),
		StartTime:        a.StartTime.String(),
		EndTime:          a.EndTime.String(),
		Status:           string(a.Status),
		CancellationDate: a.CancellationDate,
	}
	if a.CancelledBy != nil {
		role := string(*a.CancelledBy)
		resp.CancelledBy = &role
	}
	return resp
}

func toRescheduleResponse(r *scheduling.RescheduleResult) RescheduleResponse {
	resp := RescheduleResponse{
		DoctorID:         r.DoctorID,
		TotalRequested:   r.TotalRequested,
		TotalRescheduled: r.TotalRescheduled,
		TotalFailed:      r.TotalFailed,
		Rescheduled:      make([]ShiftedAppointmentResponse, 0, len(r.Rescheduled)),
	}
	for _, m := range r.Rescheduled {
		resp.Rescheduled = append(resp.Rescheduled, ShiftedAppointmentResponse{
			AppointmentID: m.AppointmentID,
			PatientName:   m.PatientName,
			Date:          fmtDate(m.Date),
			OldStart:      m.OldStart.String(),
			OldEnd:        m.OldEnd.String(),
			NewStart:      m.NewStart.String(),
			NewEnd:        m.NewEnd.String(),
		})
	}
	for _, f := range r.Failed {
		resp.Failed = append(resp.Failed, ShiftFailureResponse{
			AppointmentID: f.AppointmentID,
			Reason:        f.Reason,
		})
	}
	return resp
}

func toShrinkResponse(r *scheduling.ShrinkResult) ShrinkResponse {
	resp := ShrinkResponse{
		DoctorID:           r.DoctorID,
		AvailabilityID:     r.AvailabilityID,
		Discipline:         string(r.Discipline),
		SessionDate:        fmtDate(r.SessionDate),
		OriginalStart:      r.OriginalStart.String(),
		OriginalEnd:        r.OriginalEnd.String(),
		NewStart:           r.NewStart.String(),
		NewEnd:             r.NewEnd.String(),
		OriginalCapacity:   r.OriginalCapacity,
		NewCapacity:        r.NewCapacity,
		SlotsRemoved:       r.SlotsRemoved,
		TotalAffected:      r.TotalAffected,
		RelocatedNewWindow: r.RelocatedNewWindow,
		RelocatedSameDay:   r.RelocatedSameDay,
		RelocatedNextWeek:  r.RelocatedNextWeek,
		Cancelled:          r.Cancelled,
		Rescheduled:        make([]RelocatedAppointmentResponse, 0, len(r.RescheduledAppointments)),
		CancelledDetails:   make([]CancelledAppointmentResponse, 0, len(r.CancelledAppointments)),
	}
	for _, m := range r.RescheduledAppointments {
		resp.Rescheduled = append(resp.Rescheduled, RelocatedAppointmentResponse{
			AppointmentID: m.AppointmentID,
			PatientName:   m.PatientName,
			OldDate:       fmtDate(m.OldDate),
			OldStart:      m.OldStart.String(),
			OldEnd:        m.OldEnd.String(),
			NewDate:       fmtDate(m.NewDate),
			NewStart:      m.NewStart.String(),
			NewEnd:        m.NewEnd.String(),
			Tier:          m.Tier.String(),
		})
	}
	for _, c := range r.CancelledAppointments {
		resp.CancelledDetails = append(resp.CancelledDetails, CancelledAppointmentResponse{
			AppointmentID: c.AppointmentID,
			PatientName:   c.PatientName,
			Date:          fmtDate(c.Date),
			StartTime:     c.StartTime.String(),
			EndTime:       c.EndTime.String(),
			Reason:        c.Reason,
		})
	}
	return resp
}
