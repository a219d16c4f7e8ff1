package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medisched/elastic-clinic-scheduling/internal/scheduling"
)

func createAvailabilityHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAvailabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		start, err := scheduling.ParseTimeOfDay(req.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_time", err.Error())
			return
		}
		end, err := scheduling.ParseTimeOfDay(req.EndTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end_time", err.Error())
			return
		}
		days, err := scheduling.ParseWeekdaySet(req.RecurrenceDays)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_recurrence_days", err.Error())
			return
		}
		recStart, err := time.Parse(dateLayout, req.RecurrenceStart)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_recurrence_start", "recurrence_start must be YYYY-MM-DD")
			return
		}
		recEnd, err := time.Parse(dateLayout, req.RecurrenceEnd)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_recurrence_end", "recurrence_end must be YYYY-MM-DD")
			return
		}

		avail, slotsCreated, err := svc.CreateAvailability(r.Context(), scheduling.CreateAvailabilityInput{
			DoctorID:        doctorID,
			Discipline:      scheduling.Discipline(req.Discipline),
			Session:         req.Session,
			StartTime:       start,
			EndTime:         end,
			SlotDuration:    req.SlotDuration,
			CapacityPerSlot: req.CapacityPerSlot,
			TotalCapacity:   req.TotalCapacity,
			RecurrenceDays:  days,
			RecurrenceStart: recStart,
			RecurrenceEnd:   recEnd,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, "availability created", AvailabilityResponse{
			ID:              avail.ID,
			DoctorID:        avail.DoctorID,
			Discipline:      string(avail.Discipline),
			Session:         avail.Session,
			StartTime:       avail.StartTime.String(),
			EndTime:         avail.EndTime.String(),
			SlotDuration:    avail.SlotDuration,
			CapacityPerSlot: avail.CapacityPerSlot,
			TotalCapacity:   avail.TotalCapacity,
			RecurrenceDays:  avail.RecurrenceDays.String(),
			RecurrenceStart: fmtDate(avail.RecurrenceStart),
			RecurrenceEnd:   fmtDate(avail.RecurrenceEnd),
			SlotsCreated:    slotsCreated,
		})
	}
}

func listDaySlotsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}
		date, err := time.Parse(dateLayout, r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date query parameter must be YYYY-MM-DD")
			return
		}

		discipline, slots, err := svc.ListDaySlots(r.Context(), doctorID, date)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := DaySlotsResponse{
			DoctorID:   doctorID,
			Date:       fmtDate(date),
			Discipline: string(discipline),
			Slots:      make([]DaySlotResponse, 0, len(slots)),
		}
		for _, s := range slots {
			resp.Slots = append(resp.Slots, DaySlotResponse{
				SlotID:         s.SlotID,
				StartTime:      s.StartTime.String(),
				EndTime:        s.EndTime.String(),
				Capacity:       s.Capacity,
				BookedCount:    s.BookedCount,
				AvailableSeats: s.AvailableSeats,
				IsFull:         s.IsFull,
			})
		}
		writeJSON(w, http.StatusOK, "slots retrieved", resp)
	}
}

func bookWaveHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookWaveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		slotID, err := uuid.Parse(req.SlotID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "slot_id must be a valid UUID")
			return
		}
		date, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		appt, err := svc.BookWaveSlot(r.Context(), patientID, slotID, date)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, "appointment booked", toAppointmentResponse(appt))
	}
}

func bookStreamHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookStreamRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		date, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		appt, err := svc.BookStreamSlot(r.Context(), patientID, doctorID, date)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, "appointment booked", toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		detail, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := toAppointmentResponse(&detail.Appointment)
		resp.PatientName = detail.PatientName
		resp.DoctorName = detail.DoctorName
		writeJSON(w, http.StatusOK, "appointment retrieved", resp)
	}
}

func cancelAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		identity, ok := IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_identity", "authenticated caller required")
			return
		}

		appt, err := svc.CancelAppointment(r.Context(), id, identity.UserID, identity.Role)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, "appointment cancelled", toAppointmentResponse(appt))
	}
}

func shiftAllHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		var req ShiftAllRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		date, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		result, err := svc.RescheduleAllFutureAppointments(r.Context(), doctorID, date, req.ShiftMinutes)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, "appointments rescheduled", toRescheduleResponse(result))
	}
}

func shiftSelectedHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		var req ShiftSelectedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		ids := make([]uuid.UUID, 0, len(req.AppointmentIDs))
		for _, raw := range req.AppointmentIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_ids must be valid UUIDs")
				return
			}
			ids = append(ids, id)
		}

		result, err := svc.RescheduleSelectedAppointments(r.Context(), doctorID, ids, req.ShiftMinutes)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, "appointments rescheduled", toRescheduleResponse(result))
	}
}
