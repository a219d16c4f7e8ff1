package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/medisched/elastic-clinic-scheduling/internal/scheduling"

	"github.com/google/uuid"
)

// parseElasticRequest decodes the shared resize payload. Absent bounds
// stay nil so the service can default them to the original window.
func parseElasticRequest(w http.ResponseWriter, r *http.Request) (availabilityID uuid.UUID, sessionDate time.Time, newStart, newEnd *scheduling.TimeOfDay, newCapacity *int, ok bool) {
	var req ElasticSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	availabilityID, err := uuid.Parse(req.AvailabilityID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_availability_id", "availability_id must be a valid UUID")
		return
	}
	sessionDate, err = time.Parse(dateLayout, req.SessionDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_session_date", "session_date must be YYYY-MM-DD")
		return
	}

	if req.NewStartTime != nil {
		t, err := scheduling.ParseTimeOfDay(*req.NewStartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_new_start_time", err.Error())
			return
		}
		newStart = &t
	}
	if req.NewEndTime != nil {
		t, err := scheduling.ParseTimeOfDay(*req.NewEndTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_new_end_time", err.Error())
			return
		}
		newEnd = &t
	}

	return availabilityID, sessionDate, newStart, newEnd, req.NewTotalCapacity, true
}

func toExpandResponse(r *scheduling.ExpandResult) ExpandResponse {
	return ExpandResponse{
		DoctorID:         r.DoctorID,
		AvailabilityID:   r.AvailabilityID,
		SessionDate:      fmtDate(r.SessionDate),
		OriginalStart:    r.OriginalStart.String(),
		OriginalEnd:      r.OriginalEnd.String(),
		NewStart:         r.NewStart.String(),
		NewEnd:           r.NewEnd.String(),
		SlotsAdded:       r.SlotsAdded,
		OriginalCapacity: r.OriginalCapacity,
		NewCapacity:      r.NewCapacity,
		AvailableSeats:   r.AvailableSeats,
	}
}

func expandWaveHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		availabilityID, sessionDate, newStart, newEnd, _, ok := parseElasticRequest(w, r)
		if !ok {
			return
		}
		result, err := svc.ExpandWaveSession(r.Context(), scheduling.ExpandInput{
			AvailabilityID: availabilityID,
			SessionDate:    sessionDate,
			NewStartTime:   newStart,
			NewEndTime:     newEnd,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, "session expanded", toExpandResponse(result))
	}
}

func expandStreamHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		availabilityID, sessionDate, newStart, newEnd, newCapacity, ok := parseElasticRequest(w, r)
		if !ok {
			return
		}
		result, err := svc.ExpandStreamSession(r.Context(), scheduling.ExpandInput{
			AvailabilityID:   availabilityID,
			SessionDate:      sessionDate,
			NewStartTime:     newStart,
			NewEndTime:       newEnd,
			NewTotalCapacity: newCapacity,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, "session expanded", toExpandResponse(result))
	}
}

func shrinkWaveHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		availabilityID, sessionDate, newStart, newEnd, _, ok := parseElasticRequest(w, r)
		if !ok {
			return
		}
		result, err := svc.ShrinkWaveSession(r.Context(), scheduling.ShrinkInput{
			AvailabilityID: availabilityID,
			SessionDate:    sessionDate,
			NewStartTime:   newStart,
			NewEndTime:     newEnd,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, "session shrunk", toShrinkResponse(result))
	}
}

func shrinkStreamHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		availabilityID, sessionDate, newStart, newEnd, _, ok := parseElasticRequest(w, r)
		if !ok {
			return
		}
		result, err := svc.ShrinkStreamSession(r.Context(), scheduling.ShrinkInput{
			AvailabilityID: availabilityID,
			SessionDate:    sessionDate,
			NewStartTime:   newStart,
			NewEndTime:     newEnd,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, "session shrunk", toShrinkResponse(result))
	}
}
