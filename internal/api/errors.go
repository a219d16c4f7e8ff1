package api

import (
	"errors"
	"net/http"

	redisclient "github.com/medisched/elastic-clinic-scheduling/internal/redis"
	"github.com/medisched/elastic-clinic-scheduling/internal/scheduling"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

var serviceErrorMappings = []errorMapping{
	{scheduling.ErrPatientNotFound, http.StatusNotFound, "patient_not_found"},
	{scheduling.ErrDoctorNotFound, http.StatusNotFound, "doctor_not_found"},
	{scheduling.ErrSlotNotFound, http.StatusNotFound, "slot_not_found"},
	{scheduling.ErrAvailabilityNotFound, http.StatusNotFound, "availability_not_found"},
	{scheduling.ErrAppointmentNotFound, http.StatusNotFound, "appointment_not_found"},

	{scheduling.ErrMissingBounds, http.StatusBadRequest, "missing_bounds"},
	{scheduling.ErrNotOutward, http.StatusBadRequest, "not_outward"},
	{scheduling.ErrNotInward, http.StatusBadRequest, "not_inward"},
	{scheduling.ErrCapacityTooLow, http.StatusBadRequest, "capacity_too_low"},
	{scheduling.ErrShrinkBelowZero, http.StatusBadRequest, "shrink_below_zero"},
	{scheduling.ErrInvalidShiftRange, http.StatusBadRequest, "invalid_shift_range"},
	{scheduling.ErrNoAppointmentIDs, http.StatusBadRequest, "no_appointment_ids"},
	{scheduling.ErrInvalidSlotDuration, http.StatusBadRequest, "invalid_slot_duration"},
	{scheduling.ErrInvalidSlotCapacity, http.StatusBadRequest, "invalid_slot_capacity"},
	{scheduling.ErrInvalidWindow, http.StatusBadRequest, "invalid_window"},
	{scheduling.ErrEmptyRecurrence, http.StatusBadRequest, "empty_recurrence"},
	{scheduling.ErrInvalidDateRange, http.StatusBadRequest, "invalid_date_range"},
	{scheduling.ErrOutsideRecurrence, http.StatusBadRequest, "outside_recurrence"},
	{scheduling.ErrDayNotAvailable, http.StatusBadRequest, "day_not_available"},
	{scheduling.ErrInvalidRole, http.StatusBadRequest, "invalid_role"},
	{scheduling.ErrNotWave, http.StatusBadRequest, "not_wave"},
	{scheduling.ErrNotStream, http.StatusBadRequest, "not_stream"},

	{scheduling.ErrSlotFull, http.StatusConflict, "slot_full"},
	{scheduling.ErrStreamFull, http.StatusConflict, "stream_full"},
	{scheduling.ErrSlotDateMismatch, http.StatusConflict, "slot_date_mismatch"},
	{scheduling.ErrStreamWindowExhausted, http.StatusConflict, "stream_window_exhausted"},
	{scheduling.ErrElasticSessionExists, http.StatusConflict, "elastic_session_exists"},
	{scheduling.ErrPastSessionDate, http.StatusConflict, "past_session_date"},
	{scheduling.ErrAlreadyCancelled, http.StatusConflict, "already_cancelled"},
	{scheduling.ErrPastAppointment, http.StatusConflict, "past_appointment"},
	{scheduling.ErrResourceBusy, http.StatusConflict, "resource_busy"},

	{scheduling.ErrNotOwner, http.StatusForbidden, "not_owner"},
}

// handleServiceError maps the scheduling package's sentinel errors onto
// HTTP statuses and stable machine codes.
func handleServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		writeError(w, http.StatusConflict, "resource_busy", "resource is currently being modified, please retry")
		return
	}
	for _, m := range serviceErrorMappings {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.code, err.Error())
			return
		}
	}
	writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
}
