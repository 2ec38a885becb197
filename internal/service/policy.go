package service

import (
	"github.com/fisiohome/fisiohome-api/internal/models"
)

// Actions recognised by the authorization policy.
const (
	ActionAppointmentView         = "appointment:view"
	ActionAppointmentUpdateStatus = "appointment:update_status"
	ActionAvailabilityManage      = "availability:manage"
	ActionTherapistProfileManage  = "therapist_profile:manage"
	ActionExportRun               = "export:run"
	ActionAuditView               = "audit:view"
)

// IsAuthorized decides whether an actor may perform an action on a
// resource. It is a pure function with no transport or storage
// dependencies so it can be exercised directly from the scheduling core.
//
// Resources: appointment actions take *models.Appointment; availability
// and profile management take the target therapist id as a string;
// export and audit take nil.
func IsAuthorized(actor models.Actor, action string, resource interface{}) bool {
	if actor.UserID == "" {
		return false
	}
	if actor.IsAdmin() {
		return true
	}

	switch action {
	case ActionAppointmentView, ActionAppointmentUpdateStatus:
		appointment, ok := resource.(*models.Appointment)
		if !ok || appointment == nil {
			return false
		}
		switch actor.Role {
		case models.RolePatient:
			return appointment.PatientID == actor.UserID
		case models.RoleTherapist:
			return appointment.TherapistID == actor.UserID
		}
		return false

	case ActionAvailabilityManage, ActionTherapistProfileManage:
		therapistID, ok := resource.(string)
		if !ok {
			return false
		}
		return actor.Role == models.RoleTherapist && therapistID == actor.UserID

	case ActionExportRun, ActionAuditView:
		// Admin only; the admin short-circuit above already allowed them.
		return false
	}

	return false
}
