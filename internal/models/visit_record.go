package models

// VisitRecord is a single treatment session of a patient.
type VisitRecord struct {
	ID               int64  `json:"id,omitempty"`
	PatientID        int64  `json:"patientId,omitempty"`
	PatientName      string `json:"patientName,omitempty"`
	DevicePicoID     int64  `json:"devicePicoId,omitempty"`
	TreatDepartID    int64  `json:"treatDepartId,omitempty"`
	TreatDepart      string `json:"treatDepart,omitempty"`
	TreatProjectID   string `json:"treatProjectId,omitempty"`
	TreatProjectName string `json:"treatProjectName,omitempty"`
	VideoPlanID      int64  `json:"videoPlanId,omitempty"`
	PlanName         string `json:"planName,omitempty"`
	OrderTreatNumber string `json:"orderTreatNumber,omitempty"`
	Status           int    `json:"status"`
	Diagnostic       string `json:"diagnostic,omitempty"`
	DiagnosticDoctor string `json:"diagnosticDoctor,omitempty"`
	ExecuteDoctor    string `json:"executeDoctor,omitempty"`
	Comment          string `json:"comment,omitempty"`
	DelFlag          int    `json:"delFlag"`
	CreatedUserID    int64  `json:"createdUserId,omitempty"`
	CreatedUserName  string `json:"createdUserName,omitempty"`
	CreatedTime      string `json:"createdTime,omitempty"`
	UpdatedTime      string `json:"updatedTime,omitempty"`
}

// Visit record status values.
const (
	VisitPending    = 0
	VisitInProgress = 1
	VisitDone       = 2
)
