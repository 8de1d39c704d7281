package models

// Report links a finished treatment to its generated document.
type Report struct {
	ID          string `json:"id,omitempty"`
	Link        string `json:"link,omitempty"`
	PatientName string `json:"patientName,omitempty"`
	ExeDoctor   string `json:"exeDoctor,omitempty"`
	PicoNumber  string `json:"picoNumber,omitempty"`
	PlanID      string `json:"planId,omitempty"`
	PlanName    string `json:"planName,omitempty"`
	TreatID     string `json:"treatId,omitempty"`
}
