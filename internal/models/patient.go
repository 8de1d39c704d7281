package models

type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderUnknown Gender = "unknown"
)

// Patient is a person receiving therapy.
type Patient struct {
	ID             int64    `json:"id,omitempty"`
	Name           string   `json:"name,omitempty"`
	Age            int      `json:"age,omitempty"`
	Gender         Gender   `json:"gender,omitempty"`
	Phone          string   `json:"phone,omitempty"`
	Email          string   `json:"email,omitempty"`
	Address        string   `json:"address,omitempty"`
	MedicalHistory []string `json:"medicalHistory,omitempty"`
}
