package model

import "time"

// Severity bounds for a logged symptom.
const (
	MinSeverity = 1
	MaxSeverity = 10
)

// SymptomType is the closed vocabulary of symptoms a patient can log.
type SymptomType string

const (
	SymptomFatigue        SymptomType = "fatigue"
	SymptomNausea         SymptomType = "nausea"
	SymptomPain           SymptomType = "pain"
	SymptomHeadache       SymptomType = "headache"
	SymptomFever          SymptomType = "fever"
	SymptomDizziness      SymptomType = "dizziness"
	SymptomMouthSores     SymptomType = "mouth_sores"
	SymptomSkinIrritation SymptomType = "skin_irritation"
	SymptomOther          SymptomType = "other"
)

// SymptomTypes lists every accepted SymptomType in display order.
var SymptomTypes = []SymptomType{
	SymptomFatigue,
	SymptomNausea,
	SymptomPain,
	SymptomHeadache,
	SymptomFever,
	SymptomDizziness,
	SymptomMouthSores,
	SymptomSkinIrritation,
	SymptomOther,
}

// Valid reports whether t belongs to the vocabulary.
func (t SymptomType) Valid() bool {
	for _, known := range SymptomTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ValidSeverity reports whether v is on the 1–10 scale.
func ValidSeverity(v int) bool {
	return v >= MinSeverity && v <= MaxSeverity
}

// Symptom is one entry in a patient's symptom log. Entries are immutable
// once written.
type Symptom struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	Type      SymptomType `json:"type"`
	Severity  int         `json:"severity"`
	Notes     *string     `json:"notes"`
	CreatedAt time.Time   `json:"createdAt"`
}
