package fhirmodels

import "time"

// A small typed slice of the FHIR R4 model. Field names follow the FHIR
// JSON element names so a FHIRPath expression reads the same against a
// typed resource and against its decoded JSON.

// AdministrativeGender codes.
const (
	GenderMale    = "male"
	GenderFemale  = "female"
	GenderOther   = "other"
	GenderUnknown = "unknown"
)

// ObservationStatus codes.
const (
	ObsStatusRegistered  = "registered"
	ObsStatusPreliminary = "preliminary"
	ObsStatusFinal       = "final"
	ObsStatusAmended     = "amended"
)

// ObservationCategory codes.
const (
	ObsCategoryVitalSigns = "vital-signs"
	ObsCategoryLaboratory = "laboratory"
	ObsCategorySurvey     = "survey"
)

// NameUse codes.
const (
	NameUseOfficial = "official"
	NameUseUsual    = "usual"
	NameUseNickname = "nickname"
	NameUseMaiden   = "maiden"
)

// Meta is resource metadata.
type Meta struct {
	VersionID   string     `json:"versionId,omitempty"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
	Profile     []string   `json:"profile,omitempty"`
}

// DomainResource holds the elements shared by every resource.
type DomainResource struct {
	ResourceType string `json:"resourceType"`
	ID           string `json:"id,omitempty"`
	Meta         *Meta  `json:"meta,omitempty"`
}

type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

type Identifier struct {
	Use    string `json:"use,omitempty"`
	System string `json:"system,omitempty"`
	Value  string `json:"value,omitempty"`
}

type HumanName struct {
	Use    string   `json:"use,omitempty"`
	Family string   `json:"family,omitempty"`
	Given  []string `json:"given,omitempty"`
	Prefix []string `json:"prefix,omitempty"`
}

type ContactPoint struct {
	System string `json:"system,omitempty"`
	Value  string `json:"value,omitempty"`
	Use    string `json:"use,omitempty"`
}

type Address struct {
	Use        string   `json:"use,omitempty"`
	Line       []string `json:"line,omitempty"`
	City       string   `json:"city,omitempty"`
	State      string   `json:"state,omitempty"`
	PostalCode string   `json:"postalCode,omitempty"`
	Country    string   `json:"country,omitempty"`
}

type Reference struct {
	Reference string `json:"reference,omitempty"`
	Display   string `json:"display,omitempty"`
}

type Quantity struct {
	Value  *float64 `json:"value,omitempty"`
	Unit   string   `json:"unit,omitempty"`
	System string   `json:"system,omitempty"`
	Code   string   `json:"code,omitempty"`
}

type Patient struct {
	DomainResource
	Identifier []Identifier     `json:"identifier,omitempty"`
	Active     *bool            `json:"active,omitempty"`
	Name       []HumanName      `json:"name,omitempty"`
	Telecom    []ContactPoint   `json:"telecom,omitempty"`
	Gender     string           `json:"gender,omitempty"`
	BirthDate  string           `json:"birthDate,omitempty"`
	Address    []Address        `json:"address,omitempty"`
	Deceased   *bool            `json:"deceasedBoolean,omitempty"`
	General    []Reference      `json:"generalPractitioner,omitempty"`
	Managing   *Reference       `json:"managingOrganization,omitempty"`
	Marital    *CodeableConcept `json:"maritalStatus,omitempty"`
}

type Observation struct {
	DomainResource
	Status         string            `json:"status"`
	Category       []CodeableConcept `json:"category,omitempty"`
	Code           CodeableConcept   `json:"code"`
	Subject        *Reference        `json:"subject,omitempty"`
	EffectiveTime  string            `json:"effectiveDateTime,omitempty"`
	ValueQuantity  *Quantity         `json:"valueQuantity,omitempty"`
	ValueString    string            `json:"valueString,omitempty"`
	Interpretation []CodeableConcept `json:"interpretation,omitempty"`
}
