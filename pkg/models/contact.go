// Package models contains domain models for dilse.
package models

// ContactKind discriminates the Contact variants.
type ContactKind string

const (
	ContactCrisis    ContactKind = "crisis"
	ContactTherapist ContactKind = "therapist"
	ContactGroup     ContactKind = "group"
	ContactOnline    ContactKind = "online"
)

// Contact is a support resource. The concrete type is always one of
// CrisisContact, TherapistContact, GroupContact or OnlineResource.
type Contact interface {
	Kind() ContactKind
	DisplayName() string
	contact()
}

// CrisisContact is a hotline reachable by phone.
type CrisisContact struct {
	Name      string `json:"name" yaml:"name"`
	Number    string `json:"number" yaml:"number"`
	Available string `json:"available" yaml:"available"`
}

// TherapistContact is a professional counsellor.
type TherapistContact struct {
	Name           string `json:"name" yaml:"name"`
	Specialization string `json:"specialization" yaml:"specialization"`
	Email          string `json:"contact" yaml:"contact"`
	Available      string `json:"available" yaml:"available"`
}

// GroupContact is a peer support group.
type GroupContact struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Email       string `json:"contact" yaml:"contact"`
	Available   string `json:"available" yaml:"available"`
}

// OnlineResource is a website or app.
type OnlineResource struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	URL         string `json:"contact" yaml:"contact"`
	Available   string `json:"available" yaml:"available"`
}

func (CrisisContact) Kind() ContactKind    { return ContactCrisis }
func (TherapistContact) Kind() ContactKind { return ContactTherapist }
func (GroupContact) Kind() ContactKind     { return ContactGroup }
func (OnlineResource) Kind() ContactKind   { return ContactOnline }

func (c CrisisContact) DisplayName() string    { return c.Name }
func (c TherapistContact) DisplayName() string { return c.Name }
func (c GroupContact) DisplayName() string     { return c.Name }
func (c OnlineResource) DisplayName() string   { return c.Name }

func (CrisisContact) contact()    {}
func (TherapistContact) contact() {}
func (GroupContact) contact()     {}
func (OnlineResource) contact()   {}
