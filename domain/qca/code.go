package qca

import (
	"strings"
)

// Case is one analysis unit (an interview)
type Case struct {
	ID   string `json:"case_id" yaml:"case_id"`
	Text string `json:"text,omitempty" yaml:"text,omitempty"` // Raw transcript, used only by the text-match fallback
}

// Code is a qualitative code produced by the coding pipeline.
// Applications is nil when the producer kept no per-case record; an empty
// non-nil slice means the code was recorded and applied to no case.
type Code struct {
	Name           string   `json:"name" yaml:"name"`
	Description    string   `json:"description,omitempty" yaml:"description,omitempty"`
	Frequency      int      `json:"frequency" yaml:"frequency"`
	HierarchyLevel int      `json:"hierarchy_level" yaml:"hierarchy_level"`
	ParentID       *string  `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Applications   []string `json:"applications" yaml:"applications"`
}

// yamlCode drops a nil record but keeps an empty one as []
type yamlCode struct {
	Name           string    `yaml:"name"`
	Description    string    `yaml:"description,omitempty"`
	Frequency      int       `yaml:"frequency"`
	HierarchyLevel int       `yaml:"hierarchy_level"`
	ParentID       *string   `yaml:"parent_id,omitempty"`
	Applications   *[]string `yaml:"applications,omitempty"`
}

// MarshalYAML writes Applications only when a record exists
func (c Code) MarshalYAML() (interface{}, error) {
	out := yamlCode{
		Name:           c.Name,
		Description:    c.Description,
		Frequency:      c.Frequency,
		HierarchyLevel: c.HierarchyLevel,
		ParentID:       c.ParentID,
	}
	if c.Applications != nil {
		apps := c.Applications
		out.Applications = &apps
	}
	return out, nil
}

// HasApplications reports whether a structured per-case record exists
func (c Code) HasApplications() bool {
	return c.Applications != nil
}

// AppliedTo reports whether the code was recorded against caseID
func (c Code) AppliedTo(caseID string) bool {
	for _, id := range c.Applications {
		if id == caseID {
			return true
		}
	}
	return false
}

// Validate fails fast on missing required fields
func (c Code) Validate(index int) error {
	if strings.TrimSpace(c.Name) == "" {
		return NewCodeError(index, "name is required")
	}
	if c.Frequency < 0 {
		return NewCodeError(index, "frequency must be >= 0")
	}
	if c.HierarchyLevel < 0 {
		return NewCodeError(index, "hierarchy_level must be >= 0")
	}
	if c.ParentID != nil && strings.TrimSpace(*c.ParentID) == "" {
		return NewCodeError(index, "parent_id must not be blank when present")
	}
	return nil
}

// ValidateCodes validates every code and rejects duplicate names
func ValidateCodes(codes []Code) error {
	seen := make(map[string]bool, len(codes))
	for i, code := range codes {
		if err := code.Validate(i); err != nil {
			return err
		}
		if seen[code.Name] {
			return NewCodeError(i, "duplicate code name "+code.Name)
		}
		seen[code.Name] = true
	}
	return nil
}

// Role distinguishes explanatory conditions from outcomes
type Role string

const (
	RoleCondition Role = "condition"
	RoleOutcome   Role = "outcome"
)

// Calibration records how membership values were produced
type Calibration string

const (
	// CalibrationApplications uses the structured per-case application record
	CalibrationApplications Calibration = "applications"
	// CalibrationTextMatch is the lossy substring fallback; lower confidence
	CalibrationTextMatch Calibration = "text_match"
	// CalibrationProvided means the caller supplied 0/1 values directly
	CalibrationProvided Calibration = "provided"
)

// Variable is a named boolean condition or outcome
type Variable struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Source      string      `json:"source,omitempty"` // Code name the variable was derived from
	Role        Role        `json:"role"`
	Calibration Calibration `json:"calibration"`
}

// LowConfidence reports whether membership came from the text-match fallback
func (v Variable) LowConfidence() bool {
	return v.Calibration == CalibrationTextMatch
}

// VariableNames returns the names of vars in order
func VariableNames(vars []Variable) []string {
	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = v.Name
	}
	return names
}
