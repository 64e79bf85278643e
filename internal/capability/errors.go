package capability

import "fmt"

// NotFoundError indicates a (category, ordinal) or (category, name) pair that
// does not resolve against the registry.
type NotFoundError struct {
	Category        Category
	Ordinal         int
	Name            string
	UnknownCategory bool
}

func (e *NotFoundError) Error() string {
	if e.UnknownCategory {
		return fmt.Sprintf("capability not found: unknown category %q", e.Category)
	}
	if e.Name != "" {
		return fmt.Sprintf("capability not found: %s.%s", e.Category, e.Name)
	}
	return fmt.Sprintf("capability not found: %s ordinal %d", e.Category, e.Ordinal)
}

// ProviderMissingError indicates an agent has no usable provider for a
// category. Got is set when a provider is attached but has the wrong type.
type ProviderMissingError struct {
	Category   Category
	Capability string
	Got        string
}

func (e *ProviderMissingError) Error() string {
	msg := fmt.Sprintf("provider missing: %s", e.Category)
	if e.Capability != "" {
		msg += " (required by " + e.Capability + ")"
	}
	if e.Got != "" {
		msg += ": attached " + e.Got + " does not implement it"
	}
	return msg
}
