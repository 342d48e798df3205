package metadata

import "github.com/pitabwire/tabula/model"

// ResolveRowActions resolves row action definitions. Actions the caller
// lacks capabilities for are kept but disabled.
func ResolveRowActions(caps model.CapabilitySet, actions []model.ActionDefinition) []model.ActionDescriptor {
	result := make([]model.ActionDescriptor, 0, len(actions))
	for _, a := range actions {
		result = append(result, model.ActionDescriptor{
			ID:           a.ID,
			Label:        a.Label,
			Icon:         a.Icon,
			Style:        a.Style,
			Enabled:      caps.HasAll(a.Capabilities...),
			Confirmation: confirmation(a.Confirmation),
		})
	}
	return result
}

// ResolveBulkActions resolves bulk action definitions the same way.
func ResolveBulkActions(caps model.CapabilitySet, actions []model.BulkActionDefinition) []model.ActionDescriptor {
	result := make([]model.ActionDescriptor, 0, len(actions))
	for _, a := range actions {
		result = append(result, model.ActionDescriptor{
			ID:             a.ID,
			Label:          a.Label,
			Icon:           a.Icon,
			Style:          a.Style,
			Enabled:        caps.HasAll(a.Capabilities...),
			ClearSelection: a.ClearSelection,
			Confirmation:   confirmation(a.Confirmation),
		})
	}
	return result
}

func confirmation(c *model.ConfirmationDefinition) *model.ConfirmationDescriptor {
	if c == nil {
		return nil
	}
	return &model.ConfirmationDescriptor{
		Title:   c.Title,
		Message: c.Message,
		Confirm: c.Confirm,
		Cancel:  c.Cancel,
	}
}
