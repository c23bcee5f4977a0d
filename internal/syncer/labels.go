package syncer

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"petsync/internal/queue"
)

var actionTypeLabels = map[queue.ActionType]string{
	queue.ActionUpdateProfile:     "Profile Update",
	queue.ActionUpdatePreferences: "Notification Preferences",
	queue.ActionSubmitStory:       "Success Story",
	queue.ActionReportMissing:     "Missing Pet Report",
	queue.ActionMarkFound:         "Pet Found Report",
	queue.ActionUpdatePrivacy:     "Privacy Settings",
}

// ActionTypeDescription returns the display label for an action type.
// Unrecognized types are title-cased from their tag.
func ActionTypeDescription(actionType queue.ActionType) string {
	if label, ok := actionTypeLabels[actionType]; ok {
		return label
	}
	raw := strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(string(actionType)))
	if raw == "" {
		return "Unknown Action"
	}
	return cases.Title(language.English).String(raw)
}
