package llm

// Date and time layouts accepted by create_reminder when the model has
// already resolved the time itself.
const (
	ToolDateLayout = "02 Jan 2006"
	ToolTimeLayout = "03:04 PM"
)

var AgentTools = []Tool{
	{
		Name:        "create_reminder",
		Description: "Create a reminder from what the patient said, e.g. 'take my pills at 8pm' or 'call my daughter tomorrow'. The due time is worked out from the text.",
		Parameters: objReq(map[string]any{
			"text":  prop("string", "The patient's request, in their own words"),
			"title": prop("string", "Optional short title to use instead of the one taken from the text"),
			"date":  prop("string", "Optional date as 'dd Mon yyyy', e.g. '05 Jan 2025'. Needs time as well."),
			"time":  prop("string", "Optional time as 'hh:mm AM/PM', e.g. '02:30 PM'. Needs date as well."),
		}, "text"),
	},
	{
		Name:        "list_reminders",
		Description: "List the patient's upcoming reminders, soonest first.",
		Parameters:  obj(nil),
	},
	{
		Name:        "delete_reminder",
		Description: "Cancel an upcoming reminder whose title contains the given words.",
		Parameters: objReq(map[string]any{
			"reminder_title": prop("string", "Part of the reminder's title, e.g. 'medicine'"),
		}, "reminder_title"),
	},
	{
		Name:        "send_emergency_alert",
		Description: "Alert the patient's caregiver. Only for real emergencies: a fall, pain, being lost or in danger.",
		Parameters: objReq(map[string]any{
			"reason": prop("string", "What is happening, in a short sentence"),
		}, "reason"),
	},
	{
		Name:        "get_time",
		Description: "Get the current date and time where the patient is.",
		Parameters:  obj(nil),
	},
}

// Helper functions for building JSON Schema objects.

func prop(typ, desc string) map[string]any {
	return map[string]any{"type": typ, "description": desc}
}

func obj(properties map[string]any) map[string]any {
	if properties == nil {
		properties = map[string]any{}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
	}
}

func objReq(properties map[string]any, required ...string) map[string]any {
	s := obj(properties)
	s["required"] = required
	return s
}
