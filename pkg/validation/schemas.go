package validation

import "github.com/campaignhq/automation/pkg/models"

func conditionSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"field", "operator"},
		"properties": map[string]any{
			"field": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Dot separated path into the evaluated record",
				"examples":    []string{"country", "profile.tier"},
			},
			"operator": map[string]any{
				"type": "string",
				"enum": models.Operators,
			},
			"value": map[string]any{
				"description": "Literal compared against the field; an array for in and not_in",
			},
		},
	}
}

func definitionSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"name", "owner_id", "trigger"},
		"properties": map[string]any{
			"name": map[string]any{
				"type":      "string",
				"minLength": 3,
			},
			"description": map[string]any{
				"type": "string",
			},
			"owner_id": map[string]any{
				"type":      "string",
				"minLength": 1,
			},
			"campaign_id": map[string]any{
				"type": []string{"string", "null"},
			},
			"trigger": map[string]any{
				"type":     "object",
				"required": []string{"type"},
				"properties": map[string]any{
					"type": map[string]any{
						"type": "string",
						"enum": []models.TriggerType{
							models.TriggerTypeTimeBased,
							models.TriggerTypeEventBased,
							models.TriggerTypeConditionBased,
							models.TriggerTypeManual,
							models.TriggerTypeAPI,
						},
					},
					"config": map[string]any{
						"type": []string{"object", "null"},
					},
				},
			},
			"conditions": map[string]any{
				"type":  []string{"array", "null"},
				"items": conditionSchema(),
			},
			"actions": map[string]any{
				"type": []string{"array", "null"},
				"items": map[string]any{
					"type":     "object",
					"required": []string{"type"},
					"properties": map[string]any{
						"type": map[string]any{
							"type": "string",
							"enum": models.ActionTypes,
						},
						"config": map[string]any{
							"type": []string{"object", "null"},
						},
					},
				},
			},
			"is_active": map[string]any{
				"type": "boolean",
			},
			"failure_policy": map[string]any{
				"type": "string",
				"enum": []models.FailurePolicy{models.FailurePolicyContinue, models.FailurePolicyAbort},
			},
		},
	}
}

// TriggerSchemas returns the JSON Schema of every trigger configuration, keyed by trigger type.
func TriggerSchemas() map[models.TriggerType]map[string]any {
	return map[models.TriggerType]map[string]any{
		models.TriggerTypeTimeBased: {
			"type":     "object",
			"required": []string{"schedule", "timezone"},
			"properties": map[string]any{
				"schedule": map[string]any{
					"type":        "string",
					"minLength":   1,
					"description": "Cron expression (minute hour day month weekday)",
					"examples":    []string{"0 9 * * 1", "*/15 * * * *"},
				},
				"timezone": map[string]any{
					"type":        "string",
					"minLength":   1,
					"description": "IANA timezone the schedule is evaluated in",
					"examples":    []string{"UTC", "Africa/Lagos"},
				},
				"audience_list_id": map[string]any{
					"type":        "string",
					"description": "List whose members are run when the schedule fires",
				},
			},
		},
		models.TriggerTypeEventBased: {
			"type":     "object",
			"required": []string{"event_type", "event_source"},
			"properties": map[string]any{
				"event_type": map[string]any{
					"type":      "string",
					"minLength": 1,
					"examples":  []string{"signup", "purchase"},
				},
				"event_source": map[string]any{
					"type":      "string",
					"minLength": 1,
					"examples":  []string{"web", "mobile"},
				},
			},
		},
		models.TriggerTypeConditionBased: {
			"type":     "object",
			"required": []string{"conditions"},
			"properties": map[string]any{
				"conditions": map[string]any{
					"type":  "array",
					"items": conditionSchema(),
				},
			},
		},
		models.TriggerTypeManual: {
			"type": "object",
		},
		models.TriggerTypeAPI: {
			"type":     "object",
			"required": []string{"endpoint", "method"},
			"properties": map[string]any{
				"endpoint": map[string]any{
					"type":      "string",
					"minLength": 1,
				},
				"method": map[string]any{
					"type": "string",
					"enum": []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
				},
			},
		},
	}
}

func messageSchema(channel string) map[string]any {
	return map[string]any{
		"type":        "object",
		"description": "Sends a " + channel + " message from a template or an inline body",
		"anyOf": []map[string]any{
			{"required": []string{"template_id"}},
			{"required": []string{"body"}},
		},
		"properties": map[string]any{
			"template_id": map[string]any{"type": "string", "minLength": 1},
			"subject":     map[string]any{"type": "string"},
			"body":        map[string]any{"type": "string", "minLength": 1},
			"variables":   map[string]any{"type": "object"},
		},
	}
}

func listSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"list_id"},
		"properties": map[string]any{
			"list_id": map[string]any{"type": "string", "minLength": 1},
		},
	}
}

// ActionSchemas returns the JSON Schema of every action configuration, keyed by action type.
func ActionSchemas() map[models.ActionType]map[string]any {
	return map[models.ActionType]map[string]any{
		models.ActionSendEmail:      messageSchema("email"),
		models.ActionSendSMS:        messageSchema("SMS"),
		models.ActionSendWhatsApp:   messageSchema("WhatsApp"),
		models.ActionAddToList:      listSchema(),
		models.ActionRemoveFromList: listSchema(),
		models.ActionUpdateContact: {
			"type":     "object",
			"required": []string{"fields"},
			"properties": map[string]any{
				"fields": map[string]any{
					"type":          "object",
					"minProperties": 1,
				},
			},
		},
		models.ActionWait: {
			"type":     "object",
			"required": []string{"duration_seconds"},
			"properties": map[string]any{
				"duration_seconds": map[string]any{
					"type":    "integer",
					"minimum": 0,
				},
			},
		},
		models.ActionWebhook: {
			"type":     "object",
			"required": []string{"url"},
			"properties": map[string]any{
				"url": map[string]any{
					"type":   "string",
					"format": "uri",
				},
				"method": map[string]any{
					"type":    "string",
					"default": "POST",
					"enum":    []string{"POST", "PUT", "PATCH"},
				},
				"headers": map[string]any{
					"type":                 "object",
					"additionalProperties": map[string]any{"type": "string"},
				},
				"timeout_seconds": map[string]any{
					"type":    "integer",
					"default": 10,
					"minimum": 1,
					"maximum": 300,
				},
			},
		},
	}
}
