// Package validation checks workflow definitions once, when they are written.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/campaignhq/automation/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
)

// Validator checks raw and decoded workflow definitions.
type Validator struct {
	validate       *validator.Validate
	definition     *gojsonschema.Schema
	triggerSchemas map[models.TriggerType]*gojsonschema.Schema
	actionSchemas  map[models.ActionType]*gojsonschema.Schema
}

// New compiles the definition schemas. It panics if a built-in schema does not compile.
func New(validate *validator.Validate) *Validator {
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}

	v := &Validator{
		validate:       validate,
		definition:     mustCompile(definitionSchema()),
		triggerSchemas: make(map[models.TriggerType]*gojsonschema.Schema),
		actionSchemas:  make(map[models.ActionType]*gojsonschema.Schema),
	}

	for triggerType, schema := range TriggerSchemas() {
		v.triggerSchemas[triggerType] = mustCompile(schema)
	}

	for actionType, schema := range ActionSchemas() {
		v.actionSchemas[actionType] = mustCompile(schema)
	}

	return v
}

func mustCompile(schema map[string]any) *gojsonschema.Schema {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		panic(fmt.Errorf("failed to compile schema: %w", err))
	}

	return compiled
}

// rawDefinition exposes the trigger and action configurations as raw JSON.
type rawDefinition struct {
	Trigger struct {
		Type   models.TriggerType `json:"type"`
		Config json.RawMessage    `json:"config"`
	} `json:"trigger"`
	Actions []struct {
		Type   models.ActionType `json:"type"`
		Config json.RawMessage   `json:"config"`
	} `json:"actions"`
}

// ParseDefinition validates a raw JSON document and decodes it into a definition.
func (v *Validator) ParseDefinition(raw []byte) (*models.WorkflowDefinition, error) {
	if !json.Valid(raw) {
		return nil, &Error{Problems: []string{"malformed JSON document"}}
	}

	problems := v.validateDocument(raw)
	if len(problems) > 0 {
		return nil, &Error{Problems: problems}
	}

	var definition models.WorkflowDefinition

	err := json.Unmarshal(raw, &definition)
	if err != nil {
		return nil, &Error{Problems: []string{err.Error()}}
	}

	problems = v.validateDecoded(&definition)
	if len(problems) > 0 {
		return nil, &Error{Problems: problems}
	}

	return &definition, nil
}

// Validate checks a decoded definition by the same rules ParseDefinition applies.
func (v *Validator) Validate(definition *models.WorkflowDefinition) error {
	if definition == nil {
		return &Error{Problems: []string{"definition is required"}}
	}

	raw, err := json.Marshal(definition)
	if err != nil {
		return &Error{Problems: []string{err.Error()}}
	}

	problems := v.validateDocument(raw)
	if len(problems) == 0 {
		problems = v.validateDecoded(definition)
	}

	if len(problems) > 0 {
		return &Error{Problems: problems}
	}

	return nil
}

func (v *Validator) validateDocument(raw []byte) []string {
	problems := schemaProblems(v.definition, gojsonschema.NewBytesLoader(raw), "")
	if len(problems) > 0 {
		return problems
	}

	var document rawDefinition

	err := json.Unmarshal(raw, &document)
	if err != nil {
		return []string{err.Error()}
	}

	if schema, ok := v.triggerSchemas[document.Trigger.Type]; ok {
		problems = append(problems, schemaProblems(schema, configLoader(document.Trigger.Config), "trigger.config")...)
	}

	for i, action := range document.Actions {
		if schema, ok := v.actionSchemas[action.Type]; ok {
			prefix := fmt.Sprintf("actions[%d].config", i)
			problems = append(problems, schemaProblems(schema, configLoader(action.Config), prefix)...)
		}
	}

	return problems
}

func configLoader(raw json.RawMessage) gojsonschema.JSONLoader {
	if len(raw) == 0 || string(raw) == "null" {
		return gojsonschema.NewStringLoader("{}")
	}

	return gojsonschema.NewBytesLoader(raw)
}

func schemaProblems(schema *gojsonschema.Schema, document gojsonschema.JSONLoader, prefix string) []string {
	result, err := schema.Validate(document)
	if err != nil {
		return []string{err.Error()}
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		if prefix != "" {
			problems = append(problems, prefix+": "+desc.String())
		} else {
			problems = append(problems, desc.String())
		}
	}

	return problems
}

func (v *Validator) validateDecoded(definition *models.WorkflowDefinition) []string {
	var problems []string

	problems = append(problems, v.structProblems(definition, "")...)

	if definition.Trigger.Config == nil {
		problems = append(problems, "trigger.config: missing configuration")
	} else {
		problems = append(problems, v.structProblems(definition.Trigger.Config, "trigger.config")...)
		problems = append(problems, triggerProblems(definition.Trigger)...)
	}

	problems = append(problems, conditionProblems(definition.Conditions, "conditions")...)

	for i, action := range definition.Actions {
		prefix := fmt.Sprintf("actions[%d]", i)

		if !action.Type.IsKnown() {
			problems = append(problems, fmt.Sprintf("%s: unknown action type %q", prefix, action.Type))

			continue
		}

		if action.Config == nil {
			problems = append(problems, prefix+": missing configuration")

			continue
		}

		problems = append(problems, v.structProblems(action.Config, prefix+".config")...)
	}

	return problems
}

func (v *Validator) structProblems(value any, prefix string) []string {
	err := v.validate.Struct(value)
	if err == nil {
		return nil
	}

	var problems []string

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []string{err.Error()}
	}

	for _, fieldErr := range validationErrors {
		problem := fmt.Sprintf("%s failed on the '%s' rule", fieldErr.Namespace(), fieldErr.Tag())
		if prefix != "" {
			problem = prefix + ": " + problem
		}

		problems = append(problems, problem)
	}

	return problems
}

func triggerProblems(trigger models.Trigger) []string {
	if trigger.Config.TriggerType() != trigger.Type {
		return []string{fmt.Sprintf("trigger: configuration does not match type %s", trigger.Type)}
	}

	switch config := trigger.Config.(type) {
	case models.ScheduleTrigger:
		_, err := models.ParseSchedule(config.Schedule, config.Timezone)
		if err != nil {
			return []string{"trigger.config: " + err.Error()}
		}
	case models.ConditionTrigger:
		return conditionProblems(config.Conditions, "trigger.config.conditions")
	}

	return nil
}

func conditionProblems(conditions []models.Condition, prefix string) []string {
	var problems []string

	for i, condition := range conditions {
		if !condition.Operator.IsKnown() {
			problems = append(problems, fmt.Sprintf("%s[%d]: unknown operator %q", prefix, i, condition.Operator))

			continue
		}

		if condition.Operator.RequiresList() && !isList(condition.Value) {
			problems = append(problems, fmt.Sprintf("%s[%d]: operator %s requires an array value", prefix, i, condition.Operator))
		}
	}

	return problems
}

func isList(value any) bool {
	switch value.(type) {
	case []any, []string, []float64, []int:
		return true
	default:
		return false
	}
}
