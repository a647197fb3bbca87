package registry

import (
	"fmt"
	"strings"

	"github.com/ryxhub/flowengine/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// ValidateNode checks that the node's action exists and its config satisfies the action's
// JSON schema.
func (r *Registry) ValidateNode(node *models.WorkflowNode) error {
	actionID, err := r.ActionID(node)
	if err != nil {
		return err
	}

	factory, err := r.factory(actionID)
	if err != nil {
		return err
	}

	if err := validateJSONSchema(actionConfig(node.Config), factory.Schema()); err != nil {
		return fmt.Errorf("%w: node %s (%s): %w", ErrInvalidConfig, node.ID, actionID, err)
	}

	return nil
}

// ValidateWorkflow validates every node and reports all failures at once.
func (r *Registry) ValidateWorkflow(nodes []*models.WorkflowNode) error {
	var problems []string

	for _, node := range nodes {
		if err := r.ValidateNode(node); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}

	return nil
}

func validateJSONSchema(data map[string]any, schema map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		var errors []string
		for _, desc := range result.Errors() {
			errors = append(errors, desc.String())
		}

		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}
