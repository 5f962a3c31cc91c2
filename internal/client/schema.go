package client

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const taskSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "task"],
  "properties": {
    "id": {"type": "integer"},
    "task": {"type": "string"},
    "description": {"type": ["string", "null"]},
    "task_date": {"type": ["string", "null"]},
    "priority": {"type": ["string", "null"]},
    "status": {"type": ["boolean", "null"]}
  }
}`

const taskListSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {"$ref": "https://schemas.todolist.local/task.json"}
}`

const (
	taskSchemaURL     = "https://schemas.todolist.local/task.json"
	taskListSchemaURL = "https://schemas.todolist.local/tasks.json"
)

var (
	taskValidator     *jsonschema.Schema
	taskListValidator *jsonschema.Schema
)

func init() {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(taskSchemaURL, strings.NewReader(taskSchema)); err != nil {
		panic(err)
	}
	if err := compiler.AddResource(taskListSchemaURL, strings.NewReader(taskListSchema)); err != nil {
		panic(err)
	}
	taskValidator = compiler.MustCompile(taskSchemaURL)
	taskListValidator = compiler.MustCompile(taskListSchemaURL)
}

// decodeValidated checks data against schema before decoding it into out.
func decodeValidated(data []byte, schema *jsonschema.Schema, out any) error {
	var doc any
	if err := sonic.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}
