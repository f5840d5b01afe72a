package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// FieldInfo describes one field of a registered record.
type FieldInfo struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Class string `json:"class"` // "dynamic" or "static"
}

// FieldsResult is the JSON payload of the fields command.
type FieldsResult struct {
	Record string      `json:"record"`
	Fields []FieldInfo `json:"fields"`
}

// NewFieldsCommand creates the fields command.
func NewFieldsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fields <schema> <record>",
		Short: "Show how a record's fields are classified",
		Long: `Load a schema, register it and print every field of one record with its
declared type and whether it is dynamic (carries numeric arrays) or static.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFields(rootOpts, args[0], args[1], cmd)
		},
	}
}

func runFields(opts *RootOptions, schemaPath, record string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	reg, _, err := LoadRegistry(schemaPath)
	if err != nil {
		return failLoad(formatter, err)
	}

	class, ok := reg.Lookup(record)
	if !ok {
		return formatter.Fail(ExitCommandError, ErrCodeUnknownRec,
			fmt.Sprintf("record %q is not declared in %s", record, schemaPath), nil)
	}

	result := FieldsResult{Record: record, Fields: make([]FieldInfo, 0, len(class.Type.Fields))}
	for _, f := range class.Type.Fields {
		kind := "static"
		if class.IsDynamic(f.Name) {
			kind = "dynamic"
		}
		result.Fields = append(result.Fields, FieldInfo{Name: f.Name, Type: f.Type.String(), Class: kind})
	}

	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	rows := make([][]string, len(result.Fields))
	for i, f := range result.Fields {
		rows[i] = []string{f.Name, f.Type, f.Class}
	}
	formatter.Table([]string{"FIELD", "TYPE", "CLASS"}, rows)
	return nil
}
