package xctrace

import (
	"fmt"
	"io"
)

// ReadTOC lists the schema names declared in the export's table of
// contents, one per exported table.
func ReadTOC(r io.Reader) ([]string, error) {
	root, err := ReadDocument(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse table of contents: %w", err)
	}
	var schemas []string
	for _, table := range root.FindAll("table") {
		if schema := table.Attr("schema"); schema != "" {
			schemas = append(schemas, schema)
		}
	}
	return schemas, nil
}
