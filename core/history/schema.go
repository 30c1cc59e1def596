package history

import (
	_ "embed"
	"sync"

	"github.com/kaptinlin/jsonschema"

	sfcerrors "github.com/davidahmann/sfc/core/errors"
)

//go:embed ledger.schema.json
var ledgerSchemaJSON []byte

var (
	compileOnce   sync.Once
	compiledValue *jsonschema.Schema
	compileErr    error
)

func compiledSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		compiledValue, compileErr = compiler.Compile(ledgerSchemaJSON)
	})
	return compiledValue, compileErr
}

// validateEntries checks a ledger file against the embedded schema before it
// is trusted, so a hand-edited or truncated ledger fails loudly on load.
func validateEntries(content []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return sfcerrors.Internal(err, "compile ledger schema")
	}
	result := schema.ValidateJSON(content)
	if result.IsValid() {
		return nil
	}
	return sfcerrors.Validation("history ledger", "history.json", "schema validation failed")
}
