package mapper

import (
	"encoding/json"
	"reflect"
	"sync"

	"github.com/invopop/jsonschema"
)

// schemaCache memoizes derived schemas by concrete type. Insert-only, lives
// for the process.
var schemaCache sync.Map // reflect.Type -> map[string]any

/*
SchemaFor returns the JSON schema of v's concrete type as a generic mapping
suitable for part metadata. The first call for a type reflects and caches;
subsequent calls reuse the cached schema.
*/
func SchemaFor(v any) map[string]any {
	t := reflect.TypeOf(v)

	if cached, ok := schemaCache.Load(t); ok {
		return cached.(map[string]any)
	}

	reflector := jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
	}

	raw, err := json.Marshal(reflector.Reflect(v))
	if err != nil {
		return nil
	}

	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil
	}

	actual, _ := schemaCache.LoadOrStore(t, schema)

	return actual.(map[string]any)
}
