package refengine

// LookupConfig is a user-supplied override of C2's built-in lookup field
// defaults, keyed by resource type.
type LookupConfig map[string][]string

// defaultLookupFields holds C2's built-in per-resource-type candidate
// lookup fields, consulted when the caller's LookupConfig has no entry for
// a resource type.
var defaultLookupFields = map[string][]string{
	"users":      {"email"},
	"projects":   {"name"},
	"roles":      {"name"},
	"companies":  {"name"},
	"tasks":      {"name"},
	"categories": {"name"},
}

// fallbackLookupFields is used when neither the user config nor the
// built-in defaults have an entry for the resource type.
var fallbackLookupFields = []string{"name"}

// LookupFieldsFor implements C2. Resolution order: explicit user override,
// then built-in defaults, then the fallback ["name"].
func LookupFieldsFor(resourceType string, userConfig LookupConfig) []string {
	if userConfig != nil {
		if fields, ok := userConfig[resourceType]; ok && len(fields) > 0 {
			return fields
		}
	}
	if fields, ok := defaultLookupFields[resourceType]; ok {
		return fields
	}
	return fallbackLookupFields
}

// SelectLookupValue walks the ordered candidate field list and returns the
// first field whose value in the referent record is non-null, along with
// that field's name. Returns ok=false if none of the candidates are present
// with a non-null value.
//
// Candidate fields are evaluated as JMESPath expressions against the
// referent, so a lookup_config entry may name a nested path (e.g.
// "profile.email") as well as a bare top-level field; a plain field name is
// itself a valid JMESPath expression, so the common case is unaffected.
func SelectLookupValue(referent Record, fields []string) (field string, value any, ok bool) {
	for _, f := range fields {
		v, err := lookupEvaluator.Evaluate(f, map[string]any(referent))
		if err != nil {
			continue
		}
		if v != nil {
			return f, v, true
		}
	}
	return "", nil, false
}
