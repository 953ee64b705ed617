package cache

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Verify checks the stored bytes for key against a JSON schema. It returns
// one problem string per schema violation, empty when the entry conforms.
func (s *Store[T]) Verify(key string, schema []byte) ([]string, error) {
	raw, err := s.Raw(key)
	if err != nil {
		return nil, err
	}

	result, valErr := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schema),
		gojsonschema.NewBytesLoader(raw),
	)
	if valErr != nil {
		return nil, fmt.Errorf("validating cache entry: %w", valErr)
	}

	if result.Valid() {
		return nil, nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, resultErr := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", resultErr.Field(), resultErr.Description()))
	}

	return problems, nil
}
