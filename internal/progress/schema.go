package progress

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/progress.schema.json
var snapshotSchemaJSON string

var snapshotSchema = func() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(snapshotSchemaJSON))
	if err != nil {
		panic(fmt.Sprintf("compiling progress schema: %v", err))
	}
	return s
}()

// Decode validates a persisted snapshot against the progress schema and
// decodes it.
func Decode(data []byte) (UserProgress, error) {
	res, err := snapshotSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return UserProgress{}, fmt.Errorf("validating snapshot: %w", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return UserProgress{}, fmt.Errorf("invalid snapshot: %s", strings.Join(msgs, "; "))
	}

	var p UserProgress
	if err := json.Unmarshal(data, &p); err != nil {
		return UserProgress{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	return p.clone(), nil
}

// Encode serializes a snapshot in its persisted layout.
func Encode(p UserProgress) ([]byte, error) {
	data, err := json.Marshal(p.clone())
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}
