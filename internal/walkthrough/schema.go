package walkthrough

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// schemaSource constrains CUE walkthrough files. Definitions are closed, so
// unknown top-level or step fields are rejected like in YAML.
var schemaSource = fmt.Sprintf(`
#Step: {
	id?:      string
	delay_ms: int & >0 & <=%d
	payload?: {...}
}

#Walkthrough: {
	name:         string & !=""
	description?: string
	speed?:       number & >0
	steps: [...#Step]
}
`, MaxDelayMS)

// ParseCUE compiles a CUE definition, checks it against the schema,
// decodes and validates it. filename is used in error positions.
func ParseCUE(filename string, data []byte) (*Definition, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("walkthrough_schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile walkthrough schema: %w", err)
	}
	walkthroughDef := schema.LookupPath(cue.ParsePath("#Walkthrough"))

	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, cueLoadError(ErrCodeParseFailed, "failed to parse CUE", err)
	}

	unified := walkthroughDef.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadError(ErrCodeSchema, "walkthrough does not match schema", err)
	}

	var def Definition
	if err := unified.Decode(&def); err != nil {
		return nil, cueLoadError(ErrCodeSchema, "failed to decode walkthrough", err)
	}
	return finish(&def)
}

// cueLoadError converts a CUE error into a LoadError carrying the first position.
func cueLoadError(code, context string, err error) *LoadError {
	var pos token.Pos
	for _, e := range cueerrors.Errors(err) {
		if p := e.Position(); p.IsValid() {
			pos = p
			break
		}
	}
	return &LoadError{
		Code:    code,
		Message: fmt.Sprintf("%s: %v", context, err),
		Pos:     pos,
	}
}
