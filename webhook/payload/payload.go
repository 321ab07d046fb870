package payload

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrInvalid is returned for bodies that are not a JSON object matching the relay schema
var ErrInvalid = errors.New("invalid payload")

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "relay://schema/payload.json"

var schema = mustCompile()

// Payload is the body accepted on a relay URL and forwarded to the destination.
// Each field keeps the sender's raw JSON; fields the sender did not set are omitted
// on forward, while an explicit null is preserved.
type Payload struct {
	Content   json.RawMessage `json:"content,omitempty"`
	Username  json.RawMessage `json:"username,omitempty"`
	AvatarURL json.RawMessage `json:"avatar_url,omitempty"`
	Embeds    json.RawMessage `json:"embeds,omitempty"`
}

func mustCompile() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("decoding payload schema: %v", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		panic(fmt.Sprintf("adding payload schema: %v", err))
	}
	s, err := c.Compile(schemaURL)
	if err != nil {
		panic(fmt.Sprintf("compiling payload schema: %v", err))
	}
	return s
}

// Parse decodes and validates a relay body. Unknown fields are dropped.
func Parse(data []byte) (Payload, error) {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := schema.Validate(inst); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return p, nil
}

// Bytes returns the JSON forwarded to the destination
func (p Payload) Bytes() ([]byte, error) {
	return json.Marshal(p)
}
