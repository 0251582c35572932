package notify

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const genericSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"title": {"type": "string"},
		"body":  {"type": "string"},
		"url":   {"type": "string"}
	}
}`

const vendorSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"notification": {
			"type": "object",
			"properties": {
				"title": {"type": "string"},
				"body":  {"type": "string"},
				"icon":  {"type": "string"}
			}
		}
	}
}`

func compileSchemas() (map[Channel]*jsonschema.Schema, error) {
	sources := map[Channel]string{
		ChannelGeneric: genericSchema,
		ChannelVendor:  vendorSchema,
	}

	c := jsonschema.NewCompiler()
	for ch, src := range sources {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("parse %s schema: %w", ch, err)
		}
		if err := c.AddResource(schemaURL(ch), doc); err != nil {
			return nil, fmt.Errorf("add %s schema: %w", ch, err)
		}
	}

	out := make(map[Channel]*jsonschema.Schema, len(sources))
	for ch := range sources {
		sch, err := c.Compile(schemaURL(ch))
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", ch, err)
		}
		out[ch] = sch
	}
	return out, nil
}

func schemaURL(ch Channel) string {
	return "https://outpost.local/schemas/push-" + string(ch) + ".json"
}

func validate(sch *jsonschema.Schema, data []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return err
	}
	return sch.Validate(inst)
}
