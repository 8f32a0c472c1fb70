package catalog

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/xeipuuv/gojsonschema"

	"github.com/aluiziolira/go-book-browser/models"
)

// responseSchema covers the fields the browser reads. Everything else in the
// payload is ignored. Missing or null fields fall back to defaults later.
const responseSchema = `{
  "type": "object",
  "properties": {
    "totalItems": {"type": ["integer", "null"]},
    "items": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "properties": {
          "volumeInfo": {
            "type": ["object", "null"],
            "properties": {
              "title": {"type": ["string", "null"]},
              "authors": {"type": ["array", "null"], "items": {"type": "string"}},
              "imageLinks": {
                "type": ["object", "null"],
                "properties": {
                  "thumbnail": {"type": ["string", "null"]}
                }
              }
            }
          }
        }
      }
    }
  }
}`

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// payloadDecoder validates a response body and decodes it.
type payloadDecoder struct {
	schema *gojsonschema.Schema
}

func newPayloadDecoder() (*payloadDecoder, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(responseSchema))
	if err != nil {
		return nil, fmt.Errorf("compile response schema: %w", err)
	}
	return &payloadDecoder{schema: schema}, nil
}

func (d *payloadDecoder) Decode(body []byte) (*models.SearchResponse, error) {
	result, err := d.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrMalformedPayload, strings.Join(problems, "; "))
	}

	var resp models.SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if resp.Items == nil {
		resp.Items = []models.Volume{}
	}
	return &resp, nil
}
