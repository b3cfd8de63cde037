package pack

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

var packSchema = func() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("pack.schema.json", strings.NewReader(schemaJSON)); err != nil {
		panic(fmt.Sprintf("pack: embedded schema: %v", err))
	}
	return c.MustCompile("pack.schema.json")
}()

// Parse decodes a pack YAML document, checks it against the embedded JSON
// schema and then validates the parts the schema cannot express. It is the
// canonical entry point for loading packs.
func Parse(data []byte) (*Pack, error) {
	// The schema runs over the generic decode so structural errors carry
	// JSON-pointer locations instead of Go field names.
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("pack parse: %w", err)
	}
	if err := packSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("pack schema: %w", err)
	}

	var p Pack
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("pack parse: %w", err)
	}
	if err := Validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Load reads and parses a pack file.
func Load(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pack load: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Validate checks a Pack for the constraints the JSON schema cannot express:
// regex compilability, oneOf/pattern exclusivity and cross-declaration name
// uniqueness. It returns the first error encountered.
func Validate(p *Pack) error {
	if p == nil {
		return fmt.Errorf("pack must not be nil")
	}
	if p.APIVersion != SpecVersion {
		return fmt.Errorf("apiVersion must be %q, got %q", SpecVersion, p.APIVersion)
	}
	if strings.TrimSpace(p.Metadata.Name) == "" {
		return fmt.Errorf("metadata.name must not be empty")
	}

	types := make(map[string]struct{}, len(p.SlotTypes))
	for i, st := range p.SlotTypes {
		if err := validateSlotType(st); err != nil {
			return fmt.Errorf("slotTypes[%d] (%q): %w", i, st.Name, err)
		}
		if _, dup := types[st.Name]; dup {
			return fmt.Errorf("slotTypes[%d]: duplicate name %q", i, st.Name)
		}
		types[st.Name] = struct{}{}
	}

	names := make(map[string]struct{}, len(p.Intents)+len(p.Questions))
	for i, it := range p.Intents {
		if err := validateIntent(it); err != nil {
			return fmt.Errorf("intents[%d] (%q): %w", i, it.Name, err)
		}
		if _, dup := names[it.Name]; dup {
			return fmt.Errorf("intents[%d]: duplicate name %q", i, it.Name)
		}
		names[it.Name] = struct{}{}
	}
	for i, q := range p.Questions {
		if _, dup := names[q.Name]; dup {
			return fmt.Errorf("questions[%d]: duplicate name %q", i, q.Name)
		}
		names[q.Name] = struct{}{}
	}
	return nil
}

func validateSlotType(st SlotTypeDecl) error {
	if len(st.OneOf) > 0 && st.Pattern != "" {
		return fmt.Errorf("oneOf and pattern are mutually exclusive")
	}
	if len(st.OneOf) == 0 && st.Pattern == "" {
		return fmt.Errorf("one of oneOf or pattern is required")
	}
	if st.Pattern != "" {
		if _, err := regexp.Compile(st.Pattern); err != nil {
			return fmt.Errorf("pattern: %w", err)
		}
	}
	if st.Capture != "" {
		re, err := regexp.Compile(st.Capture)
		if err != nil {
			return fmt.Errorf("capture: %w", err)
		}
		// Capture groups inside the capture syntax would shift the engine's
		// positional slot-to-group mapping.
		if re.NumSubexp() > 0 {
			return fmt.Errorf("capture: must not contain capturing groups; use (?:...)")
		}
	}
	return nil
}

func validateIntent(it IntentDecl) error {
	seen := make(map[string]struct{}, len(it.Slots))
	for i, s := range it.Slots {
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("slots[%d]: duplicate slot %q", i, s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return nil
}
