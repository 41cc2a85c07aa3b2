package catalog

import (
	"fmt"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/thebtf/dilse/pkg/models"
)

// TaggedContact carries a models.Contact across YAML and JSON with an
// explicit "type" discriminator.
type TaggedContact struct {
	models.Contact
}

// UnmarshalYAML decodes the variant named by the node's "type" field.
func (t *TaggedContact) UnmarshalYAML(node *yaml.Node) error {
	var head struct {
		Type models.ContactKind `yaml:"type"`
	}
	if err := node.Decode(&head); err != nil {
		return err
	}

	var c models.Contact
	switch head.Type {
	case models.ContactCrisis:
		var v models.CrisisContact
		if err := node.Decode(&v); err != nil {
			return err
		}
		c = v
	case models.ContactTherapist:
		var v models.TherapistContact
		if err := node.Decode(&v); err != nil {
			return err
		}
		c = v
	case models.ContactGroup:
		var v models.GroupContact
		if err := node.Decode(&v); err != nil {
			return err
		}
		c = v
	case models.ContactOnline:
		var v models.OnlineResource
		if err := node.Decode(&v); err != nil {
			return err
		}
		c = v
	case "":
		return fmt.Errorf("line %d: contact without type", node.Line)
	default:
		return fmt.Errorf("line %d: unknown contact type %q", node.Line, head.Type)
	}
	t.Contact = c
	return nil
}

// MarshalJSON writes the variant's fields plus "type".
func (t TaggedContact) MarshalJSON() ([]byte, error) {
	if t.Contact == nil {
		return []byte("null"), nil
	}
	raw, err := json.Marshal(t.Contact)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	fields["type"] = t.Kind()
	return json.Marshal(fields)
}
