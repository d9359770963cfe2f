package knowledge

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"symptombot/internal/domain"
)

//go:embed data/healthcare_data.json
var defaultData []byte

const (
	keySymptoms = "symptom_to_disease"
	keyInfo     = "disease_info"
)

// Parse decodes a knowledge document. JSON and YAML are both accepted:
//
//	{"symptom_to_disease": {"fever": ["flu"]},
//	 "disease_info": {"flu": {"generic_medicine": ["paracetamol"], "home_remedy": ["rest"]}}}
//
// The order of symptom_to_disease keys becomes the vocabulary order.
func Parse(data []byte) (*domain.KnowledgeBase, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing knowledge document: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, errors.New("empty knowledge document")
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("knowledge document must be a mapping, line %d", doc.Line)
	}
	b := NewBuilder()
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key, val := doc.Content[i], doc.Content[i+1]
		switch key.Value {
		case keySymptoms:
			if err := addSymptoms(b, val); err != nil {
				return nil, err
			}
		case keyInfo:
			var info map[string]domain.Remedies
			if err := val.Decode(&info); err != nil {
				return nil, fmt.Errorf("%s: %w", keyInfo, err)
			}
			for d, r := range info {
				b.SetRemedies(d, r)
			}
		}
	}
	return b.Build(), nil
}

func addSymptoms(b *Builder, n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null" {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("%s must be a mapping, line %d", keySymptoms, n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		label := n.Content[i].Value
		var diseases []string
		if err := n.Content[i+1].Decode(&diseases); err != nil {
			return fmt.Errorf("%s[%q]: %w", keySymptoms, label, err)
		}
		if err := b.AddSymptom(label, diseases...); err != nil {
			return fmt.Errorf("%s line %d: %w", keySymptoms, n.Content[i].Line, err)
		}
	}
	return nil
}

// FileLoader reads the knowledge base from a JSON or YAML file.
type FileLoader struct {
	Path string
}

func (l FileLoader) Load(ctx context.Context) (*domain.KnowledgeBase, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("reading knowledge file %s: %w", l.Path, err)
	}
	kb, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.Path, err)
	}
	return kb, nil
}

// EmbeddedLoader returns the knowledge base compiled into the binary.
type EmbeddedLoader struct{}

func (EmbeddedLoader) Load(ctx context.Context) (*domain.KnowledgeBase, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Parse(defaultData)
}
