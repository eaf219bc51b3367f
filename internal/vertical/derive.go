package vertical

import (
	"slices"
	"strings"

	"github.com/V4T54L/surveystack/internal/domain"
)

// descriptionAnchor is replaced once by "your <topic>" in vertical descriptions.
const descriptionAnchor = "your"

// Deriver computes a TenantConfig from a hostname. It performs no I/O.
type Deriver struct {
	taxonomy   *Taxonomy
	classifier *Classifier
}

// NewDeriver creates a Deriver over t.
func NewDeriver(t *Taxonomy) *Deriver {
	return &Deriver{taxonomy: t, classifier: NewClassifier(t)}
}

// Classifier returns the classifier used by the deriver.
func (d *Deriver) Classifier() *Classifier {
	return d.classifier
}

// Derive returns the full configuration for hostname.
func (d *Deriver) Derive(hostname string) domain.TenantConfig {
	key := d.classifier.Classify(hostname)
	def, ok := d.taxonomy.Lookup(key)
	if !ok {
		def = d.taxonomy.Fallback()
	}
	topic := ExtractTopic(hostname)

	products := slices.Clone(def.SuggestedProducts)
	if products == nil {
		products = []string{}
	}
	programs := slices.Clone(def.ImpactPrograms)
	if programs == nil {
		programs = []string{}
	}

	return domain.TenantConfig{
		Vertical:          def.Key,
		Topic:             topic,
		Title:             topic + " " + def.TitleSuffix,
		Description:       interpolateDescription(def.Description, topic),
		Theming:           def.Theming,
		AIContext:         def.AIContext,
		ImpactPrograms:    programs,
		Features:          def.Features,
		SuggestedProducts: products,
	}
}

// interpolateDescription replaces the first case-sensitive "your" with "your <topic>".
func interpolateDescription(tmpl, topic string) string {
	return strings.Replace(tmpl, descriptionAnchor, descriptionAnchor+" "+strings.ToLower(topic), 1)
}
