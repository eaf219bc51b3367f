package domain

import "fmt"

// Feature names as exposed by the admin API.
const (
	FeatureSurvey     = "survey"
	FeatureBlog       = "blog"
	FeatureNewsletter = "newsletter"
	FeatureStore      = "store"
	FeatureReferrals  = "referrals"
	FeatureSocial     = "social"
	FeatureImpact     = "impact"
)

// FeatureNames lists every toggleable feature in column order.
var FeatureNames = []string{
	FeatureSurvey,
	FeatureBlog,
	FeatureNewsletter,
	FeatureStore,
	FeatureReferrals,
	FeatureSocial,
	FeatureImpact,
}

// FeatureFlags is the per-tenant set of enabled feature modules.
type FeatureFlags struct {
	Survey     bool `json:"survey"`
	Blog       bool `json:"blog"`
	Newsletter bool `json:"newsletter"`
	Store      bool `json:"store"`
	Referrals  bool `json:"referrals"`
	Social     bool `json:"social"`
	Impact     bool `json:"impact"`
}

func (f *FeatureFlags) field(name string) (*bool, error) {
	switch name {
	case FeatureSurvey:
		return &f.Survey, nil
	case FeatureBlog:
		return &f.Blog, nil
	case FeatureNewsletter:
		return &f.Newsletter, nil
	case FeatureStore:
		return &f.Store, nil
	case FeatureReferrals:
		return &f.Referrals, nil
	case FeatureSocial:
		return &f.Social, nil
	case FeatureImpact:
		return &f.Impact, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, name)
}

// Enabled returns the value of the named feature.
func (f FeatureFlags) Enabled(name string) (bool, error) {
	p, err := f.field(name)
	if err != nil {
		return false, err
	}
	return *p, nil
}

// Apply returns a copy of f with the given overrides applied.
func (f FeatureFlags) Apply(overrides map[string]bool) (FeatureFlags, error) {
	out := f
	for name, v := range overrides {
		p, err := out.field(name)
		if err != nil {
			return f, err
		}
		*p = v
	}
	return out, nil
}
