package binder

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"

	"github.com/edumerge/mail-merge/types"
)

type IBinderClient interface {
	Bind(template *types.Template, fields []string) *types.Binding
}

type BinderClient struct {
	StrictFieldCase bool
	Logger          *logrus.Logger
}

func NewBinderClient(strictFieldCase bool, logger *logrus.Logger) *BinderClient {
	return &BinderClient{
		StrictFieldCase: strictFieldCase,
		Logger:          logger,
	}
}

// Bind resolves every template placeholder against the data source fields. An exact
// name wins; otherwise a single case-folded match is accepted unless
// StrictFieldCase is set. Placeholders left over are reported as unmatched, in
// template order.
func (binderClient *BinderClient) Bind(template *types.Template, fields []string) *types.Binding {
	binding := &types.Binding{
		Resolved:  map[string]string{},
		Unmatched: []string{},
	}

	fold := cases.Fold()
	exact := make(map[string]bool, len(fields))
	folded := make(map[string][]string, len(fields))
	for _, field := range fields {
		exact[field] = true
		key := fold.String(field)
		folded[key] = append(folded[key], field)
	}

	for _, placeholder := range template.Placeholders() {
		if exact[placeholder] {
			binding.Resolved[placeholder] = placeholder
			continue
		}

		if !binderClient.StrictFieldCase {
			candidates := folded[fold.String(placeholder)]
			if len(candidates) == 1 {
				binderClient.Logger.Debugf("Placeholder %s bound to field %s ignoring case", placeholder, candidates[0])
				binding.Resolved[placeholder] = candidates[0]
				continue
			}
			if len(candidates) > 1 {
				binderClient.Logger.Warnf("Placeholder %s matches several fields ignoring case: %v", placeholder, candidates)
			}
		}

		binderClient.Logger.Warnf("Placeholder %s has no matching field in the data source", placeholder)
		binding.Unmatched = append(binding.Unmatched, placeholder)
	}

	return binding
}
