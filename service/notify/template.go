package notify

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/shopspring/decimal"
)

type templatePair struct {
	subject *template.Template
	body    *template.Template
}

var funcs = template.FuncMap{"amount": FormatAmount}

var defaultTemplates = map[string][2]string{
	KindApprovalRequested: {
		"Approval requested: {{amount .Amount}} {{.Vendor}}",
		"A transaction of {{amount .Amount}} to {{if .Vendor}}{{.Vendor}}{{else}}an unnamed vendor{{end}}" +
			"{{if .CategoryID}} ({{.CategoryID}}){{end}} created by {{.CreatorID}} awaits your approval.\n{{.Link}}",
	},
	KindTransactionResolved: {
		"Transaction resolved: {{amount .Amount}}",
		"Transaction {{.EntityID}} of {{amount .Amount}} was resolved.\n{{.Link}}",
	},
	KindTransactionRejected: {
		"Transaction rejected: {{amount .Amount}}",
		"Transaction {{.EntityID}} of {{amount .Amount}} was rejected: {{.Comment}}\n{{.Link}}",
	},
	KindExceptionSubmitted: {
		"Spend cap exception requested",
		"A cap increase of {{amount .Amount}} was requested for {{.EntityID}}: {{.Comment}}",
	},
	KindExceptionDecided: {
		"Spend cap exception {{.Status}}",
		"Your cap exception {{.EntityID}} was {{.Status}}.{{if .Comment}} {{.Comment}}{{end}}",
	},
	KindBudgetLocked: {
		"Budget locked",
		"Budget {{.EntityID}} reached its acknowledgment quorum and is now locked.",
	},
}

// Renderer renders notifications with text/template.
type Renderer struct {
	templates map[string]*templatePair
}

// NewRenderer parses the default templates plus overrides (kind -> [subject, body]).
func NewRenderer(overrides map[string][2]string) (*Renderer, error) {
	ret := &Renderer{templates: map[string]*templatePair{}}
	sources := map[string][2]string{}
	for k, v := range defaultTemplates {
		sources[k] = v
	}
	for k, v := range overrides {
		sources[k] = v
	}
	for kind, source := range sources {
		subject, err := template.New(kind + ".subject").Funcs(funcs).Parse(source[0])
		if err != nil {
			return nil, fmt.Errorf("invalid subject template %s: %w", kind, err)
		}
		body, err := template.New(kind + ".body").Funcs(funcs).Parse(source[1])
		if err != nil {
			return nil, fmt.Errorf("invalid body template %s: %w", kind, err)
		}
		ret.templates[kind] = &templatePair{subject: subject, body: body}
	}
	return ret, nil
}

// Render produces the message for n.
func (r *Renderer) Render(n *Notification) (*Message, error) {
	pair, ok := r.templates[n.Kind]
	if !ok {
		return nil, fmt.Errorf("no template for notification kind %q", n.Kind)
	}
	subject := new(bytes.Buffer)
	if err := pair.subject.Execute(subject, n); err != nil {
		return nil, fmt.Errorf("failed to render subject %s: %w", n.Kind, err)
	}
	body := new(bytes.Buffer)
	if err := pair.body.Execute(body, n); err != nil {
		return nil, fmt.Errorf("failed to render body %s: %w", n.Kind, err)
	}
	return &Message{
		RecipientID: n.RecipientID,
		To:          n.RecipientEmail,
		Subject:     strings.TrimSpace(subject.String()),
		Body:        strings.TrimSpace(body.String()),
	}, nil
}

// FormatAmount renders minor units as a two-decimal major amount.
func FormatAmount(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}
