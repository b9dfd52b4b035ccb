package dao

// Parameter filters List results by a named entity field. Value is either a
// string (equality) or a []string (membership).
type Parameter struct {
	Name  string
	Value interface{}
}

// NewParameter creates an equality (one value) or membership (many values) filter.
func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}

// Values returns the accepted values of the parameter.
func (p *Parameter) Values() []string {
	switch actual := p.Value.(type) {
	case string:
		return []string{actual}
	case []string:
		return actual
	}
	return nil
}
