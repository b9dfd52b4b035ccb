package criteria

import (
	"github.com/viant/fingov/service/dao"
)

// Match reports whether value satisfies every parameter. Values that do not
// expose fields only match an empty parameter list; unknown field names never
// match.
func Match(value interface{}, parameters []*dao.Parameter) bool {
	if len(parameters) == 0 {
		return true
	}
	fielder, ok := value.(dao.Fielder)
	if !ok {
		return false
	}
	for _, parameter := range parameters {
		if parameter == nil {
			continue
		}
		actual, ok := fielder.Field(parameter.Name)
		if !ok || !contains(parameter.Values(), actual) {
			return false
		}
	}
	return true
}

func contains(candidates []string, value string) bool {
	for _, candidate := range candidates {
		if candidate == value {
			return true
		}
	}
	return false
}
