package v1

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/shelfkeeper/shelfkeeper/pkg/server/api"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/jobs"
)

var validate = validator.New()

// ParseJobKind reads and validates the {kind} path parameter.
func ParseJobKind(r *http.Request) (jobs.Kind, error) {
	v := strings.ToLower(strings.TrimSpace(r.PathValue("kind")))
	if v == "" {
		return "", &api.ValidationError{Field: "kind", Reason: "required"}
	}
	if err := validate.Var(v, "oneof=scan update modify"); err != nil {
		return "", &api.ValidationError{Field: "kind", Reason: "must be one of: scan,update,modify"}
	}
	return jobs.ParseKind(v)
}
