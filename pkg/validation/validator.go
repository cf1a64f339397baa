package validation

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/dd0wney/cluso-corridors/pkg/routing"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// MaxNodeCodeLength bounds source/destination codes.
	MaxNodeCodeLength = 64

	nodeCodePattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)
)

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("nodecode", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return len(s) <= MaxNodeCodeLength && nodeCodePattern.MatchString(s)
	})
}

// Limits bounds what a single routing request may ask for.
type Limits struct {
	MaxK    int
	MaxHops int
}

// WeightsRequest is the weight triple as sent by clients.
type WeightsRequest struct {
	Cost float64 `json:"cost" validate:"gte=0"`
	Time float64 `json:"time" validate:"gte=0"`
	Risk float64 `json:"risk" validate:"gte=0"`
}

// RouteRequest is the body of POST /routes.
type RouteRequest struct {
	Source         string          `json:"source" validate:"required,nodecode"`
	Destination    string          `json:"destination" validate:"required,nodecode"`
	K              *int            `json:"k,omitempty" validate:"omitempty,gte=0"`
	MaxHops        *int            `json:"max_hops,omitempty" validate:"omitempty,gte=1"`
	Weights        *WeightsRequest `json:"weights,omitempty"`
	HigherIsBetter bool            `json:"higher_is_better,omitempty"`
}

// ValidateRouteRequest checks struct tags, then the configured limits.
func ValidateRouteRequest(req *RouteRequest, limits Limits) error {
	if req == nil {
		return errors.New("route request cannot be nil")
	}

	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}

	if req.K != nil && limits.MaxK > 0 && *req.K > limits.MaxK {
		return fmt.Errorf("K: must not exceed %d", limits.MaxK)
	}
	if req.MaxHops != nil && limits.MaxHops > 0 && *req.MaxHops > limits.MaxHops {
		return fmt.Errorf("MaxHops: must not exceed %d", limits.MaxHops)
	}
	return nil
}

// ValidateNodeCode checks a single node code, as used in URL paths.
func ValidateNodeCode(code string) error {
	if code == "" {
		return errors.New("node code cannot be empty")
	}
	if err := validate.Var(code, "nodecode"); err != nil {
		return fmt.Errorf("node code %q is invalid (letters, digits, '_', '-', '.', at most %d characters)", code, MaxNodeCodeLength)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Field()
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "gte", "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "lte", "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "nodecode":
			return fmt.Errorf("%s: invalid node code", field)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}

// ToRouting converts a validated request into an engine request.
func (r *RouteRequest) ToRouting() routing.Request {
	out := routing.Request{
		Source:         r.Source,
		Destination:    r.Destination,
		K:              r.K,
		MaxHops:        r.MaxHops,
		HigherIsBetter: r.HigherIsBetter,
	}
	if r.Weights != nil {
		out.Weights = &routing.Weights{Cost: r.Weights.Cost, Time: r.Weights.Time, Risk: r.Weights.Risk}
	}
	return out
}
