package scoring

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is matched by every ValidationError.
var ErrInvalid = errors.New("invalid input")

// ValidationError is a user-correctable problem with submitted input.
type ValidationError struct {
	Problems []string
	// Missing lists the unmet criteria that lack an explanation.
	Missing []Criterion
}

func (e *ValidationError) Error() string {
	problems := append([]string(nil), e.Problems...)
	for _, c := range e.Missing {
		problems = append(problems, fmt.Sprintf("descrição do erro é obrigatória quando o critério %q não é atendido", c.Key()))
	}
	return strings.Join(problems, "; ")
}

// Is lets errors.Is(err, ErrInvalid) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

// Validate enforces the submission rule: every unmet criterion carries a non-empty
// explanation. All offenders are reported at once.
func Validate(set CriterionSet) error {
	var missing []Criterion
	for _, c := range set.Unmet() {
		if strings.TrimSpace(set[c].ErrorDescription) == "" {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}
