package calculator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/pricewatch/competitor-price-watcher/internal/models"
)

// evalCalculation applies a read_price calculation expression to the scraped
// price. Dimension placeholders like {quantity} are inlined as double
// literals before compilation, and the scraped price is bound to the `price`
// variable, so config authors can write e.g. "price / {quantity}" or
// "price * 1.05".
func evalCalculation(expression string, price float64, dims models.Dimensions) (float64, error) {
	rendered, err := renderExpression(expression, dims)
	if err != nil {
		return 0, err
	}

	env, err := cel.NewEnv(cel.Variable("price", cel.DoubleType))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCalculationFailed, err)
	}

	ast, issues := env.Compile(rendered)
	if issues != nil && issues.Err() != nil {
		return 0, fmt.Errorf("%w: compile %q: %v", ErrCalculationFailed, rendered, issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCalculationFailed, err)
	}

	out, _, err := prg.Eval(map[string]any{"price": price})
	if err != nil {
		return 0, fmt.Errorf("%w: eval %q: %v", ErrCalculationFailed, rendered, err)
	}

	switch v := out.Value().(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("%w: expression %q produced %T, want a number", ErrCalculationFailed, rendered, out.Value())
	}
}

// renderExpression inlines dimension placeholders as double literals. The
// literals always carry a fractional part so the whole expression evaluates
// in double arithmetic regardless of the dimension's value.
func renderExpression(expression string, dims models.Dimensions) (string, error) {
	rendered := expression
	for _, field := range models.DimensionFields {
		placeholder := "{" + field + "}"
		if !strings.Contains(rendered, placeholder) {
			continue
		}
		value, ok := dims.Get(field)
		if !ok || value == 0 {
			return "", fmt.Errorf("%w: %s referenced by calculation %q", ErrDimensionMissing, field, expression)
		}
		literal := strconv.FormatFloat(value, 'f', -1, 64)
		if !strings.Contains(literal, ".") {
			literal += ".0"
		}
		rendered = strings.ReplaceAll(rendered, placeholder, literal)
	}
	return rendered, nil
}
