package epidemic

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

var (
	// ErrUnknownVariable is returned when a condition references a name that is not bound.
	ErrUnknownVariable = errors.New("unknown variable")
	// ErrDivisionByZero is returned when a condition divides by zero.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrUnsupportedExpr is returned when condition text does not compile to a boolean
	// over the bound names.
	ErrUnsupportedExpr = errors.New("unsupported expression")
)

// Snapshot is the read-only state a Condition is evaluated against:
// the scheduler time and the owning population's live state.
type Snapshot struct {
	Now          float64
	Population   string
	Compartments Compartments
	N            float64
	Rates        RateVector
}

// Lookup resolves a variable name.
//
// Bound names: now, S, I, R, Xs, Xi, Dn, Di, N and the rate names
// v, mu, gamma, kappa, omega_s, omega_i, omega_e, q, delta, beta, lambda.
func (s Snapshot) Lookup(name string) (float64, error) {
	c := s.Compartments
	switch name {
	case "now":
		return s.Now, nil
	case "S":
		return c.S, nil
	case "I":
		return c.I, nil
	case "R":
		return c.R, nil
	case "Xs":
		return c.Xs, nil
	case "Xi":
		return c.Xi, nil
	case "Dn":
		return c.Dn, nil
	case "Di":
		return c.Di, nil
	case "N":
		return s.N, nil
	case "v":
		return s.Rates.V, nil
	case "mu":
		return s.Rates.Mu, nil
	case "gamma":
		return s.Rates.Gamma, nil
	case "kappa":
		return s.Rates.Kappa, nil
	case "omega_s":
		return s.Rates.OmegaS, nil
	case "omega_i":
		return s.Rates.OmegaI, nil
	case "omega_e":
		return s.Rates.OmegaE, nil
	case "q":
		return s.Rates.Q, nil
	case "delta":
		return s.Rates.Delta, nil
	case "beta":
		return s.Rates.EffectiveBeta(), nil
	case "lambda":
		return s.Rates.ForceOfInfection(c.I, s.N), nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownVariable, name)
}

// Expr is a numeric expression node.
type Expr interface {
	Value(s Snapshot) (float64, error)
	String() string
}

// Const is a numeric literal.
type Const float64

func (c Const) Value(Snapshot) (float64, error) { return float64(c), nil }
func (c Const) String() string                  { return strconv.FormatFloat(float64(c), 'g', -1, 64) }

// Var is a reference to a bound name, see Snapshot.Lookup.
type Var string

func (v Var) Value(s Snapshot) (float64, error) { return s.Lookup(string(v)) }
func (v Var) String() string                    { return string(v) }

// ArithOp is an arithmetic operator.
type ArithOp string

const (
	OpAdd ArithOp = "+"
	OpSub ArithOp = "-"
	OpMul ArithOp = "*"
	OpDiv ArithOp = "/"
)

// Arith combines two numeric expressions.
type Arith struct {
	Op   ArithOp
	L, R Expr
}

func (a Arith) Value(s Snapshot) (float64, error) {
	l, err := a.L.Value(s)
	if err != nil {
		return 0, err
	}
	r, err := a.R.Value(s)
	if err != nil {
		return 0, err
	}
	switch a.Op {
	case OpAdd:
		return l + r, nil
	case OpSub:
		return l - r, nil
	case OpMul:
		return l * r, nil
	case OpDiv:
		if r == 0 {
			return 0, fmt.Errorf("%s: %w", a, ErrDivisionByZero)
		}
		return l / r, nil
	}
	return 0, fmt.Errorf("%w: operator %q", ErrUnsupportedExpr, a.Op)
}

func (a Arith) String() string { return fmt.Sprintf("(%s %s %s)", a.L, a.Op, a.R) }

// Condition is a side-effect-free predicate over a Snapshot.
type Condition interface {
	Holds(s Snapshot) (bool, error)
	String() string
}

// CmpOp is a comparison operator.
type CmpOp string

const (
	OpLT CmpOp = "<"
	OpLE CmpOp = "<="
	OpGT CmpOp = ">"
	OpGE CmpOp = ">="
	OpEQ CmpOp = "=="
	OpNE CmpOp = "!="
)

// Compare compares two numeric expressions.
type Compare struct {
	Op   CmpOp
	L, R Expr
}

// Cmp builds a Compare.
func Cmp(l Expr, op CmpOp, r Expr) Compare {
	return Compare{Op: op, L: l, R: r}
}

func (c Compare) Holds(s Snapshot) (bool, error) {
	l, err := c.L.Value(s)
	if err != nil {
		return false, err
	}
	r, err := c.R.Value(s)
	if err != nil {
		return false, err
	}
	switch c.Op {
	case OpLT:
		return l < r, nil
	case OpLE:
		return l <= r, nil
	case OpGT:
		return l > r, nil
	case OpGE:
		return l >= r, nil
	case OpEQ:
		return l == r, nil
	case OpNE:
		return l != r, nil
	}
	return false, fmt.Errorf("%w: operator %q", ErrUnsupportedExpr, c.Op)
}

func (c Compare) String() string { return fmt.Sprintf("%s %s %s", c.L, c.Op, c.R) }

// And holds when every member holds. Evaluation short-circuits.
type And []Condition

func (a And) Holds(s Snapshot) (bool, error) {
	for _, c := range a {
		ok, err := c.Holds(s)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (a And) String() string { return joinConds([]Condition(a), " && ") }

// Or holds when any member holds. Evaluation short-circuits.
type Or []Condition

func (o Or) Holds(s Snapshot) (bool, error) {
	for _, c := range o {
		ok, err := c.Holds(s)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (o Or) String() string { return joinConds([]Condition(o), " || ") }

// Not negates a condition.
type Not struct {
	C Condition
}

func (n Not) Holds(s Snapshot) (bool, error) {
	ok, err := n.C.Holds(s)
	return !ok && err == nil, err
}

func (n Not) String() string { return "!(" + n.C.String() + ")" }

// Bool is a constant condition.
type Bool bool

func (b Bool) Holds(Snapshot) (bool, error) { return bool(b), nil }
func (b Bool) String() string               { return strconv.FormatBool(bool(b)) }

// Malformed stands in for condition text that failed to parse. It never holds;
// every evaluation reports the parse error so it is logged like any other failure.
type Malformed struct {
	Text string
	Err  error
}

func (m Malformed) Holds(Snapshot) (bool, error) {
	return false, fmt.Errorf("malformed condition %q: %w", m.Text, m.Err)
}

func (m Malformed) String() string { return m.Text }

func joinConds(cs []Condition, sep string) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = "(" + c.String() + ")"
	}
	return strings.Join(parts, sep)
}

// boundNames lists every name Snapshot.Lookup resolves, in documentation order.
var boundNames = []string{
	"now", "S", "I", "R", "Xs", "Xi", "Dn", "Di", "N",
	"v", "mu", "gamma", "kappa", "omega_s", "omega_i", "omega_e", "q", "delta", "beta", "lambda",
}

// Env returns every bound name with its value, the environment condition text runs against.
func (s Snapshot) Env() map[string]any {
	env := make(map[string]any, len(boundNames))
	for _, name := range boundNames {
		v, _ := s.Lookup(name)
		env[name] = v
	}
	return env
}

// divide replaces the "/" operator so that a zero divisor is an evaluation error
// rather than an infinity that could make a threshold hold.
func divide(params ...any) (any, error) {
	l, r := toFloat(params[0]), toFloat(params[1])
	if r == 0 {
		return nil, fmt.Errorf("%v / %v: %w", params[0], params[1], ErrDivisionByZero)
	}
	return l / r, nil
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	}
	return math.NaN()
}

func compileOptions() []expr.Option {
	return []expr.Option{
		expr.Env(Snapshot{}.Env()),
		expr.AsBool(),
		expr.DisableAllBuiltins(),
		expr.Function("div", divide,
			new(func(float64, float64) float64),
			new(func(float64, int) float64),
			new(func(int, float64) float64),
			new(func(int, int) float64),
		),
		expr.Operator("/", "div"),
	}
}

// Expression is a Condition compiled from text. It is evaluated against Snapshot.Env;
// only the bound names and the div helper behind "/" are visible to it.
type Expression struct {
	Text    string
	program *vm.Program
}

func (e Expression) Holds(s Snapshot) (bool, error) {
	out, err := expr.Run(e.program, s.Env())
	if err != nil {
		return false, fmt.Errorf("evaluating %q: %w", e.Text, err)
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("evaluating %q: %w: result %T", e.Text, ErrUnsupportedExpr, out)
	}
	return b, nil
}

func (e Expression) String() string { return e.Text }

// ParseCondition compiles condition text such as "I >= 1e6 && now > 20" into a Condition.
// The text may use numeric literals, the bound names, + - * /, comparisons, &&, ||, !
// (or and/or/not) and parentheses, and must yield a boolean. Unknown names, builtins and
// non-boolean results are rejected at compile time.
func ParseCondition(text string) (Condition, error) {
	program, err := expr.Compile(text, compileOptions()...)
	if err != nil {
		return nil, fmt.Errorf("parsing condition %q: %w: %w", text, ErrUnsupportedExpr, err)
	}
	return Expression{Text: text, program: program}, nil
}

// ConditionFromText is ParseCondition that never fails: unparsable text becomes a Malformed
// condition.
func ConditionFromText(text string) Condition {
	cond, err := ParseCondition(text)
	if err != nil {
		return Malformed{Text: text, Err: err}
	}
	return cond
}
