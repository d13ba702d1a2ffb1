// Package queryfile loads structured YAML rule documents into compiled
// quarry queries. The document format maps one-to-one onto the parsed query
// data model — it is a serialization of already-authored rules, not the
// user-facing DSL, which is parsed by the host front-end.
package queryfile

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/jward/quarry"
)

// Document is one loaded rule document: the declared source and sink kinds
// plus the compiled queries.
type Document struct {
	Sources []string
	Sinks   []string
	Queries []quarry.Query
}

type rawDocument struct {
	Sources []string   `yaml:"sources"`
	Sinks   []string   `yaml:"sinks"`
	Queries []rawQuery `yaml:"queries"`
}

type rawQuery struct {
	Name  string          `yaml:"name"`
	Kind  string          `yaml:"kind"`
	Where []rawConstraint `yaml:"where"`
	Model []rawProduction `yaml:"model"`
}

// rawConstraint holds exactly one constraint case per list entry.
type rawConstraint struct {
	NameMatches        string          `yaml:"name_matches,omitempty"`
	DecoratorMatches   string          `yaml:"decorator_matches,omitempty"`
	ReturnAnnotated    bool            `yaml:"return_is_annotated,omitempty"`
	ParameterAnnotated bool            `yaml:"any_parameter_is_annotated,omitempty"`
	AnyOf              []rawConstraint `yaml:"any_of,omitempty"`
	ParentEquals       string          `yaml:"parent_equals,omitempty"`
	ParentExtends      string          `yaml:"parent_extends,omitempty"`
	ParentMatches      string          `yaml:"parent_matches,omitempty"`
}

type rawProduction struct {
	Returns       []rawDirective `yaml:"returns,omitempty"`
	Parameter     *rawNamed      `yaml:"parameter,omitempty"`
	Positional    *rawPositional `yaml:"positional,omitempty"`
	AllParameters *rawAll        `yaml:"all_parameters,omitempty"`
	Attribute     []rawDirective `yaml:"attribute,omitempty"`
}

type rawNamed struct {
	Name  string         `yaml:"name"`
	Taint []rawDirective `yaml:"taint"`
}

type rawPositional struct {
	Index int            `yaml:"index"`
	Taint []rawDirective `yaml:"taint"`
}

type rawAll struct {
	Exclude []string       `yaml:"exclude"`
	Taint   []rawDirective `yaml:"taint"`
}

type rawDirective struct {
	Source           string         `yaml:"source,omitempty"`
	Sink             string         `yaml:"sink,omitempty"`
	ParametricSource *rawParametric `yaml:"parametric_source,omitempty"`
	ParametricSink   *rawParametric `yaml:"parametric_sink,omitempty"`
}

type rawParametric struct {
	Pattern string `yaml:"pattern"`
	Kind    string `yaml:"kind"`
}

// Load reads and parses a rule document from path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("queryfile: read %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("queryfile: %s: %w", path, err)
	}
	return doc, nil
}

// Parse parses a rule document, compiling every regex pattern once at load
// time. Errors name the offending query.
func Parse(data []byte) (*Document, error) {
	var raw rawDocument
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	doc := &Document{Sources: raw.Sources, Sinks: raw.Sinks}
	for i, rq := range raw.Queries {
		q, err := buildQuery(rq)
		if err != nil {
			name := rq.Name
			if name == "" {
				name = fmt.Sprintf("#%d", i+1)
			}
			return nil, fmt.Errorf("query %s: %w", name, err)
		}
		doc.Queries = append(doc.Queries, q)
	}
	return doc, nil
}

func buildQuery(raw rawQuery) (quarry.Query, error) {
	q := quarry.Query{Name: raw.Name}

	switch raw.Kind {
	case "function":
		q.Kind = quarry.FunctionModel
	case "method":
		q.Kind = quarry.MethodModel
	case "attribute":
		q.Kind = quarry.AttributeModel
	default:
		return quarry.Query{}, fmt.Errorf("unknown kind %q", raw.Kind)
	}

	for _, rc := range raw.Where {
		c, err := buildConstraint(rc)
		if err != nil {
			return quarry.Query{}, err
		}
		q.Where = append(q.Where, c)
	}
	for _, rp := range raw.Model {
		p, err := buildProduction(rp, q.Kind)
		if err != nil {
			return quarry.Query{}, err
		}
		q.Models = append(q.Models, p)
	}
	if len(q.Models) == 0 {
		return quarry.Query{}, fmt.Errorf("no model productions")
	}
	return q, nil
}

func buildConstraint(raw rawConstraint) (quarry.Constraint, error) {
	var (
		built quarry.Constraint
		count int
	)
	set := func(c quarry.Constraint) {
		built = c
		count++
	}

	if raw.NameMatches != "" {
		pattern, err := compile(raw.NameMatches)
		if err != nil {
			return nil, err
		}
		set(quarry.NameMatches{Pattern: pattern})
	}
	if raw.DecoratorMatches != "" {
		pattern, err := compile(raw.DecoratorMatches)
		if err != nil {
			return nil, err
		}
		set(quarry.DecoratorNameMatches{Pattern: pattern})
	}
	if raw.ReturnAnnotated {
		set(quarry.ReturnAnnotationSatisfies{Predicate: quarry.IsAnnotatedType{}})
	}
	if raw.ParameterAnnotated {
		set(quarry.AnyParameterAnnotationSatisfies{Predicate: quarry.IsAnnotatedType{}})
	}
	if raw.AnyOf != nil {
		var of []quarry.Constraint
		for _, sub := range raw.AnyOf {
			c, err := buildConstraint(sub)
			if err != nil {
				return nil, err
			}
			of = append(of, c)
		}
		set(quarry.AnyOf{Of: of})
	}
	if raw.ParentEquals != "" {
		set(quarry.ParentClass{Is: quarry.ClassEquals{Name: raw.ParentEquals}})
	}
	if raw.ParentExtends != "" {
		set(quarry.ParentClass{Is: quarry.ClassExtends{Name: raw.ParentExtends}})
	}
	if raw.ParentMatches != "" {
		pattern, err := compile(raw.ParentMatches)
		if err != nil {
			return nil, err
		}
		set(quarry.ParentClass{Is: quarry.ClassMatches{Pattern: pattern}})
	}

	if count != 1 {
		return nil, fmt.Errorf("constraint must set exactly one case, got %d", count)
	}
	return built, nil
}

func buildProduction(raw rawProduction, kind quarry.RuleKind) (quarry.Production, error) {
	var (
		built quarry.Production
		count int
	)

	if raw.Returns != nil {
		taint, err := buildDirectives(raw.Returns)
		if err != nil {
			return nil, err
		}
		built = quarry.ReturnTaint{Taint: taint}
		count++
	}
	if raw.Parameter != nil {
		taint, err := buildDirectives(raw.Parameter.Taint)
		if err != nil {
			return nil, err
		}
		built = quarry.NamedParameterTaint{Name: raw.Parameter.Name, Taint: taint}
		count++
	}
	if raw.Positional != nil {
		taint, err := buildDirectives(raw.Positional.Taint)
		if err != nil {
			return nil, err
		}
		built = quarry.PositionalParameterTaint{Index: raw.Positional.Index, Taint: taint}
		count++
	}
	if raw.AllParameters != nil {
		taint, err := buildDirectives(raw.AllParameters.Taint)
		if err != nil {
			return nil, err
		}
		built = quarry.AllParametersTaint{Exclude: raw.AllParameters.Exclude, Taint: taint}
		count++
	}
	if raw.Attribute != nil {
		taint, err := buildDirectives(raw.Attribute)
		if err != nil {
			return nil, err
		}
		built = quarry.AttributeTaint{Taint: taint}
		count++
	}

	if count != 1 {
		return nil, fmt.Errorf("production must set exactly one case, got %d", count)
	}

	// Reject kind mismatches at load time so they can never reach the
	// synthesizer's impossible branches.
	_, isAttribute := built.(quarry.AttributeTaint)
	if isAttribute != (kind == quarry.AttributeModel) {
		return nil, fmt.Errorf("production %T not valid under %s rules", built, kind)
	}
	return built, nil
}

func buildDirectives(raw []rawDirective) ([]quarry.TaintDirective, error) {
	var directives []quarry.TaintDirective
	for _, rd := range raw {
		var (
			built quarry.TaintDirective
			count int
		)
		if rd.Source != "" {
			built = quarry.LiteralTaint{Annotation: quarry.TaintAnnotation{Direction: quarry.FlowSource, Kind: rd.Source}}
			count++
		}
		if rd.Sink != "" {
			built = quarry.LiteralTaint{Annotation: quarry.TaintAnnotation{Direction: quarry.FlowSink, Kind: rd.Sink}}
			count++
		}
		if rd.ParametricSource != nil {
			built = quarry.ParametricSourceFromAnnotation{Pattern: rd.ParametricSource.Pattern, Kind: rd.ParametricSource.Kind}
			count++
		}
		if rd.ParametricSink != nil {
			built = quarry.ParametricSinkFromAnnotation{Pattern: rd.ParametricSink.Pattern, Kind: rd.ParametricSink.Kind}
			count++
		}
		if count != 1 {
			return nil, fmt.Errorf("taint directive must set exactly one case, got %d", count)
		}
		directives = append(directives, built)
	}
	if len(directives) == 0 {
		return nil, fmt.Errorf("empty taint directive list")
	}
	return directives, nil
}

func compile(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("pattern %q: %w", pattern, err)
	}
	return re, nil
}
