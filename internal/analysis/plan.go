// Package analysis runs parametrized fill-speed analyses described by a
// YAML plan: ingest, normalize, extract, join, then rank and correlate.
package analysis

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/jackdeye/UCLA-Housing-Analysis/internal/model"
)

// Plan lists the runs to execute.
type Plan struct {
	Runs []Run `yaml:"runs" validate:"required,min=1,unique=Name,dive"`
}

// Run is one analysis configuration. Empty fields take their value from the
// analysis defaults in config.
type Run struct {
	Name       string `yaml:"name" validate:"required,excludesall=/\\"`
	Population string `yaml:"population" validate:"omitempty,oneof=on_campus apartments all"`
	YearBasis  string `yaml:"year_basis" validate:"omitempty,oneof=built effective"`

	ThresholdPct    float64        `yaml:"threshold_pct" validate:"omitempty,gt=0,lte=100"`
	Aggregation     string         `yaml:"aggregation" validate:"omitempty,grouping"`
	LeadingPolicy   string         `yaml:"leading_policy" validate:"omitempty,oneof=exclude zero_fill"`
	DuplicatePolicy string         `yaml:"duplicate_policy" validate:"omitempty,oneof=last first"`
	Capacities      map[string]int `yaml:"capacities" validate:"omitempty,dive,gt=0"`

	Snapshots []string `yaml:"snapshots" validate:"required_without=FillTimes"`
	FillTimes string   `yaml:"fill_times" validate:"required_without=Snapshots"`
	Window    Window   `yaml:"window"`
	Buildings []string `yaml:"buildings"`

	Covariates   []CovariateSource `yaml:"covariates" validate:"dive"`
	Features     []string          `yaml:"features"`
	JoinMode     string            `yaml:"join_mode" validate:"omitempty,oneof=inner left_outer full_outer left full outer"`
	Method       string            `yaml:"method" validate:"omitempty,oneof=spearman pearson_on_ranks"`
	CensorPolicy string            `yaml:"censor_policy" validate:"omitempty,oneof=penalty drop"`
	CensorOffset string            `yaml:"censor_offset" validate:"omitempty,duration"`

	Regression    Regression `yaml:"regression"`
	ReferenceYear int        `yaml:"reference_year" validate:"gte=0"`
	OutputDir     string     `yaml:"output_dir"`
}

// Window bounds fill extraction. Either side may be empty.
type Window struct {
	Start string `yaml:"start" validate:"omitempty,timestamp"`
	End   string `yaml:"end" validate:"omitempty,timestamp"`
}

// CovariateSource is one covariate file.
type CovariateSource struct {
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind" validate:"required,oneof=distance age density amenities"`
	Path   string `yaml:"path" validate:"required"`
	Rename string `yaml:"rename"`
	Key    string `yaml:"key"`
}

// Regression configures the univariate OLS leaderboard.
type Regression struct {
	Enabled bool   `yaml:"enabled"`
	Target  string `yaml:"target" validate:"omitempty,oneof=fill_rank hours"`
	Origin  string `yaml:"origin" validate:"omitempty,timestamp"`
}

// LoadPlan reads and validates a plan. Relative paths inside the plan are
// resolved against the plan file's directory.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "analysis: read plan %s", path)
	}
	plan, err := ParsePlan(data)
	if err != nil {
		return nil, err
	}
	plan.resolve(filepath.Dir(path))
	return plan, nil
}

// ParsePlan decodes and validates plan YAML without touching paths.
func ParsePlan(data []byte) (*Plan, error) {
	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, eris.Wrap(err, "analysis: parse plan")
	}
	if err := Validate(&plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// Validate checks plan struct tags.
func Validate(plan *Plan) error {
	err := newValidator().Struct(plan)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return eris.Wrap(err, "analysis: validate plan")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return eris.Errorf("analysis: invalid plan: %s", strings.Join(msgs, "; "))
}

func formatFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Plan.")
	switch fe.Tag() {
	case "required", "required_without", "required_if":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "duration":
		return field + " must be a duration like 24h"
	case "timestamp":
		return field + " must be a timestamp like 2025-02-18T09:00:00"
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

func newValidator() *validator.Validate {
	v := validator.New()

	_ = v.RegisterValidation("duration", isDuration)
	_ = v.RegisterValidation("timestamp", isTimestamp)
	_ = v.RegisterValidation("grouping", isGrouping)

	// Use YAML tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func isDuration(fl validator.FieldLevel) bool {
	d, err := time.ParseDuration(fl.Field().String())
	return err == nil && d > 0
}

func isTimestamp(fl validator.FieldLevel) bool {
	_, ok := model.ParseTimestamp(fl.Field().String())
	return ok
}

func isGrouping(fl validator.FieldLevel) bool {
	_, err := model.ParseGrouping(fl.Field().String())
	return err == nil
}

func (p *Plan) resolve(base string) {
	abs := func(path string) string {
		if path == "" || filepath.IsAbs(path) {
			return path
		}
		return filepath.Join(base, path)
	}
	for i := range p.Runs {
		r := &p.Runs[i]
		for j := range r.Snapshots {
			r.Snapshots[j] = abs(r.Snapshots[j])
		}
		r.FillTimes = abs(r.FillTimes)
		for j := range r.Covariates {
			r.Covariates[j].Path = abs(r.Covariates[j].Path)
		}
		r.OutputDir = abs(r.OutputDir)
	}
}
