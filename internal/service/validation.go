package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"habit-planner/internal/checklist"
	"habit-planner/internal/model"
	"habit-planner/internal/recurrence"
)

// validate is shared by every input type of the package.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("frequency", validateFrequency)
	_ = validate.RegisterValidation("condition", validateCondition)

	validate.RegisterStructValidation(planStructLevel, PlanInput{})
	validate.RegisterStructValidation(goalStructLevel, GoalInput{})
	validate.RegisterStructValidation(reminderStructLevel, ReminderInput{})
}

func validateFrequency(fl validator.FieldLevel) bool {
	_, err := recurrence.ParseFrequency(fl.Field().String())
	return err == nil
}

// validateCondition accepts the success condition names; the number itself is checked by required_if.
func validateCondition(fl validator.FieldLevel) bool {
	_, _, err := checklist.ParseCondition(fl.Field().String(), 1)
	return err == nil
}

func planStructLevel(sl validator.StructLevel) {
	in := sl.Current().Interface().(PlanInput)
	switch in.EvaluationType {
	case model.EvalNumeric:
		if in.NumericTarget == nil {
			sl.ReportError(in.NumericTarget, "numeric_target", "NumericTarget", "required_if", "numeric")
		}
	case model.EvalChecklist:
		if in.Checklist == nil || len(in.Checklist.Items) == 0 {
			sl.ReportError(in.Checklist, "checklist", "Checklist", "required_if", "checklist")
		}
	}
	if in.AddReminder && in.Reminder == nil {
		sl.ReportError(in.Reminder, "reminder", "Reminder", "required_if", "add_reminder")
	}
}

func goalStructLevel(sl validator.StructLevel) {
	in := sl.Current().Interface().(GoalInput)
	if in.Repetition != nil && in.Frequency != "" {
		sl.ReportError(in.Repetition, "repetition", "Repetition", "excluded_with", "frequency")
	}
	if in.EvaluationType == model.EvalChecklist && (in.Checklist == nil || len(in.Checklist.Items) == 0) {
		sl.ReportError(in.Checklist, "checklist", "Checklist", "required_if", "checklist")
	}
}

func reminderStructLevel(sl validator.StructLevel) {
	in := sl.Current().Interface().(ReminderInput)
	switch in.Schedule {
	case model.ReminderSpecificDays:
		if len(in.SelectedWeekDays) == 0 {
			sl.ReportError(in.SelectedWeekDays, "selected_week_days", "SelectedWeekDays", "required_if", "specific-days")
		}
	case model.ReminderDaysBefore:
		if in.DaysBeforeCount == nil {
			sl.ReportError(in.DaysBeforeCount, "days_before_count", "DaysBeforeCount", "required_if", "days-before")
		}
	}
}

// check validates in and converts failures into a *ValidationError.
func check(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return invalidField("input", err.Error())
	}
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fieldKey(fe.Namespace())] = message(fe)
	}
	return out
}

// fieldKey drops the root struct and embedded struct names from a namespace,
// leaving the json path, e.g. "reminder.time" or "checklist.items[0].text".
func fieldKey(namespace string) string {
	parts := strings.Split(namespace, ".")
	keep := make([]string, 0, len(parts))
	for i, p := range parts {
		if i == 0 || p == "" {
			continue
		}
		if r := []rune(p)[0]; unicode.IsUpper(r) {
			continue
		}
		keep = append(keep, p)
	}
	return strings.Join(keep, ".")
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "datetime":
		return fmt.Sprintf("must match the format %s", fe.Param())
	case "email":
		return "must be a valid email address"
	case "max":
		return "must be at most " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "frequency":
		return "is not a known frequency"
	case "condition":
		return "must be all, any, number or 1-10"
	case "excluded_with":
		return "cannot be combined with " + fe.Param()
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}
