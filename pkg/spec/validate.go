package spec

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ValidationError describes a single spec violation. A non-empty list of
// these is the engine's only diagnostic channel: construction never proceeds
// past a failed validation.
type ValidationError struct {
	// Field is the spec field (json name) that failed validation.
	Field string `json:"field"`

	// Message describes the violation.
	Message string `json:"message"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// resourceIDPattern constrains logical identifiers and role names.
var resourceIDPattern = regexp.MustCompile(`^[A-Za-z0-9+=,.@_-]+$`)

// ReservedAliasPrefix is the provider-managed alias namespace caller keys
// must never default or resolve into.
const ReservedAliasPrefix = "alias/aws/"

// validate is the shared struct validator. It is configured once and is safe
// for concurrent use; registration errors are programming mistakes and panic.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report json tag names so diagnostics match the authored document.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	if err := v.RegisterValidation("resourceid", func(fl validator.FieldLevel) bool {
		return resourceIDPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("register resourceid validation: %v", err))
	}

	return v
}

// Validate runs the full rule battery against a spec and returns every
// violation found. All rules are evaluated independently so the caller sees
// the complete list in a single pass, not just the first failure. A nil or
// empty result means the spec is construction-ready.
func Validate(s Spec) []ValidationError {
	errs := structErrors(s)

	switch sp := s.(type) {
	case QueueSpec:
		errs = append(errs, validateQueue(sp)...)
	case *QueueSpec:
		errs = append(errs, validateQueue(*sp)...)
	case TopicSpec:
		errs = append(errs, validateTopic(sp)...)
	case *TopicSpec:
		errs = append(errs, validateTopic(*sp)...)
	case BucketSpec:
		errs = append(errs, validateBucket(sp)...)
	case *BucketSpec:
		errs = append(errs, validateBucket(*sp)...)
	case KeySpec:
		errs = append(errs, validateKey(sp)...)
	case *KeySpec:
		errs = append(errs, validateKey(*sp)...)
	case RecordSpec:
		errs = append(errs, validateRecord(sp)...)
	case *RecordSpec:
		errs = append(errs, validateRecord(*sp)...)
	case RoleSpec:
		errs = append(errs, validateRole(sp)...)
	case *RoleSpec:
		errs = append(errs, validateRole(*sp)...)
	default:
		errs = append(errs, ValidationError{
			Field:   "spec",
			Message: fmt.Sprintf("unknown spec type %T", s),
		})
	}

	return errs
}

// structErrors runs the tag-declared rules (required, length, pattern,
// count) and translates them into ValidationErrors.
func structErrors(s Spec) []ValidationError {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		// InvalidValidationError only happens for non-struct input.
		return []ValidationError{{Field: "spec", Message: err.Error()}}
	}

	out := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ValidationError{
			Field:   fieldPath(fe),
			Message: tagMessage(fe),
		})
	}
	return out
}

// fieldPath strips the root struct name from the validator namespace so the
// reported field reads like the authored document ("extra_statements[0].effect").
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return strings.TrimPrefix(ns, "Common.")
}

// tagMessage renders a stable human message per validation tag.
func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("at most %s entries are allowed", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("at least %s entries are required", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "resourceid":
		return "must match ^[A-Za-z0-9+=,.@_-]+$"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

const (
	minRetention = time.Minute
	maxRetention = 14 * 24 * time.Hour

	maxVisibility = 12 * time.Hour

	minReceiveCount = 1
	maxReceiveCount = 1000
)

func validateQueue(s QueueSpec) []ValidationError {
	var errs []ValidationError

	fifo := s.Fifo != nil && *s.Fifo

	if s.ContentBasedDeduplication != nil && *s.ContentBasedDeduplication && !fifo {
		errs = append(errs, ValidationError{
			Field:   "content_based_deduplication",
			Message: "content_based_deduplication requires fifo to be true",
		})
	}

	dlq := s.EnableDeadLetterQueue != nil && *s.EnableDeadLetterQueue
	if s.MaxReceiveCount != nil && !dlq {
		errs = append(errs, ValidationError{
			Field:   "max_receive_count",
			Message: "max_receive_count requires enable_dead_letter_queue to be true",
		})
	}
	if s.MaxReceiveCount != nil && (*s.MaxReceiveCount < minReceiveCount || *s.MaxReceiveCount > maxReceiveCount) {
		errs = append(errs, ValidationError{
			Field:   "max_receive_count",
			Message: fmt.Sprintf("must be within [%d, %d]", minReceiveCount, maxReceiveCount),
		})
	}

	if s.RetentionPeriod != nil && (*s.RetentionPeriod < minRetention || *s.RetentionPeriod > maxRetention) {
		errs = append(errs, ValidationError{
			Field:   "retention_period",
			Message: "must be between 1 minute and 14 days",
		})
	}

	if s.VisibilityTimeout != nil && (*s.VisibilityTimeout < 0 || *s.VisibilityTimeout > maxVisibility) {
		errs = append(errs, ValidationError{
			Field:   "visibility_timeout",
			Message: "must be between 0 and 12 hours",
		})
	}

	return errs
}

func validateTopic(s TopicSpec) []ValidationError {
	var errs []ValidationError

	fifo := s.Fifo != nil && *s.Fifo
	if s.ContentBasedDeduplication != nil && *s.ContentBasedDeduplication && !fifo {
		errs = append(errs, ValidationError{
			Field:   "content_based_deduplication",
			Message: "content_based_deduplication requires fifo to be true",
		})
	}

	if s.DisplayName != nil && len(*s.DisplayName) > 100 {
		errs = append(errs, ValidationError{
			Field:   "display_name",
			Message: "must be at most 100 characters",
		})
	}

	return errs
}

func validateBucket(s BucketSpec) []ValidationError {
	var errs []ValidationError

	if s.BucketName != nil {
		name := *s.BucketName
		if len(name) < 3 || len(name) > 63 {
			errs = append(errs, ValidationError{
				Field:   "bucket_name",
				Message: "must be between 3 and 63 characters",
			})
		}
		if name != strings.ToLower(name) {
			errs = append(errs, ValidationError{
				Field:   "bucket_name",
				Message: "must be lowercase",
			})
		}
	}

	if s.ExpireAfter != nil && *s.ExpireAfter < 24*time.Hour {
		errs = append(errs, ValidationError{
			Field:   "expire_after",
			Message: "must be at least 1 day",
		})
	}

	return errs
}

func validateKey(s KeySpec) []ValidationError {
	var errs []ValidationError

	if s.Alias != nil && strings.HasPrefix(strings.ToLower(*s.Alias), ReservedAliasPrefix) {
		errs = append(errs, ValidationError{
			Field:   "alias",
			Message: fmt.Sprintf("must not use the reserved %q namespace", ReservedAliasPrefix),
		})
	}

	seen := make(map[ServiceCapability]bool, len(s.Capabilities))
	for _, cap := range s.Capabilities {
		if !knownCapability(cap) {
			errs = append(errs, ValidationError{
				Field:   "capabilities",
				Message: fmt.Sprintf("unknown service capability %q", cap),
			})
			continue
		}
		if seen[cap] {
			errs = append(errs, ValidationError{
				Field:   "capabilities",
				Message: fmt.Sprintf("duplicate service capability %q", cap),
			})
		}
		seen[cap] = true
	}

	return errs
}

func knownCapability(c ServiceCapability) bool {
	switch c {
	case CapabilityQueue, CapabilityNotification, CapabilityCompute, CapabilityStorage:
		return true
	}
	return false
}

func validateRecord(s RecordSpec) []ValidationError {
	var errs []ValidationError

	if s.Weight != nil && (*s.Weight < 0 || *s.Weight > 255) {
		errs = append(errs, ValidationError{
			Field:   "weight",
			Message: "weight must be within [0, 255]",
		})
	}

	if s.Failover != nil && *s.Failover != FailoverPrimary && *s.Failover != FailoverSecondary {
		errs = append(errs, ValidationError{
			Field:   "failover",
			Message: `must be "PRIMARY" or "SECONDARY"`,
		})
	}

	if s.SubdivisionCode != nil && s.CountryCode == nil {
		errs = append(errs, ValidationError{
			Field:   "subdivision_code",
			Message: "subdivision_code requires country_code",
		})
	}

	if routed(s) && (s.SetIdentifier == nil || *s.SetIdentifier == "") {
		errs = append(errs, ValidationError{
			Field:   "set_identifier",
			Message: "set_identifier is required when a routing mode other than simple is selected",
		})
	}

	if s.TTL != nil && *s.TTL < 0 {
		errs = append(errs, ValidationError{
			Field:   "ttl",
			Message: "must not be negative",
		})
	}

	return errs
}

// routed reports whether any non-simple routing dimension is selected.
func routed(s RecordSpec) bool {
	return s.Weight != nil || s.Failover != nil || s.Region != nil ||
		s.ContinentCode != nil || s.CountryCode != nil || s.SubdivisionCode != nil
}

func validateRole(s RoleSpec) []ValidationError {
	var errs []ValidationError

	if s.MaxSessionDuration != nil && (*s.MaxSessionDuration < time.Hour || *s.MaxSessionDuration > 12*time.Hour) {
		errs = append(errs, ValidationError{
			Field:   "max_session_duration",
			Message: "must be between 1 hour and 12 hours",
		})
	}

	return errs
}
