package services

import (
	"encoding/json"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"leadsync/contexts/sales-ops/lead-sync/domain/entities"
)

var decimalPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// Canonical renders a scalar into the form used for equality during diffing.
// Numbers compare by value regardless of representation ("3", 3, 3.0 and
// "3.00" are all "3"), dates compare by calendar day when they carry no time
// of day, and text is compared after trimming surrounding whitespace.
func Canonical(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return canonicalText(v)
	case json.Number:
		return canonicalText(v.String())
	case []byte:
		return canonicalText(string(v))
	case int:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return canonicalText(strconv.FormatFloat(float64(v), 'f', -1, 32))
	case float64:
		return canonicalText(strconv.FormatFloat(v, 'f', -1, 64))
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return canonicalTime(v)
	case *time.Time:
		if v == nil {
			return ""
		}
		return canonicalTime(*v)
	case *string:
		if v == nil {
			return ""
		}
		return canonicalText(*v)
	default:
		return canonicalText(fmt.Sprint(v))
	}
}

// CanonicalField canonicalizes value for comparison under field. Typed lead
// columns compare by value through Canonical; every other column compares as
// trimmed text, so "007" and "7" stay distinct client names.
func CanonicalField(field string, value any) string {
	if entities.IsTypedLeadField(field) {
		return Canonical(value)
	}
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return strings.TrimSpace(v.String())
	case []byte:
		return strings.TrimSpace(string(v))
	case *string:
		if v == nil {
			return ""
		}
		return strings.TrimSpace(*v)
	default:
		return Canonical(value)
	}
}

func canonicalText(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}
	if number, ok := canonicalNumber(value); ok {
		return number
	}
	if parsed, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return canonicalTime(parsed)
	}
	return value
}

func canonicalNumber(value string) (string, bool) {
	if !decimalPattern.MatchString(value) {
		return "", false
	}
	rat, ok := new(big.Rat).SetString(value)
	if !ok {
		return "", false
	}
	if rat.IsInt() {
		return rat.Num().String(), true
	}
	return rat.RatString(), true
}

func canonicalTime(value time.Time) string {
	utc := value.UTC()
	if utc.Hour() == 0 && utc.Minute() == 0 && utc.Second() == 0 && utc.Nanosecond() == 0 {
		return utc.Format(entities.LeadDateLayout)
	}
	return utc.Format(time.RFC3339Nano)
}

// IsBlank reports whether the value renders to an empty cell.
func IsBlank(value any) bool {
	return Canonical(value) == ""
}
