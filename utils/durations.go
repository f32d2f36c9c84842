package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Unit is a duration unit used as the rolling default while parsing.
type Unit string

const (
	UnitHours   Unit = "hours"
	UnitMinutes Unit = "minutes"
	UnitSeconds Unit = "seconds"
)

// FormatError reports a duration argument that could not be parsed.
type FormatError struct {
	Token string
}

func (e *FormatError) Error() string {
	if e.Token == "" {
		return "empty duration args"
	}
	return fmt.Sprintf("unknown duration format: %q", e.Token)
}

var durationToken = regexp.MustCompile(`^([0-9]+)([smh:]?)`)

// ParseDuration reads compact time-span tokens such as "1h30m", "90" or
// "2:00" left to right. A number with no unit suffix (or a ":" suffix)
// consumes the current default unit, which decays hours to minutes to
// seconds as unitless numbers are consumed.
func ParseDuration(args []string, defaultUnit Unit) (time.Duration, error) {
	if len(args) == 0 {
		return 0, &FormatError{}
	}
	var total time.Duration
	def := defaultUnit
	for _, arg := range args {
		arg = strings.ToLower(arg)
		for len(arg) > 0 {
			match := durationToken.FindStringSubmatch(arg)
			if match == nil {
				return 0, &FormatError{Token: arg}
			}
			var unit Unit
			switch match[2] {
			case "s":
				unit = UnitSeconds
			case "m":
				unit = UnitMinutes
			case "h":
				unit = UnitHours
			default: // "" or ":"
				unit = def
			}
			switch unit {
			case UnitHours:
				def = UnitMinutes
			default:
				def = UnitSeconds
			}
			value, err := strconv.ParseFloat(match[1], 64)
			if err != nil {
				return 0, &FormatError{Token: arg}
			}
			total += time.Duration(value * float64(unitDuration(unit)))
			arg = arg[len(match[0]):]
		}
	}
	return total, nil
}

func unitDuration(unit Unit) time.Duration {
	switch unit {
	case UnitHours:
		return time.Hour
	case UnitMinutes:
		return time.Minute
	default:
		return time.Second
	}
}

// FormatDuration renders a duration as natural language, e.g.
// "1 hour and 30 minutes". Zero components are omitted and a zero
// duration renders as "0 seconds".
func FormatDuration(d time.Duration) string {
	var parts []string
	hours := d / time.Hour
	d -= hours * time.Hour
	if hours > 0 {
		parts = append(parts, pluralize(float64(hours), "hour"))
	}
	minutes := d / time.Minute
	d -= minutes * time.Minute
	if minutes > 0 {
		parts = append(parts, pluralize(float64(minutes), "minute"))
	}
	if d > 0 {
		parts = append(parts, pluralize(d.Seconds(), "second"))
	}
	return NatJoin(parts, "0 seconds")
}

func pluralize(value float64, unit string) string {
	rendered := strconv.FormatFloat(value, 'f', -1, 64)
	if value == 1 {
		return rendered + " " + unit
	}
	return rendered + " " + unit + "s"
}

// NatJoin joins parts into a natural English list ("A, B, and C").
// An empty list renders as the fallback.
func NatJoin(parts []string, fallback string) string {
	switch len(parts) {
	case 0:
		return fallback
	case 1:
		return parts[0]
	case 2:
		return parts[0] + " and " + parts[1]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + ", and " + parts[len(parts)-1]
	}
}
