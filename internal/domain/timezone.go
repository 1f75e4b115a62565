package domain

import (
	"time"
	_ "time/tzdata" // overseas zones must resolve on minimal images
)

const defaultTimezone = "Europe/Paris"

var departmentTimezones = map[string]string{
	"971": "America/Guadeloupe",
	"972": "America/Martinique",
	"973": "America/Cayenne",
	"974": "Indian/Reunion",
	"975": "America/Miquelon",
	"976": "Indian/Mayotte",
	"984": "Indian/Kerguelen",
	"986": "Pacific/Wallis",
	"987": "Pacific/Tahiti",
	"988": "Pacific/Noumea",
}

// DepartmentTimezone returns the IANA timezone name of a French département code.
func DepartmentTimezone(departementCode string) string {
	if tz, ok := departmentTimezones[departementCode]; ok {
		return tz
	}

	return defaultTimezone
}

// DepartmentLocation loads the location of a département, falling back to Paris.
func DepartmentLocation(departementCode string) *time.Location {
	loc, err := time.LoadLocation(DepartmentTimezone(departementCode))
	if err != nil {
		loc, _ = time.LoadLocation(defaultTimezone)
	}

	return loc
}

// LocalToUTC interprets a wall-clock time in loc and returns it in UTC.
func LocalToUTC(local time.Time, loc *time.Location) time.Time {
	return time.Date(
		local.Year(), local.Month(), local.Day(),
		local.Hour(), local.Minute(), local.Second(), local.Nanosecond(),
		loc,
	).UTC()
}
