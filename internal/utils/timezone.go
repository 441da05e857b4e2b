package utils

import (
	"fmt"
	"time"
)

// LoadTimezone resolves an IANA zone name. Empty means the server's local zone.
func LoadTimezone(timezone string) (*time.Location, error) {
	if timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %s", timezone)
	}
	return loc, nil
}
