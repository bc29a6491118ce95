package timezone

import (
	"fmt"
	"sync"
	"time"

	"github.com/ringsaturn/tzf"
)

// Service resolves timezones for coordinates. Wind fields have to be
// sampled near the satellite's local overpass time, which differs per
// region, so downloads ask here before building their requests.
type Service interface {
	GetTimezone(latitude, longitude float64) (string, error)
	OverpassTimeUTC(latitude, longitude float64, day time.Time, localHour int) (string, error)
}

// service implements timezone lookup using tzf
type service struct {
	finder tzf.F
	mu     sync.RWMutex
}

var (
	instance *service
	once     sync.Once
)

// NewService creates or returns the singleton timezone service
// Uses singleton pattern because tzf.Finder loads timezone data into memory (~50MB)
func NewService() (Service, error) {
	var err error
	once.Do(func() {
		finder, findErr := tzf.NewDefaultFinder()
		if findErr != nil {
			err = fmt.Errorf("failed to initialize timezone finder: %w", findErr)
			return
		}
		instance = &service{
			finder: finder,
		}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

// GetTimezone returns the IANA timezone name for the given coordinates
// Returns timezone names like "Europe/Berlin", "America/Denver", etc.
func (s *service) GetTimezone(latitude, longitude float64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	timezone := s.finder.GetTimezoneName(longitude, latitude)
	if timezone == "" {
		return "", fmt.Errorf("could not determine timezone for coordinates lat=%f, lon=%f", latitude, longitude)
	}

	return timezone, nil
}

// OverpassTimeUTC converts a local overpass hour at the given coordinates
// into the UTC "HH:00" form the reanalysis API expects. Sun-synchronous
// satellites cross at a fixed local solar hour, early afternoon for
// Sentinel-5P.
func (s *service) OverpassTimeUTC(latitude, longitude float64, day time.Time, localHour int) (string, error) {
	name, err := s.GetTimezone(latitude, longitude)
	if err != nil {
		return "", err
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return "", fmt.Errorf("failed to load timezone %s: %w", name, err)
	}

	local := time.Date(day.Year(), day.Month(), day.Day(), localHour, 0, 0, 0, loc)
	return local.UTC().Format("15:00"), nil
}
