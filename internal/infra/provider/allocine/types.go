package allocine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Diffusion versions of a showtime.
const (
	VersionOriginal = "ORIGINAL"
	VersionLocal    = "LOCAL"
	VersionDubbed   = "DUBBED"
)

const (
	projectionDigital = "DIGITAL"
	directorPosition  = "DIRECTOR"
	showtimeLayout    = "2006-01-02T15:04:05"
)

// Response represents the movieShowtimeList JSON response.
type Response struct {
	MovieShowtimeList MovieShowtimeList `json:"movieShowtimeList"`
}

// MovieShowtimeList is one page of the theater feed.
type MovieShowtimeList struct {
	TotalCount int             `json:"totalCount"`
	PageInfo   PageInfo        `json:"pageInfo"`
	Edges      []MovieShowtime `json:"edges"`
}

// PageInfo holds cursor pagination info.
type PageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

// MovieShowtime pairs a movie with its showtimes in the theater.
type MovieShowtime struct {
	Node struct {
		Movie     Movie      `json:"movie"`
		Showtimes []Showtime `json:"showtimes"`
	} `json:"node"`
}

// Movie holds the fields used to build products and offers.
type Movie struct {
	ID         string    `json:"id"`
	InternalID int64     `json:"internalId"`
	Title      string    `json:"title"`
	Type       string    `json:"type"`
	Runtime    string    `json:"runtime"`
	Synopsis   string    `json:"synopsis"`
	Poster     *Poster   `json:"poster"`
	Releases   []Release `json:"releases"`
	Credits    Credits   `json:"credits"`
}

// Poster is the movie poster.
type Poster struct {
	URL string `json:"url"`
}

// Release is a national release of the movie.
type Release struct {
	Name        string `json:"name"`
	ReleaseDate struct {
		Date string `json:"date"`
	} `json:"releaseDate"`
	Data struct {
		VisaNumber string `json:"visa_number"`
	} `json:"data"`
}

// Credits lists the movie crew.
type Credits struct {
	Edges []struct {
		Node struct {
			Person struct {
				FirstName string `json:"firstName"`
				LastName  string `json:"lastName"`
			} `json:"person"`
			Position struct {
				Name string `json:"name"`
			} `json:"position"`
		} `json:"node"`
	} `json:"edges"`
}

// Showtime is one screening.
type Showtime struct {
	StartsAt         string   `json:"startsAt"`
	DiffusionVersion string   `json:"diffusionVersion"`
	Projection       []string `json:"projection"`
	Experience       *string  `json:"experience"`
}

// IsBookable keeps digital projections without special experience.
func (s Showtime) IsBookable() bool {
	return len(s.Projection) > 0 && s.Projection[0] == projectionDigital && s.Experience == nil
}

// Version returns the offer version suffix of the showtime.
func (s Showtime) Version() (string, error) {
	switch s.DiffusionVersion {
	case VersionOriginal:
		return "VO", nil
	case VersionLocal, VersionDubbed:
		return "VF", nil
	default:
		return "", fmt.Errorf("unknown diffusion version %q", s.DiffusionVersion)
	}
}

// StartsAtLocal parses the wall-clock start time of the showtime.
func (s Showtime) StartsAtLocal() (time.Time, error) {
	return time.Parse(showtimeLayout, s.StartsAt)
}

// Visa returns the visa number of the first release carrying one.
func (m Movie) Visa() string {
	for _, r := range m.Releases {
		if r.Data.VisaNumber != "" {
			return r.Data.VisaNumber
		}
	}
	return ""
}

// StageDirector returns the full name of the first director credit.
func (m Movie) StageDirector() string {
	for _, edge := range m.Credits.Edges {
		if edge.Node.Position.Name == directorPosition {
			p := edge.Node.Person
			return strings.TrimSpace(p.FirstName + " " + p.LastName)
		}
	}
	return ""
}

// PosterURL returns the poster URL, if any.
func (m Movie) PosterURL() string {
	if m.Poster == nil {
		return ""
	}
	return m.Poster.URL
}

var runtimePattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// RuntimeMinutes converts an ISO-8601 runtime such as "PT1H50M0S" to minutes.
// It returns nil for an empty or malformed runtime.
func (m Movie) RuntimeMinutes() *int {
	match := runtimePattern.FindStringSubmatch(m.Runtime)
	if match == nil || m.Runtime == "PT" {
		return nil
	}

	hours, _ := strconv.Atoi(match[1])
	minutes, _ := strconv.Atoi(match[2])
	total := hours*60 + minutes

	return &total
}
