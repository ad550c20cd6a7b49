// Package icons translates each provider's condition vocabulary into
// the unified icon set. Unknown codes degrade to an empty icon with a
// logged warning; upstream vocabularies grow without notice and must
// never fail a request.
package icons

import (
	"log/slog"
	"regexp"
)

// The complete unified icon set.
const (
	ClearDay          = "clear-day"
	ClearNight        = "clear-night"
	Cloudy            = "cloudy"
	Fog               = "fog"
	PartlyCloudyDay   = "partly-cloudy-day"
	PartlyCloudyNight = "partly-cloudy-night"
	Rain              = "rain"
	Sleet             = "sleet"
	Snow              = "snow"
	Wind              = "wind"
)

var noaaIcons = map[string]string{
	"land/day/bkn":              PartlyCloudyDay,
	"land/day/bkn/rain_showers": Rain,
	"land/day/bkn/snow":         Snow,
	"land/day/few":              ClearDay,
	"land/day/fog":              Fog,
	"land/day/fog/wind_sct":     Fog,
	"land/day/ovc":              Cloudy,
	"land/day/rain":             Rain,
	"land/day/rain/sct":         Rain,
	"land/day/rain_showers":     Rain,
	"land/day/sct":              PartlyCloudyDay,
	"land/day/sct/rain":         Rain,
	"land/day/sct/rain_showers": Rain,
	"land/day/sct/snow":         Snow,
	"land/day/skc":              PartlyCloudyDay,
	"land/day/snow":             Snow,
	"land/day/snow/bkn":         Snow,
	"land/day/snow/snow":        Snow,
	"land/day/tsra":             Rain,
	"land/day/wind_bkn":         Wind,
	"land/day/wind_few":         Wind,
	"land/day/wind_ovc":         Wind,
	"land/day/wind_sct":         Wind,

	"land/night/bkn":              PartlyCloudyNight,
	"land/night/bkn/rain_showers": Rain,
	"land/night/bkn/snow":         Snow,
	"land/night/few":              ClearNight,
	"land/night/fog":              Fog,
	"land/night/fog/wind_sct":     Fog,
	"land/night/ovc":              Cloudy,
	"land/night/rain":             Rain,
	"land/night/rain/sct":         Rain,
	"land/night/rain_showers":     Rain,
	"land/night/sct":              PartlyCloudyNight,
	"land/night/sct/rain":         Rain,
	"land/night/sct/rain_showers": Rain,
	"land/night/sct/snow":         Snow,
	"land/night/skc":              PartlyCloudyNight,
	"land/night/snow":             Snow,
	"land/night/snow/bkn":         Snow,
	"land/night/snow/snow":        Snow,
	"land/night/tsra":             Rain,
	"land/night/wind_bkn":         Wind,
	"land/night/wind_few":         Wind,
	"land/night/wind_ovc":         Wind,
	"land/night/wind_sct":         Wind,
}

var climacellIcons = map[string]string{
	"freezing_rain_heavy": Sleet,
	"freezing_rain":       Sleet,
	"freezing_rain_light": Sleet,
	"freezing_drizzle":    Sleet,
	"ice_pellets_heavy":   Sleet,
	"ice_pellets":         Sleet,
	"ice_pellets_light":   Sleet,
	"snow_heavy":          Snow,
	"snow":                Snow,
	"snow_light":          Snow,
	"flurries":            Snow,
	"tstorm":              Rain,
	"rain_heavy":          Rain,
	"rain":                Rain,
	"rain_light":          Rain,
	"drizzle":             Rain,
	"fog_light":           Fog,
	"fog":                 Fog,
	"cloudy":              Cloudy,
	"mostly_cloudy":       Cloudy,
	"partly_cloudy":       PartlyCloudyDay,
	"mostly_clear":        ClearDay,
	"clear":               ClearDay,
}

var climacellSummaries = map[string]string{
	"freezing_rain_heavy": "Heavy Freezing Rain",
	"freezing_rain":       "Freezing Rain",
	"freezing_rain_light": "Light Freezing Rain",
	"freezing_drizzle":    "Freezing Drizzle",
	"ice_pellets_heavy":   "Heavy Sleet",
	"ice_pellets":         "Sleet",
	"ice_pellets_light":   "Light Sleet",
	"snow_heavy":          "Heavy Snow",
	"snow":                "Snow",
	"snow_light":          "Light Snow",
	"flurries":            "Snow Flurries",
	"tstorm":              "Thunderstorms",
	"rain_heavy":          "Heavy Rain",
	"rain":                "Rain",
	"rain_light":          "Light Rain",
	"drizzle":             "Drizzle",
	"fog_light":           "Light Fog",
	"fog":                 "Fog",
	"cloudy":              "Cloudy",
	"mostly_cloudy":       "Mostly Cloudy",
	"partly_cloudy":       "Partly Cloudy",
	"mostly_clear":        "Mostly Clear",
	"clear":               "Clear",
}

// NOAA condition tokens arrive embedded in an icon URL, e.g.
// https://api.weather.gov/icons/land/day/rain_showers,40?size=medium
// The token is the segment after "icons/" up to the first comma or
// query string.
var noaaTokenPattern = regexp.MustCompile(`icons/([^,?]+)`)

// FromNOAAIconURL extracts the condition token from a NOAA icon URL and
// maps it to the unified icon set. Returns "" for URLs that cannot be
// parsed or tokens missing from the table.
func FromNOAAIconURL(logger *slog.Logger, iconURL string) string {
	m := noaaTokenPattern.FindStringSubmatch(iconURL)
	if m == nil {
		logger.Warn("unable to parse NOAA icon URL", "url", iconURL)
		return ""
	}
	icon, ok := noaaIcons[m[1]]
	if !ok {
		logger.Warn("NOAA icon token not in mapping table", "token", m[1])
		return ""
	}
	return icon
}

// FromClimacellCode maps a ClimaCell weather_code to the unified icon
// set, returning "" for unknown codes.
func FromClimacellCode(logger *slog.Logger, code string) string {
	if code == "" {
		return ""
	}
	icon, ok := climacellIcons[code]
	if !ok {
		logger.Warn("ClimaCell weather code not in icon table", "code", code)
		return ""
	}
	return icon
}

// SummaryFromClimacellCode maps a ClimaCell weather_code to a short
// human-readable phrase, returning "" for unknown codes.
func SummaryFromClimacellCode(logger *slog.Logger, code string) string {
	if code == "" {
		return ""
	}
	summary, ok := climacellSummaries[code]
	if !ok {
		logger.Warn("ClimaCell weather code not in summary table", "code", code)
		return ""
	}
	return summary
}
