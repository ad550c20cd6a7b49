// Package darksky defines the unified forecast document emitted by the
// service. The shape matches the retired DarkSky API: optional numeric
// fields are pointers so that "the source did not report this" survives
// serialization as a missing key rather than a zero.
package darksky

// Forecast is the top-level response document. It is built fresh per
// request, mutated in place by each provider adapter, and never touched
// again once handed to the response layer.
type Forecast struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
	Offset    float64 `json:"offset"`

	Currently *DataPoint  `json:"currently,omitempty"`
	Minutely  *DataBlock  `json:"minutely,omitempty"`
	Hourly    *DataBlock  `json:"hourly,omitempty"`
	Daily     *DailyBlock `json:"daily,omitempty"`
	Alerts    []Alert     `json:"alerts,omitempty"`

	Flags Flags `json:"flags"`
}

// Flags records provenance metadata for the document.
type Flags struct {
	Sources        []string `json:"sources"`
	Units          string   `json:"units"`
	NearestStation *float64 `json:"nearest-station,omitempty"`
}

// DataPoint is a point-in-time reading, used for the current conditions
// and for minutely and hourly series entries.
type DataPoint struct {
	Time    int64  `json:"time"`
	Summary string `json:"summary,omitempty"`
	Icon    string `json:"icon,omitempty"`

	PrecipIntensity     *float64 `json:"precipIntensity,omitempty"`
	PrecipProbability   *float64 `json:"precipProbability,omitempty"`
	PrecipType          *string  `json:"precipType,omitempty"`
	Temperature         *float64 `json:"temperature,omitempty"`
	ApparentTemperature *float64 `json:"apparentTemperature,omitempty"`
	DewPoint            *float64 `json:"dewPoint,omitempty"`
	Humidity            *float64 `json:"humidity,omitempty"`
	Pressure            *float64 `json:"pressure,omitempty"`
	WindSpeed           *float64 `json:"windSpeed,omitempty"`
	WindGust            *float64 `json:"windGust,omitempty"`
	WindBearing         *float64 `json:"windBearing,omitempty"`
	CloudCover          *float64 `json:"cloudCover,omitempty"`
	Visibility          *float64 `json:"visibility,omitempty"`
	Ozone               *float64 `json:"ozone,omitempty"`
}

// DailyPoint is one calendar day in the daily series. It is a superset
// of DataPoint with sun/moon data and high/low pairs, each carrying the
// timestamp the extreme was observed or forecast at.
type DailyPoint struct {
	Time    int64  `json:"time"`
	Summary string `json:"summary,omitempty"`
	Icon    string `json:"icon,omitempty"`

	SunriseTime *int64   `json:"sunriseTime,omitempty"`
	SunsetTime  *int64   `json:"sunsetTime,omitempty"`
	MoonPhase   *float64 `json:"moonPhase,omitempty"`

	PrecipIntensity        *float64 `json:"precipIntensity,omitempty"`
	PrecipIntensityMax     *float64 `json:"precipIntensityMax,omitempty"`
	PrecipIntensityMaxTime *int64   `json:"precipIntensityMaxTime,omitempty"`
	PrecipProbability      *float64 `json:"precipProbability,omitempty"`
	PrecipType             *string  `json:"precipType,omitempty"`

	TemperatureHigh             *float64 `json:"temperatureHigh,omitempty"`
	TemperatureHighTime         *int64   `json:"temperatureHighTime,omitempty"`
	TemperatureLow              *float64 `json:"temperatureLow,omitempty"`
	TemperatureLowTime          *int64   `json:"temperatureLowTime,omitempty"`
	TemperatureMin              *float64 `json:"temperatureMin,omitempty"`
	TemperatureMinTime          *int64   `json:"temperatureMinTime,omitempty"`
	TemperatureMax              *float64 `json:"temperatureMax,omitempty"`
	TemperatureMaxTime          *int64   `json:"temperatureMaxTime,omitempty"`
	ApparentTemperatureHigh     *float64 `json:"apparentTemperatureHigh,omitempty"`
	ApparentTemperatureHighTime *int64   `json:"apparentTemperatureHighTime,omitempty"`
	ApparentTemperatureLow      *float64 `json:"apparentTemperatureLow,omitempty"`
	ApparentTemperatureLowTime  *int64   `json:"apparentTemperatureLowTime,omitempty"`
	ApparentTemperatureMin      *float64 `json:"apparentTemperatureMin,omitempty"`
	ApparentTemperatureMinTime  *int64   `json:"apparentTemperatureMinTime,omitempty"`
	ApparentTemperatureMax      *float64 `json:"apparentTemperatureMax,omitempty"`
	ApparentTemperatureMaxTime  *int64   `json:"apparentTemperatureMaxTime,omitempty"`

	DewPoint     *float64 `json:"dewPoint,omitempty"`
	Humidity     *float64 `json:"humidity,omitempty"`
	Pressure     *float64 `json:"pressure,omitempty"`
	WindSpeed    *float64 `json:"windSpeed,omitempty"`
	WindGust     *float64 `json:"windGust,omitempty"`
	WindGustTime *int64   `json:"windGustTime,omitempty"`
	WindBearing  *float64 `json:"windBearing,omitempty"`
	CloudCover   *float64 `json:"cloudCover,omitempty"`
	Visibility   *float64 `json:"visibility,omitempty"`
}

// DataBlock is a time-ordered series of DataPoints. Summary and icon
// mirror the first entry of Data.
type DataBlock struct {
	Summary string       `json:"summary,omitempty"`
	Icon    string       `json:"icon,omitempty"`
	Data    []*DataPoint `json:"data"`
}

// DailyBlock is the daily counterpart of DataBlock.
type DailyBlock struct {
	Summary string        `json:"summary,omitempty"`
	Icon    string        `json:"icon,omitempty"`
	Data    []*DailyPoint `json:"data"`
}

// Alert is an active weather alert. Regions holds human-readable area
// names resolved from the provider's area codes.
type Alert struct {
	Title       string   `json:"title"`
	Regions     []string `json:"regions"`
	Severity    string   `json:"severity"`
	Time        int64    `json:"time"`
	Expires     int64    `json:"expires"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
}

// AddSource appends a provider name to flags.sources, preserving call
// order and skipping names already recorded.
func (f *Forecast) AddSource(name string) {
	for _, s := range f.Flags.Sources {
		if s == name {
			return
		}
	}
	f.Flags.Sources = append(f.Flags.Sources, name)
}

// Float returns a pointer to v. Convenience for building documents.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int64) *int64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }
