package model

// Timeframe is the listening-history bucket a ranked track came from.
type Timeframe string

const (
	TimeframeShort  Timeframe = "short_term"
	TimeframeMedium Timeframe = "medium_term"
	TimeframeLong   Timeframe = "long_term"
)

// AudioFeatures holds provider-supplied audio analysis for a track.
// Tempo is in BPM; energy, danceability and valence are on a 0-100 scale.
// Key is a pitch class (0-11) and Mode is 1 for major, 0 for minor.
type AudioFeatures struct {
	Tempo        float64 `json:"tempo"`
	Energy       float64 `json:"energy"`
	Danceability float64 `json:"danceability"`
	Valence      float64 `json:"valence"`
	Key          int     `json:"key"`
	Mode         int     `json:"mode"`
	DurationMs   int     `json:"durationMs"`
}

// TrackMetadata describes one ranked track from a guest's listening history.
// Owned transiently by the scoring pipeline; immutable once scored.
type TrackMetadata struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Artist      string         `json:"artist"`
	Album       string         `json:"album,omitempty"`
	Genres      []string       `json:"genres,omitempty"`
	Features    *AudioFeatures `json:"features,omitempty"`
	Explicit    bool           `json:"explicit"`
	ReleaseDate string         `json:"releaseDate,omitempty"`
	Popularity  int            `json:"popularity"`
	Rank        int            `json:"rank"`      // 1-100 position within the timeframe bucket
	Timeframe   Timeframe      `json:"timeframe"` // bucket the rank belongs to
	IsSaved     bool           `json:"isSaved"`   // track is in the guest's saved library
}

// TrackRef is the canonical queueable view of a track, shared by the
// aggregated pool, the DJ queue and search results. Audio features and
// provenance are optional fields, not separate nominal types.
type TrackRef struct {
	TrackID  string         `json:"trackId"`
	Name     string         `json:"name"`
	Artist   string         `json:"artist"`
	Album    string         `json:"album,omitempty"`
	CoverURL string         `json:"coverUrl,omitempty"`
	Features *AudioFeatures `json:"features,omitempty"`
}
