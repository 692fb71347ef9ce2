package model

// DateFlags record which date facts came from persisted data.
type DateFlags struct {
	HadStartDB        bool `json:"had_start_db"`
	HadEndDB          bool `json:"had_end_db"`
	HadDurDB          bool `json:"had_dur_db"`
	OriginallyNoDates bool `json:"originally_no_dates"`
}

// Color is the display palette entry for a task color id.
type Color struct {
	Name       string `json:"name"`
	Background string `json:"background"`
	Border     string `json:"border"`
}

// ChartRow is one bar of the served chart, top to bottom.
type ChartRow struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	Start        string    `json:"start"`
	End          string    `json:"end"`
	Duration     int       `json:"duration"`
	CustomClass  string    `json:"custom_class"`
	ColorID      string    `json:"color_id"`
	Color        Color     `json:"color"`
	Flags        DateFlags `json:"flags"`
	Progress     int       `json:"progress"`
	Dependencies string    `json:"dependencies"`
	RowIndex     int       `json:"_row_index"`
	Level        int       `json:"_level"`
}
