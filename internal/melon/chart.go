package melon

import (
	"fmt"
	"net/url"
	"strings"
)

// ChartType names one of the upstream charts.
type ChartType string

// Supported chart kinds.
const (
	ChartTop100 ChartType = "top100"
	ChartHot100 ChartType = "hot100"
	ChartDay    ChartType = "day"
	ChartWeek   ChartType = "week"
	ChartMonth  ChartType = "month"
)

var chartOrder = []ChartType{ChartTop100, ChartHot100, ChartDay, ChartWeek, ChartMonth}

var chartPaths = map[ChartType]string{
	ChartTop100: "/chart/",
	ChartHot100: "/chart/hot100/",
	ChartDay:    "/chart/day/",
	ChartWeek:   "/chart/week/",
	ChartMonth:  "/chart/month/",
}

// ChartTypes lists every supported chart in a stable order.
func ChartTypes() []ChartType {
	return append([]ChartType(nil), chartOrder...)
}

// ParseChartType validates raw and returns the matching ChartType.
func ParseChartType(raw string) (ChartType, error) {
	ct := ChartType(raw)
	if _, ok := chartPaths[ct]; ok {
		return ct, nil
	}
	names := make([]string, len(chartOrder))
	for i, c := range chartOrder {
		names[i] = string(c)
	}
	return "", InvalidArgument(fmt.Sprintf(
		"Invalid chart type '%s'. Choose from: %s", raw, strings.Join(names, ", "),
	))
}

// Path returns the upstream path for the chart.
func (c ChartType) Path() string {
	return chartPaths[c]
}

// CacheKey returns the cache key used for the chart.
func (c ChartType) CacheKey() string {
	return "chart_" + string(c)
}

// SongPath returns the upstream detail path for a song id.
func SongPath(songID string) string {
	return "/song/detail.htm?songId=" + url.QueryEscape(songID)
}

// AlbumPath returns the upstream detail path for an album id.
func AlbumPath(albumID string) string {
	return "/album/detail.htm?albumId=" + url.QueryEscape(albumID)
}
