package weather

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fieldops/rounds/internal/models"
)

// Source supplies the forecast snapshot consumed by the engine. How the
// data is acquired is the caller's concern; the engine only consumes the
// shape.
type Source interface {
	GetForecast() (models.WeatherSnapshot, error)
}

// StaticSource returns a fixed snapshot. Used in tests and as a fallback
// when no feed is configured.
type StaticSource struct {
	Snapshot models.WeatherSnapshot
}

func (s StaticSource) GetForecast() (models.WeatherSnapshot, error) {
	return s.Snapshot, nil
}

// FileSource re-reads a JSON snapshot file on every call, so an external
// fetcher can drop fresh forecasts without restarting the daemon.
type FileSource struct {
	Path string
}

func (f FileSource) GetForecast() (models.WeatherSnapshot, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return models.WeatherSnapshot{}, fmt.Errorf("read weather file: %w", err)
	}
	var snap models.WeatherSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return models.WeatherSnapshot{}, fmt.Errorf("parse weather file: %w", err)
	}
	return snap, nil
}
