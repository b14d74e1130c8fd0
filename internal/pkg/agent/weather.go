package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gastrolink/gastrolink/internal/pkg/cache"
)

const weatherCacheTTL = 10 * time.Minute

// Cache is the subset of cache operations the tools need.
type Cache interface {
	Get(key string) (string, error)
	Set(key string, value interface{}, expiration time.Duration) error
}

// redisCache adapts the shared cache package.
type redisCache struct{}

func (redisCache) Get(key string) (string, error) { return cache.Get(key) }
func (redisCache) Set(key string, value interface{}, expiration time.Duration) error {
	return cache.Set(key, value, expiration)
}

// NewRedisCache returns a Cache backed by the shared Redis client.
func NewRedisCache() Cache { return redisCache{} }

// WeatherReport is the structured answer of the weather tool.
type WeatherReport struct {
	City     string `json:"city"`
	Summary  string `json:"summary"`
	Advice   string `json:"advice"`
	CachedAt string `json:"cached_at,omitempty"`
}

// WeatherTool answers weather questions for event planning via a chat
// completion, cached per city so repeated lookups stay cheap.
type WeatherTool struct {
	chat  ChatClient
	cache Cache
}

func NewWeatherTool(chat ChatClient, c Cache) *WeatherTool {
	return &WeatherTool{chat: chat, cache: c}
}

// Lookup returns a weather report for the given city.
func (t *WeatherTool) Lookup(ctx context.Context, city string) (*WeatherReport, error) {
	normalized := normalizeCity(city)
	if normalized == "" {
		return nil, errors.New("city is required")
	}

	key := weatherCacheKey(normalized)
	if t.cache != nil {
		if cached, err := t.cache.Get(key); err == nil && cached != "" {
			var report WeatherReport
			if err := json.Unmarshal([]byte(cached), &report); err == nil {
				return &report, nil
			}
		}
	}

	answer, err := t.chat.GenerateText(ctx, weatherPrompt(normalized))
	if err != nil {
		return nil, err
	}

	report, err := parseWeatherAnswer(normalized, answer)
	if err != nil {
		return nil, err
	}

	if t.cache != nil {
		report.CachedAt = time.Now().UTC().Format(time.RFC3339)
		if data, err := json.Marshal(report); err == nil {
			if err := t.cache.Set(key, string(data), weatherCacheTTL); err != nil {
				log.Printf("agent: weather cache write failed for %q: %v", normalized, err)
			}
		}
	}
	return report, nil
}

func weatherPrompt(city string) string {
	return fmt.Sprintf(`You are a planning assistant for culinary events.
Give the current weather outlook for %s and one sentence of advice for
outdoor catering there today. Answer with a JSON object only, with the
keys "summary" and "advice".`, city)
}

func parseWeatherAnswer(city, answer string) (*WeatherReport, error) {
	cleaned := strings.TrimSpace(answer)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	var report WeatherReport
	if err := json.Unmarshal([]byte(strings.TrimSpace(cleaned)), &report); err != nil {
		// Model ignored the format, keep the raw answer as summary.
		report = WeatherReport{Summary: strings.TrimSpace(answer)}
	}
	if report.Summary == "" {
		return nil, errors.New("weather model returned an empty answer")
	}
	report.City = city
	return &report, nil
}

func normalizeCity(city string) string {
	return strings.ToLower(strings.Join(strings.Fields(strings.TrimSpace(city)), " "))
}

func weatherCacheKey(city string) string {
	return "agent:weather:" + strings.ReplaceAll(city, " ", "-")
}
