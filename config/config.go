package config

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server        Server
	Database      Database
	Redis         Redis
	OSS           OSS
	GeminiApiKey  string
	Speech        Speech
	Summary       Summary
	JD            JD
	RubricWeights map[string]RubricWeights // keyed by company id; missing key falls back to defaults
}

type Server struct {
	Port string
}

type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

type OSS struct {
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
	BucketName      string
}

type Speech struct {
	DefaultLanguage string
	// FallbackWPM estimates duration from word count when the recognizer
	// returns no word timestamps. Heuristic constant, not a validated model.
	FallbackWPM int
}

type Summary struct {
	BuildTimeoutSec int
	Model           string
}

type JD struct {
	CrawlerEndpoint string
	FetchTimeoutSec int
}

// RubricWeights are the dimension weights of the deterministic scoring rubric.
type RubricWeights struct {
	Communication  float64 `json:"communication"`
	Structure      float64 `json:"structure"`
	ProblemSolving float64 `json:"problem_solving"`
	Leadership     float64 `json:"leadership"`
	Quantification float64 `json:"quantification"`
	CultureFit     float64 `json:"culture_fit"`
}

// DefaultRubricWeights is used when no company-specific override exists.
func DefaultRubricWeights() RubricWeights {
	return RubricWeights{
		Communication:  1,
		Structure:      1,
		ProblemSolving: 1,
		Leadership:     0.5,
		Quantification: 1,
		CultureFit:     0.5,
	}
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("SPEECH_DEFAULT_LANGUAGE", "ko-KR")
	viper.SetDefault("SPEECH_FALLBACK_WPM", 120)
	viper.SetDefault("SUMMARY_BUILD_TIMEOUT_SEC", 300)
	viper.SetDefault("SUMMARY_MODEL", "gemini-1.5-flash")
	viper.SetDefault("JD_FETCH_TIMEOUT_SEC", 12)

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config

	config.Server.Port = viper.GetString("SERVER_PORT")
	config.Database.Host = viper.GetString("DATABASE_HOST")
	config.Database.Port = viper.GetString("DATABASE_PORT")
	config.Database.User = viper.GetString("DATABASE_USER")
	config.Database.Password = viper.GetString("DATABASE_PASSWORD")
	config.Database.Name = viper.GetString("DATABASE_NAME")

	config.Redis.Addr = viper.GetString("REDIS_ADDR")
	config.Redis.Password = viper.GetString("REDIS_PASSWORD")
	config.Redis.DB = viper.GetInt("REDIS_DB")

	config.OSS.Endpoint = viper.GetString("OSS_ENDPOINT")
	config.OSS.AccessKeyID = viper.GetString("OSS_ACCESS_KEY_ID")
	config.OSS.AccessKeySecret = viper.GetString("OSS_ACCESS_KEY_SECRET")
	config.OSS.BucketName = viper.GetString("OSS_BUCKET_NAME")

	config.GeminiApiKey = viper.GetString("GEMINI_API_KEY")

	config.Speech.DefaultLanguage = viper.GetString("SPEECH_DEFAULT_LANGUAGE")
	config.Speech.FallbackWPM = viper.GetInt("SPEECH_FALLBACK_WPM")

	config.Summary.BuildTimeoutSec = viper.GetInt("SUMMARY_BUILD_TIMEOUT_SEC")
	config.Summary.Model = viper.GetString("SUMMARY_MODEL")

	config.JD.CrawlerEndpoint = viper.GetString("JD_CRAWLER_ENDPOINT")
	config.JD.FetchTimeoutSec = viper.GetInt("JD_FETCH_TIMEOUT_SEC")

	config.RubricWeights = parseRubricOverrides(viper.GetString("RUBRIC_WEIGHT_OVERRIDES"))

	log.Info().Str("port", config.Server.Port).Msg("Config loaded")
	return &config, nil
}

// parseRubricOverrides reads per-company weight overrides from a JSON map
// keyed by company id, e.g. {"acme":{"communication":1,...}}. Invalid input
// is logged and ignored so a bad override never blocks startup.
func parseRubricOverrides(raw string) map[string]RubricWeights {
	overrides := map[string]RubricWeights{}
	if raw == "" {
		return overrides
	}
	if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
		log.Warn().Err(err).Msg("Invalid RUBRIC_WEIGHT_OVERRIDES, using defaults for all companies")
		return map[string]RubricWeights{}
	}
	return overrides
}
