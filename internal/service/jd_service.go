package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/prepview/prepview/config"
	"github.com/prepview/prepview/internal/repository"
	"github.com/rs/zerolog/log"
)

// minJDTextLen guards against scrapes that returned boilerplate only.
const minJDTextLen = 100

// JDService turns a job description (URL or pasted text) into keywords and
// merges them into the session, upgrading it to pro evaluation.
type JDService interface {
	ParseFromURL(ctx context.Context, sessionID, jdURL string) ([]string, error)
	ExtractFromText(ctx context.Context, sessionID, jdText, role string) ([]string, error)
}

type jdService struct {
	sessionRepo repository.SessionRepository
	gemini      GeminiLLMService
	keywords    KeywordService
	httpClient  *http.Client
	cfg         *config.Config
}

func NewJDService(sessionRepo repository.SessionRepository, gemini GeminiLLMService, keywords KeywordService, cfg *config.Config) JDService {
	timeout := time.Duration(cfg.JD.FetchTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &jdService{
		sessionRepo: sessionRepo,
		gemini:      gemini,
		keywords:    keywords,
		httpClient:  &http.Client{Timeout: timeout},
		cfg:         cfg,
	}
}

func (s *jdService) ParseFromURL(ctx context.Context, sessionID, jdURL string) ([]string, error) {
	text, err := s.fetchJDText(ctx, jdURL)
	if err != nil {
		return nil, err
	}
	if len(text) < minJDTextLen {
		return nil, fmt.Errorf("scraped JD text too short (%d chars), cannot extract keywords", len(text))
	}

	extraction, err := s.gemini.ExtractJDKeywords(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := s.sessionRepo.MergeJD(sessionID, extraction.Keywords, extraction.MainResponsibilities, extraction.PreferredQualifications, jdURL); err != nil {
		return nil, fmt.Errorf("failed to save JD keywords: %w", err)
	}

	log.Info().Str("sessionId", sessionID).Int("keywords", len(extraction.Keywords)).Msg("JD parsed from URL")
	return extraction.Keywords, nil
}

func (s *jdService) ExtractFromText(ctx context.Context, sessionID, jdText, role string) ([]string, error) {
	keywords := s.keywords.ExtractKeywords(jdText, role, defaultJDTopK)
	if len(keywords) == 0 {
		return nil, fmt.Errorf("no keywords could be extracted from JD text")
	}
	if err := s.sessionRepo.MergeJD(sessionID, keywords, nil, nil, ""); err != nil {
		return nil, fmt.Errorf("failed to save JD keywords: %w", err)
	}
	log.Info().Str("sessionId", sessionID).Int("keywords", len(keywords)).Msg("JD keywords extracted from text")
	return keywords, nil
}

// fetchJDText calls the scraping collaborator, which returns {"text": "..."}.
func (s *jdService) fetchJDText(ctx context.Context, jdURL string) (string, error) {
	endpoint := s.cfg.JD.CrawlerEndpoint
	if endpoint == "" {
		return "", fmt.Errorf("JD crawler endpoint is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?url="+url.QueryEscape(jdURL), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build scrape request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("JD scrape request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("JD scrape failed with status %d", resp.StatusCode)
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode scrape response: %w", err)
	}
	return body.Text, nil
}
