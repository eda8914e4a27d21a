package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"github.com/prepview/prepview/config"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// SummaryQAInput is one question/transcript pair handed to the model.
type SummaryQAInput struct {
	ID           string `json:"id"`
	QuestionText string `json:"questionText"`
	Transcript   string `json:"transcript"`
}

// SummaryRequest carries everything the model needs to evaluate a session.
type SummaryRequest struct {
	Role       string
	CompanyID  string
	IsPro      bool
	JDKeywords []string
	QA         []SummaryQAInput
}

// JDExtraction is the structured result of job-description analysis.
type JDExtraction struct {
	Keywords                []string `json:"keywords"`
	MainResponsibilities    []string `json:"main_responsibilities"`
	PreferredQualifications []string `json:"preferred_qualifications"`
}

// GeminiLLMService wraps the text-generation model. Both operations request
// strict JSON output; GenerateInterviewSummary returns the raw model text so
// the summary builder owns validation of the structured shape.
type GeminiLLMService interface {
	GenerateInterviewSummary(ctx context.Context, req *SummaryRequest) (string, error)
	ExtractJDKeywords(ctx context.Context, jdText string) (*JDExtraction, error)
}

type geminiLLMService struct {
	client *genai.Client
	cfg    *config.Config
}

func NewGeminiLLMService(cfg *config.Config) (GeminiLLMService, error) {
	if cfg.GeminiApiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set. GeminiLLMService will be non-functional.")
		return &geminiLLMService{cfg: cfg, client: nil}, nil
	}
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiApiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	return &geminiLLMService{client: client, cfg: cfg}, nil
}

func (s *geminiLLMService) model() *genai.GenerativeModel {
	name := s.cfg.Summary.Model
	if name == "" {
		name = "gemini-1.5-flash"
	}
	m := s.client.GenerativeModel(name)
	// Structured output: the model must answer with a single JSON object.
	m.GenerationConfig.ResponseMIMEType = "application/json"
	temp := float32(0.5)
	m.GenerationConfig.Temperature = &temp
	return m
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("model returned no content")
	}
	var builder strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			builder.WriteString(string(txt))
		}
	}
	text := builder.String()
	if text == "" {
		return "", fmt.Errorf("model returned no text content")
	}
	return text, nil
}

func (s *geminiLLMService) GenerateInterviewSummary(ctx context.Context, req *SummaryRequest) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("gemini client not initialized")
	}

	var sys strings.Builder
	sys.WriteString("You are an expert AI interview coach. I will provide interview data in JSON format. ")
	sys.WriteString("Your task is to analyze it and return a single JSON evaluation object.\n\n")
	if req.IsPro {
		sys.WriteString(fmt.Sprintf("PRO MODE: Evaluate how well each answer aligns with these job-description keywords: [%s]. ", strings.Join(req.JDKeywords, ", ")))
		sys.WriteString("Include per-answer feedback on JD alignment.\n\n")
	} else {
		sys.WriteString("FREE MODE: Evaluate against general interview best practices.\n\n")
	}
	sys.WriteString(`Return exactly this JSON shape:
{
  "overallScore": number,
  "level": "Beginner" | "Intermediate" | "Advanced",
  "strengths": string[],
  "improvements": string[],
  "tips": string[],
  "qa": {
    "id": string,
    "questionText": string,
    "answerSummary": string,
    "modelAnswer": string,
    "feedback": string,
    "score": number,
    "tags": string[],
    "jdKeywordCoverage": boolean,
    "metricSpecificity": boolean
  }[]
}
Every qa entry must keep the original id and questionText unchanged. Produce one qa entry per input question.`)

	qaJSON, err := json.MarshalIndent(req.QA, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal QA input: %w", err)
	}

	company := req.CompanyID
	if company == "" {
		company = "N/A"
	}
	user := fmt.Sprintf("Process the following interview data:\nRole: %s\nCompany: %s\n\nQ&A JSON:\n%s", req.Role, company, string(qaJSON))

	m := s.model()
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(sys.String())}}

	resp, err := m.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		log.Error().Err(err).Str("role", req.Role).Msg("Gemini API error during summary generation")
		return "", fmt.Errorf("summary generation failed: %w", err)
	}
	return responseText(resp)
}

// jdTextLimit keeps scraped postings inside a safe prompt size.
const jdTextLimit = 8000

// truncateUTF8 cuts s to at most limit bytes without splitting a rune.
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func (s *geminiLLMService) ExtractJDKeywords(ctx context.Context, jdText string) (*JDExtraction, error) {
	if s.client == nil {
		return nil, fmt.Errorf("gemini client not initialized")
	}

	jdText = truncateUTF8(jdText, jdTextLimit)

	m := s.model()
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(
		`You are a recruitment expert. Analyze the provided job description text and extract key information. Return a JSON object with the structure: { "keywords": string[], "main_responsibilities": string[], "preferred_qualifications": string[] }. "keywords" should be a list of 10-15 core technical skills and competencies.`,
	)}}

	resp, err := m.GenerateContent(ctx, genai.Text("Extract key info from this JD:\n\n"+jdText))
	if err != nil {
		log.Error().Err(err).Msg("Gemini API error during JD extraction")
		return nil, fmt.Errorf("JD extraction failed: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	var extraction JDExtraction
	if err := json.Unmarshal([]byte(text), &extraction); err != nil {
		log.Warn().Err(err).Str("rawResponse", text).Msg("Failed to parse JD extraction from model response")
		return nil, fmt.Errorf("could not parse JD extraction response: %w", err)
	}
	return &extraction, nil
}
