// Package llm is an Ollama-backed implementation of the semantic
// extraction and evaluation strategies. Every call is bounded by a
// timeout; callers fall back to the rule engine on any error.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/medmatch/medmatch/internal/domain/extraction"
	"github.com/medmatch/medmatch/internal/domain/matching"
	"github.com/medmatch/medmatch/internal/domain/trials"
)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "mistral"
)

type Client struct {
	baseURL string
	model   string
	http    *http.Client
	logger  zerolog.Logger

	availabilityTTL time.Duration
	mu              sync.Mutex
	available       bool
	checkedAt       time.Time
}

func NewClient(baseURL, model string, timeout, availabilityTTL time.Duration, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		model:           model,
		http:            &http.Client{Timeout: timeout},
		logger:          logger,
		availabilityTTL: availabilityTTL,
	}
}

func (c *Client) Name() string { return "ollama" }

// Available probes the Ollama API. The result is cached for the
// configured TTL so a matching pass does not re-probe per criterion.
func (c *Client) Available(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if time.Since(c.checkedAt) < c.availabilityTTL {
		return c.available
	}

	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		c.available = false
		c.checkedAt = time.Now()
		return false
	}
	ok := false
	resp, err := c.http.Do(req)
	if err == nil {
		ok = resp.StatusCode == http.StatusOK
		resp.Body.Close()
	}
	c.available = ok
	c.checkedAt = time.Now()
	return c.available
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}
	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	return out.Response, nil
}

// braceWindow cuts the first '{' to the last '}' out of a model response,
// which routinely wraps its JSON in prose.
func braceWindow(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no json object in response")
	}
	return s[start : end+1], nil
}

const extractPromptTemplate = `You are a medical assistant specialized in oncology clinical documents.
Extract the following features from the patient text and return ONLY a valid JSON object.

Fields:
- age: {"value": <number>, "source": <text fragment>} or null
- gender: {"value": "male"|"female", "source": <text fragment>} or null
- diagnosis: {"value": <primary cancer diagnosis>, "source": <text fragment>} or null
- stage: {"value": <cancer stage>, "source": <text fragment>} or null
- ecog: {"value": <0-4>, "source": <text fragment>} or null
- mutations: list of {"value", "source"} (empty list if none)
- metastases: list of {"value", "source"} (empty list if none)
- previous_treatments: list of {"value", "source"} (empty list if none)
- lab_values: object of test name to {"value", "source"} (empty object if none)

Every "source" must be the exact text fragment the value was taken from.
Return ONLY the JSON object, no extra text.

PATIENT TEXT:
%s`

// Extract implements extraction.Strategy.
func (c *Client) Extract(ctx context.Context, text string) (*extraction.FeatureSet, error) {
	raw, err := c.generate(ctx, fmt.Sprintf(extractPromptTemplate, text))
	if err != nil {
		return nil, err
	}
	window, err := braceWindow(raw)
	if err != nil {
		return nil, err
	}
	var fs extraction.FeatureSet
	if err := json.Unmarshal([]byte(window), &fs); err != nil {
		return nil, fmt.Errorf("parse extracted features: %w", err)
	}
	fs.OriginalText = text
	sanitizeSources(&fs, text)
	return &fs, nil
}

// sanitizeSources enforces the source invariant on model output: a source
// the model invented (not a substring of the original text) is replaced
// with the value itself when that is present, and cleared otherwise.
func sanitizeSources(fs *extraction.FeatureSet, text string) {
	lower := strings.ToLower(text)
	fix := func(value, source string) string {
		if source != "" && strings.Contains(lower, strings.ToLower(source)) {
			return source
		}
		if strings.Contains(lower, strings.ToLower(value)) {
			return value
		}
		return ""
	}

	if fs.Age != nil {
		fs.Age.Source = fix(fmt.Sprintf("%d", fs.Age.Value), fs.Age.Source)
	}
	if fs.Gender != nil {
		fs.Gender.Source = fix(fs.Gender.Value, fs.Gender.Source)
	}
	if fs.Diagnosis != nil {
		fs.Diagnosis.Source = fix(fs.Diagnosis.Value, fs.Diagnosis.Source)
	}
	if fs.Stage != nil {
		fs.Stage.Source = fix(fs.Stage.Value, fs.Stage.Source)
	}
	if fs.ECOG != nil {
		fs.ECOG.Source = fix(fmt.Sprintf("%d", fs.ECOG.Value), fs.ECOG.Source)
	}
	for i := range fs.Mutations {
		fs.Mutations[i].Source = fix(fs.Mutations[i].Value, fs.Mutations[i].Source)
	}
	for i := range fs.Metastases {
		fs.Metastases[i].Source = fix(fs.Metastases[i].Value, fs.Metastases[i].Source)
	}
	for i := range fs.PreviousTreatments {
		fs.PreviousTreatments[i].Source = fix(fs.PreviousTreatments[i].Value, fs.PreviousTreatments[i].Source)
	}
	for name, lv := range fs.LabValues {
		lv.Source = fix(lv.Value, lv.Source)
		fs.LabValues[name] = lv
	}
}

const evaluatePromptTemplate = `You are a medical assistant evaluating clinical trial eligibility.

CRITERION:
%s

PATIENT FEATURES (JSON):
%s

Does the patient satisfy this criterion as written? Answer ONLY with a JSON
object: {"matched": true|false, "explanation": "<one sentence>"}.
If the features do not contain enough information, answer matched=false with
an explanation saying what is missing.`

type evaluatePayload struct {
	Matched     bool   `json:"matched"`
	Explanation string `json:"explanation"`
}

// Evaluate implements matching.EvaluatorStrategy.
func (c *Client) Evaluate(ctx context.Context, criterion trials.Criterion, features *extraction.FeatureSet) (matching.MatchResult, error) {
	summary, err := json.Marshal(features)
	if err != nil {
		return matching.MatchResult{}, err
	}
	raw, err := c.generate(ctx, fmt.Sprintf(evaluatePromptTemplate, criterion.Text, summary))
	if err != nil {
		return matching.MatchResult{}, err
	}
	window, err := braceWindow(raw)
	if err != nil {
		return matching.MatchResult{}, err
	}
	var payload evaluatePayload
	if err := json.Unmarshal([]byte(window), &payload); err != nil {
		return matching.MatchResult{}, fmt.Errorf("parse evaluation: %w", err)
	}
	if payload.Explanation == "" {
		return matching.MatchResult{}, fmt.Errorf("evaluation missing explanation")
	}
	return matching.MatchResult{
		Criterion:   criterion,
		Matched:     payload.Matched,
		Explanation: payload.Explanation,
	}, nil
}
