package validation

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"video-generation-api/internal/config"
	"video-generation-api/internal/domain"
	"video-generation-api/internal/domain/model"
)

const (
	minDimension = 256
	minFrames    = 25
	maxSeed      = int64(1)<<32 - 1
	maxPromptLen = 2000
)

var (
	htmlTagRe = regexp.MustCompile(`<[^>]*>`)

	// Defense-in-depth only. Parameterized persistence calls are the real
	// protection; these patterns block the obvious injection attempts early.
	sqlPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(SELECT|INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|EXEC|EXECUTE)\b`),
		regexp.MustCompile(`--|#|/\*`),
		regexp.MustCompile(`(?i)\bOR\b.*=`),
		regexp.MustCompile(`(?i)\bAND\b.*=`),
	}
)

// ValidatePrompt trims, strips markup and rejects traversal sequences, NUL
// bytes and injection-shaped input. Returns the normalized prompt.
func ValidatePrompt(prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", domain.Validationf("prompt is required")
	}
	if utf8.RuneCountInString(prompt) > maxPromptLen {
		return "", domain.Validationf("prompt too long (max %d characters)", maxPromptLen)
	}
	prompt = strings.TrimSpace(htmlTagRe.ReplaceAllString(prompt, ""))
	if prompt == "" {
		return "", domain.Validationf("prompt is required")
	}
	if strings.Contains(prompt, "../") || strings.Contains(prompt, `..\`) {
		return "", domain.Validationf("invalid characters in prompt")
	}
	if strings.ContainsRune(prompt, 0) {
		return "", domain.Validationf("invalid characters in prompt")
	}
	for _, re := range sqlPatterns {
		if re.MatchString(prompt) {
			return "", domain.Validationf("suspicious pattern detected in prompt")
		}
	}
	return prompt, nil
}

// ValidateDimensions checks range, the multiple-of-8 model contract, and
// aspect ratio bounds. Compliant values come back unchanged.
func ValidateDimensions(width, height, maxWidth, maxHeight int) (int, int, error) {
	if width < minDimension || width > maxWidth {
		return 0, 0, domain.Validationf("width must be between %d and %d, got %d", minDimension, maxWidth, width)
	}
	if height < minDimension || height > maxHeight {
		return 0, 0, domain.Validationf("height must be between %d and %d, got %d", minDimension, maxHeight, height)
	}
	if width%8 != 0 {
		return 0, 0, domain.Validationf("width must be a multiple of 8, got %d", width)
	}
	if height%8 != 0 {
		return 0, 0, domain.Validationf("height must be a multiple of 8, got %d", height)
	}
	ratio := float64(width) / float64(height)
	if ratio < 0.5 || ratio > 3.0 {
		return 0, 0, domain.Validationf("aspect ratio too extreme: %.2f, must be between 0.5 and 3.0", ratio)
	}
	return width, height, nil
}

// ValidateFrameCount enforces the odd-count model contract. The rationale
// lives in the model architecture; the contract is preserved as stated.
func ValidateFrameCount(n, max int) (int, error) {
	if n < minFrames || n > max {
		return 0, domain.Validationf("num_frames must be between %d and %d, got %d", minFrames, max, n)
	}
	if n%2 == 0 {
		return 0, domain.Validationf("num_frames must be odd, got %d", n)
	}
	return n, nil
}

func ValidateSeed(seed int64) (int64, error) {
	if seed < 0 || seed > maxSeed {
		return 0, domain.Validationf("seed must be between 0 and %d", maxSeed)
	}
	return seed, nil
}

func ValidateStepCount(n, max int) (int, error) {
	if n < 1 || n > max {
		return 0, domain.Validationf("num_steps must be between 1 and %d, got %d", max, n)
	}
	return n, nil
}

// RawParams is the untrusted submission payload. Pointer fields distinguish
// "absent, use default" from an explicit zero.
type RawParams struct {
	ImageURL   string
	Prompt     string
	Width      *int
	Height     *int
	NumFrames  *int
	NumSteps   *int
	Seed       *int64
	WebhookURL string
}

// Validator bundles the per-field checks with configured limits and
// defaults into one admission gate.
type Validator struct {
	urls     *URLValidator
	cfg      config.GenerationConfig
	seedFill int64
	trusted  []string
}

func New(cfg config.GenerationConfig) *Validator {
	return &Validator{urls: NewURLValidator(), cfg: cfg, seedFill: 42}
}

// NewWithURLValidator pairs the field checks with a caller-built URL
// validator.
func NewWithURLValidator(cfg config.GenerationConfig, urls *URLValidator) *Validator {
	return &Validator{urls: urls, cfg: cfg, seedFill: 42}
}

// AllowImagePrefix exempts image URLs under prefix from the resolution
// checks. Meant for the service's own upload links, which point back at
// this host and would otherwise trip the loopback denylist.
func (v *Validator) AllowImagePrefix(prefix string) {
	if prefix != "" {
		v.trusted = append(v.trusted, prefix)
	}
}

func (v *Validator) trustedImageURL(raw string) bool {
	for _, p := range v.trusted {
		if strings.HasPrefix(raw, p) && !strings.Contains(raw, "..") {
			return true
		}
	}
	return false
}

// ValidateParams applies defaults, then validates every field. The first
// failure wins; nothing stateful has happened yet at that point.
func (v *Validator) ValidateParams(ctx context.Context, raw RawParams) (model.GenerationParams, error) {
	var out model.GenerationParams

	imageURL := raw.ImageURL
	if !v.trustedImageURL(imageURL) {
		var err error
		if imageURL, err = v.urls.ValidateImageSource(ctx, raw.ImageURL); err != nil {
			return out, err
		}
	}
	prompt, err := ValidatePrompt(raw.Prompt)
	if err != nil {
		return out, err
	}

	width := v.cfg.DefaultWidth
	if raw.Width != nil {
		width = *raw.Width
	}
	height := v.cfg.DefaultHeight
	if raw.Height != nil {
		height = *raw.Height
	}
	width, height, err = ValidateDimensions(width, height, v.cfg.MaxWidth, v.cfg.MaxHeight)
	if err != nil {
		return out, err
	}

	frames := v.cfg.DefaultNumFrames
	if raw.NumFrames != nil {
		frames = *raw.NumFrames
	}
	if frames, err = ValidateFrameCount(frames, v.cfg.MaxFrames); err != nil {
		return out, err
	}

	steps := v.cfg.DefaultNumSteps
	if raw.NumSteps != nil {
		steps = *raw.NumSteps
	}
	if steps, err = ValidateStepCount(steps, v.cfg.MaxSteps); err != nil {
		return out, err
	}

	seed := v.seedFill
	if raw.Seed != nil {
		seed = *raw.Seed
	}
	if seed, err = ValidateSeed(seed); err != nil {
		return out, err
	}

	webhookURL := ""
	if raw.WebhookURL != "" {
		if webhookURL, err = v.urls.ValidateWebhookURL(ctx, raw.WebhookURL); err != nil {
			return out, err
		}
	}

	out = model.GenerationParams{
		ImageURL:   imageURL,
		Prompt:     prompt,
		Width:      width,
		Height:     height,
		NumFrames:  frames,
		NumSteps:   steps,
		Seed:       seed,
		WebhookURL: webhookURL,
	}
	return out, nil
}
