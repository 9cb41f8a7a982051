package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pixelmint/pixelmint/internal/config"
	"github.com/pixelmint/pixelmint/internal/identity"
	"github.com/pixelmint/pixelmint/internal/models"
	"github.com/pixelmint/pixelmint/internal/nanobanana"
)

// All product models currently route to the same upstream model; the
// product-facing model id is only recorded for bookkeeping.
const apiModel = "gemini-2.5-flash-image-preview"

// ProfileStore is the slice of the profile repository the orchestrator needs.
type ProfileStore interface {
	Ensure(ctx context.Context, id, email, fullName, avatarURL string, initialCredits int) (*models.Profile, bool, error)
	Debit(ctx context.Context, userID string, amount int) (bool, error)
}

type UsageStore interface {
	Insert(ctx context.Context, record *models.UsageRecord) error
}

// ImageGenerator submits a generation request and resolves it to a terminal
// provider response.
type ImageGenerator interface {
	Generate(ctx context.Context, req nanobanana.GenerateRequest) (*nanobanana.Result, error)
}

// ReferenceUploader turns an inline reference image into a public URL.
type ReferenceUploader interface {
	UploadDataURL(ctx context.Context, dataURL string) (string, error)
}

type GenerationService struct {
	cfg      config.Config
	log      *slog.Logger
	profiles ProfileStore
	usage    UsageStore
	provider ImageGenerator
	uploader ReferenceUploader
}

// NewGenerationService wires the orchestrator. uploader may be nil, in which
// case reference images are sent to the provider as data URLs.
func NewGenerationService(cfg config.Config, log *slog.Logger, profiles ProfileStore, usage UsageStore, provider ImageGenerator, uploader ReferenceUploader) *GenerationService {
	return &GenerationService{
		cfg:      cfg,
		log:      log,
		profiles: profiles,
		usage:    usage,
		provider: provider,
		uploader: uploader,
	}
}

type GenerateRequest struct {
	Prompt       string
	ImageDataURL string
	Model        models.ModelID
	Size         string
}

type GenerateResult struct {
	URLs        []string
	TaskID      string
	Status      string
	Type        models.GenerationType
	Model       models.ModelID
	CreditsUsed int
	Balance     int
}

// Generate runs one request through the whole lifecycle: validate, check
// credits, submit and poll, normalize, record usage, debit. Bookkeeping after
// a successful generation is best-effort: the user always gets the image they
// paid for, even when a ledger write fails.
func (s *GenerationService) Generate(ctx context.Context, user *identity.User, req GenerateRequest) (*GenerateResult, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, validationErrorf("Prompt is required")
	}
	if req.Model == "" {
		req.Model = models.ModelNanoBanana
	}
	if !models.KnownModel(req.Model) {
		return nil, validationErrorf("Unsupported model: %s", req.Model)
	}
	if req.Size == "" {
		req.Size = "1:1"
	}

	genType := models.TypeTextToImage
	creditsNeeded := s.cfg.TextToImageCredits
	if req.ImageDataURL != "" {
		genType = models.TypeImageToImage
		creditsNeeded = s.cfg.ImageToImageCredits
	}

	profile, _, err := s.profiles.Ensure(ctx, user.ID, user.Email, user.FullName(), user.AvatarURL(), s.cfg.InitialCredits)
	if err != nil {
		return nil, err
	}

	if profile.CreditsBalance < creditsNeeded {
		return nil, &InsufficientCreditsError{Required: creditsNeeded, Available: profile.CreditsBalance}
	}

	var imageURLs []string
	if req.ImageDataURL != "" {
		imageURLs = []string{s.referenceURL(ctx, req.ImageDataURL)}
	}

	result, err := s.provider.Generate(ctx, nanobanana.GenerateRequest{
		Model:     apiModel,
		Prompt:    req.Prompt,
		Size:      req.Size,
		N:         1,
		ImageURLs: imageURLs,
	})
	if err != nil {
		return nil, err
	}

	urls, err := nanobanana.ExtractImageURLs(result.Response)
	if err != nil {
		return nil, err
	}

	// Only the first image is persisted even when the provider yields several.
	if err := s.usage.Insert(ctx, &models.UsageRecord{
		UserID:      user.ID,
		Type:        genType,
		Model:       dbModel(req.Model),
		Prompt:      req.Prompt,
		ImageURL:    urls[0],
		CreditsUsed: creditsNeeded,
	}); err != nil {
		s.log.Error("failed to record usage", "user_id", user.ID, "err", err)
	}

	debited, err := s.profiles.Debit(ctx, user.ID, creditsNeeded)
	if err != nil {
		s.log.Error("failed to debit credits", "user_id", user.ID, "amount", creditsNeeded, "err", err)
	} else if !debited {
		s.log.Warn("balance changed under request, debit skipped", "user_id", user.ID, "amount", creditsNeeded)
	}

	return &GenerateResult{
		URLs:        urls,
		TaskID:      result.TaskID,
		Status:      result.Status,
		Type:        genType,
		Model:       req.Model,
		CreditsUsed: creditsNeeded,
		Balance:     profile.CreditsBalance - creditsNeeded,
	}, nil
}

// referenceURL uploads the reference image when storage is configured; the
// provider also accepts data URLs directly, so upload failures fall back to
// pass-through instead of failing the generation.
func (s *GenerationService) referenceURL(ctx context.Context, dataURL string) string {
	if s.uploader == nil {
		return dataURL
	}
	publicURL, err := s.uploader.UploadDataURL(ctx, dataURL)
	if err != nil {
		s.log.Warn("reference image upload failed, sending inline", "err", err)
		return dataURL
	}
	return publicURL
}

// dbModel converts the product model id to the snake_case form the usage
// table constrains on.
func dbModel(model models.ModelID) string {
	return strings.ReplaceAll(string(model), "-", "_")
}
