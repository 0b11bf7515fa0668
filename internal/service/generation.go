package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/soragemix/soragemix/internal/model"
	"github.com/soragemix/soragemix/internal/nano"
	"github.com/soragemix/soragemix/internal/prompt"
	"github.com/soragemix/soragemix/internal/queue"
	"github.com/soragemix/soragemix/internal/repository"
)

// Generation modes. Text mode creates an image from the prompt alone;
// the image modes edit one or several uploaded images.
const (
	ModeText           = "text"
	ModeSingleImage    = "single_image"
	ModeMultipleImages = "multiple_images"
)

// MaxInputImages bounds multi-image edits; mirrors the upload middleware.
const MaxInputImages = 5

var (
	ErrInvalidMode    = errors.New("invalid generation mode")
	ErrMissingInputs  = errors.New("generation mode requires input images")
	ErrTooManyInputs  = errors.New("too many input images")
	ErrAPIKeyMissing  = errors.New("image API key is not configured")
	ErrToolNotAllowed = errors.New("tool is not available for this role")
	ErrNoTools        = errors.New("at least one tool or a custom prompt is required")
)

type generationUserStore interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	QuotaRemaining(ctx context.Context, id uint64) (int, error)
	DecrementQuotaTx(ctx context.Context, tx *sql.Tx, id uint64) error
}

type generationImageStore interface {
	Begin(ctx context.Context) (*sql.Tx, error)
	CreateTx(ctx context.Context, tx *sql.Tx, img *model.Image) error
}

type generationToolStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Tool, error)
	ListByRole(ctx context.Context, roleID uint64) ([]model.Tool, error)
}

type binaryStore interface {
	Save(userID uint64, mimeType string, data []byte) (string, error)
	Remove(urlPath string) error
}

type keySource interface {
	APIKey(ctx context.Context) (string, error)
}

// GenerateRequest carries one generation attempt through the pipeline.
type GenerateRequest struct {
	UserID       uint64
	Mode         string
	ToolIDs      []uint64
	Selected     map[string]string
	CustomPrompt string
	Inputs       []nano.InputImage
}

// GenerateResult is returned on success. QuotaRemaining is the
// authoritative post-decrement value; -1 means unlimited (admin).
type GenerateResult struct {
	Image          model.Image
	QuotaRemaining int
	ModelText      string
}

// GenerationService runs the quota-gated pipeline: validate, resolve the
// prompt, call the model, then persist the image and spend the quota
// credit in a single transaction.
type GenerationService struct {
	users   generationUserStore
	images  generationImageStore
	tools   generationToolStore
	store   binaryStore
	keys    keySource
	gen     nano.Generator
	publish func(ctx context.Context, ev queue.ImageGeneratedEvent) error
}

func NewGenerationService(users generationUserStore, images generationImageStore, tools generationToolStore,
	store binaryStore, keys keySource, gen nano.Generator) *GenerationService {
	return &GenerationService{
		users:   users,
		images:  images,
		tools:   tools,
		store:   store,
		keys:    keys,
		gen:     gen,
		publish: PublishImageGenerated,
	}
}

// Generate runs the full pipeline for one request. Nothing is written
// and no quota is spent unless the upstream call produced an image; the
// insert and the conditional decrement commit or roll back together.
func (s *GenerationService) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if err := validateMode(req.Mode, len(req.Inputs)); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	admin := user.IsAdmin()

	// Cheap pre-check so an exhausted user never pays for an upstream
	// call. The transactional decrement below is the real gate.
	if !admin && user.QuotaRemaining <= 0 {
		return nil, repository.ErrQuotaExhausted
	}

	finalPrompt, err := s.resolvePrompt(ctx, &user, admin, req)
	if err != nil {
		return nil, err
	}

	apiKey, err := s.keys.APIKey(ctx)
	if err != nil {
		return nil, err
	}

	out, err := s.gen.Generate(ctx, apiKey, finalPrompt, req.Inputs)
	if err != nil {
		return nil, err
	}

	// The upstream call above already consumed a paid generation, so
	// failures from here on are logged before they surface as a 500.
	imageURL, err := s.store.Save(req.UserID, out.MIMEType, out.Data)
	if err != nil {
		log.Printf("generation: saving output for user %d failed after upstream call: %v", req.UserID, err)
		return nil, err
	}

	img := model.Image{
		UserID:   req.UserID,
		ImageURL: imageURL,
		Prompt:   finalPrompt,
		FileSize: int64(len(out.Data)),
	}
	if err := s.persist(ctx, &img, admin); err != nil {
		if err != repository.ErrQuotaExhausted {
			log.Printf("generation: persisting %s for user %d failed after upstream call: %v", imageURL, req.UserID, err)
		}
		if rmErr := s.store.Remove(imageURL); rmErr != nil {
			log.Printf("generation: orphan file cleanup failed for %s: %v", imageURL, rmErr)
		}
		return nil, err
	}

	quota := -1
	if !admin {
		if q, err := s.users.QuotaRemaining(ctx, req.UserID); err == nil {
			quota = q
		} else {
			quota = user.QuotaRemaining - 1
		}
	}

	ev := queue.ImageGeneratedEvent{
		ImageID:        img.ID,
		UserID:         req.UserID,
		UserEmail:      user.Email,
		Prompt:         finalPrompt,
		GenerationMode: req.Mode,
		ImageURL:       img.ImageURL,
		FileSize:       img.FileSize,
		QuotaRemaining: quota,
		GeneratedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	_ = s.publish(ctx, ev) // best effort; publish logs its own failures

	return &GenerateResult{Image: img, QuotaRemaining: quota, ModelText: out.Text}, nil
}

// persist writes the image row and spends one quota credit in one
// transaction. Admins keep the row but skip the decrement.
func (s *GenerationService) persist(ctx context.Context, img *model.Image, admin bool) error {
	tx, err := s.images.Begin(ctx)
	if err != nil {
		return err
	}
	if err := s.images.CreateTx(ctx, tx, img); err != nil {
		_ = tx.Rollback()
		return err
	}
	if !admin {
		if err := s.users.DecrementQuotaTx(ctx, tx, img.UserID); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// resolvePrompt picks the prompt to send upstream: a long enough custom
// prompt wins outright; otherwise each selected tool is built and the
// parts combined; an empty outcome falls back to the default prompt.
func (s *GenerationService) resolvePrompt(ctx context.Context, user *model.User, admin bool, req GenerateRequest) (string, error) {
	if p, ok := prompt.Override(req.CustomPrompt); ok {
		return p, nil
	}
	if len(req.ToolIDs) == 0 {
		if req.Mode == ModeText {
			return "", ErrNoTools
		}
		return prompt.DefaultPrompt, nil
	}

	allowed := map[uint64]bool{}
	if !admin {
		tools, err := s.tools.ListByRole(ctx, user.RoleID)
		if err != nil {
			return "", err
		}
		for _, t := range tools {
			allowed[t.ID] = true
		}
	}

	parts := make([]prompt.ToolPrompt, 0, len(req.ToolIDs))
	for _, toolID := range req.ToolIDs {
		if !admin && !allowed[toolID] {
			return "", ErrToolNotAllowed
		}
		tool, err := s.tools.GetByID(ctx, toolID)
		if err != nil {
			return "", err
		}
		if admin && !tool.IsActive {
			return "", ErrToolNotAllowed
		}
		built := buildToolPrompt(tool, req.Selected)
		if built == "" {
			continue
		}
		parts = append(parts, prompt.ToolPrompt{ToolName: tool.Name, Prompt: built})
	}

	combined := prompt.Combine(parts)
	if combined == "" {
		combined = prompt.DefaultPrompt
	}
	return combined, nil
}

// buildToolPrompt runs the builder for one tool. A malformed custom
// config falls back to the raw base prompt rather than failing the
// request; admins are told at tool-save time, not users at run time.
func buildToolPrompt(tool *model.Tool, selected map[string]string) string {
	cfg, err := prompt.ParseCustomConfig(tool.CustomConfig)
	if err != nil {
		log.Printf("generation: tool %d has malformed custom config: %v", tool.ID, err)
		return tool.BasePrompt
	}
	return prompt.Build(tool.BasePrompt, cfg, selected).Prompt
}

func validateMode(mode string, inputs int) error {
	switch mode {
	case ModeText:
		return nil
	case ModeSingleImage:
		if inputs == 0 {
			return ErrMissingInputs
		}
		if inputs > 1 {
			return ErrTooManyInputs
		}
	case ModeMultipleImages:
		if inputs < 2 {
			return ErrMissingInputs
		}
		if inputs > MaxInputImages {
			return ErrTooManyInputs
		}
	default:
		return ErrInvalidMode
	}
	return nil
}
