package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soragemix/soragemix/internal/model"
	"github.com/soragemix/soragemix/internal/nano"
	"github.com/soragemix/soragemix/internal/queue"
	"github.com/soragemix/soragemix/internal/repository"
)

// ----- fakes -----

type fakeUsers struct {
	user       model.User
	getErr     error
	quota      int
	quotaErr   error
	decErr     error
	decCalls   int
	quotaCalls int
}

func (f *fakeUsers) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return f.user, f.getErr
}

func (f *fakeUsers) QuotaRemaining(ctx context.Context, id uint64) (int, error) {
	f.quotaCalls++
	return f.quota, f.quotaErr
}

func (f *fakeUsers) DecrementQuotaTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	f.decCalls++
	return f.decErr
}

type fakeImages struct {
	db        *sql.DB
	createErr error
	created   *model.Image
}

func (f *fakeImages) Begin(ctx context.Context) (*sql.Tx, error) {
	return f.db.BeginTx(ctx, nil)
}

func (f *fakeImages) CreateTx(ctx context.Context, tx *sql.Tx, img *model.Image) error {
	if f.createErr != nil {
		return f.createErr
	}
	img.ID = 77
	f.created = img
	return nil
}

type fakeTools struct {
	byID   map[uint64]*model.Tool
	byRole []model.Tool
}

func (f *fakeTools) GetByID(ctx context.Context, id uint64) (*model.Tool, error) {
	t, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrToolNotFound
	}
	return t, nil
}

func (f *fakeTools) ListByRole(ctx context.Context, roleID uint64) ([]model.Tool, error) {
	return f.byRole, nil
}

type fakeStore struct {
	saveErr error
	saved   []string
	removed []string
}

func (f *fakeStore) Save(userID uint64, mimeType string, data []byte) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	url := "/uploads/generated/u1-test.png"
	f.saved = append(f.saved, url)
	return url, nil
}

func (f *fakeStore) Remove(urlPath string) error {
	f.removed = append(f.removed, urlPath)
	return nil
}

type fakeKeys struct {
	key string
	err error
}

func (f *fakeKeys) APIKey(ctx context.Context) (string, error) { return f.key, f.err }

type fakeGen struct {
	out     *nano.Output
	err     error
	prompts []string
}

func (f *fakeGen) Generate(ctx context.Context, apiKey, prompt string, images []nano.InputImage) (*nano.Output, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

// ----- harness -----

type genFixture struct {
	svc    *GenerationService
	users  *fakeUsers
	images *fakeImages
	tools  *fakeTools
	store  *fakeStore
	gen    *fakeGen
	mock   sqlmock.Sqlmock
	events []queue.ImageGeneratedEvent
}

func newGenFixture(t *testing.T, user model.User) *genFixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &genFixture{
		users:  &fakeUsers{user: user, quota: user.QuotaRemaining - 1},
		images: &fakeImages{db: db},
		tools:  &fakeTools{byID: map[uint64]*model.Tool{}},
		store:  &fakeStore{},
		gen:    &fakeGen{out: &nano.Output{Data: []byte("png-bytes"), MIMEType: "image/png", Text: "done"}},
		mock:   mock,
	}
	f.svc = NewGenerationService(f.users, f.images, f.tools, f.store, &fakeKeys{key: "k"}, f.gen)
	f.svc.publish = func(ctx context.Context, ev queue.ImageGeneratedEvent) error {
		f.events = append(f.events, ev)
		return nil
	}
	return f
}

func regularUser(quota int) model.User {
	return model.User{ID: 1, Email: "u@example.com", RoleID: 2, RoleName: model.RoleUser, QuotaRemaining: quota}
}

const longPrompt = "Make the sky a deep crimson sunset over the ocean"

// ----- tests -----

func TestGenerateDecrementsQuotaAndPersists(t *testing.T) {
	f := newGenFixture(t, regularUser(3))
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	res, err := f.svc.Generate(context.Background(), GenerateRequest{
		UserID: 1, Mode: ModeText, CustomPrompt: longPrompt,
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(77), res.Image.ID)
	assert.Equal(t, longPrompt, res.Image.Prompt)
	assert.Equal(t, int64(len("png-bytes")), res.Image.FileSize)
	assert.Equal(t, 2, res.QuotaRemaining)
	assert.Equal(t, 1, f.users.decCalls)
	assert.Equal(t, "done", res.ModelText)

	require.Len(t, f.events, 1)
	assert.Equal(t, uint64(77), f.events[0].ImageID)
	assert.Equal(t, "u@example.com", f.events[0].UserEmail)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGenerateRejectsExhaustedQuotaBeforeUpstream(t *testing.T) {
	f := newGenFixture(t, regularUser(0))

	_, err := f.svc.Generate(context.Background(), GenerateRequest{
		UserID: 1, Mode: ModeText, CustomPrompt: longPrompt,
	})
	assert.ErrorIs(t, err, repository.ErrQuotaExhausted)
	assert.Empty(t, f.gen.prompts, "upstream must not be called")
	assert.Empty(t, f.store.saved)
}

func TestGenerateUpstreamFailureWritesNothing(t *testing.T) {
	f := newGenFixture(t, regularUser(3))
	f.gen.err = &nano.UpstreamError{Reason: "boom", Err: errors.New("boom")}

	_, err := f.svc.Generate(context.Background(), GenerateRequest{
		UserID: 1, Mode: ModeText, CustomPrompt: longPrompt,
	})
	var upstream *nano.UpstreamError
	assert.ErrorAs(t, err, &upstream)
	assert.Empty(t, f.store.saved)
	assert.Zero(t, f.users.decCalls)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGenerateStorageFailureAfterUpstreamPropagates(t *testing.T) {
	f := newGenFixture(t, regularUser(3))
	f.store.saveErr = errors.New("disk full")

	_, err := f.svc.Generate(context.Background(), GenerateRequest{
		UserID: 1, Mode: ModeText, CustomPrompt: longPrompt,
	})
	assert.ErrorContains(t, err, "disk full")
	assert.Zero(t, f.users.decCalls)
	assert.Empty(t, f.events)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGenerateLostRaceRollsBackAndRemovesFile(t *testing.T) {
	// Quota read 1, but another request spends the last credit before the
	// transactional decrement runs.
	f := newGenFixture(t, regularUser(1))
	f.users.decErr = repository.ErrQuotaExhausted
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.Generate(context.Background(), GenerateRequest{
		UserID: 1, Mode: ModeText, CustomPrompt: longPrompt,
	})
	assert.ErrorIs(t, err, repository.ErrQuotaExhausted)
	require.Len(t, f.store.removed, 1)
	assert.Equal(t, f.store.saved[0], f.store.removed[0])
	assert.Empty(t, f.events)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGenerateAdminSkipsQuota(t *testing.T) {
	admin := model.User{ID: 9, Email: "a@example.com", RoleID: 1, RoleName: model.RoleAdmin, QuotaRemaining: 0}
	f := newGenFixture(t, admin)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	res, err := f.svc.Generate(context.Background(), GenerateRequest{
		UserID: 9, Mode: ModeText, CustomPrompt: longPrompt,
	})
	require.NoError(t, err)
	assert.Equal(t, -1, res.QuotaRemaining)
	assert.Zero(t, f.users.decCalls)
	assert.Zero(t, f.users.quotaCalls)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGenerateToolPromptFlow(t *testing.T) {
	cfg := `{"options":[{"name":"color","label":"Color","type":"color","prompt":"a {{ color }} tint"}]}`
	tool := &model.Tool{ID: 4, Name: "Tint", BasePrompt: "Apply {{ color }} to the image", CustomConfig: &cfg, IsActive: true}

	f := newGenFixture(t, regularUser(3))
	f.tools.byID[4] = tool
	f.tools.byRole = []model.Tool{*tool}
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	res, err := f.svc.Generate(context.Background(), GenerateRequest{
		UserID: 1, Mode: ModeText, ToolIDs: []uint64{4},
		Selected: map[string]string{"color": "teal"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Apply a teal tint to the image", res.Image.Prompt)
	require.Len(t, f.gen.prompts, 1)
	assert.Equal(t, "Apply a teal tint to the image", f.gen.prompts[0])
}

func TestGenerateToolNotAssignedToRole(t *testing.T) {
	cfg := `{"options":[]}`
	f := newGenFixture(t, regularUser(3))
	f.tools.byID[4] = &model.Tool{ID: 4, Name: "Hidden", BasePrompt: "x", CustomConfig: &cfg, IsActive: true}
	// byRole stays empty: the tool exists but is not assigned.

	_, err := f.svc.Generate(context.Background(), GenerateRequest{
		UserID: 1, Mode: ModeText, ToolIDs: []uint64{4},
	})
	assert.ErrorIs(t, err, ErrToolNotAllowed)
	assert.Empty(t, f.gen.prompts)
}

func TestGenerateTextModeNeedsToolsOrCustomPrompt(t *testing.T) {
	f := newGenFixture(t, regularUser(3))

	_, err := f.svc.Generate(context.Background(), GenerateRequest{UserID: 1, Mode: ModeText})
	assert.ErrorIs(t, err, ErrNoTools)

	// Short custom prompts do not count as an override.
	_, err = f.svc.Generate(context.Background(), GenerateRequest{
		UserID: 1, Mode: ModeText, CustomPrompt: "too short",
	})
	assert.ErrorIs(t, err, ErrNoTools)
}

func TestGenerateImageModeDefaultsPromptWithoutTools(t *testing.T) {
	f := newGenFixture(t, regularUser(3))
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	res, err := f.svc.Generate(context.Background(), GenerateRequest{
		UserID: 1, Mode: ModeSingleImage,
		Inputs: []nano.InputImage{{Data: []byte("x"), MIMEType: "image/png"}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Image.Prompt)
}

func TestValidateMode(t *testing.T) {
	cases := []struct {
		name   string
		mode   string
		inputs int
		want   error
	}{
		{"text ok", ModeText, 0, nil},
		{"single needs one", ModeSingleImage, 0, ErrMissingInputs},
		{"single ok", ModeSingleImage, 1, nil},
		{"single too many", ModeSingleImage, 2, ErrTooManyInputs},
		{"multi needs two", ModeMultipleImages, 1, ErrMissingInputs},
		{"multi ok", ModeMultipleImages, 3, nil},
		{"multi capped", ModeMultipleImages, 6, ErrTooManyInputs},
		{"unknown", "video", 0, ErrInvalidMode},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateMode(tc.mode, tc.inputs)
			if tc.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.want)
			}
		})
	}
}

func TestGenerateMissingAPIKey(t *testing.T) {
	f := newGenFixture(t, regularUser(3))
	f.svc.keys = &fakeKeys{err: ErrAPIKeyMissing}

	_, err := f.svc.Generate(context.Background(), GenerateRequest{
		UserID: 1, Mode: ModeText, CustomPrompt: longPrompt,
	})
	assert.ErrorIs(t, err, ErrAPIKeyMissing)
	assert.Empty(t, f.gen.prompts)
}
