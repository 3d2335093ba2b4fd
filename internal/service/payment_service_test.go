package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/brgy-docs-api/internal/models"
	appErrors "github.com/noah-isme/brgy-docs-api/pkg/errors"
	"github.com/noah-isme/brgy-docs-api/pkg/storage"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n" + strings.Repeat("x", 64))

func newTestPaymentService(t *testing.T, repo *requestRepoStub) *PaymentService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Minute)
	return NewPaymentService(repo, store, signer, &auditStub{}, nil, 1<<20, nil, nil)
}

type proofObserverStub struct {
	sizes []int
}

func (o *proofObserverStub) ObserveProofUpload(bytes int) {
	o.sizes = append(o.sizes, bytes)
}

func TestPaymentServiceUploadAndResolve(t *testing.T) {
	repo := newRequestRepoStub()
	seedRequest(repo, models.StatusApproved, 50)
	svc := newTestPaymentService(t, repo)

	result, err := svc.Upload(context.Background(), "req-1", pngBytes, residentActor("brgy-1", "res-1"))
	require.NoError(t, err)
	assert.Equal(t, "req-1", result.RequestID)
	assert.True(t, strings.HasPrefix(result.ProofURL, "payment-proofs/brgy-1/req-1/"))
	assert.True(t, strings.HasSuffix(result.ProofURL, ".png"))
	assert.NotEmpty(t, result.DownloadURL)

	file, contentType, err := svc.Resolve(result.DownloadURL)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck
	assert.Equal(t, "image/png", contentType)
	stored, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, stored)
}

func TestPaymentServiceUploadGuards(t *testing.T) {
	repo := newRequestRepoStub()
	seedRequest(repo, models.StatusApproved, 50)
	svc := newTestPaymentService(t, repo)
	ctx := context.Background()
	owner := residentActor("brgy-1", "res-1")

	_, err := svc.Upload(ctx, "missing", pngBytes, owner)
	requireAppErr(t, err, appErrors.ErrNotFound.Code)

	_, err = svc.Upload(ctx, "req-1", pngBytes, residentActor("brgy-1", "res-2"))
	requireAppErr(t, err, appErrors.ErrForbidden.Code)

	_, err = svc.Upload(ctx, "req-1", pngBytes, residentActor("brgy-2", "res-1"))
	requireAppErr(t, err, appErrors.ErrTenantMismatch.Code)

	_, err = svc.Upload(ctx, "req-1", pngBytes, staffActor(models.RoleTreasurer, "brgy-1"))
	requireAppErr(t, err, appErrors.ErrForbidden.Code)

	_, err = svc.Upload(ctx, "req-1", nil, owner)
	requireAppErr(t, err, appErrors.ErrValidation.Code)

	_, err = svc.Upload(ctx, "req-1", []byte("%PDF-1.7 not an image"), owner)
	requireAppErr(t, err, appErrors.ErrValidation.Code)

	seedRequest(repo, models.StatusPending, 50)
	_, err = svc.Upload(ctx, "req-1", pngBytes, owner)
	requireAppErr(t, err, appErrors.ErrPreconditionFailed.Code)
}

func TestPaymentServiceUploadSizeCap(t *testing.T) {
	repo := newRequestRepoStub()
	seedRequest(repo, models.StatusApproved, 50)
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Minute)
	svc := NewPaymentService(repo, store, signer, &auditStub{}, nil, 16, nil, nil)

	_, err = svc.Upload(context.Background(), "req-1", pngBytes, residentActor("brgy-1", "res-1"))
	requireAppErr(t, err, appErrors.ErrValidation.Code)
}

func TestPaymentServiceUploadObservesSize(t *testing.T) {
	repo := newRequestRepoStub()
	seedRequest(repo, models.StatusApproved, 50)
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Minute)
	observer := &proofObserverStub{}
	svc := NewPaymentService(repo, store, signer, &auditStub{}, observer, 1<<20, nil, nil)
	ctx := context.Background()

	_, err = svc.Upload(ctx, "req-1", []byte("%PDF-1.7 not an image"), residentActor("brgy-1", "res-1"))
	requireAppErr(t, err, appErrors.ErrValidation.Code)
	assert.Empty(t, observer.sizes, "rejected uploads must not be observed")

	_, err = svc.Upload(ctx, "req-1", pngBytes, residentActor("brgy-1", "res-1"))
	require.NoError(t, err)
	assert.Equal(t, []int{len(pngBytes)}, observer.sizes)
}

func TestPaymentServiceRepoFailureIsInternal(t *testing.T) {
	repo := newRequestRepoStub()
	seedRequest(repo, models.StatusApproved, 50)
	repo.getErr = errors.New("connection refused")
	svc := newTestPaymentService(t, repo)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "req-1", pngBytes, residentActor("brgy-1", "res-1"))
	requireAppErr(t, err, appErrors.ErrInternal.Code)

	_, err = svc.ProofLink(ctx, "req-1", staffActor(models.RoleTreasurer, "brgy-1"))
	requireAppErr(t, err, appErrors.ErrInternal.Code)
}

func TestPaymentServiceProofLink(t *testing.T) {
	repo := newRequestRepoStub()
	svc := newTestPaymentService(t, repo)
	ctx := context.Background()

	seed := seedRequest(repo, models.StatusPaymentSubmitted, 50)
	repo.requests[seed.ID].PaymentDetails = &models.PaymentDetails{
		Method:          models.MethodGCash,
		ReferenceNumber: "GC-1",
		ProofURL:        "payment-proofs/brgy-1/req-1/proof.png",
	}

	_, err := svc.ProofLink(ctx, "req-1", staffActor(models.RoleTreasurer, "brgy-2"))
	requireAppErr(t, err, appErrors.ErrTenantMismatch.Code)

	_, err = svc.ProofLink(ctx, "req-1", residentActor("brgy-1", "res-2"))
	requireAppErr(t, err, appErrors.ErrForbidden.Code)

	link, err := svc.ProofLink(ctx, "req-1", staffActor(models.RoleTreasurer, "brgy-1"))
	require.NoError(t, err)
	assert.Equal(t, "payment-proofs/brgy-1/req-1/proof.png", link.ProofURL)
	assert.NotEmpty(t, link.DownloadURL)

	repo.requests[seed.ID].PaymentDetails = nil
	_, err = svc.ProofLink(ctx, "req-1", staffActor(models.RoleTreasurer, "brgy-1"))
	requireAppErr(t, err, appErrors.ErrNotFound.Code)
}

func TestPaymentServiceResolveRejectsTamperedToken(t *testing.T) {
	repo := newRequestRepoStub()
	svc := newTestPaymentService(t, repo)

	_, _, err := svc.Resolve("not.a.valid.token")
	requireAppErr(t, err, appErrors.ErrForbidden.Code)
}
