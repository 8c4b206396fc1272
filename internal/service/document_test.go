package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"doccustody/internal/anchor"
	ancMocks "doccustody/internal/anchor/mocks"
	"doccustody/internal/classifier"
	clsMocks "doccustody/internal/classifier/mocks"
	"doccustody/internal/hashing"
	"doccustody/internal/model"
	"doccustody/internal/repository"
	repoMocks "doccustody/internal/repository/mocks"
	"doccustody/internal/storage"
	storeMocks "doccustody/internal/storage/mocks"
	"doccustody/internal/validation"
	"doccustody/internal/verification"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var jpegPayload = append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, bytes.Repeat([]byte{0x7A}, 2037)...)

type deps struct {
	blobs *storeMocks.MockBlobs
	repo  *repoMocks.MockDocumentRepository
	cls   *clsMocks.MockClassifier
	anc   *ancMocks.MockClient
}

func newDeps() deps {
	return deps{
		blobs: new(storeMocks.MockBlobs),
		repo:  new(repoMocks.MockDocumentRepository),
		cls:   new(clsMocks.MockClassifier),
		anc:   new(ancMocks.MockClient),
	}
}

func (d deps) assertExpectations(t *testing.T) {
	d.blobs.AssertExpectations(t)
	d.repo.AssertExpectations(t)
	d.cls.AssertExpectations(t)
	d.anc.AssertExpectations(t)
}

func testOptions(failOpen bool) Options {
	return Options{
		Limits: validation.Limits{
			MaxBytes:     10 << 20,
			AllowedTypes: []string{"image/jpeg", "image/png", "application/pdf"},
		},
		Policy:            verification.Policy{Threshold: 0.75, FailOpen: failOpen, DegradedConfidence: 0.5},
		ClassifierTimeout: time.Second,
		AnchorTimeout:     time.Second,
	}
}

func newTestService(d deps, opts Options) *documentService {
	return NewDocumentService(d.blobs, d.repo, d.cls, d.anc, opts).(*documentService)
}

// echoCreate makes the repository mock return the record it was given.
func echoCreate(m *repoMocks.MockDocumentRepository) *mock.Call {
	return m.On("Create", mock.Anything, mock.AnythingOfType("*model.Document")).
		Return(func(_ context.Context, doc *model.Document) *model.Document { return doc }, nil)
}

func TestDocumentService_Upload(t *testing.T) {
	hash := hashing.Hash(jpegPayload)
	idCard := classifier.Verdict{DetectedType: "ID Card", IsValid: true, Confidence: 0.92, Reason: "Photo and ID number present"}

	tests := []struct {
		name         string
		failOpen     bool
		cmd          UploadCommand
		setupMocks   func(d deps)
		wantErr      error
		wantErrMsg   string
		wantDecision model.Decision
		wantStored   bool
		wantAnchor   string
	}{
		{
			name:     "accepted and anchored",
			failOpen: true,
			cmd:      UploadCommand{Payload: jpegPayload, OriginalName: "id.jpg", MIMEType: "image/jpeg", OwnerRef: "student-1", DeclaredType: "ID Card"},
			setupMocks: func(d deps) {
				d.cls.On("Classify", mock.Anything, jpegPayload, "image/jpeg", "ID Card").Return(idCard, nil)
				d.repo.On("FindByContentHash", mock.Anything, hash).Return(nil, repository.ErrNotFound)
				d.blobs.On("SaveBlob", mock.Anything, jpegPayload, "image/jpeg", mock.MatchedBy(func(meta map[string]string) bool {
					return meta["owner_ref"] == "student-1" && meta["content_sha256"] == hash && meta["document_id"] != ""
				})).Return("documents/2026/10/abc.jpg", nil)
				echoCreate(d.repo)
				d.anc.On("Anchor", mock.Anything, hash, "student-1").Return("0xabc", nil)
				d.repo.On("AttachAnchor", mock.Anything, mock.AnythingOfType("string"), "0xabc").Return(nil)
			},
			wantDecision: model.DecisionAccepted,
			wantStored:   true,
			wantAnchor:   "0xabc",
		},
		{
			name:     "type mismatch is a result",
			failOpen: true,
			cmd:      UploadCommand{Payload: jpegPayload, MIMEType: "image/jpeg", OwnerRef: "student-1", DeclaredType: "Diploma"},
			setupMocks: func(d deps) {
				d.cls.On("Classify", mock.Anything, jpegPayload, "image/jpeg", "Diploma").Return(idCard, nil)
			},
			wantDecision: model.DecisionRejectedTypeMismatch,
		},
		{
			name:     "unsupported file never reaches the classifier",
			failOpen: true,
			cmd:      UploadCommand{Payload: []byte("plain text"), MIMEType: "text/plain", OwnerRef: "student-1"},
			setupMocks: func(d deps) {},
			wantDecision: model.DecisionRejectedUnsupportedFile,
		},
		{
			name:     "classifier 500 fails open",
			failOpen: true,
			cmd:      UploadCommand{Payload: jpegPayload, MIMEType: "image/jpeg", OwnerRef: "student-1", DeclaredType: "ID Card"},
			setupMocks: func(d deps) {
				d.cls.On("Classify", mock.Anything, jpegPayload, "image/jpeg", "ID Card").
					Return(classifier.Verdict{}, &classifier.Error{Kind: classifier.KindStatus, StatusCode: 500, Body: "boom"})
				d.repo.On("FindByContentHash", mock.Anything, hash).Return(nil, repository.ErrNotFound)
				d.blobs.On("SaveBlob", mock.Anything, jpegPayload, "image/jpeg", mock.Anything).Return("documents/x.jpg", nil)
				echoCreate(d.repo)
				d.anc.On("Anchor", mock.Anything, hash, "student-1").Return("0x1", nil)
				d.repo.On("AttachAnchor", mock.Anything, mock.Anything, "0x1").Return(nil)
			},
			wantDecision: model.DecisionIndeterminateAccepted,
			wantStored:   true,
			wantAnchor:   "0x1",
		},
		{
			name:     "classifier 500 fails closed",
			failOpen: false,
			cmd:      UploadCommand{Payload: jpegPayload, MIMEType: "image/jpeg", OwnerRef: "student-1", DeclaredType: "ID Card"},
			setupMocks: func(d deps) {
				d.cls.On("Classify", mock.Anything, jpegPayload, "image/jpeg", "ID Card").
					Return(classifier.Verdict{}, &classifier.Error{Kind: classifier.KindStatus, StatusCode: 500})
			},
			wantDecision: model.DecisionError,
		},
		{
			name:     "anchor failure keeps the record",
			failOpen: true,
			cmd:      UploadCommand{Payload: jpegPayload, MIMEType: "image/jpeg", OwnerRef: "student-1", DeclaredType: "ID Card"},
			setupMocks: func(d deps) {
				d.cls.On("Classify", mock.Anything, jpegPayload, "image/jpeg", "ID Card").Return(idCard, nil)
				d.repo.On("FindByContentHash", mock.Anything, hash).Return(nil, repository.ErrNotFound)
				d.blobs.On("SaveBlob", mock.Anything, jpegPayload, "image/jpeg", mock.Anything).Return("documents/x.jpg", nil)
				echoCreate(d.repo)
				d.anc.On("Anchor", mock.Anything, hash, "student-1").Return("", errors.New("ledger down"))
			},
			wantDecision: model.DecisionAccepted,
			wantStored:   true,
		},
		{
			name:     "duplicate content found before storing",
			failOpen: true,
			cmd:      UploadCommand{Payload: jpegPayload, MIMEType: "image/jpeg", OwnerRef: "student-1", DeclaredType: "ID Card"},
			setupMocks: func(d deps) {
				d.cls.On("Classify", mock.Anything, jpegPayload, "image/jpeg", "ID Card").Return(idCard, nil)
				d.repo.On("FindByContentHash", mock.Anything, hash).Return(&model.Document{ID: "existing"}, nil)
			},
			wantErr: ErrDuplicateContent,
		},
		{
			name:     "duplicate insert race rolls back the blob",
			failOpen: true,
			cmd:      UploadCommand{Payload: jpegPayload, MIMEType: "image/jpeg", OwnerRef: "student-1", DeclaredType: "ID Card"},
			setupMocks: func(d deps) {
				d.cls.On("Classify", mock.Anything, jpegPayload, "image/jpeg", "ID Card").Return(idCard, nil)
				d.repo.On("FindByContentHash", mock.Anything, hash).Return(nil, repository.ErrNotFound)
				d.blobs.On("SaveBlob", mock.Anything, jpegPayload, "image/jpeg", mock.Anything).Return("documents/x.jpg", nil)
				d.repo.On("Create", mock.Anything, mock.Anything).Return(nil, repository.ErrDuplicateContentHash)
				d.blobs.On("DeleteBlob", mock.Anything, "documents/x.jpg").Return(nil)
			},
			wantErr: ErrDuplicateContent,
		},
		{
			name:     "db error and rollback error",
			failOpen: true,
			cmd:      UploadCommand{Payload: jpegPayload, MIMEType: "image/jpeg", OwnerRef: "student-1", DeclaredType: "ID Card"},
			setupMocks: func(d deps) {
				d.cls.On("Classify", mock.Anything, jpegPayload, "image/jpeg", "ID Card").Return(idCard, nil)
				d.repo.On("FindByContentHash", mock.Anything, hash).Return(nil, repository.ErrNotFound)
				d.blobs.On("SaveBlob", mock.Anything, jpegPayload, "image/jpeg", mock.Anything).Return("documents/x.jpg", nil)
				d.repo.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("db fail"))
				d.blobs.On("DeleteBlob", mock.Anything, "documents/x.jpg").Return(errors.New("delete fail"))
			},
			wantErrMsg: "db save failed: db fail; rollback delete failed: delete fail",
		},
		{
			name:     "storage error",
			failOpen: true,
			cmd:      UploadCommand{Payload: jpegPayload, MIMEType: "image/jpeg", OwnerRef: "student-1", DeclaredType: "ID Card"},
			setupMocks: func(d deps) {
				d.cls.On("Classify", mock.Anything, jpegPayload, "image/jpeg", "ID Card").Return(idCard, nil)
				d.repo.On("FindByContentHash", mock.Anything, hash).Return(nil, repository.ErrNotFound)
				d.blobs.On("SaveBlob", mock.Anything, jpegPayload, "image/jpeg", mock.Anything).Return("", errors.New("storage fail"))
			},
			wantErrMsg: "upload to storage: storage fail",
		},
		{
			name:       "owner required",
			cmd:        UploadCommand{Payload: jpegPayload},
			setupMocks: func(d deps) {},
			wantErr:    ErrOwnerRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDeps()
			tt.setupMocks(d)
			svc := newTestService(d, testOptions(tt.failOpen))

			res, err := svc.Upload(context.Background(), tt.cmd)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, res)
			case tt.wantErrMsg != "":
				assert.EqualError(t, err, tt.wantErrMsg)
				assert.Nil(t, res)
			default:
				require.NoError(t, err)
				require.NotNil(t, res)
				assert.Equal(t, tt.wantDecision, res.Verification.Decision)
				assert.Equal(t, tt.wantStored, res.Accepted())
				if tt.wantStored {
					assert.Equal(t, hash, res.Document.ContentHash)
					assert.Equal(t, int64(len(jpegPayload)), res.Document.ByteSize)
					assert.Equal(t, tt.wantDecision, res.Document.VerificationDecision)
					if tt.wantAnchor == "" {
						assert.Nil(t, res.Document.AnchorRef)
					} else {
						require.NotNil(t, res.Document.AnchorRef)
						assert.Equal(t, tt.wantAnchor, *res.Document.AnchorRef)
					}
				}
			}
			d.assertExpectations(t)
		})
	}
}

func TestDocumentService_Upload_FailOpenOutcome(t *testing.T) {
	d := newDeps()
	d.cls.On("Classify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(classifier.Verdict{}, &classifier.Error{Kind: classifier.KindStatus, StatusCode: 500})
	d.repo.On("FindByContentHash", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)
	d.blobs.On("SaveBlob", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("documents/x.jpg", nil)
	echoCreate(d.repo)
	d.anc.On("Anchor", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("down"))

	res, err := newTestService(d, testOptions(true)).Upload(context.Background(), UploadCommand{
		Payload: jpegPayload, MIMEType: "image/jpeg", OwnerRef: "student-1", DeclaredType: "ID Card",
	})
	require.NoError(t, err)

	assert.True(t, res.Verification.Degraded)
	assert.Equal(t, 0.5, res.Verification.Confidence)
	assert.Equal(t, "ID Card", res.Verification.DetectedType)
	assert.Contains(t, res.Verification.Reason, "accepted with warning")
	assert.Equal(t, "ID Card", res.Document.DocumentType)
}

func TestDocumentService_Upload_DefaultsDeclaredType(t *testing.T) {
	d := newDeps()
	d.cls.On("Classify", mock.Anything, jpegPayload, "image/jpeg", "General").
		Return(classifier.Verdict{DetectedType: "General", IsValid: true, Confidence: 0.9}, nil)
	d.repo.On("FindByContentHash", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)
	d.blobs.On("SaveBlob", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("documents/x.jpg", nil)
	echoCreate(d.repo)
	d.anc.On("Anchor", mock.Anything, mock.Anything, mock.Anything).Return("0x2", nil)
	d.repo.On("AttachAnchor", mock.Anything, mock.Anything, "0x2").Return(errors.New("db gone"))

	res, err := newTestService(d, testOptions(true)).Upload(context.Background(), UploadCommand{
		Payload: jpegPayload, MIMEType: "image/jpeg", OwnerRef: "student-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "General", res.Document.DocumentType)
	assert.Nil(t, res.Document.AnchorRef)
	d.assertExpectations(t)
}

func TestDocumentService_Upload_CallerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := newDeps()
	d.cls.On("Classify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(classifier.Verdict{}, &classifier.Error{Kind: classifier.KindTransport, Err: context.Canceled})

	res, err := newTestService(d, testOptions(true)).Upload(ctx, UploadCommand{
		Payload: jpegPayload, MIMEType: "image/jpeg", OwnerRef: "student-1",
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestDocumentService_Upload_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)

	d := newDeps()
	d.cls.On("Classify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(classifier.Verdict{}, &classifier.Error{Kind: classifier.KindTransport, Err: errors.New("refused")})

	opts := testOptions(false)
	opts.Metrics = metrics
	_, err = newTestService(d, opts).Upload(context.Background(), UploadCommand{
		Payload: jpegPayload, MIMEType: "image/jpeg", OwnerRef: "student-1",
	})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.uploads.WithLabelValues(string(model.DecisionError))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.classifierFailures.WithLabelValues("transport")))

	_, err = NewMetrics(reg)
	assert.Error(t, err, "registering twice must fail")
}

func TestDocumentService_Get(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		id         string
		setupMocks func(mRepo *repoMocks.MockDocumentRepository)
		wantErr    error
	}{
		{
			name: "found",
			id:   "1",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "1").Return(&model.Document{ID: "1"}, nil)
			},
		},
		{
			name:       "empty id",
			id:         "",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {},
			wantErr:    ErrIDRequired,
		},
		{
			name: "not found",
			id:   "2",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "2").Return(nil, repository.ErrNotFound)
			},
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDeps()
			tt.setupMocks(d.repo)
			doc, err := newTestService(d, testOptions(true)).Get(ctx, tt.id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, doc)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.id, doc.ID)
			}
			d.repo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_List(t *testing.T) {
	ctx := context.Background()
	d := newDeps()
	d.repo.On("List", ctx, repository.PageQuery{Limit: 100, Offset: 0, DocumentType: "ID Card"}).
		Return(&repository.PageResult[model.Document]{Items: []model.Document{{ID: "1"}}, Total: 1}, nil)
	d.repo.On("ListByOwner", ctx, "student-1", repository.PageQuery{Limit: 10, Offset: 5}).
		Return(&repository.PageResult[model.Document]{Items: []model.Document{}, Total: 5}, nil)

	svc := newTestService(d, testOptions(true))

	res, err := svc.List(ctx, 500, -1, "ID Card")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Len(t, res.Items, 1)

	res, err = svc.ListByOwner(ctx, "student-1", 0, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)

	_, err = svc.ListByOwner(ctx, "", 10, 0)
	assert.ErrorIs(t, err, ErrOwnerRequired)

	d.repo.AssertExpectations(t)
}

func TestDocumentService_Delete(t *testing.T) {
	ctx := context.Background()
	doc := &model.Document{ID: "1", StorageLocator: "documents/1.jpg", OwnerRef: "student-1"}

	t.Run("delete then get is not found", func(t *testing.T) {
		d := newDeps()
		d.repo.On("FindByID", ctx, "1").Return(doc, nil).Once()
		d.repo.On("Delete", ctx, "1").Return(nil)
		d.blobs.On("DeleteBlob", ctx, "documents/1.jpg").Return(nil)
		d.repo.On("FindByID", ctx, "1").Return(nil, repository.ErrNotFound).Once()

		svc := newTestService(d, testOptions(true))
		require.NoError(t, svc.Delete(ctx, "1"))
		_, err := svc.Get(ctx, "1")
		assert.ErrorIs(t, err, ErrNotFound)
		d.assertExpectations(t)
	})

	t.Run("blob failure is not an error", func(t *testing.T) {
		d := newDeps()
		d.repo.On("FindByID", ctx, "1").Return(doc, nil)
		d.repo.On("Delete", ctx, "1").Return(nil)
		d.blobs.On("DeleteBlob", ctx, "documents/1.jpg").Return(errors.New("storage down"))

		assert.NoError(t, newTestService(d, testOptions(true)).Delete(ctx, "1"))
		d.assertExpectations(t)
	})

	t.Run("record delete failure keeps the blob", func(t *testing.T) {
		d := newDeps()
		d.repo.On("FindByID", ctx, "1").Return(doc, nil)
		d.repo.On("Delete", ctx, "1").Return(errors.New("db fail"))

		err := newTestService(d, testOptions(true)).Delete(ctx, "1")
		assert.EqualError(t, err, "delete record: db fail")
		d.blobs.AssertNotCalled(t, "DeleteBlob", mock.Anything, mock.Anything)
	})
}

func TestDocumentService_Download(t *testing.T) {
	ctx := context.Background()
	doc := &model.Document{ID: "1", StorageLocator: "documents/1.jpg"}

	d := newDeps()
	d.repo.On("FindByID", ctx, "1").Return(doc, nil)
	d.blobs.On("LoadBlob", ctx, "documents/1.jpg").Return(jpegPayload, nil).Once()
	d.blobs.On("LoadBlob", ctx, "documents/1.jpg").Return(nil, storage.ErrNotFound).Once()
	d.blobs.On("PresignBlob", ctx, "documents/1.jpg", time.Minute).Return("https://blob/1.jpg?sig", nil)

	svc := newTestService(d, testOptions(true))

	got, data, err := svc.Download(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "1", got.ID)
	assert.Equal(t, jpegPayload, data)

	_, _, err = svc.Download(ctx, "1")
	assert.ErrorIs(t, err, ErrBlobMissing)

	url, err := svc.PresignDownload(ctx, "1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://blob/1.jpg?sig", url)
	d.assertExpectations(t)
}

func TestDocumentService_VerifyIntegrity(t *testing.T) {
	ctx := context.Background()
	hash := hashing.Hash(jpegPayload)
	ref := "0xabc"

	tests := []struct {
		name       string
		doc        *model.Document
		setupMocks func(d deps)
		want       bool
		wantErr    bool
		check      func(t *testing.T, r *IntegrityReport)
	}{
		{
			name: "stored bytes round trip",
			doc:  &model.Document{ID: "1", StorageLocator: "k", ContentHash: hash, AnchorRef: &ref},
			setupMocks: func(d deps) {
				d.blobs.On("LoadBlob", mock.Anything, "k").Return(jpegPayload, nil)
				d.anc.On("VerifyAnchor", mock.Anything, hash).Return(true, nil)
			},
			want: true,
		},
		{
			name: "tampered content",
			doc:  &model.Document{ID: "1", StorageLocator: "k", ContentHash: hash},
			setupMocks: func(d deps) {
				d.blobs.On("LoadBlob", mock.Anything, "k").Return([]byte("tampered"), nil)
			},
			want: false,
			check: func(t *testing.T, r *IntegrityReport) {
				assert.False(t, r.AnchorChecked)
			},
		},
		{
			name: "missing blob is a failed check",
			doc:  &model.Document{ID: "1", StorageLocator: "k", ContentHash: hash},
			setupMocks: func(d deps) {
				d.blobs.On("LoadBlob", mock.Anything, "k").Return(nil, storage.ErrNotFound)
			},
			want: false,
			check: func(t *testing.T, r *IntegrityReport) {
				assert.True(t, r.BlobMissing)
			},
		},
		{
			name: "anchor no longer attests",
			doc:  &model.Document{ID: "1", StorageLocator: "k", ContentHash: hash, AnchorRef: &ref},
			setupMocks: func(d deps) {
				d.blobs.On("LoadBlob", mock.Anything, "k").Return(jpegPayload, nil)
				d.anc.On("VerifyAnchor", mock.Anything, hash).Return(false, nil)
			},
			want: false,
		},
		{
			name: "anchor backend error",
			doc:  &model.Document{ID: "1", StorageLocator: "k", ContentHash: hash, AnchorRef: &ref},
			setupMocks: func(d deps) {
				d.blobs.On("LoadBlob", mock.Anything, "k").Return(jpegPayload, nil)
				d.anc.On("VerifyAnchor", mock.Anything, hash).Return(false, anchor.ErrNotAnchored)
			},
			want: false,
			check: func(t *testing.T, r *IntegrityReport) {
				assert.True(t, r.HashMatches)
				assert.False(t, r.AnchorVerified)
				assert.Equal(t, anchor.ErrNotAnchored.Error(), r.AnchorError)
			},
		},
		{
			name: "tampered content with anchor backend down",
			doc:  &model.Document{ID: "1", StorageLocator: "k", ContentHash: hash, AnchorRef: &ref},
			setupMocks: func(d deps) {
				tampered := append([]byte(nil), jpegPayload...)
				tampered[len(tampered)-1] ^= 0xff
				d.blobs.On("LoadBlob", mock.Anything, "k").Return(tampered, nil)
				d.anc.On("VerifyAnchor", mock.Anything, hash).Return(false, errors.New("redis: connection refused"))
			},
			want: false,
			check: func(t *testing.T, r *IntegrityReport) {
				assert.False(t, r.HashMatches)
				assert.False(t, r.BlobMissing)
				assert.True(t, r.AnchorChecked)
				assert.False(t, r.AnchorVerified)
				assert.Equal(t, "redis: connection refused", r.AnchorError)
			},
		},
		{
			name: "storage error",
			doc:  &model.Document{ID: "1", StorageLocator: "k", ContentHash: hash},
			setupMocks: func(d deps) {
				d.blobs.On("LoadBlob", mock.Anything, "k").Return(nil, errors.New("s3 timeout"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDeps()
			d.repo.On("FindByID", mock.Anything, "1").Return(tt.doc, nil)
			d.anc.On("Guarantees").Return(false)
			tt.setupMocks(d)
			svc := newTestService(d, testOptions(true))

			report, err := svc.InspectIntegrity(ctx, "1")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, report.Valid())
			assert.False(t, report.AnchorGuaranteed)
			if tt.check != nil {
				tt.check(t, report)
			}

			ok, err := svc.VerifyIntegrity(ctx, "1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.upload(model.DecisionAccepted)
		m.classified(time.Second, errors.New("x"))
		m.anchor("anchored")
		m.integrity("valid")
	})
}
