package minio

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/npl-scorer/internal/application/scoring"
	"github.com/turtacn/npl-scorer/internal/config"
	"github.com/turtacn/npl-scorer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/npl-scorer/pkg/errors"
)

type ArchiverTestSuite struct {
	suite.Suite
	api      *mockMinIOAPI
	archiver *ReportArchiver
	ctx      context.Context
}

func (s *ArchiverTestSuite) SetupTest() {
	s.api = new(mockMinIOAPI)
	s.ctx = context.Background()
	client := NewMinIOClientWithAPI(s.api, config.MinIOConfig{Bucket: "npl-reports", ReportPrefix: "runs"}, logging.NewNopLogger())
	s.archiver = NewReportArchiver(client, logging.NewNopLogger())
}

func (s *ArchiverTestSuite) TearDownTest() {
	s.api.AssertExpectations(s.T())
}

func (s *ArchiverTestSuite) TestArchive() {
	sum := &scoring.Summary{RunID: "run-1", Batches: 2, Scored: 10}

	var uploaded []byte
	s.api.On("PutObject", s.ctx, "npl-reports", "runs/run-1.json", mock.Anything, mock.AnythingOfType("int64"),
		mock.MatchedBy(func(o minio.PutObjectOptions) bool {
			return o.ContentType == "application/json" && o.UserMetadata["run-id"] == "run-1"
		})).
		Run(func(args mock.Arguments) {
			uploaded, _ = io.ReadAll(args.Get(3).(io.Reader))
		}).
		Return(minio.UploadInfo{Key: "runs/run-1.json"}, nil)

	loc, err := s.archiver.Archive(s.ctx, sum)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "s3://npl-reports/runs/run-1.json", loc)

	var got scoring.Summary
	require.NoError(s.T(), json.Unmarshal(uploaded, &got))
	assert.Equal(s.T(), "run-1", got.RunID)
	assert.Equal(s.T(), 10, got.Scored)
}

func (s *ArchiverTestSuite) TestArchive_RequiresRunID() {
	_, err := s.archiver.Archive(s.ctx, &scoring.Summary{})
	assert.True(s.T(), errors.IsCode(err, errors.ErrCodeValidation))
}

func (s *ArchiverTestSuite) TestArchive_UploadError() {
	s.api.On("PutObject", s.ctx, "npl-reports", "runs/run-2.json", mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, stderrors.New("access denied"))

	_, err := s.archiver.Archive(s.ctx, &scoring.Summary{RunID: "run-2"})
	require.Error(s.T(), err)
	assert.True(s.T(), errors.IsCode(err, errors.ErrCodeReportArchive))
}

func (s *ArchiverTestSuite) TestExists() {
	s.api.On("StatObject", s.ctx, "npl-reports", "runs/a.json", minio.StatObjectOptions{}).
		Return(minio.ObjectInfo{Key: "runs/a.json"}, nil)
	s.api.On("StatObject", s.ctx, "npl-reports", "runs/b.json", minio.StatObjectOptions{}).
		Return(minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey"})

	ok, err := s.archiver.Exists(s.ctx, "a")
	require.NoError(s.T(), err)
	assert.True(s.T(), ok)

	ok, err = s.archiver.Exists(s.ctx, "b")
	require.NoError(s.T(), err)
	assert.False(s.T(), ok)
}

func (s *ArchiverTestSuite) TestList_NewestFirst() {
	now := time.Now()
	ch := make(chan minio.ObjectInfo, 4)
	ch <- minio.ObjectInfo{Key: "runs/old.json", Size: 10, LastModified: now.Add(-time.Hour)}
	ch <- minio.ObjectInfo{Key: "runs/new.json", Size: 20, LastModified: now}
	ch <- minio.ObjectInfo{Key: "runs/notes.txt", LastModified: now}
	ch <- minio.ObjectInfo{Key: "runs/mid.json", Size: 15, LastModified: now.Add(-time.Minute)}
	close(ch)

	s.api.On("ListObjects", s.ctx, "npl-reports", minio.ListObjectsOptions{Prefix: "runs/", Recursive: true}).
		Return((<-chan minio.ObjectInfo)(ch))

	reports, err := s.archiver.List(s.ctx, 2)
	require.NoError(s.T(), err)
	require.Len(s.T(), reports, 2)
	assert.Equal(s.T(), "new", reports[0].RunID)
	assert.Equal(s.T(), "mid", reports[1].RunID)
}

func (s *ArchiverTestSuite) TestList_Error() {
	ch := make(chan minio.ObjectInfo, 1)
	ch <- minio.ObjectInfo{Err: stderrors.New("bucket gone")}
	close(ch)
	s.api.On("ListObjects", s.ctx, "npl-reports", mock.Anything).Return((<-chan minio.ObjectInfo)(ch))

	_, err := s.archiver.List(s.ctx, 0)
	assert.Error(s.T(), err)
}

func TestArchiverTestSuite(t *testing.T) {
	suite.Run(t, new(ArchiverTestSuite))
}

