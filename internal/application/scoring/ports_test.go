package scoring

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/npl-scorer/pkg/errors"
)

type archiverFunc func(ctx context.Context, s *Summary) (string, error)

func (f archiverFunc) Archive(ctx context.Context, s *Summary) (string, error) { return f(ctx, s) }

func TestArchivers_JoinsLocations(t *testing.T) {
	as := Archivers{
		archiverFunc(func(context.Context, *Summary) (string, error) { return "s3://b/k.json", nil }),
		archiverFunc(func(context.Context, *Summary) (string, error) { return "", stderrors.New("down") }),
		archiverFunc(func(context.Context, *Summary) (string, error) { return "redis://npl:cache:summary:last", nil }),
	}
	loc, err := as.Archive(context.Background(), &Summary{RunID: "r"})
	require.NoError(t, err)
	assert.Equal(t, "s3://b/k.json,redis://npl:cache:summary:last", loc)
}

func TestArchivers_AllFail(t *testing.T) {
	as := Archivers{
		archiverFunc(func(context.Context, *Summary) (string, error) { return "", stderrors.New("down") }),
	}
	_, err := as.Archive(context.Background(), &Summary{RunID: "r"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeReportArchive))
}

func TestArchivers_Empty(t *testing.T) {
	loc, err := Archivers(nil).Archive(context.Background(), &Summary{})
	require.NoError(t, err)
	assert.Empty(t, loc)
}
