package moderation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validRequest() SubmitRequest {
	return SubmitRequest{
		Title:    "weekend hiking meetup",
		Body:     "anyone up for Bukhansan this saturday?",
		AuthorID: "user-123",
		Board:    "free",
	}
}

func TestSubmitRequestValidate(t *testing.T) {
	assert := assert.New(t)
	boards := DefaultBoards()

	req := validRequest()
	assert.NoError(req.Validate(boards))

	req = validRequest()
	req.Title = "   "
	var verr *ValidationError
	assert.ErrorAs(req.Validate(boards), &verr)
	assert.Equal("title", verr.Field)

	req = validRequest()
	req.Body = ""
	assert.ErrorAs(req.Validate(boards), &verr)
	assert.Equal("body", verr.Field)

	req = validRequest()
	req.AuthorID = ""
	assert.ErrorAs(req.Validate(boards), &verr)
	assert.Equal("authorId", verr.Field)

	req = validRequest()
	req.Board = "no-such-board"
	assert.ErrorAs(req.Validate(boards), &verr)
	assert.Equal("board", verr.Field)

	// board is optional
	req = validRequest()
	req.Board = ""
	assert.NoError(req.Validate(boards))

	req = validRequest()
	req.Media = &MediaAsset{Bucket: "uploads"}
	assert.ErrorAs(req.Validate(boards), &verr)
	assert.Equal("media", verr.Field)
}

func TestSubmitRequestLengthLimitsAreRuneCounts(t *testing.T) {
	assert := assert.New(t)

	req := validRequest()
	req.Title = strings.Repeat("가", MaxTitleLength)
	assert.NoError(req.Validate(nil))

	req.Title = strings.Repeat("가", MaxTitleLength+1)
	assert.Error(req.Validate(nil))

	req = validRequest()
	req.Body = strings.Repeat("나", MaxBodyLength)
	assert.NoError(req.Validate(nil))

	req.Body = strings.Repeat("나", MaxBodyLength+1)
	assert.Error(req.Validate(nil))
}

func TestMediaAssetRouting(t *testing.T) {
	assert := assert.New(t)

	img := MediaAsset{Bucket: "b", Key: "photos/cat.jpg", MimeType: "image/jpeg", Size: 100_000}
	assert.False(img.IsVideo())
	assert.False(img.RequiresAsync(5_000_000))
	assert.True(img.RequiresAsync(50_000))

	// video always goes async, regardless of size
	vid := MediaAsset{Bucket: "b", Key: "clips/dog.MP4", Size: 10}
	assert.True(vid.IsVideo())
	assert.True(vid.RequiresAsync(5_000_000))

	byMime := MediaAsset{Bucket: "b", Key: "clips/dog", MimeType: "video/quicktime"}
	assert.True(byMime.IsVideo())

	// zero cutoff disables the size-based routing
	assert.False(img.RequiresAsync(0))
}
