package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/localsales/form-entries/models"
	"github.com/localsales/form-entries/repositories/mocks"
)

// CaptureTestSuite is a test suite for the Capture method
type CaptureTestSuite struct {
	suite.Suite
	service       CaptureService
	mockEntryRepo *mocks.MockEntryRepository
	loc           *time.Location
	now           time.Time
}

// SetupTest sets up the test suite before each test
func (suite *CaptureTestSuite) SetupTest() {
	suite.mockEntryRepo = mocks.NewMockEntryRepository(suite.T())
	suite.loc = time.FixedZone("WEST", 3600)
	suite.now = time.Date(2024, 7, 1, 13, 30, 0, 0, time.UTC)

	suite.service = NewCaptureService(suite.mockEntryRepo, suite.loc, func() time.Time {
		return suite.now
	})
}

func (suite *CaptureTestSuite) submission(formID string) *models.Submission {
	clientIP := "203.0.113.9"
	return &models.Submission{
		Form: models.FormConfig{
			ID:       json.RawMessage(formID),
			Settings: json.RawMessage(`{"form_title": "Contact"}`),
		},
		Fields: json.RawMessage(`{"1": {"id": 1, "type": "text", "name": "Name", "value": "Ana"}}`),
		Request: models.RequestContext{
			PostedPageURL: "https://site/contact/",
			Referrer:      "https://site/other/",
			RemoteAddr:    "10.0.0.1",
			ClientIP:      &clientIP,
			UserAgent:     "Mozilla/5.0",
		},
	}
}

// TestCapture_StoresNormalizedEntry tests the full capture of a valid submission
func (suite *CaptureTestSuite) TestCapture_StoresNormalizedEntry() {
	var stored *models.Entry
	suite.mockEntryRepo.EXPECT().Create(mock.Anything, mock.AnythingOfType("*models.Entry")).
		Run(func(ctx context.Context, entry *models.Entry) {
			entry.ID = 11
			stored = entry
		}).
		Return(nil)

	id := suite.service.Capture(context.Background(), suite.submission(`7`))

	assert.Equal(suite.T(), int64(11), id)
	if assert.NotNil(suite.T(), stored) {
		assert.Equal(suite.T(), int64(7), stored.FormID)
		assert.Equal(suite.T(), "Contact", stored.FormTitle)
		assert.Equal(suite.T(), "https://site/contact/", stored.PageURL)
		assert.Equal(suite.T(), "203.0.113.9", stored.IPAddress)
		assert.Equal(suite.T(), "Mozilla/5.0", stored.UserAgent)
		assert.Equal(suite.T(), `{"1":{"id":"1","type":"text","name":"Name","value":"Ana"}}`, stored.FieldsJSON)
		assert.Equal(suite.T(), "2024-07-01 14:30:00", models.FormatDateTime(stored.CreatedAt))
	}
}

// TestCapture_NumericStringFormID tests that a numeric string form id is accepted
func (suite *CaptureTestSuite) TestCapture_NumericStringFormID() {
	suite.mockEntryRepo.EXPECT().Create(mock.Anything, mock.MatchedBy(func(entry *models.Entry) bool {
		return entry.FormID == 12
	})).Return(nil)

	suite.service.Capture(context.Background(), suite.submission(`"12"`))
}

// TestCapture_InvalidFormID tests that unusable form ids store nothing
func (suite *CaptureTestSuite) TestCapture_InvalidFormID() {
	for _, formID := range []string{``, `0`, `-4`, `"abc"`, `null`} {
		id := suite.service.Capture(context.Background(), suite.submission(formID))
		assert.Equal(suite.T(), int64(0), id, "form id %q", formID)
	}

	assert.Equal(suite.T(), int64(0), suite.service.Capture(context.Background(), nil))
	suite.mockEntryRepo.AssertNotCalled(suite.T(), "Create", mock.Anything, mock.Anything)
}

// TestCapture_StorageFailureIsSwallowed tests that insert errors never reach the caller
func (suite *CaptureTestSuite) TestCapture_StorageFailureIsSwallowed() {
	suite.mockEntryRepo.EXPECT().Create(mock.Anything, mock.Anything).Return(errors.New("database is locked"))

	assert.NotPanics(suite.T(), func() {
		id := suite.service.Capture(context.Background(), suite.submission(`7`))
		assert.Equal(suite.T(), int64(0), id)
	})
}

// TestCapture_RequestFallbacks tests the page URL and IP fallbacks
func (suite *CaptureTestSuite) TestCapture_RequestFallbacks() {
	var stored []*models.Entry
	suite.mockEntryRepo.EXPECT().Create(mock.Anything, mock.Anything).
		Run(func(ctx context.Context, entry *models.Entry) {
			stored = append(stored, entry)
		}).
		Return(nil)

	// Unusable posted URL falls back to the referrer; no helper result uses the remote address
	sub := suite.submission(`7`)
	sub.Request.PostedPageURL = "javascript:alert(1)"
	sub.Request.ClientIP = nil
	suite.service.Capture(context.Background(), sub)

	// Helper ran but resolved nothing; no URL at all
	empty := ""
	sub = suite.submission(`7`)
	sub.Request.PostedPageURL = ""
	sub.Request.Referrer = ""
	sub.Request.ClientIP = &empty
	sub.Request.UserAgent = ""
	suite.service.Capture(context.Background(), sub)

	if assert.Len(suite.T(), stored, 2) {
		assert.Equal(suite.T(), "https://site/other/", stored[0].PageURL)
		assert.Equal(suite.T(), "10.0.0.1", stored[0].IPAddress)

		assert.Equal(suite.T(), "", stored[1].PageURL)
		assert.Equal(suite.T(), "", stored[1].IPAddress)
		assert.Equal(suite.T(), "", stored[1].UserAgent)
	}
}

// TestCapture_NoUsableFields tests that submissions without records store an empty object
func (suite *CaptureTestSuite) TestCapture_NoUsableFields() {
	suite.mockEntryRepo.EXPECT().Create(mock.Anything, mock.MatchedBy(func(entry *models.Entry) bool {
		return entry.FieldsJSON == `{}` && entry.FormTitle == ""
	})).Return(nil)

	sub := suite.submission(`7`)
	sub.Fields = json.RawMessage(`"not a collection"`)
	sub.Form.Settings = nil
	suite.service.Capture(context.Background(), sub)
}

// TestCaptureTestSuite runs the test suite
func TestCaptureTestSuite(t *testing.T) {
	suite.Run(t, new(CaptureTestSuite))
}
