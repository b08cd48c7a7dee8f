package captcha

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	codeMocks "github.com/svetlov/captchabot/internal/code/mocks"
	clockMocks "github.com/svetlov/captchabot/internal/common/clock/mocks"
	uuidMocks "github.com/svetlov/captchabot/internal/common/uuid/mocks"
	"github.com/svetlov/captchabot/internal/models"
	renderMocks "github.com/svetlov/captchabot/internal/render/mocks"
	sessionRepo "github.com/svetlov/captchabot/internal/repositories/session"
	sessionMocks "github.com/svetlov/captchabot/internal/repositories/session/mocks"
)

type CaptchaServiceTestSuite struct {
	suite.Suite
	mockCtrl      *gomock.Controller
	mockRepo      *sessionMocks.MockRepository
	mockGenerator *codeMocks.MockGenerator
	mockRenderer  *renderMocks.MockRenderer
	mockClock     *clockMocks.MockClock
	mockUUID      *uuidMocks.MockUUID
	service       Service
	ctx           context.Context

	// Test data
	testTime        time.Time
	testUserID      int64
	testCode        string
	testChallengeID string
	testImage       []byte
}

func (s *CaptchaServiceTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockRepo = sessionMocks.NewMockRepository(s.mockCtrl)
	s.mockGenerator = codeMocks.NewMockGenerator(s.mockCtrl)
	s.mockRenderer = renderMocks.NewMockRenderer(s.mockCtrl)
	s.mockClock = clockMocks.NewMockClock(s.mockCtrl)
	s.mockUUID = uuidMocks.NewMockUUID(s.mockCtrl)

	s.ctx = context.Background()

	s.testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.testUserID = int64(42)
	s.testCode = "AB3CD"
	s.testChallengeID = "test-challenge-id"
	s.testImage = []byte("png-bytes")

	svc, err := New(&Config{
		SessionRepo:  s.mockRepo,
		Generator:    s.mockGenerator,
		Renderer:     s.mockRenderer,
		Clock:        s.mockClock,
		UUID:         s.mockUUID,
		CodeLength:   5,
		ChallengeTTL: 90 * time.Second,
	})
	s.Require().NoError(err)
	s.service = svc
}

func (s *CaptchaServiceTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestCaptchaServiceTestSuite(t *testing.T) {
	suite.Run(t, new(CaptchaServiceTestSuite))
}

func (s *CaptchaServiceTestSuite) emptySession() *models.Session {
	return &models.Session{UserID: s.testUserID}
}

func (s *CaptchaServiceTestSuite) pendingSession() *models.Session {
	return &models.Session{
		UserID: s.testUserID,
		Challenge: &models.Challenge{
			ID:       s.testChallengeID,
			Code:     s.testCode,
			Deadline: s.testTime.Add(90 * time.Second),
		},
	}
}

func (s *CaptchaServiceTestSuite) expectGetSession(sess *models.Session) {
	s.mockRepo.EXPECT().
		GetSession(s.ctx, &sessionRepo.GetSessionInput{UserID: s.testUserID}).
		Return(sess, nil)
}

func (s *CaptchaServiceTestSuite) TestNewValidatesConfig() {
	_, err := New(nil)
	s.ErrorIs(err, ErrNilConfig)

	_, err = New(&Config{})
	s.ErrorIs(err, ErrNilSessionRepo)

	_, err = New(&Config{SessionRepo: s.mockRepo})
	s.ErrorIs(err, ErrNilGenerator)

	_, err = New(&Config{SessionRepo: s.mockRepo, Generator: s.mockGenerator})
	s.ErrorIs(err, ErrNilRenderer)
}

func (s *CaptchaServiceTestSuite) TestIssueChallenge() {
	s.expectGetSession(s.emptySession())
	s.mockGenerator.EXPECT().Generate(5).Return(s.testCode, nil)
	s.mockRenderer.EXPECT().Render(s.testCode).Return(s.testImage, nil)
	s.mockUUID.EXPECT().NewUUID().Return(s.testChallengeID)
	s.mockClock.EXPECT().Now().Return(s.testTime)

	var saved *models.Session
	s.mockRepo.EXPECT().
		SaveSession(s.ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, input *sessionRepo.SaveSessionInput) error {
			saved = input.Session
			return nil
		})

	out, err := s.service.IssueChallenge(s.ctx, &IssueChallengeInput{UserID: s.testUserID})
	s.Require().NoError(err)

	s.Equal(s.testChallengeID, out.ChallengeID)
	s.Equal(s.testImage, out.Image)
	s.Equal(90*time.Second, out.TTL)

	s.Require().NotNil(saved)
	s.Require().NotNil(saved.Challenge)
	s.Equal(s.testCode, saved.Challenge.Code)
	s.True(saved.Challenge.Deadline.Equal(s.testTime.Add(90 * time.Second)))
	s.False(saved.Passed)
}

func (s *CaptchaServiceTestSuite) TestIssueChallengeOverwritesPending() {
	existing := s.pendingSession()
	s.expectGetSession(existing)
	s.mockGenerator.EXPECT().Generate(5).Return("XY785", nil)
	s.mockRenderer.EXPECT().Render("XY785").Return(s.testImage, nil)
	s.mockUUID.EXPECT().NewUUID().Return("fresh-challenge-id")
	s.mockClock.EXPECT().Now().Return(s.testTime.Add(time.Minute))

	var saved *models.Session
	s.mockRepo.EXPECT().
		SaveSession(s.ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, input *sessionRepo.SaveSessionInput) error {
			saved = input.Session
			return nil
		})

	out, err := s.service.IssueChallenge(s.ctx, &IssueChallengeInput{UserID: s.testUserID})
	s.Require().NoError(err)

	s.Equal("fresh-challenge-id", out.ChallengeID)

	// The previous code no longer validates; only the fresh one is stored
	s.Require().NotNil(saved.Challenge)
	s.Equal("XY785", saved.Challenge.Code)
	s.True(saved.Challenge.Deadline.Equal(s.testTime.Add(time.Minute + 90*time.Second)))
}

func (s *CaptchaServiceTestSuite) TestVerifyReplyPassed() {
	s.expectGetSession(s.pendingSession())
	s.mockClock.EXPECT().Now().Return(s.testTime.Add(30 * time.Second))

	var saved *models.Session
	s.mockRepo.EXPECT().
		SaveSession(s.ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, input *sessionRepo.SaveSessionInput) error {
			saved = input.Session
			return nil
		})

	// Replies are normalized: surrounding whitespace and case are ignored
	out, err := s.service.VerifyReply(s.ctx, &VerifyReplyInput{
		UserID: s.testUserID,
		Text:   "  ab3cd ",
	})
	s.Require().NoError(err)

	s.Equal(ResultPassed, out.Result)
	s.Require().NotNil(saved)
	s.True(saved.Passed)
	s.Nil(saved.Challenge)
}

func (s *CaptchaServiceTestSuite) TestVerifyReplyWrongCode() {
	s.expectGetSession(s.pendingSession())
	s.mockClock.EXPECT().Now().Return(s.testTime.Add(30 * time.Second))

	// No SaveSession: the challenge and its deadline stay untouched
	out, err := s.service.VerifyReply(s.ctx, &VerifyReplyInput{
		UserID: s.testUserID,
		Text:   "WRONG",
	})
	s.Require().NoError(err)

	s.Equal(ResultWrongCode, out.Result)
}

func (s *CaptchaServiceTestSuite) TestVerifyReplyExpired() {
	s.expectGetSession(s.pendingSession())
	s.mockClock.EXPECT().Now().Return(s.testTime.Add(91 * time.Second))

	var saved *models.Session
	s.mockRepo.EXPECT().
		SaveSession(s.ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, input *sessionRepo.SaveSessionInput) error {
			saved = input.Session
			return nil
		})

	// Even the correct code fails once the deadline passed
	out, err := s.service.VerifyReply(s.ctx, &VerifyReplyInput{
		UserID: s.testUserID,
		Text:   s.testCode,
	})
	s.Require().NoError(err)

	s.Equal(ResultExpired, out.Result)
	s.Require().NotNil(saved)
	s.False(saved.Passed)
	s.Nil(saved.Challenge)
}

func (s *CaptchaServiceTestSuite) TestVerifyReplyNoChallenge() {
	s.expectGetSession(s.emptySession())

	out, err := s.service.VerifyReply(s.ctx, &VerifyReplyInput{
		UserID: s.testUserID,
		Text:   s.testCode,
	})
	s.Require().NoError(err)

	s.Equal(ResultNoChallenge, out.Result)
}

func (s *CaptchaServiceTestSuite) TestCheckAccessFreshUser() {
	s.expectGetSession(s.emptySession())

	out, err := s.service.CheckAccess(s.ctx, &CheckAccessInput{UserID: s.testUserID})
	s.Require().NoError(err)

	s.False(out.Authorized)
	s.False(out.ChallengePending)
}

func (s *CaptchaServiceTestSuite) TestCheckAccessPendingChallenge() {
	s.expectGetSession(s.pendingSession())

	out, err := s.service.CheckAccess(s.ctx, &CheckAccessInput{UserID: s.testUserID})
	s.Require().NoError(err)

	s.False(out.Authorized)
	s.True(out.ChallengePending)
}

func (s *CaptchaServiceTestSuite) TestCheckAccessExpiredChallengeStillPending() {
	// Expiry is evaluated by VerifyReply, not here: the reply flow owns
	// the expiry message and the clearing of the challenge
	s.expectGetSession(s.pendingSession())

	out, err := s.service.CheckAccess(s.ctx, &CheckAccessInput{UserID: s.testUserID})
	s.Require().NoError(err)

	s.True(out.ChallengePending)
}

func (s *CaptchaServiceTestSuite) TestCheckAccessAuthorized() {
	sess := s.emptySession()
	sess.Passed = true
	s.expectGetSession(sess)

	out, err := s.service.CheckAccess(s.ctx, &CheckAccessInput{UserID: s.testUserID})
	s.Require().NoError(err)

	s.True(out.Authorized)
	s.False(out.ChallengePending)
}

func (s *CaptchaServiceTestSuite) TestHappyPathAgainstRealStore() {
	// End-to-end over the in-memory repository: issue, wrong answer,
	// then the correct answer inside the deadline
	repo, err := sessionRepo.NewMemory(&sessionRepo.MemoryConfig{})
	s.Require().NoError(err)
	defer repo.Close()

	s.mockGenerator.EXPECT().Generate(5).Return(s.testCode, nil)
	s.mockRenderer.EXPECT().Render(s.testCode).Return(s.testImage, nil)
	s.mockUUID.EXPECT().NewUUID().Return(s.testChallengeID)
	s.mockClock.EXPECT().Now().Return(s.testTime).AnyTimes()

	svc, err := New(&Config{
		SessionRepo: repo,
		Generator:   s.mockGenerator,
		Renderer:    s.mockRenderer,
		Clock:       s.mockClock,
		UUID:        s.mockUUID,
	})
	s.Require().NoError(err)

	_, err = svc.IssueChallenge(s.ctx, &IssueChallengeInput{UserID: s.testUserID})
	s.Require().NoError(err)

	access, err := svc.CheckAccess(s.ctx, &CheckAccessInput{UserID: s.testUserID})
	s.Require().NoError(err)
	s.False(access.Authorized)
	s.True(access.ChallengePending)

	wrong, err := svc.VerifyReply(s.ctx, &VerifyReplyInput{UserID: s.testUserID, Text: "NOPE2"})
	s.Require().NoError(err)
	s.Equal(ResultWrongCode, wrong.Result)

	// Challenge survives the wrong answer with its original deadline
	access, err = svc.CheckAccess(s.ctx, &CheckAccessInput{UserID: s.testUserID})
	s.Require().NoError(err)
	s.True(access.ChallengePending)

	right, err := svc.VerifyReply(s.ctx, &VerifyReplyInput{UserID: s.testUserID, Text: "ab3cd"})
	s.Require().NoError(err)
	s.Equal(ResultPassed, right.Result)

	access, err = svc.CheckAccess(s.ctx, &CheckAccessInput{UserID: s.testUserID})
	s.Require().NoError(err)
	s.True(access.Authorized)
	s.False(access.ChallengePending)
}
