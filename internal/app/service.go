package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"pblboard/api/internal/auth"
	"pblboard/api/internal/authpw"
	"pblboard/api/internal/board"
	"pblboard/api/internal/config"
	"pblboard/api/internal/export"
	"pblboard/api/internal/generate"
	"pblboard/api/internal/gitrepo"
	"pblboard/api/internal/logger"
	"pblboard/api/internal/realtime"
	"pblboard/api/internal/search"
	"pblboard/api/internal/store"
	"pblboard/api/internal/util"
)

// Session is an authenticated caller.
type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Email        string
	JTI          string
	ExpiresAt    time.Time
}

func (s Session) user() map[string]any {
	return map[string]any{"id": s.UserID, "email": s.Email, "displayName": s.UserName}
}

type DataStore interface {
	CreateUser(context.Context, store.User) (store.User, error)
	GetUserByEmail(context.Context, string) (store.User, error)
	GetUserByID(context.Context, string) (store.User, error)
	ListBoardsByOwner(context.Context, string) ([]store.Board, error)
	GetBoard(context.Context, string) (store.Board, error)
	InsertBoard(context.Context, store.Board) (store.Board, error)
	UpdateBoard(context.Context, string, store.BoardUpdate) (store.Board, error)
	DeleteBoard(context.Context, string) error
	ListLessons(context.Context, string) ([]store.LessonPlan, error)
	GetLesson(context.Context, string) (store.LessonPlan, error)
	InsertLesson(context.Context, store.LessonPlan) (store.LessonPlan, error)
	UpdateLesson(context.Context, string, *string, *int) (store.LessonPlan, error)
	DeleteLesson(context.Context, string) error
	Ping(context.Context) error
}

// RefreshStore keeps refresh sessions. Lookups may return only the user id.
type RefreshStore interface {
	SaveRefreshSession(context.Context, string, string, time.Time) error
	LookupRefreshSession(context.Context, string) (store.User, error)
	RevokeRefreshSession(context.Context, string) error
}

type GitService interface {
	Commit(string, gitrepo.Snapshot, gitrepo.Author, string) (store.CommitInfo, error)
	History(string, int) ([]store.CommitInfo, error)
	Snapshot(string, string) (gitrepo.Snapshot, store.CommitInfo, error)
	Compare(string, string, string) (gitrepo.Diff, error)
}

type SearchIndex interface {
	Search(context.Context, search.Query) search.Response
	IndexBoard(store.Board)
	DeleteBoard(string)
}

type Exporter interface {
	Export(context.Context, export.Request) (*export.Result, error)
	Upload(context.Context, string, *export.Result) (string, error)
	UploadEnabled() bool
	RenderPage(context.Context, string) (string, error)
}

type Publisher interface {
	PublishContent(ctx context.Context, room, contentJSON string) error
	PublishPresence(ctx context.Context, room string, p realtime.Presence) error
	PublishLessons(ctx context.Context, room, boardID string) error
	Hub() *realtime.Hub
}

// AI is the generation surface used by the service. *generate.Orchestrator
// implements it.
type AI interface {
	Suggest(context.Context, generate.CellRequest) ([]generate.Suggestion, error)
	Improve(context.Context, generate.CellRequest) (generate.Suggestion, error)
	Title(context.Context, board.Content, board.Context, string) (string, error)
	ImproveAgendaField(context.Context, board.Content, board.Context, string, generate.AgendaField, string) (board.Content, error)
	ImproveLessonSection(context.Context, board.Content, board.Context, generate.Lesson, board.LessonField, string) (board.LessonContent, error)
	Variation(context.Context, board.Content, board.Context, string, *generate.Variation) (generate.Variation, error)
	Agenda(context.Context, board.Content, board.Context, int) ([]generate.Session, error)
	Lesson(context.Context, generate.LessonRequest) (board.LessonContent, error)
	Lessons(context.Context, board.Content, board.Context, string, []generate.Selection, generate.LessonSink) ([]generate.Failure, error)
	Collaborate(context.Context, board.Content, board.Context, generate.CollaboratorMode, []generate.Lesson, string) (generate.Reply, error)
	Critique(context.Context, board.Content) (generate.Critique, error)
	StreamStandards(context.Context, string, string, string, func(string)) ([]generate.Suggestion, error)
}

// Deps are the collaborators of Service. Store and AI are required; the
// rest may be nil and their features are then disabled.
type Deps struct {
	Store    DataStore
	Sessions RefreshStore
	Git      GitService
	Search   SearchIndex
	Export   Exporter
	Realtime Publisher
	AI       AI
	Log      *logger.Logger
}

type Service struct {
	cfg       config.Config
	log       *logger.Logger
	store     DataStore
	sessions  RefreshStore
	git       GitService
	search    SearchIndex
	exporter  Exporter
	realtime  Publisher
	ai        AI
	domains   auth.DomainPolicy
	passwords *authpw.Service
	validator *requestValidator
	work      *workspaces
}

func New(cfg config.Config, deps Deps) *Service {
	s := &Service{
		cfg:       cfg,
		log:       logger.OrNop(deps.Log),
		store:     deps.Store,
		sessions:  deps.Sessions,
		git:       deps.Git,
		search:    deps.Search,
		exporter:  deps.Export,
		realtime:  deps.Realtime,
		ai:        deps.AI,
		domains:   auth.NewDomainPolicy(cfg.AllowedEmailDomains),
		validator: newRequestValidator(),
	}
	if s.sessions == nil {
		if rs, ok := deps.Store.(RefreshStore); ok {
			s.sessions = rs
		}
	}
	s.passwords = authpw.NewService(deps.Store, s.domains)
	s.work = newWorkspaces(s)
	return s
}

// Run evicts idle editing sessions until ctx ends, then flushes the rest.
func (s *Service) Run(ctx context.Context) {
	s.work.run(ctx)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Auth

func (s *Service) SignUp(ctx context.Context, req authpw.SignUpRequest) (Session, error) {
	user, err := s.passwords.SignUp(ctx, req)
	if err != nil {
		return Session{}, authError(err)
	}
	return s.issueSession(ctx, user)
}

func (s *Service) SignIn(ctx context.Context, req authpw.SignInRequest) (Session, error) {
	user, err := s.passwords.SignIn(ctx, req)
	if err != nil {
		return Session{}, authError(err)
	}
	return s.issueSession(ctx, user)
}

func authError(err error) error {
	switch {
	case errors.Is(err, auth.ErrDomainNotAllowed):
		return domainError(http.StatusForbidden, "DOMAIN_NOT_ALLOWED", "Email domain not allowed", nil)
	case errors.Is(err, authpw.ErrEmailTaken):
		return domainError(http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil)
	case errors.Is(err, authpw.ErrInvalidCredentials):
		return domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	case errors.Is(err, authpw.ErrMissingFields), errors.Is(err, authpw.ErrWeakPassword):
		return badRequest(err.Error())
	}
	return err
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return Session{}, auth.ErrInvalidToken
	}
	hash := auth.HashToken(refreshToken)
	ref, err := s.sessions.LookupRefreshSession(ctx, hash)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	if err := s.sessions.RevokeRefreshSession(ctx, hash); err != nil {
		return Session{}, err
	}
	user, err := s.store.GetUserByID(ctx, ref.ID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:   user.ID,
		Name:  user.DisplayName,
		Email: user.Email,
		JTI:   jti,
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh, err := auth.NewRefreshToken()
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, now.Add(s.cfg.RefreshTTL)); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Email:        user.Email,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

// SessionFromToken verifies token. The claims carry everything a request
// needs, so no database lookup is made.
func (s *Service) SessionFromToken(token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		UserID:    claims.Sub,
		UserName:  claims.Name,
		Email:     claims.Email,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

// DomainAllowed reports whether the session's email may use the service.
func (s *Service) DomainAllowed(session Session) bool {
	return s.domains.Allowed(session.Email)
}

func (s *Service) Logout(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}
	if err := s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken)); err != nil {
		s.log.Warn("revoke refresh session failed", "error", err)
	}
}
