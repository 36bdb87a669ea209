package server

import (
	"errors"
	"html/template"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/dyike/fupanxia/internal/intake"
	"github.com/dyike/fupanxia/internal/state"
	"github.com/dyike/fupanxia/internal/views"
	"github.com/dyike/fupanxia/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	msgNoFile = "请先选择一张交易截图"
	msgBusy   = "上一张还在鉴定中，别急着送人头。"
)

// StateResponse is the JSON view of a session.
type StateResponse struct {
	models.AppState
	Mode           models.ViewMode `json:"mode"`
	LoadingMessage string          `json:"loadingMessage,omitempty"`
}

type pageData struct {
	State          models.AppState
	Mode           models.ViewMode
	Notice         string
	ErrorMessage   string
	LoadingMessage string
	RefreshSeconds int
	UploadDisabled bool
	ImageURL       template.URL
	Band           views.Band
	ShareText      string
	ShareTitle     string
	Provider       string
}

// session returns the caller's session, creating it and setting the cookie
// on first contact or after eviction.
func (s *Server) session(c *gin.Context) *Session {
	if id, err := c.Cookie(SessionCookie); err == nil {
		if sess, ok := s.sessions.Get(id); ok {
			return sess
		}
	}
	sess := s.sessions.Create()
	maxAge := int(s.cfg.SessionTTL / time.Second)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, sess.ID, maxAge, "/", "", false, true)
	return sess
}

func (s *Server) loadingMessage(sess *Session, st models.AppState) string {
	if !st.IsAnalyzing {
		return ""
	}
	return views.MessageAt(time.Since(sess.StartedAt()), s.cfg.LoadingInterval)
}

func (s *Server) render(c *gin.Context, status int, sess *Session, notice string) {
	st := sess.Ctrl.Snapshot()
	mode := views.Select(st)
	data := pageData{
		State:          st,
		Mode:           mode,
		Notice:         notice,
		LoadingMessage: s.loadingMessage(sess, st),
		RefreshSeconds: refreshSeconds(s.cfg.LoadingInterval),
		UploadDisabled: views.UploadDisabled(st),
		Provider:       s.analyzer.Name(),
		ShareTitle:     views.ShareTitle,
	}
	if st.Image != nil && strings.HasPrefix(*st.Image, "data:image/") {
		data.ImageURL = template.URL(*st.Image)
	}
	if st.Error != nil {
		data.ErrorMessage = *st.Error
	}
	if st.Result != nil {
		data.Band = views.ScoreBand(st.Result.Score)
		data.ShareText = views.ShareText(st.Result, pageURL(c))
	}
	c.HTML(status, "index.html", data)
}

func (s *Server) handleIndex(c *gin.Context) {
	s.render(c, http.StatusOK, s.session(c), "")
}

func (s *Server) handleUpload(c *gin.Context) {
	sess := s.session(c)

	dataURL, status, notice := s.readUpload(c)
	if status != 0 {
		s.render(c, status, sess, notice)
		return
	}

	gen, ok := sess.Ctrl.TryStart(dataURL)
	if !ok {
		s.render(c, http.StatusConflict, sess, msgBusy)
		return
	}
	sess.markStarted(time.Now())

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		state.Await(s.baseCtx, sess.Ctrl, gen, s.analyzer, dataURL, s.logger.With(zap.String("session", sess.ID)))
	}()

	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) handleReset(c *gin.Context) {
	s.session(c).Ctrl.Reset()
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) handleState(c *gin.Context) {
	sess := s.session(c)
	c.JSON(http.StatusOK, s.stateResponse(sess))
}

// handleAnalyze runs the whole attempt inside the request and answers with
// the resulting state.
func (s *Server) handleAnalyze(c *gin.Context) {
	sess := s.session(c)

	dataURL, status, notice := s.readUpload(c)
	if status != 0 {
		c.JSON(status, gin.H{"error": notice})
		return
	}

	gen, ok := sess.Ctrl.TryStart(dataURL)
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": msgBusy})
		return
	}
	sess.markStarted(time.Now())
	state.Await(c.Request.Context(), sess.Ctrl, gen, s.analyzer, dataURL, s.logger.With(zap.String("session", sess.ID)))

	c.JSON(http.StatusOK, s.stateResponse(sess))
}

func (s *Server) handleAPIReset(c *gin.Context) {
	sess := s.session(c)
	sess.Ctrl.Reset()
	c.JSON(http.StatusOK, s.stateResponse(sess))
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "provider": s.analyzer.Name()})
}

func (s *Server) stateResponse(sess *Session) StateResponse {
	st := sess.Ctrl.Snapshot()
	return StateResponse{
		AppState:       st,
		Mode:           views.Select(st),
		LoadingMessage: s.loadingMessage(sess, st),
	}
}

// readUpload returns the encoded image, or a non-zero status with the notice
// to show. Rejections never touch the session state.
func (s *Server) readUpload(c *gin.Context) (string, int, string) {
	fh, err := c.FormFile("image")
	if err != nil {
		return "", http.StatusBadRequest, msgNoFile
	}

	dataURL, err := s.intake.FromFileHeader(fh)
	if err != nil {
		var verr *intake.ValidationError
		if errors.As(err, &verr) {
			s.logger.Info("upload rejected", zap.String("filename", fh.Filename), zap.Error(err))
			switch {
			case errors.Is(err, intake.ErrTooLarge):
				return "", http.StatusRequestEntityTooLarge, verr.Notice()
			case errors.Is(err, intake.ErrNotImage):
				return "", http.StatusUnsupportedMediaType, verr.Notice()
			default:
				return "", http.StatusBadRequest, verr.Notice()
			}
		}
		_ = c.Error(err)
		return "", http.StatusInternalServerError, state.MsgUnknown
	}
	return dataURL, 0, ""
}

func refreshSeconds(interval time.Duration) int {
	if interval <= 0 {
		interval = views.DefaultLoadingInterval
	}
	return int(math.Max(1, math.Round(interval.Seconds())))
}

func pageURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host + "/"
}
