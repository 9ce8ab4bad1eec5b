package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vincent-vinf/go-jsend"
	"go.uber.org/zap"

	"ar-tryon/pkg/catalog"
	"ar-tryon/pkg/media"
	"ar-tryon/pkg/session"
	"ar-tryon/pkg/utils"
	"ar-tryon/pkg/utils/ps"
)

type Server struct {
	catalog *catalog.Catalog
	ctrl    *session.Controller
	media   *media.Adapter
	logger  *zap.SugaredLogger

	engine *gin.Engine
}

func New(cat *catalog.Catalog, ctrl *session.Controller, adapter *media.Adapter) *Server {
	s := &Server{
		catalog: cat,
		ctrl:    ctrl,
		media:   adapter,
		logger:  utils.GetLogger(),
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(utils.Cors())
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, jsend.SimpleErr("page not found"))
	})

	apiRouter := r.Group("/api")

	catalogRouter := apiRouter.Group("/catalog")
	catalogRouter.GET("", s.listItems)
	catalogRouter.GET("/:id", s.getItem)

	sessionRouter := apiRouter.Group("/session")
	sessionRouter.GET("", s.getSession)
	sessionRouter.DELETE("", s.cancel)
	sessionRouter.GET("/events", s.sessionEvents)
	sessionRouter.POST("/try-on/:id", s.startTryOn)
	sessionRouter.POST("/method/:method", s.chooseMethod)
	sessionRouter.POST("/retake", s.retake)
	sessionRouter.PUT("/size", s.selectSize)
	sessionRouter.PUT("/color", s.selectColor)
	sessionRouter.GET("/photo", s.photo)
	sessionRouter.GET("/live", s.liveVideo)

	mediaRouter := apiRouter.Group("/media")
	mediaRouter.POST("/:source", s.deliverMedia)
	mediaRouter.DELETE("/:source", s.dismissMedia)

	deviceRouter := apiRouter.Group("/device")
	deviceRouter.GET("/status", s.deviceStatus)

	s.engine = r

	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// RegisterStatics serves a UI build directory at the root.
func (s *Server) RegisterStatics(dir string) error {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("the specified directory %s does not exist", dir)
	}
	dir = filepath.ToSlash(filepath.Clean(dir))
	s.engine.StaticFile("/", filepath.Join(dir, "index.html"))
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			relativePath := path.Join("/", strings.Replace(filepath.ToSlash(p), dir, "", 1))
			s.engine.StaticFile(relativePath, p)
		}
		return nil
	})
}

func (s *Server) listItems(c *gin.Context) {
	items := s.catalog.Items()
	res := make([]itemView, 0, len(items))
	for _, it := range items {
		res = append(res, newItemView(it))
	}

	c.JSON(http.StatusOK, jsend.Success(res))
}

func (s *Server) getItem(c *gin.Context) {
	it, err := s.catalog.Get(c.Param("id"))
	if err != nil {
		s.intentErr(c, err)
		return
	}

	c.JSON(http.StatusOK, jsend.Success(newItemView(it)))
}

func (s *Server) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, jsend.Success(newSessionView(s.ctrl.Snapshot())))
}

func (s *Server) sessionEvents(c *gin.Context) {
	snaps, unsubscribe := s.ctrl.Subscribe()
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			c.SSEvent("session", newSessionView(snap))
			c.Writer.Flush()
		}
	}
}

func (s *Server) startTryOn(c *gin.Context) {
	it, err := s.catalog.Get(c.Param("id"))
	if err != nil {
		s.intentErr(c, err)
		return
	}
	if err = s.ctrl.StartTryOn(&it); err != nil {
		s.intentErr(c, err)
		return
	}

	c.JSON(http.StatusOK, jsend.Success(newSessionView(s.ctrl.Snapshot())))
}

func (s *Server) chooseMethod(c *gin.Context) {
	m, err := session.ParseMethod(c.Param("method"))
	if err != nil {
		c.JSON(http.StatusBadRequest, jsend.SimpleErr(err.Error()))
		return
	}
	// acquisition outlives the request: a picker waits for a separate upload
	done, err := s.ctrl.ChooseAsync(context.Background(), m)
	if err != nil {
		s.intentErr(c, err)
		return
	}
	go s.watch(m, done)

	c.JSON(http.StatusAccepted, jsend.Success(newSessionView(s.ctrl.Snapshot())))
}

func (s *Server) retake(c *gin.Context) {
	done, err := s.ctrl.RetakeAsync(context.Background())
	if err != nil {
		s.intentErr(c, err)
		return
	}
	go s.watch(session.MethodNone, done)

	c.JSON(http.StatusAccepted, jsend.Success(newSessionView(s.ctrl.Snapshot())))
}

func (s *Server) watch(m session.Method, done <-chan error) {
	err := <-done
	switch {
	case err == nil:
	case errors.Is(err, session.ErrSuperseded):
		s.logger.Debugf("acquisition %s superseded", m)
	default:
		s.logger.Infof("acquisition %s: %s", m, err)
	}
}

type selection struct {
	Value string `json:"value" binding:"required"`
}

func (s *Server) selectSize(c *gin.Context) {
	var sel selection
	if err := c.ShouldBindJSON(&sel); err != nil {
		c.JSON(http.StatusBadRequest, jsend.SimpleErr(err.Error()))
		return
	}
	if err := s.ctrl.SelectSize(sel.Value); err != nil {
		s.intentErr(c, err)
		return
	}

	c.JSON(http.StatusOK, jsend.Success(newSessionView(s.ctrl.Snapshot())))
}

func (s *Server) selectColor(c *gin.Context) {
	var sel selection
	if err := c.ShouldBindJSON(&sel); err != nil {
		c.JSON(http.StatusBadRequest, jsend.SimpleErr(err.Error()))
		return
	}
	if err := s.ctrl.SelectColor(sel.Value); err != nil {
		s.intentErr(c, err)
		return
	}

	c.JSON(http.StatusOK, jsend.Success(newSessionView(s.ctrl.Snapshot())))
}

func (s *Server) cancel(c *gin.Context) {
	s.ctrl.Cancel()
	c.JSON(http.StatusOK, jsend.Success(newSessionView(s.ctrl.Snapshot())))
}

func (s *Server) photo(c *gin.Context) {
	img, ok := s.ctrl.Snapshot().Image()
	if !ok {
		c.JSON(http.StatusNotFound, jsend.SimpleErr("no photo in the current session"))
		return
	}
	c.Header("ETag", `"`+img.ID+`"`)
	c.Data(http.StatusOK, img.MIME, img.Data)
}

func (s *Server) liveVideo(c *gin.Context) {
	stream, ok := s.ctrl.Snapshot().Stream()
	if !ok {
		c.JSON(http.StatusNotFound, jsend.SimpleErr("live camera is not active"))
		return
	}
	frames, unsubscribe := stream.Subscribe()
	defer unsubscribe()

	mimeWriter := multipart.NewWriter(c.Writer)
	c.Header("Content-Type", fmt.Sprintf("multipart/x-mixed-replace; boundary=%s", mimeWriter.Boundary()))
	c.Status(http.StatusOK)
	partHeader := make(textproto.MIMEHeader)
	partHeader.Add("Content-Type", "image/jpeg")

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			partWriter, err := mimeWriter.CreatePart(partHeader)
			if err != nil {
				s.logger.Warnf("failed to create multi-part writer: %s", err)
				return
			}
			if _, err = partWriter.Write(frame); err != nil {
				s.logger.Warnf("failed to write frame: %s", err)
				return
			}
			c.Writer.Flush()
		}
	}
}

func (s *Server) deliverMedia(c *gin.Context) {
	p, ok := s.media.Picker(c.Param("source"))
	if !ok {
		c.JSON(http.StatusNotFound, jsend.SimpleErr("unknown media source"))
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, jsend.SimpleErr(err.Error()))
		return
	}
	f, err := fh.Open()
	if err != nil {
		internalErr(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, p.MaxSize()+1))
	if err != nil {
		internalErr(c, err)
		return
	}

	if err = p.Deliver(data); err != nil {
		s.mediaErr(c, err)
		return
	}

	c.JSON(http.StatusOK, jsend.Success(gin.H{"source": p.Name(), "size": len(data)}))
}

func (s *Server) dismissMedia(c *gin.Context) {
	p, ok := s.media.Picker(c.Param("source"))
	if !ok {
		c.JSON(http.StatusNotFound, jsend.SimpleErr("unknown media source"))
		return
	}
	if err := p.Dismiss(); err != nil {
		s.mediaErr(c, err)
		return
	}

	c.JSON(http.StatusOK, jsend.Success(gin.H{"source": p.Name()}))
}

func (s *Server) deviceStatus(c *gin.Context) {
	status, err := ps.HostStatus()
	if err != nil {
		internalErr(c, err)
		return
	}

	c.JSON(http.StatusOK, jsend.Success(status))
}

func (s *Server) intentErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, jsend.SimpleErr(err.Error()))
	case errors.Is(err, session.ErrInvalidSelection):
		c.JSON(http.StatusBadRequest, jsend.SimpleErr(err.Error()))
	case errors.Is(err, session.ErrStateViolation):
		c.JSON(http.StatusConflict, jsend.SimpleErr(err.Error()))
	default:
		internalErr(c, err)
	}
}

func (s *Server) mediaErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, media.ErrNoPendingRequest):
		c.JSON(http.StatusConflict, jsend.SimpleErr(err.Error()))
	case errors.Is(err, media.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, jsend.SimpleErr(err.Error()))
	case errors.Is(err, media.ErrUnsupportedImage):
		c.JSON(http.StatusUnsupportedMediaType, jsend.SimpleErr(err.Error()))
	default:
		internalErr(c, err)
	}
}

func internalErr(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, jsend.SimpleErr(err.Error()))
}
