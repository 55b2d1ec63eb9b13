package backend

import (
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/CuongBC195/e-contract-backend/pkg/archive"
	"github.com/CuongBC195/e-contract-backend/pkg/docsign"
	"github.com/CuongBC195/e-contract-backend/pkg/hashverify"
	"github.com/CuongBC195/e-contract-backend/pkg/models"
	"github.com/CuongBC195/e-contract-backend/pkg/pdf"
	"github.com/CuongBC195/e-contract-backend/pkg/renderclient"
	"github.com/CuongBC195/e-contract-backend/pkg/storage/model"
)

// captureWidth is the CSS pixel width the capture service renders at. It
// represents exactly one page-content width.
const captureWidth = 800

type Server struct {
	e        *gin.Engine
	svc      *docsign.Service
	exporter *pdf.Exporter
	archive  *archive.Archive
	render   *renderclient.Client

	// validateToken decides whether a bearer token counts as an
	// authenticated requester. Authentication itself lives outside this
	// core; only the signing-mode gate is enforced here.
	validateToken func(token string) bool

	exportsMutex    sync.Mutex
	exportsInFlight map[string]bool

	limitersMutex sync.Mutex
	limiters      map[string]*rate.Limiter
	limit         rate.Limit
	burst         int
}

var log = logrus.StandardLogger().WithField("package", "backend")

type Option func(*Server)

// WithTokenValidator replaces the default "any non-empty bearer token"
// check.
func WithTokenValidator(fn func(token string) bool) Option {
	return func(s *Server) {
		s.validateToken = fn
	}
}

// WithArchive keeps a copy of every exported PDF.
func WithArchive(a *archive.Archive) Option {
	return func(s *Server) {
		s.archive = a
	}
}

// WithRateLimit overrides the per-client request budget.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) {
		s.limit = rate.Limit(perSecond)
		s.burst = burst
	}
}

func WithExporter(e *pdf.Exporter) Option {
	return func(s *Server) {
		s.exporter = e
	}
}

// WithRenderClient makes exports render the document through the headless
// capture service instead of the structured layout. The structured layout
// stays the fallback when the service is unreachable.
func WithRenderClient(rc *renderclient.Client) Option {
	return func(s *Server) {
		s.render = rc
	}
}

func New(store model.DocumentStore, opts ...Option) *Server {
	s := &Server{
		e:               gin.New(),
		svc:             docsign.New(store),
		exporter:        pdf.NewExporter(),
		validateToken:   func(token string) bool { return token != "" },
		exportsInFlight: map[string]bool{},
		limiters:        map[string]*rate.Limiter{},
		limit:           rate.Limit(10),
		burst:           20,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.initRoutes()
	return s
}

func (s *Server) Run(addr string) error {
	return s.e.Run(addr)
}

// Engine exposes the router, for tests.
func (s *Server) Engine() *gin.Engine {
	return s.e
}

func (s *Server) initRoutes() {
	s.e.Use(gin.Logger())
	s.e.Use(gin.Recovery())
	s.e.Use(cors.Default())
	s.e.Use(s.rateLimitMiddleware())

	g := s.e.Group("/api/v1")
	g.POST("/documents", s.handleCreateDocument)
	g.GET("/documents", s.handleListDocuments)
	g.GET("/documents/:id", s.handleGetDocument)
	g.PUT("/documents/:id", s.handleEditDocument)
	g.POST("/documents/:id/sign", s.handleSign)
	g.POST("/documents/:id/export", s.handleExport)
	g.GET("/documents/:id/exports", s.handleListExports)
	g.GET("/documents/:id/exports/:name", s.handleGetExport)
}

var (
	badRequest          = gin.H{"error": "bad request"}
	notFound            = gin.H{"error": "not found"}
	internalServerError = gin.H{"error": "internal server error"}
)

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.limitersMutex.Lock()
		limiter, ok := s.limiters[c.ClientIP()]
		if !ok {
			limiter = rate.NewLimiter(s.limit, s.burst)
			s.limiters[c.ClientIP()] = limiter
		}
		s.limitersMutex.Unlock()

		if !limiter.Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": docsign.ErrRateLimited.Error(),
			})
			return
		}
		c.Next()
	}
}

func (s *Server) isAuthenticated(c *gin.Context) bool {
	auth := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || auth[:len(prefix)] != prefix {
		return false
	}
	return s.validateToken(auth[len(prefix):])
}

type signerRequest struct {
	Id    string `json:"id"`
	Role  string `json:"role"`
	Name  string `json:"name" binding:"required"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type createDocumentRequest struct {
	Kind        models.DocumentKind `json:"kind"`
	Title       string              `json:"title" binding:"required"`
	Content     string              `json:"content"`
	Metadata    models.Metadata     `json:"metadata"`
	SigningMode models.SigningMode  `json:"signingMode"`
	Signers     []signerRequest     `json:"signers" binding:"required"`
}

type documentResponse struct {
	*models.Document
	HashVerification hashverify.Result `json:"hashVerification"`
}

func (s *Server) handleCreateDocument(c *gin.Context) {
	var req createDocumentRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, badRequest)
		return
	}

	params := docsign.CreateParams{
		Kind:        req.Kind,
		Title:       req.Title,
		Content:     req.Content,
		Metadata:    req.Metadata,
		SigningMode: req.SigningMode,
		CreatedBy:   c.GetHeader("X-User-Id"),
	}
	for _, sr := range req.Signers {
		params.Signers = append(params.Signers, models.Signer{
			Id:    sr.Id,
			Role:  sr.Role,
			Name:  sr.Name,
			Email: sr.Email,
			Phone: sr.Phone,
		})
	}

	doc, err := s.svc.Create(params)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, documentResponse{Document: doc, HashVerification: hashverify.Result{IsValid: true}})
}

func (s *Server) handleGetDocument(c *gin.Context) {
	doc, verification, err := s.svc.Get(c.Param("id"), c.GetHeader("X-User-Id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, documentResponse{Document: doc, HashVerification: verification})
}

func (s *Server) handleListDocuments(c *gin.Context) {
	docs, err := s.svc.List()
	if err != nil {
		log.Errorf("unable to list documents: %v", err)
		c.JSON(http.StatusInternalServerError, internalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

type editDocumentRequest struct {
	Title    *string          `json:"title"`
	Content  *string          `json:"content"`
	Metadata *models.Metadata `json:"metadata"`
}

func (s *Server) handleEditDocument(c *gin.Context) {
	var req editDocumentRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, badRequest)
		return
	}

	doc, err := s.svc.Edit(c.Param("id"), docsign.EditParams{
		Title:    req.Title,
		Content:  req.Content,
		Metadata: req.Metadata,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, documentResponse{Document: doc, HashVerification: hashverify.Verify(doc)})
}

type signRequest struct {
	SignerId  string                `json:"signerId" binding:"required"`
	Signature *models.SignatureData `json:"signature" binding:"required"`
}

func (s *Server) handleSign(c *gin.Context) {
	var req signRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, badRequest)
		return
	}

	result, err := s.svc.SubmitSignature(docsign.SubmitRequest{
		DocumentId:    c.Param("id"),
		SignerId:      req.SignerId,
		Signature:     req.Signature,
		Authenticated: s.isAuthenticated(c),
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"document":      result.Document,
		"alreadySigned": result.AlreadySigned,
	})
}

type exportRequest struct {
	Capture *struct {
		// Image is the base64-encoded full-page capture.
		Image      string  `json:"image"`
		KnownWidth float64 `json:"knownWidth"`
	} `json:"capture"`
}

func (s *Server) handleExport(c *gin.Context) {
	id := c.Param("id")

	s.exportsMutex.Lock()
	if s.exportsInFlight[id] {
		s.exportsMutex.Unlock()
		c.JSON(http.StatusConflict, gin.H{"error": "export already in progress"})
		return
	}
	s.exportsInFlight[id] = true
	s.exportsMutex.Unlock()
	defer func() {
		s.exportsMutex.Lock()
		delete(s.exportsInFlight, id)
		s.exportsMutex.Unlock()
	}()

	doc, _, err := s.svc.Get(id, "")
	if err != nil {
		s.writeError(c, err)
		return
	}

	var req exportRequest
	if c.Request.ContentLength > 0 {
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, badRequest)
			return
		}
	}

	var data []byte
	if req.Capture != nil {
		img, err := base64.StdEncoding.DecodeString(req.Capture.Image)
		if err != nil {
			c.JSON(http.StatusBadRequest, badRequest)
			return
		}
		data, err = s.exporter.ExportCapture(c.Request.Context(), img, req.Capture.KnownWidth)
		if err != nil {
			s.writeError(c, err)
			return
		}
	} else {
		data, err = s.exportDocument(c, doc)
		if err != nil {
			s.writeError(c, err)
			return
		}
	}

	if s.archive != nil {
		if _, err := s.archive.Store(doc.Id, data); err != nil {
			// Archival is best effort; the caller still gets the PDF.
			log.Warnf("unable to archive export of %s: %v", doc.Id, err)
		}
	}

	c.Header("Content-Disposition", `attachment; filename="`+doc.Id+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", data)
}

func (s *Server) handleListExports(c *gin.Context) {
	if s.archive == nil {
		c.JSON(http.StatusNotFound, notFound)
		return
	}
	id := c.Param("id")
	if _, _, err := s.svc.Get(id, ""); err != nil {
		s.writeError(c, err)
		return
	}
	names, err := s.archive.List(id)
	if err != nil {
		log.Errorf("unable to list exports of %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, internalServerError)
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"exports": names})
}

func (s *Server) handleGetExport(c *gin.Context) {
	if s.archive == nil {
		c.JSON(http.StatusNotFound, notFound)
		return
	}
	name := c.Param("name")
	if strings.Contains(name, "/") || strings.Contains(name, "..") {
		c.JSON(http.StatusBadRequest, badRequest)
		return
	}
	data, err := s.archive.Retrieve(c.Param("id"), name)
	if os.IsNotExist(err) {
		c.JSON(http.StatusNotFound, notFound)
		return
	}
	if err != nil {
		log.Errorf("unable to retrieve export %s of %s: %v", name, c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, internalServerError)
		return
	}
	c.Data(http.StatusOK, "application/pdf", data)
}

// exportDocument renders through the capture service when one is
// configured, falling back to the structured layout if the service cannot
// produce a capture.
func (s *Server) exportDocument(c *gin.Context, doc *models.Document) ([]byte, error) {
	if s.render != nil {
		capture, err := s.render.Render(documentHtml(doc), captureWidth)
		if err == nil {
			return s.exporter.ExportCapture(c.Request.Context(), capture.Image, captureWidth)
		}
		log.Warnf("capture service failed for %s, using structured layout: %v", doc.Id, err)
	}
	return s.exporter.Export(c.Request.Context(), doc)
}

// documentHtml builds the page the capture service renders. The document
// content is already markup and passes through untouched; everything else
// is escaped.
func documentHtml(doc *models.Document) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><body>")
	fmt.Fprintf(&b, "<h1>%s</h1>", html.EscapeString(doc.Title))
	if doc.Metadata.ContractNumber != "" {
		fmt.Fprintf(&b, "<p>Số: %s</p>", html.EscapeString(doc.Metadata.ContractNumber))
	}
	if doc.Metadata.Location != "" || doc.Metadata.CreatedDate != "" {
		fmt.Fprintf(&b, "<p>%s, ngày %s</p>",
			html.EscapeString(doc.Metadata.Location), html.EscapeString(doc.Metadata.CreatedDate))
	}
	b.WriteString(doc.Content)
	for _, signer := range doc.Signers {
		fmt.Fprintf(&b, "<div><strong>%s</strong> %s</div>",
			html.EscapeString(signer.Role), html.EscapeString(signer.Name))
	}
	b.WriteString("</body></html>")
	return b.String()
}

func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, notFound)
	case errors.Is(err, docsign.ErrEmptySignature):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": docsign.ErrEmptySignature.Error()})
	case errors.Is(err, docsign.ErrUnknownSigner):
		c.JSON(http.StatusBadRequest, gin.H{"error": docsign.ErrUnknownSigner.Error()})
	case errors.Is(err, docsign.ErrSigningModeViolation):
		c.JSON(http.StatusUnauthorized, gin.H{"error": docsign.ErrSigningModeViolation.Error()})
	case errors.Is(err, docsign.ErrDocumentLocked):
		c.JSON(http.StatusConflict, gin.H{"error": docsign.ErrDocumentLocked.Error()})
	case errors.Is(err, docsign.ErrPdfGenerationFailed):
		log.Errorf("pdf generation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": docsign.ErrPdfGenerationFailed.Error()})
	default:
		log.Errorf("unhandled error: %v", err)
		c.JSON(http.StatusInternalServerError, internalServerError)
	}
}
