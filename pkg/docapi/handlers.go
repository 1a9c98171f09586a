// Package docapi is the HTTP surface for uploading documents and
// inspecting their processing jobs. Uploads are accepted, persisted as
// pending documents and handed to the broker; all heavy work happens in
// the pipeline worker.
package docapi

import (
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/robypag/scentsmith/pkg/docproc"
	"github.com/robypag/scentsmith/pkg/docs"
	"github.com/robypag/scentsmith/pkg/errx"
	"github.com/robypag/scentsmith/pkg/iam/auth"
	"github.com/robypag/scentsmith/pkg/jobx"
	"github.com/robypag/scentsmith/pkg/logx"
)

// Handlers exposes the document and job endpoints.
type Handlers struct {
	store docs.Store
	jobs  *jobx.Manager
	log   *logx.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(store docs.Store, jobs *jobx.Manager, log *logx.Logger) *Handlers {
	return &Handlers{store: store, jobs: jobs, log: log}
}

// RegisterRoutes mounts the endpoints behind the auth middleware.
func (h *Handlers) RegisterRoutes(app *fiber.App, authn fiber.Handler) {
	api := app.Group("/api/v1", authn)
	api.Post("/documents", h.uploadDocument)
	api.Get("/documents/:id", h.getDocument)
	api.Get("/jobs", h.listJobs)
	api.Get("/jobs/:id", h.getJob)
}

// uploadDocument accepts a multipart upload, records a pending document
// and enqueues the processing job. Responds 202: processing is
// asynchronous and narrated over the event stream.
func (h *Handlers) uploadDocument(c *fiber.Ctx) error {
	user, ok := auth.UserFrom(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "multipart field 'file' is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return errx.Wrap(err, "opening uploaded file", errx.TypeInternal)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return errx.Wrap(err, "reading uploaded file", errx.TypeInternal)
	}

	mimeType := fileHeader.Header.Get(fiber.HeaderContentType)
	title := c.FormValue("title")
	if title == "" {
		title = fileHeader.Filename
	}

	doc := &docs.Document{
		ID:       uuid.NewString(),
		UserID:   user.ID,
		Title:    title,
		FileName: fileHeader.Filename,
		MimeType: mimeType,
		Status:   docs.StatusPending,
	}
	if err := h.store.Create(c.UserContext(), doc); err != nil {
		return err
	}

	jobID, err := h.jobs.Enqueue(c.UserContext(), jobx.CategoryDocumentProcessing, docproc.Payload{
		UserID:      user.ID,
		CreatedAt:   time.Now().UTC(),
		DocumentID:  doc.ID,
		FileName:    fileHeader.Filename,
		FileContent: content,
		MimeType:    mimeType,
	})
	if err != nil {
		// The document stays pending; the client can retry the upload.
		h.log.WithError(err).WithField("document_id", doc.ID).Error("enqueue failed after document create")
		return err
	}

	h.log.WithFields(logx.Fields{
		"document_id": doc.ID,
		"job_id":      jobID,
		"mime_type":   mimeType,
	}).Info("document accepted for processing")

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"documentId": doc.ID,
		"jobId":      jobID,
		"status":     docs.StatusPending,
	})
}

func (h *Handlers) getDocument(c *fiber.Ctx) error {
	user, ok := auth.UserFrom(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
	}

	doc, err := h.store.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if doc.UserID != user.ID {
		return fiber.NewError(fiber.StatusNotFound, "document not found")
	}
	return c.JSON(doc)
}

func (h *Handlers) getJob(c *fiber.Ctx) error {
	user, ok := auth.UserFrom(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
	}

	job, err := h.jobs.Status(c.UserContext(), jobx.CategoryDocumentProcessing, c.Params("id"))
	if err != nil {
		return err
	}
	if job == nil || job.UserID != user.ID {
		return fiber.NewError(fiber.StatusNotFound, "job not found")
	}
	return c.JSON(job)
}

func (h *Handlers) listJobs(c *fiber.Ctx) error {
	user, ok := auth.UserFrom(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
	}

	jobs, err := h.jobs.JobsForUser(c.UserContext(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"jobs": jobs})
}
