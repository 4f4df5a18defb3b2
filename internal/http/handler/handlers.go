package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"filerelay/internal/repository"
	"filerelay/internal/service"
)

// uploadResponse mirrors the relay's public upload contract.
type uploadResponse struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename"`
}

// listEntry is one row of the /list_files response.
type listEntry struct {
	Saved    string `json:"saved"`
	Original string `json:"original"`
}

type listResponse struct {
	Success bool        `json:"success"`
	Files   []listEntry `json:"files"`
}

// HealthCheck verifies the metadata store backing medium is reachable.
func HealthCheck(repo repository.FileRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := repo.Ping(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a backward-compatible simple liveness endpoint.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// UploadFile handles POST /upload (multipart/form-data, field name: file).
// The optional "sid" form or query value carries the uploader's push
// connection id so the broadcast can echo it back.
func UploadFile(svc service.RelayService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_INPUT", "no file part in the request")
		}
		if fh.Filename == "" {
			return writeError(c, fiber.StatusBadRequest, "INVALID_INPUT", "no file selected")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_INPUT", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		sid := c.FormValue("sid")
		if sid == "" {
			sid = c.Query("sid")
		}

		rec, err := svc.Upload(c.UserContext(), f, fh.Filename, ct, fh.Size, sid)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrFilenameRequired), errors.Is(err, service.ErrReaderNil):
				return writeError(c, fiber.StatusBadRequest, "INVALID_INPUT", "no file selected")
			case errors.Is(err, repository.ErrStoreUnavailable):
				return writeError(c, fiber.StatusServiceUnavailable, "STORE_UNAVAILABLE", "metadata store unavailable")
			default:
				return writeError(c, fiber.StatusBadGateway, "STORAGE_FAILURE", "upload could not be stored")
			}
		}
		return c.Status(fiber.StatusOK).JSON(uploadResponse{Success: true, Filename: rec.OriginalName})
	}
}

// ListFiles handles GET /list_files, returning committed records only.
func ListFiles(svc service.RelayService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		records, err := svc.List(c.UserContext())
		if err != nil {
			if errors.Is(err, repository.ErrStoreUnavailable) {
				return writeError(c, fiber.StatusServiceUnavailable, "STORE_UNAVAILABLE", "metadata store unavailable")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}

		files := make([]listEntry, 0, len(records))
		for _, rec := range records {
			files = append(files, listEntry{Saved: rec.SavedName, Original: rec.OriginalName})
		}
		return c.JSON(listResponse{Success: true, Files: files})
	}
}

// DownloadFile handles GET /uploads/:filename, streaming the blob with the
// resolved original filename offered for client-side save-as.
func DownloadFile(svc service.RelayService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		savedName := c.Params("filename")

		rc, rec, err := svc.Open(c.UserContext(), savedName)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "file not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}

		if rec.ContentType != "" {
			c.Set(fiber.HeaderContentType, rec.ContentType)
		}
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", rec.OriginalName))
		if rec.Size > 0 {
			return c.SendStream(rc, int(rec.Size))
		}
		return c.SendStream(rc)
	}
}
