package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"file-drop/internal/audit"
	"file-drop/internal/storage"
)

// uploadResp is the JSON response returned after a successful file upload.
type uploadResp struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Path     string `json:"path"`
}

// apiError carries the status and client message for a failed upload.
type apiError struct {
	status  int
	message string
	outcome audit.Outcome
	err     error
}

// handleUpload handles POST /upload. The request carries exactly one file in
// the multipart field "file"; it is streamed straight to disk under a
// collision-safe name.
//
// 400: no "file" field or an empty/unusable filename
// 413: the request or the file exceeds its limit
// 500: the write failed
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ev := audit.Event{
		RequestID: RequestIDFromContext(r.Context()),
		ClientIP:  getClientIP(r),
	}

	res, fail := s.receiveUpload(w, r, &ev)
	if fail != nil {
		ev.Outcome = fail.outcome
		ev.ErrorMsg = fail.message
		s.metrics.RecordUpload(string(fail.outcome), 0, false)
		if fail.status >= http.StatusInternalServerError {
			s.log.Error("upload failed", map[string]any{"rid": ev.RequestID, "file": ev.DisplayName}, fail.err)
		} else {
			s.log.Warn("upload rejected", map[string]any{"rid": ev.RequestID, "reason": fail.message})
		}
		s.recordAudit(r.Context(), ev)
		writeError(w, fail.status, fail.message)
		return
	}

	ev.Outcome = audit.OutcomeStored
	ev.DisplayName = res.DisplayName
	ev.StoredName = res.StoredName
	ev.SizeBytes = res.Size
	ev.Renamed = res.Renamed()
	s.metrics.RecordUpload(string(audit.OutcomeStored), res.Size, res.Renamed())
	s.metrics.ObserveUploadDuration(time.Since(start))

	s.log.Info("file stored", map[string]any{
		"rid":     ev.RequestID,
		"file":    res.StoredName,
		"size":    res.Size,
		"renamed": res.Renamed(),
	})

	s.mirrorFile(r.Context(), res)
	s.recordAudit(r.Context(), ev)

	writeJSON(w, http.StatusOK, uploadResp{
		Message:  "file uploaded successfully",
		Filename: res.StoredName,
		Size:     res.Size,
		Path:     res.Path,
	})
}

// receiveUpload finds the "file" part and hands it to the store.
func (s *Server) receiveUpload(w http.ResponseWriter, r *http.Request, ev *audit.Event) (*storage.SaveResult, *apiError) {
	if s.maxRequest > 0 {
		if r.ContentLength > s.maxRequest {
			return nil, s.tooLarge(fmt.Errorf("content length %d", r.ContentLength))
		}
		r.Body = http.MaxBytesReader(w, r.Body, s.maxRequest)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, &apiError{
			status:  http.StatusBadRequest,
			message: "request must be multipart/form-data",
			outcome: audit.OutcomeRejected,
			err:     err,
		}
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if isMaxBytes(err) {
				return nil, s.tooLarge(err)
			}
			return nil, &apiError{
				status:  http.StatusBadRequest,
				message: "malformed multipart body",
				outcome: audit.OutcomeRejected,
				err:     err,
			}
		}

		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}

		name := part.FileName()
		ev.DisplayName = storage.SanitizeFilename(name)
		res, err := s.store.Save(r.Context(), name, part)
		_ = part.Close()
		if err != nil {
			return nil, s.classifySaveError(err)
		}
		return res, nil
	}

	return nil, &apiError{
		status:  http.StatusBadRequest,
		message: "no file part in request",
		outcome: audit.OutcomeRejected,
	}
}

func (s *Server) classifySaveError(err error) *apiError {
	switch {
	case errors.Is(err, storage.ErrEmptyFilename):
		return &apiError{status: http.StatusBadRequest, message: "no file selected", outcome: audit.OutcomeRejected, err: err}
	case errors.Is(err, storage.ErrInvalidFilename):
		return &apiError{status: http.StatusBadRequest, message: "filename has no usable characters", outcome: audit.OutcomeRejected, err: err}
	case errors.Is(err, storage.ErrFileTooLarge), isMaxBytes(err):
		return s.tooLarge(err)
	}
	return &apiError{
		status:  http.StatusInternalServerError,
		message: fmt.Sprintf("error saving file: %v", err),
		outcome: audit.OutcomeFailed,
		err:     err,
	}
}

func (s *Server) tooLarge(err error) *apiError {
	return &apiError{
		status:  http.StatusRequestEntityTooLarge,
		message: fmt.Sprintf("file too large: maximum %s per file", humanize.IBytes(uint64(s.store.MaxFileBytes()))),
		outcome: audit.OutcomeRejected,
		err:     err,
	}
}

func isMaxBytes(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

// mirrorFile copies the stored file to object storage. Failures are logged
// and counted but never fail the upload.
func (s *Server) mirrorFile(ctx context.Context, res *storage.SaveResult) {
	if s.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	if err := s.mirror.Put(ctx, res.Path, res.StoredName); err != nil {
		s.metrics.RecordMirrorError()
		s.log.Error("mirror failed", map[string]any{"file": res.StoredName}, err)
	}
}

func (s *Server) recordAudit(ctx context.Context, ev audit.Event) {
	if s.audit == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	if err := s.audit.Record(ctx, ev); err != nil {
		s.metrics.RecordAuditError()
		s.log.Error("audit record failed", map[string]any{"rid": ev.RequestID}, err)
	}
}
